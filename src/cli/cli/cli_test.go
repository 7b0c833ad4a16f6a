// MIT License
//
// # Copyright (c) 2024 sphinx-core
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// go/src/cli/cli/cli_test.go
package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sphinx-core/stark-pqc/src/accounts/keystore"
	"github.com/sphinx-core/stark-pqc/src/client"
	"github.com/sphinx-core/stark-pqc/src/common"
	"github.com/sphinx-core/stark-pqc/src/core/stark/verifier"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"github.com/sphinx-core/stark-pqc/src/security"
	"github.com/sphinx-core/stark-pqc/src/server"
	"github.com/sphinx-core/stark-pqc/src/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := Command()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

func startNode(t *testing.T) string {
	t.Helper()
	cfg := common.DefaultConfig()
	cfg.Backend = "memory"
	cfg.DataDir = t.TempDir()
	cfg.HTTPAddr = "127.0.0.1:0"
	store, err := server.OpenStore(cfg)
	require.NoError(t, err)
	srv, err := server.NewServer(cfg, store, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Close(context.Background()) })
	return "http://" + srv.Addr().String()
}

func TestKeygenWritesKeys(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "keygen", "--out", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sender "))

	raw, err := readHexFile(filepath.Join(dir, SigningKeyFile))
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	info, err := os.Stat(filepath.Join(dir, SigningKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = run(t, "kem-gen", "--out", dir)
	require.NoError(t, err)
	raw, err = readHexFile(filepath.Join(dir, KEMPublicFile))
	require.NoError(t, err)
	_, err = security.ParseKEMPublicKey(raw)
	require.NoError(t, err)
}

func TestProveOutputVerifies(t *testing.T) {
	cipher := bytes.Repeat([]byte{0x33}, 40)
	out, err := run(t, "prove", "--cipher", common.Bytes2Hex(cipher))
	require.NoError(t, err)
	proof, err := common.Hex2Bytes(strings.TrimSpace(out))
	require.NoError(t, err)
	require.NoError(t, verifier.Verify(proof, cipher, nil))

	_, err = run(t, "prove")
	assert.ErrorIs(t, err, errMissingFlag)
	_, err = run(t, "prove", "--cipher", "00", "--blowup", "3")
	assert.Error(t, err)
}

func TestSendReadVerify(t *testing.T) {
	node := startNode(t)
	dir := t.TempDir()
	_, err := run(t, "keygen", "--out", dir)
	require.NoError(t, err)
	_, err = run(t, "kem-gen", "--out", dir)
	require.NoError(t, err)

	recipient := types.Pubkey{0x44}.String()
	out, err := run(t, "send",
		"--node", node,
		"--transport", TransportRPC,
		"--key", filepath.Join(dir, SigningKeyFile),
		"--kem-pub", filepath.Join(dir, KEMPublicFile),
		"--recipient", recipient,
		"--seq", "9",
		"--message", "hello recipient")
	require.NoError(t, err, out)
	assert.Contains(t, out, "status verified")

	// The stored record leaves nothing pending next to the key.
	store, err := state.OpenLevelDB(filepath.Join(dir, OutboxDir))
	require.NoError(t, err)
	pending, err := client.NewOutbox(store, nil).Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
	n := 0
	require.NoError(t, store.Scan(nil, func(_, _ []byte) error { n++; return nil }))
	assert.Zero(t, n)
	require.NoError(t, store.Close())

	out, err = run(t, "read", "--node", node, "--transport", TransportWS,
		"--recipient", recipient, "--kem-key", filepath.Join(dir, KEMPrivateFile))
	require.NoError(t, err)
	assert.Contains(t, out, "seq 9")
	assert.Contains(t, out, "hello recipient")

	_, err = run(t, "read", "--node", node, "--recipient", recipient, "--seq", "10")
	assert.Error(t, err)

	sender := strings.Fields(strings.Split(out, "from ")[1])[0]
	out, err = run(t, "verify", "--node", node, "--sender", sender, "--recipient", recipient, "--seq", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "phase proof_verified")
}

func TestBadFlags(t *testing.T) {
	_, err := run(t, "read", "--transport", "smoke", "--recipient", types.Pubkey{1}.String())
	assert.Error(t, err)
	_, err = run(t, "read")
	assert.ErrorIs(t, err, errMissingFlag)
	_, err = run(t, "--log-level", "loud", "keygen", "--out", t.TempDir())
	assert.Error(t, err)
}

func TestEncryptedKeyFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "kem-gen", "--out", dir, "--passphrase", "hunter2")
	require.NoError(t, err)

	path := filepath.Join(dir, KEMPrivateFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, keystore.IsKeyFile(data))

	raw, err := readSecretFile(path, "hunter2", keystore.KindKyber768)
	require.NoError(t, err)
	_, err = security.ParseKEMPrivateKey(raw)
	require.NoError(t, err)

	_, err = readSecretFile(path, "", keystore.KindKyber768)
	assert.ErrorIs(t, err, errMissingFlag)
	_, err = readSecretFile(path, "wrong", keystore.KindKyber768)
	assert.ErrorIs(t, err, keystore.ErrWrongPassphrase)
	_, err = readSecretFile(path, "hunter2", keystore.KindSLHDSA)
	assert.Error(t, err)
}
