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

// go/src/cli/cli/flags.go
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/sphinx-core/stark-pqc/src/accounts/keystore"
	"github.com/sphinx-core/stark-pqc/src/common"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
	"github.com/sphinx-core/stark-pqc/src/core/types"
)

const (
	NodeKey       = "node"
	TransportKey  = "transport"
	OutKey        = "out"
	KeyFileKey    = "key"
	KEMKeyKey     = "kem-key"
	KEMPubKey     = "kem-pub"
	RecipientKey  = "recipient"
	SenderKey     = "sender"
	SequenceKey   = "seq"
	MessageKey    = "message"
	FileKey       = "file"
	CipherKey     = "cipher"
	QueriesKey    = "queries"
	BlowupKey     = "blowup"
	GrindingKey   = "grinding"
	RemainderKey  = "max-remainder-degree"
	PassphraseKey = "passphrase"
	OutboxKey     = "outbox"
)

const (
	TransportREST = "rest"
	TransportRPC  = "rpc"
	TransportWS   = "ws"
)

var errMissingFlag = errors.New("missing required flag")

// AddNodeFlags registers the flags selecting a node and transport.
func AddNodeFlags(flags *pflag.FlagSet) {
	flags.String(NodeKey, "http://"+common.DefaultConfig().HTTPAddr, "Base URL of the node API")
	flags.String(TransportKey, TransportREST, "API transport: rest, rpc or ws")
}

// AddProofFlags registers the STARK proof options.
func AddProofFlags(flags *pflag.FlagSet) {
	o := zk.DefaultOptions()
	flags.Uint8(QueriesKey, o.NumQueries, "Number of FRI queries")
	flags.Uint8(BlowupKey, o.BlowupFactor, "Low degree extension blowup factor")
	flags.Uint8(GrindingKey, o.GrindingFactor, "Proof of work bits")
	flags.Uint8(RemainderKey, o.MaxRemainderDegree, "Largest FRI remainder degree")
}

// ParseNodeFlags reads the node selection.
func ParseNodeFlags(flags *pflag.FlagSet) (Config, error) {
	var c Config
	var err error
	if c.Node, err = flags.GetString(NodeKey); err != nil {
		return c, err
	}
	if c.Transport, err = flags.GetString(TransportKey); err != nil {
		return c, err
	}
	switch c.Transport {
	case TransportREST, TransportRPC, TransportWS:
	default:
		return c, errors.New("transport must be rest, rpc or ws")
	}
	return c, nil
}

// ParseProofFlags reads and validates the proof options.
func ParseProofFlags(flags *pflag.FlagSet) (zk.ProofOptions, error) {
	var o zk.ProofOptions
	var err error
	if o.NumQueries, err = flags.GetUint8(QueriesKey); err != nil {
		return o, err
	}
	if o.BlowupFactor, err = flags.GetUint8(BlowupKey); err != nil {
		return o, err
	}
	if o.GrindingFactor, err = flags.GetUint8(GrindingKey); err != nil {
		return o, err
	}
	if o.MaxRemainderDegree, err = flags.GetUint8(RemainderKey); err != nil {
		return o, err
	}
	return o, o.Validate()
}

func requiredString(flags *pflag.FlagSet, name string) (string, error) {
	v, err := flags.GetString(name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: --%s", errMissingFlag, name)
	}
	return v, nil
}

func parsePubkeyFlag(flags *pflag.FlagSet, name string) (types.Pubkey, error) {
	s, err := requiredString(flags, name)
	if err != nil {
		return types.Pubkey{}, err
	}
	return types.ParsePubkey(s)
}

// readHexFile reads a file holding one hex string.
func readHexFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return common.Hex2Bytes(string(bytes.TrimSpace(data)))
}

func writeHexFile(path string, b []byte, mode os.FileMode) error {
	return os.WriteFile(path, []byte(common.Bytes2Hex(b)+"\n"), mode)
}

// readSecretFile reads a private key stored either as bare hex or as an
// encrypted key file of the given kind.
func readSecretFile(path, passphrase string, kind keystore.Kind) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !keystore.IsKeyFile(data) {
		return common.Hex2Bytes(string(bytes.TrimSpace(data)))
	}
	if passphrase == "" {
		return nil, fmt.Errorf("%w: --%s (%s is encrypted)", errMissingFlag, PassphraseKey, path)
	}
	kf, err := keystore.Parse(data)
	if err != nil {
		return nil, err
	}
	if kf.Kind != kind {
		return nil, fmt.Errorf("%s holds a %s key, want %s", path, kf.Kind, kind)
	}
	return kf.Decrypt([]byte(passphrase))
}

// writeSecretFile writes a private key, encrypted when passphrase is set.
func writeSecretFile(path string, kind keystore.Kind, secret, public []byte, passphrase string) error {
	if passphrase == "" {
		return writeHexFile(path, secret, 0o600)
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	kf, err := keystore.Encrypt(id, kind, secret, public, []byte(passphrase), keystore.DefaultKDF, nil)
	if err != nil {
		return err
	}
	return keystore.WriteFile(path, kf)
}
