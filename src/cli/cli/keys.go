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

// go/src/cli/cli/keys.go
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/sphinx-core/stark-pqc/src/accounts/keystore"
	"github.com/sphinx-core/stark-pqc/src/client"
	key "github.com/sphinx-core/stark-pqc/src/core/sphincs/key/backend"
	"github.com/sphinx-core/stark-pqc/src/security"
)

// Key file names written under --out.
const (
	SigningKeyFile = "slhdsa.key"
	VerifyKeyFile  = "slhdsa.pub"
	KEMPrivateFile = "kem.key"
	KEMPublicFile  = "kem.pub"
)

// OutboxDir holds pending sends, next to the signing key by default.
const OutboxDir = "outbox"

func keygenCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "keygen",
		Short: "Generates an SLH-DSA signing key pair",
		Args:  cobra.NoArgs,
		RunE:  keygenFunc,
	}
	c.Flags().String(OutKey, ".", "Directory to write the key files to")
	c.Flags().String(PassphraseKey, "", "Encrypts the private key file when set")
	return c
}

func keygenFunc(c *cobra.Command, _ []string) error {
	dir, err := c.Flags().GetString(OutKey)
	if err != nil {
		return err
	}
	pass, err := c.Flags().GetString(PassphraseKey)
	if err != nil {
		return err
	}
	km, err := key.NewKeyManager(nil)
	if err != nil {
		return err
	}
	sk, pk, err := km.GenerateKey()
	if err != nil {
		return err
	}
	skBytes, pkBytes, err := km.SerializeKeyPair(sk, pk)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := writeSecretFile(filepath.Join(dir, SigningKeyFile), keystore.KindSLHDSA, skBytes, pkBytes, pass); err != nil {
		return err
	}
	if err := writeHexFile(filepath.Join(dir, VerifyKeyFile), pkBytes, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "sender %s\n", client.SenderOf(pk))
	return nil
}

func kemGenCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "kem-gen",
		Short: "Generates a Kyber768 key pair for receiving messages",
		Args:  cobra.NoArgs,
		RunE:  kemGenFunc,
	}
	c.Flags().String(OutKey, ".", "Directory to write the key files to")
	c.Flags().String(PassphraseKey, "", "Encrypts the private key file when set")
	return c
}

func kemGenFunc(c *cobra.Command, _ []string) error {
	dir, err := c.Flags().GetString(OutKey)
	if err != nil {
		return err
	}
	pass, err := c.Flags().GetString(PassphraseKey)
	if err != nil {
		return err
	}
	kp, err := security.GenerateKEMKeyPair(nil)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	pub := security.MarshalKEMPublicKey(kp.Public)
	if err := writeSecretFile(filepath.Join(dir, KEMPrivateFile), keystore.KindKyber768, security.MarshalKEMPrivateKey(kp.Private), pub, pass); err != nil {
		return err
	}
	if err := writeHexFile(filepath.Join(dir, KEMPublicFile), pub, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "kem public key %d bytes written to %s\n", len(pub), filepath.Join(dir, KEMPublicFile))
	return nil
}
