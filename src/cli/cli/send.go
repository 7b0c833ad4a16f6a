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

// go/src/cli/cli/send.go
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/sphinx-core/stark-pqc/src/accounts/keystore"
	"github.com/sphinx-core/stark-pqc/src/client"
	"github.com/sphinx-core/stark-pqc/src/common"
	"github.com/sphinx-core/stark-pqc/src/core/buffer"
	key "github.com/sphinx-core/stark-pqc/src/core/sphincs/key/backend"
	sign "github.com/sphinx-core/stark-pqc/src/core/sphincs/sign/backend"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
	"github.com/sphinx-core/stark-pqc/src/core/stark/prover"
	logger "github.com/sphinx-core/stark-pqc/src/log"
	"github.com/sphinx-core/stark-pqc/src/security"
	"github.com/sphinx-core/stark-pqc/src/state"
)

func proveCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "prove",
		Short: "Produces the STARK proof bound to a ciphertext",
		Args:  cobra.NoArgs,
		RunE:  proveFunc,
	}
	c.Flags().String(CipherKey, "", "Ciphertext as hex")
	c.Flags().String(FileKey, "", "File holding the raw ciphertext")
	AddProofFlags(c.Flags())
	return c
}

func proveFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	opts, err := ParseProofFlags(flags)
	if err != nil {
		return err
	}
	cipher, err := readInput(flags, CipherKey, FileKey, true)
	if err != nil {
		return err
	}
	p, err := prover.NewProver(opts, logger.Zap())
	if err != nil {
		return err
	}
	proof, err := p.GenerateProof(cipher)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.OutOrStdout(), common.Bytes2Hex(proof))
	return nil
}

// readInput takes data from the inline flag or the file flag. Inline data
// is hex when isHex is set.
func readInput(flags *pflag.FlagSet, inline, file string, isHex bool) ([]byte, error) {
	s, err := flags.GetString(inline)
	if err != nil {
		return nil, err
	}
	path, err := flags.GetString(file)
	if err != nil {
		return nil, err
	}
	switch {
	case s != "" && path != "":
		return nil, fmt.Errorf("--%s and --%s are exclusive", inline, file)
	case path != "":
		return os.ReadFile(path)
	case s == "":
		return nil, fmt.Errorf("%w: --%s or --%s", errMissingFlag, inline, file)
	case isHex:
		return common.Hex2Bytes(s)
	default:
		return []byte(s), nil
	}
}

func sendCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "send",
		Short: "Seals, proves, signs and uploads a message",
		Args:  cobra.NoArgs,
		RunE:  sendFunc,
	}
	flags := c.Flags()
	AddNodeFlags(flags)
	AddProofFlags(flags)
	flags.String(KeyFileKey, SigningKeyFile, "SLH-DSA signing key file")
	flags.String(PassphraseKey, "", "Passphrase of an encrypted signing key file")
	flags.String(KEMPubKey, "", "Recipient Kyber768 public key file (required)")
	flags.String(RecipientKey, "", "Recipient identity, base58 (required)")
	flags.Uint64(SequenceKey, 0, "Message sequence number")
	flags.String(MessageKey, "", "Message text")
	flags.String(FileKey, "", "File holding the message")
	flags.String(OutboxKey, "", "Directory of the pending message store (default: next to the signing key)")
	return c
}

// ParseSendFlags reads the send flags and loads the keys they name.
func ParseSendFlags(flags *pflag.FlagSet) (*SendConfig, error) {
	node, err := ParseNodeFlags(flags)
	if err != nil {
		return nil, err
	}
	cfg := &SendConfig{Config: node}

	keyPath, err := requiredString(flags, KeyFileKey)
	if err != nil {
		return nil, err
	}
	pass, err := flags.GetString(PassphraseKey)
	if err != nil {
		return nil, err
	}
	raw, err := readSecretFile(keyPath, pass, keystore.KindSLHDSA)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	if cfg.Key, err = slhdsa.ParsePrivateKey(raw); err != nil {
		return nil, err
	}

	path, err := requiredString(flags, KEMPubKey)
	if err != nil {
		return nil, err
	}
	if raw, err = readHexFile(path); err != nil {
		return nil, fmt.Errorf("failed to read KEM key: %w", err)
	}
	if cfg.KEMKey, err = security.ParseKEMPublicKey(raw); err != nil {
		return nil, err
	}

	if cfg.Recipient, err = parsePubkeyFlag(flags, RecipientKey); err != nil {
		return nil, err
	}
	if cfg.Sequence, err = flags.GetUint64(SequenceKey); err != nil {
		return nil, err
	}
	if cfg.Plaintext, err = readInput(flags, MessageKey, FileKey, false); err != nil {
		return nil, err
	}
	if cfg.Outbox, err = flags.GetString(OutboxKey); err != nil {
		return nil, err
	}
	if cfg.Outbox == "" {
		cfg.Outbox = filepath.Join(filepath.Dir(keyPath), OutboxDir)
	}
	return cfg, nil
}

func sendFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	cfg, err := ParseSendFlags(flags)
	if err != nil {
		return err
	}
	opts, err := ParseProofFlags(flags)
	if err != nil {
		return err
	}
	p, err := prover.NewProver(opts, logger.Zap())
	if err != nil {
		return err
	}

	// Pending messages and their signatures share one store, so a send
	// interrupted anywhere before the node stores the record resumes with
	// the same ciphertext, proof and signature.
	store, err := state.OpenLevelDB(cfg.Outbox)
	if err != nil {
		return err
	}
	defer store.Close()
	outbox := client.NewOutbox(store, logger.Zap())

	sender := client.SenderOf(cfg.Key.Public())
	msg, resumed, err := outbox.Compose(p, cfg.KEMKey, sender, cfg.Recipient, cfg.Sequence, cfg.Plaintext)
	if err != nil {
		return err
	}
	if resumed {
		logger.Infof("resuming pending message %s", msg.ID())
	}
	logger.Infof("sending %d byte body for %s", len(msg.Body()), msg.ID())

	ctx := c.Context()
	backend, closeFn, err := dialAPI(ctx, cfg.Config)
	if err != nil {
		return err
	}
	defer closeFn()

	km, err := key.NewKeyManager(nil)
	if err != nil {
		return err
	}
	signer := sign.NewSphincsManager(store, km, km.GetSLHDSAParameters())
	receipt, err := client.NewUploader(backend, signer, logger.Zap()).Send(ctx, cfg.Key, msg)
	if receipt != nil {
		fmt.Fprintf(c.OutOrStdout(), "record %s\nstatus %s\n", msg.ID(), receipt.Status)
	}
	// A record the node holds, verified or not, is no longer pending.
	if receipt != nil || errors.Is(err, buffer.ErrAlreadyFinalized) {
		if derr := outbox.Done(msg.ID()); derr != nil {
			logger.Warnf("failed to clear pending message %s: %v", msg.ID(), derr)
		}
	}
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}
