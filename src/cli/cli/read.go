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

// go/src/cli/cli/read.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/sphinx-core/stark-pqc/src/accounts/keystore"
	"github.com/sphinx-core/stark-pqc/src/client"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	logger "github.com/sphinx-core/stark-pqc/src/log"
	"github.com/sphinx-core/stark-pqc/src/security"
)

func readCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "read",
		Short: "Lists the records addressed to a recipient",
		Args:  cobra.NoArgs,
		RunE:  readFunc,
	}
	flags := c.Flags()
	AddNodeFlags(flags)
	flags.String(RecipientKey, "", "Recipient identity, base58 (required)")
	flags.Uint64(SequenceKey, 0, "Only the records with this sequence number")
	flags.String(KEMKeyKey, "", "Kyber768 private key file; decrypts the records when set")
	flags.String(PassphraseKey, "", "Passphrase of an encrypted KEM key file")
	return c
}

// ParseReadFlags reads the read flags.
func ParseReadFlags(flags *pflag.FlagSet) (*ReadConfig, error) {
	node, err := ParseNodeFlags(flags)
	if err != nil {
		return nil, err
	}
	cfg := &ReadConfig{Config: node}
	if cfg.Recipient, err = parsePubkeyFlag(flags, RecipientKey); err != nil {
		return nil, err
	}
	if flags.Changed(SequenceKey) {
		seq, err := flags.GetUint64(SequenceKey)
		if err != nil {
			return nil, err
		}
		cfg.Sequence = &seq
	}
	path, err := flags.GetString(KEMKeyKey)
	if err != nil || path == "" {
		return cfg, err
	}
	pass, err := flags.GetString(PassphraseKey)
	if err != nil {
		return nil, err
	}
	raw, err := readSecretFile(path, pass, keystore.KindKyber768)
	if err != nil {
		return nil, fmt.Errorf("failed to read KEM key: %w", err)
	}
	if cfg.KEMKey, err = security.ParseKEMPrivateKey(raw); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFunc(c *cobra.Command, _ []string) error {
	cfg, err := ParseReadFlags(c.Flags())
	if err != nil {
		return err
	}
	ctx := c.Context()
	backend, closeFn, err := dialAPI(ctx, cfg.Config)
	if err != nil {
		return err
	}
	defer closeFn()

	views, err := backend.ReadRecords(ctx, cfg.Recipient, cfg.Sequence)
	if err != nil {
		return err
	}
	out := c.OutOrStdout()
	for _, v := range views {
		r := v.Record
		fmt.Fprintf(out, "seq %d from %s status %s cipher %d bytes\n", r.Sequence, r.Sender, v.Status, r.CipherLen)
		if cfg.KEMKey == nil {
			continue
		}
		if v.Status != types.ProofVerified {
			logger.Warnf("record %s has proof status %s", r.ID(), v.Status)
		}
		pt, err := client.OpenRecord(cfg.KEMKey, r)
		if err != nil {
			fmt.Fprintf(out, "  cannot open: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "  %s\n", pt)
	}
	return nil
}

func verifyCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "verify",
		Short: "Runs proof verification on a finalized record",
		Args:  cobra.NoArgs,
		RunE:  verifyFunc,
	}
	flags := c.Flags()
	AddNodeFlags(flags)
	flags.String(SenderKey, "", "Sender identity, base58 (required)")
	flags.String(RecipientKey, "", "Recipient identity, base58 (required)")
	flags.Uint64(SequenceKey, 0, "Message sequence number")
	return c
}

func verifyFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	node, err := ParseNodeFlags(flags)
	if err != nil {
		return err
	}
	var id types.RecordID
	if id.Sender, err = parsePubkeyFlag(flags, SenderKey); err != nil {
		return err
	}
	if id.Recipient, err = parsePubkeyFlag(flags, RecipientKey); err != nil {
		return err
	}
	if id.Sequence, err = flags.GetUint64(SequenceKey); err != nil {
		return err
	}

	ctx := c.Context()
	backend, closeFn, err := dialAPI(ctx, node)
	if err != nil {
		return err
	}
	defer closeFn()

	status, err := backend.VerifyProof(ctx, id)
	if err != nil && status != types.ProofRejected {
		return err
	}
	phase, perr := backend.Phase(ctx, id)
	if perr != nil {
		return perr
	}
	fmt.Fprintf(c.OutOrStdout(), "record %s\nstatus %s\nphase %s\n", id, status, phase)
	return err
}
