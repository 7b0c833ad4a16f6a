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

// go/src/core/stark/verifier/verifier.go
package verifier

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/sphinx-core/stark-pqc/src/core/budget"
	"github.com/sphinx-core/stark-pqc/src/core/stark/air"
	"github.com/sphinx-core/stark-pqc/src/core/stark/fri"
	"github.com/sphinx-core/stark-pqc/src/core/stark/poly"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
	"go.uber.org/zap"
)

// ErrProofFailed wraps every reason a proof is rejected. Budget failures
// are returned unwrapped since they carry no verdict.
var ErrProofFailed = errors.New("verifier: proof rejected")

var cosetOffset = fr.NewElement(5)

// Verifier checks counter proofs against a ciphertext.
type Verifier struct {
	logger *zap.Logger
}

// NewVerifier returns a verifier logging to logger (nop if nil).
func NewVerifier(logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{logger: logger}
}

func reject(err error) error {
	if errors.Is(err, budget.ErrExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProofFailed, err)
}

// VerifyProof checks proofBytes for the counter derived from SHA-256(cipher).
// Public inputs are always recomputed here, never taken from the caller.
func (v *Verifier) VerifyProof(proofBytes, cipher []byte, m *budget.Meter) error {
	if err := m.Hash(len(cipher)); err != nil {
		return err
	}
	pub := air.PublicInputsFromCipher(cipher)

	proof, err := zk.DecodeProof(proofBytes)
	if err != nil {
		return reject(err)
	}
	opts := proof.Options
	if err := opts.CheckSecurity(); err != nil {
		return reject(err)
	}

	// Replay the transcript.
	ch := zk.NewChannel(pub, opts, m)
	ch.AbsorbRoot(proof.TraceRoot)
	alphas := ch.DrawAlphas()
	betas := make([]fr.Element, len(proof.LayerRoots))
	for i := range proof.LayerRoots {
		ch.AbsorbRoot(proof.LayerRoots[i])
		betas[i] = ch.DrawElement()
	}
	ch.AbsorbElements(proof.Remainder)
	if !ch.CheckGrinding(proof.Nonce, opts.GrindingFactor) {
		return reject(errors.New("proof of work nonce is invalid"))
	}
	ch.AbsorbNonce(proof.Nonce)
	queries := ch.DrawIndices(int(opts.NumQueries), opts.LDESize())
	if err := ch.Err(); err != nil {
		return err
	}

	n, blowup := opts.LDESize(), int(opts.BlowupFactor)
	lde, err := poly.NewDomain(n, cosetOffset)
	if err != nil {
		return reject(err)
	}
	trace, err := fri.OpenedValues(proof.TraceRoot, n, opts.TracePositions(queries), &proof.Trace, m)
	if err != nil {
		return reject(err)
	}

	composition := make([]fr.Element, len(queries))
	for i, q := range queries {
		// One exponentiation for x and one inversion per divisor.
		if err := m.Charge(1 + air.NumConstraints); err != nil {
			return err
		}
		x := lde.Element(q)
		d := air.DenominatorsAt(x)
		var inv air.Denominators
		for k := range d {
			inv[k].Inverse(&d[k])
		}
		composition[i] = air.Composition(pub, &alphas, x, trace[q], trace[(q+blowup)%n], &inv)
	}

	if err := fri.Verify(proof, lde, betas, queries, composition, m); err != nil {
		return reject(err)
	}
	v.logger.Debug("proof verified",
		zap.Int("security", opts.ConjecturedSecurity()),
		zap.Uint64("work", m.Used()))
	return nil
}

// Verify is VerifyProof with a nop logger.
func Verify(proofBytes, cipher []byte, m *budget.Meter) error {
	return NewVerifier(nil).VerifyProof(proofBytes, cipher, m)
}

// MaxVerifyCost bounds the work units VerifyProof charges for a proof with
// opts over a ciphertext of cipherLen bytes.
func MaxVerifyCost(opts zk.ProofOptions, cipherLen int) uint64 {
	const draw = 32 + 8
	q := uint64(opts.NumQueries)
	layers := uint64(opts.NumLayers())

	cost := budget.HashUnits(cipherLen)
	cost += budget.HashUnits(zk.SeedLen())
	cost += budget.HashUnits(64)
	cost += air.NumConstraints * budget.HashUnits(draw)
	cost += layers * (budget.HashUnits(64) + budget.HashUnits(draw))
	cost += budget.HashUnits(32 + fr.Bytes*opts.RemainderSize())
	cost += 2 * budget.HashUnits(draw) // grinding check, nonce
	cost += q * budget.HashUnits(draw)

	// Openings: the trace tree and the first FRI layer both span the LDE
	// domain, then each further layer halves it. Every tree opens at most
	// two positions per query.
	n, open := opts.LDESize(), 2*int(q)
	cost += openingCost(n, open)
	for k := 0; k < opts.NumLayers(); k++ {
		cost += openingCost(n>>k, open)
	}

	// Field work per query.
	cost += q * (1 + air.NumConstraints)
	cost += q * layers * 2
	cost += q
	return cost
}

// openingCost bounds the hashes OpenedValues charges for a batch opening of
// at most positions leaves in a tree of size leaves: one per position, then
// at most min(positions, width/2) parents per level.
func openingCost(size, positions int) uint64 {
	cost := positions
	for w := size; w > 1; w /= 2 {
		cost += min(positions, w/2)
	}
	return uint64(cost)
}
