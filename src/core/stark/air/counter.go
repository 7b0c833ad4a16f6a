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

// go/src/core/stark/air/counter.go
package air

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/sphinx-core/stark-pqc/src/core/stark/poly"
)

// TraceLength is the number of steps of the counter.
const TraceLength = 8

// Constraint counts, one composition coefficient each.
const (
	NumAssertions  = 2
	NumTransitions = 1
	NumConstraints = NumAssertions + NumTransitions
)

// TraceDomain is the subgroup of order TraceLength, g its generator.
var TraceDomain = poly.MustDomain(TraceLength, fr.One())

// lastPoint is g^(TraceLength-1), the step the final assertion pins.
var lastPoint = TraceDomain.Element(TraceLength - 1)

// PublicInputs of the affine counter x[t+1] = x[t] + Inc with x[0] = Seed.
type PublicInputs struct {
	Seed fr.Element
	Inc  fr.Element
}

// PublicInputsFromCipher derives the inputs from d = SHA-256(cipher):
// seed = LE64(d[0:8]), inc = LE64(d[8:16]).
func PublicInputsFromCipher(cipher []byte) PublicInputs {
	d := sha256.Sum256(cipher)
	return PublicInputsFromDigest(d)
}

// PublicInputsFromDigest derives the inputs from a ciphertext digest.
func PublicInputsFromDigest(d [32]byte) PublicInputs {
	var p PublicInputs
	p.Seed.SetUint64(binary.LittleEndian.Uint64(d[0:8]))
	p.Inc.SetUint64(binary.LittleEndian.Uint64(d[8:16]))
	return p
}

// Last is the value the recurrence reaches at the final step.
func (p PublicInputs) Last() fr.Element {
	var steps, out fr.Element
	steps.SetUint64(TraceLength - 1)
	out.Mul(&steps, &p.Inc)
	out.Add(&out, &p.Seed)
	return out
}

// Bytes is seed || inc, each 32 bytes big-endian.
func (p PublicInputs) Bytes() []byte {
	s, i := p.Seed.Bytes(), p.Inc.Bytes()
	out := make([]byte, 0, 2*fr.Bytes)
	out = append(out, s[:]...)
	return append(out, i[:]...)
}

// BuildTrace runs the counter.
func BuildTrace(p PublicInputs) []fr.Element {
	trace := make([]fr.Element, TraceLength)
	trace[0] = p.Seed
	for i := 1; i < TraceLength; i++ {
		trace[i].Add(&trace[i-1], &p.Inc)
	}
	return trace
}

// CheckTrace validates every assertion and transition on a raw trace.
func CheckTrace(p PublicInputs, trace []fr.Element) error {
	if len(trace) != TraceLength {
		return fmt.Errorf("air: trace has %d steps, want %d", len(trace), TraceLength)
	}
	if !trace[0].Equal(&p.Seed) {
		return fmt.Errorf("air: first step does not equal seed")
	}
	last := p.Last()
	if !trace[TraceLength-1].Equal(&last) {
		return fmt.Errorf("air: last step does not equal seed + %d·inc", TraceLength-1)
	}
	var next fr.Element
	for i := 0; i+1 < TraceLength; i++ {
		next.Add(&trace[i], &p.Inc)
		if !next.Equal(&trace[i+1]) {
			return fmt.Errorf("air: transition %d does not hold", i)
		}
	}
	return nil
}

// Denominators holds the constraint divisors at one point x:
// x - 1, x - g^7 and x^8 - 1.
type Denominators [NumConstraints]fr.Element

// DenominatorsAt computes the divisors at x.
func DenominatorsAt(x fr.Element) Denominators {
	var d Denominators
	one := fr.One()
	d[0].Sub(&x, &one)
	d[1].Sub(&x, &lastPoint)
	d[2] = poly.Pow(x, TraceLength)
	d[2].Sub(&d[2], &one)
	return d
}

// Composition evaluates the random combination of the constraint
// quotients at x, given t = T(x), tn = T(g·x) and the inverted divisors.
func Composition(p PublicInputs, alphas *[NumConstraints]fr.Element, x, t, tn fr.Element, inv *Denominators) fr.Element {
	var term, acc fr.Element

	// (T(x) - seed) / (x - 1)
	term.Sub(&t, &p.Seed)
	term.Mul(&term, &inv[0])
	term.Mul(&term, &alphas[0])
	acc.Add(&acc, &term)

	// (T(x) - last) / (x - g^7)
	last := p.Last()
	term.Sub(&t, &last)
	term.Mul(&term, &inv[1])
	term.Mul(&term, &alphas[1])
	acc.Add(&acc, &term)

	// (T(gx) - T(x) - inc)·(x - g^7) / (x^8 - 1)
	var exempt fr.Element
	exempt.Sub(&x, &lastPoint)
	term.Sub(&tn, &t)
	term.Sub(&term, &p.Inc)
	term.Mul(&term, &exempt)
	term.Mul(&term, &inv[2])
	term.Mul(&term, &alphas[2])
	acc.Add(&acc, &term)
	return acc
}

// CompositionDegreeBound is a strict upper bound on the degree of the
// composition polynomial of a valid trace.
const CompositionDegreeBound = TraceLength
