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

// go/src/core/stark/zk/options.go
package zk

import (
	"errors"
	"fmt"

	"github.com/sphinx-core/stark-pqc/src/core/hashtree"
	"github.com/sphinx-core/stark-pqc/src/core/stark/air"
	"github.com/sphinx-core/stark-pqc/src/core/stark/poly"
)

// MinConjecturedSecurity is the floor, in bits, a proof must reach.
const MinConjecturedSecurity = 127

const (
	fieldBits           = 254
	collisionResistance = 128

	maxQueries  = 64
	maxBlowup   = 64
	maxGrinding = 32
)

var (
	ErrInvalidOptions       = errors.New("zk: invalid proof options")
	ErrInsufficientSecurity = errors.New("zk: conjectured security below floor")
)

// ProofOptions fixes the shape of a proof. All fields travel inside the
// proof and are checked by the verifier.
type ProofOptions struct {
	NumQueries         uint8
	BlowupFactor       uint8
	GrindingFactor     uint8
	MaxRemainderDegree uint8
}

// DefaultOptions gives 127 bits of conjectured security.
func DefaultOptions() ProofOptions {
	return ProofOptions{
		NumQueries:         30,
		BlowupFactor:       16,
		GrindingFactor:     8,
		MaxRemainderDegree: 7,
	}
}

// Validate checks structural limits. It does not check the security floor.
func (o ProofOptions) Validate() error {
	if o.NumQueries == 0 || o.NumQueries > maxQueries {
		return fmt.Errorf("%w: %d queries", ErrInvalidOptions, o.NumQueries)
	}
	b := int(o.BlowupFactor)
	if b < 2 || b > maxBlowup || b&(b-1) != 0 {
		return fmt.Errorf("%w: blowup factor %d", ErrInvalidOptions, o.BlowupFactor)
	}
	if o.GrindingFactor > maxGrinding {
		return fmt.Errorf("%w: grinding factor %d", ErrInvalidOptions, o.GrindingFactor)
	}
	r := int(o.MaxRemainderDegree) + 1
	if r > air.CompositionDegreeBound || r&(r-1) != 0 {
		return fmt.Errorf("%w: remainder degree %d", ErrInvalidOptions, o.MaxRemainderDegree)
	}
	return nil
}

// LDESize is the size of the evaluation domain.
func (o ProofOptions) LDESize() int {
	return air.TraceLength * int(o.BlowupFactor)
}

// NumLayers is the number of committed FRI layers before the remainder.
func (o ProofOptions) NumLayers() int {
	layers := 0
	for d := air.CompositionDegreeBound; d > int(o.MaxRemainderDegree)+1; d /= 2 {
		layers++
	}
	return layers
}

// RemainderSize is the number of remainder coefficients.
func (o ProofOptions) RemainderSize() int {
	return air.CompositionDegreeBound >> o.NumLayers()
}

// ConjecturedSecurity is min(field, queries·log2(blowup) + grinding) - 1,
// capped at the hash collision resistance.
func (o ProofOptions) ConjecturedSecurity() int {
	field := fieldBits - poly.Log2(o.LDESize())
	query := int(o.NumQueries)*poly.Log2(int(o.BlowupFactor)) + int(o.GrindingFactor)
	return min(min(field, query)-1, collisionResistance)
}

// CheckSecurity rejects options below MinConjecturedSecurity.
func (o ProofOptions) CheckSecurity() error {
	if s := o.ConjecturedSecurity(); s < MinConjecturedSecurity {
		return fmt.Errorf("%w: %d < %d bits", ErrInsufficientSecurity, s, MinConjecturedSecurity)
	}
	return nil
}

// Bytes is the four option bytes in field order.
func (o ProofOptions) Bytes() []byte {
	return []byte{o.NumQueries, o.BlowupFactor, o.GrindingFactor, o.MaxRemainderDegree}
}

// TracePositions lists the LDE rows a query set opens in the trace: x and
// g·x, the latter BlowupFactor rows further on.
func (o ProofOptions) TracePositions(queries []int) []int {
	n, b := o.LDESize(), int(o.BlowupFactor)
	out := make([]int, 0, 2*len(queries))
	for _, q := range queries {
		out = append(out, q, (q+b)%n)
	}
	return hashtree.SortedUnique(out)
}
