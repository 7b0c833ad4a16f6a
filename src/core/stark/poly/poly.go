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

// go/src/core/stark/poly/poly.go
package poly

import (
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
)

// Domain is the coset offset·<ω> of a power-of-two size.
type Domain struct {
	Size      int
	Offset    fr.Element
	Generator fr.Element
	fft       *fft.Domain
}

// NewDomain returns the coset of the given size. An offset of one selects
// the subgroup itself.
func NewDomain(size int, offset fr.Element) (*Domain, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("poly: domain size %d is not a power of two", size)
	}
	gen, err := fr.Generator(uint64(size))
	if err != nil {
		return nil, fmt.Errorf("poly: %w", err)
	}
	return &Domain{
		Size:      size,
		Offset:    offset,
		Generator: gen,
		fft:       fft.NewDomain(uint64(size), fft.WithShift(offset)),
	}, nil
}

// MustDomain is NewDomain for sizes known to be valid.
func MustDomain(size int, offset fr.Element) *Domain {
	d, err := NewDomain(size, offset)
	if err != nil {
		panic(err)
	}
	return d
}

// Element returns offset·ω^i.
func (d *Domain) Element(i int) fr.Element {
	x := Pow(d.Generator, uint64(i))
	x.Mul(&x, &d.Offset)
	return x
}

// Elements returns every point of the domain in natural order.
func (d *Domain) Elements() []fr.Element {
	out := make([]fr.Element, d.Size)
	out[0] = d.Offset
	for i := 1; i < d.Size; i++ {
		out[i].Mul(&out[i-1], &d.Generator)
	}
	return out
}

// Evaluate returns the evaluations of coeffs over the domain. coeffs may
// be shorter than the domain.
func (d *Domain) Evaluate(coeffs []fr.Element) ([]fr.Element, error) {
	if len(coeffs) > d.Size {
		return nil, fmt.Errorf("poly: %d coefficients exceed domain size %d", len(coeffs), d.Size)
	}
	a := make([]fr.Element, d.Size)
	copy(a, coeffs)
	d.fft.FFT(a, fft.DIF, fft.OnCoset())
	fft.BitReverse(a)
	return a, nil
}

// Interpolate returns the coefficients of the polynomial of degree below
// Size that takes evals on the domain.
func (d *Domain) Interpolate(evals []fr.Element) ([]fr.Element, error) {
	if len(evals) != d.Size {
		return nil, fmt.Errorf("poly: %d evaluations for domain size %d", len(evals), d.Size)
	}
	a := append([]fr.Element(nil), evals...)
	d.fft.FFTInverse(a, fft.DIF, fft.OnCoset())
	fft.BitReverse(a)
	return a, nil
}

// Square returns the domain of squares: offset², ω², half the size.
func (d *Domain) Square() (*Domain, error) {
	var off fr.Element
	off.Square(&d.Offset)
	return NewDomain(d.Size/2, off)
}

// Eval evaluates coeffs at x by Horner's rule.
func Eval(coeffs []fr.Element, x fr.Element) fr.Element {
	var acc fr.Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc.Mul(&acc, &x)
		acc.Add(&acc, &coeffs[i])
	}
	return acc
}

// Degree returns the degree of coeffs, or -1 for the zero polynomial.
func Degree(coeffs []fr.Element) int {
	for i := len(coeffs) - 1; i >= 0; i-- {
		if !coeffs[i].IsZero() {
			return i
		}
	}
	return -1
}

// Pow returns x^e.
func Pow(x fr.Element, e uint64) fr.Element {
	result := fr.One()
	for i := bits.Len64(e) - 1; i >= 0; i-- {
		result.Square(&result)
		if e>>uint(i)&1 == 1 {
			result.Mul(&result, &x)
		}
	}
	return result
}

// Log2 returns log2(n) for a power of two n.
func Log2(n int) int {
	return bits.TrailingZeros(uint(n))
}
