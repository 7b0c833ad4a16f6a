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

// go/src/core/stark/air/counter_test.go
package air

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/sphinx-core/stark-pqc/src/core/stark/poly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicInputsFromCipher(t *testing.T) {
	cipher := []byte("ciphertext bytes")
	d := sha256.Sum256(cipher)
	p := PublicInputsFromCipher(cipher)

	assert.Equal(t, binary.LittleEndian.Uint64(d[0:8]), p.Seed.Uint64())
	assert.Equal(t, binary.LittleEndian.Uint64(d[8:16]), p.Inc.Uint64())
	assert.Len(t, p.Bytes(), 64)

	other := PublicInputsFromCipher([]byte("ciphertext bytez"))
	assert.NotEqual(t, p, other)
}

func TestTrace(t *testing.T) {
	p := PublicInputs{Seed: fr.NewElement(10), Inc: fr.NewElement(3)}
	trace := BuildTrace(p)
	require.NoError(t, CheckTrace(p, trace))
	assert.Equal(t, fr.NewElement(31), trace[7])
	assert.Equal(t, fr.NewElement(31), p.Last())

	trace[4].SetUint64(0)
	assert.Error(t, CheckTrace(p, trace))
	assert.Error(t, CheckTrace(p, trace[:7]))
}

// An honest trace gives a composition polynomial of degree below 8.
func TestCompositionIsLowDegree(t *testing.T) {
	p := PublicInputs{Seed: fr.NewElement(1234), Inc: fr.NewElement(77)}
	coeffs, err := TraceDomain.Interpolate(BuildTrace(p))
	require.NoError(t, err)

	lde := poly.MustDomain(64, fr.NewElement(5))
	evals, err := lde.Evaluate(coeffs)
	require.NoError(t, err)
	points := lde.Elements()
	blowup := lde.Size / TraceLength

	alphas := [NumConstraints]fr.Element{fr.NewElement(2), fr.NewElement(3), fr.NewElement(5)}
	cp := make([]fr.Element, lde.Size)
	for i := range cp {
		d := DenominatorsAt(points[i])
		var inv Denominators
		for k := range d {
			inv[k].Inverse(&d[k])
		}
		cp[i] = Composition(p, &alphas, points[i], evals[i], evals[(i+blowup)%lde.Size], &inv)
	}
	cpCoeffs, err := lde.Interpolate(cp)
	require.NoError(t, err)
	assert.Less(t, poly.Degree(cpCoeffs), CompositionDegreeBound)

	// A trace with a broken step is not low degree.
	bad := BuildTrace(p)
	bad[3].SetUint64(1)
	badCoeffs, err := TraceDomain.Interpolate(bad)
	require.NoError(t, err)
	badEvals, err := lde.Evaluate(badCoeffs)
	require.NoError(t, err)
	for i := range cp {
		d := DenominatorsAt(points[i])
		var inv Denominators
		for k := range d {
			inv[k].Inverse(&d[k])
		}
		cp[i] = Composition(p, &alphas, points[i], badEvals[i], badEvals[(i+blowup)%lde.Size], &inv)
	}
	cpCoeffs, err = lde.Interpolate(cp)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, poly.Degree(cpCoeffs), CompositionDegreeBound)
}
