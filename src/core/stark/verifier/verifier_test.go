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

// go/src/core/stark/verifier/verifier_test.go
package verifier

import (
	"fmt"
	"testing"

	"github.com/sphinx-core/stark-pqc/src/core/budget"
	"github.com/sphinx-core/stark-pqc/src/core/sphincs/slhdsa"
	"github.com/sphinx-core/stark-pqc/src/core/stark/prover"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var cipher = make([]byte, 50)

func prove(t *testing.T, opts zk.ProofOptions, c []byte) []byte {
	t.Helper()
	p, err := prover.NewProver(opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	raw, err := p.GenerateProof(c)
	require.NoError(t, err)
	return raw
}

func TestVerifyValidProof(t *testing.T) {
	raw := prove(t, zk.DefaultOptions(), cipher)
	v := NewVerifier(zaptest.NewLogger(t))
	m := budget.NewMeter(budget.DefaultMaxWorkPerCall)
	require.NoError(t, v.VerifyProof(raw, cipher, m))
	assert.LessOrEqual(t, m.Used(), MaxVerifyCost(zk.DefaultOptions(), len(cipher)))
}

func TestVerifyRemainderDegreeOne(t *testing.T) {
	opts := zk.ProofOptions{NumQueries: 30, BlowupFactor: 16, GrindingFactor: 8, MaxRemainderDegree: 1}
	require.Equal(t, 2, opts.NumLayers())
	raw := prove(t, opts, cipher)

	m := budget.NewMeter(MaxVerifyCost(opts, len(cipher)))
	require.NoError(t, Verify(raw, cipher, m))
}

func TestVerifyCostWithinBoundForEveryRemainderDegree(t *testing.T) {
	for _, rd := range []uint8{0, 1, 3, 7} {
		for _, blowup := range []uint8{16, 32} {
			opts := zk.ProofOptions{NumQueries: 30, BlowupFactor: blowup, GrindingFactor: 8, MaxRemainderDegree: rd}
			require.NoError(t, opts.Validate())
			t.Run(fmt.Sprintf("rd%d/blowup%d", rd, blowup), func(t *testing.T) {
				raw := prove(t, opts, cipher)
				bound := MaxVerifyCost(opts, len(cipher))
				m := budget.NewMeter(budget.DefaultMaxWorkPerCall)
				require.NoError(t, Verify(raw, cipher, m))
				assert.LessOrEqual(t, m.Used(), bound)
				assert.LessOrEqual(t, bound, budget.DefaultMaxWorkPerCall)

				// The bound is enough on its own.
				require.NoError(t, Verify(raw, cipher, budget.NewMeter(bound)))
			})
		}
	}
}

func TestOpeningCost(t *testing.T) {
	assert.Equal(t, uint64(1+1), openingCost(2, 1))
	// Parents in a small tree are bounded by its size.
	assert.Equal(t, uint64(60+7), openingCost(8, 60))
	assert.LessOrEqual(t, openingCost(128, 60), uint64(60+127))
}

func TestVerifyWrongCipher(t *testing.T) {
	raw := prove(t, zk.DefaultOptions(), cipher)
	other := append([]byte(nil), cipher...)
	other[0] = 1
	assert.ErrorIs(t, Verify(raw, other, nil), ErrProofFailed)
}

func TestVerifyRejectsLowSecurity(t *testing.T) {
	opts := zk.DefaultOptions()
	opts.NumQueries = 20
	require.Less(t, opts.ConjecturedSecurity(), zk.MinConjecturedSecurity)
	raw := prove(t, opts, cipher)

	err := Verify(raw, cipher, nil)
	assert.ErrorIs(t, err, ErrProofFailed)
	assert.ErrorIs(t, err, zk.ErrInsufficientSecurity)
}

func TestVerifyRejectsTampering(t *testing.T) {
	raw := prove(t, zk.DefaultOptions(), cipher)

	cases := map[string]func([]byte) []byte{
		"trace-root": func(b []byte) []byte { b[8] ^= 1; return b },
		"last-node":  func(b []byte) []byte { b[len(b)-1] ^= 1; return b },
		"middle":     func(b []byte) []byte { b[len(b)/2] ^= 0x40; return b },
		"truncated":  func(b []byte) []byte { return b[:len(b)-7] },
		"trailing":   func(b []byte) []byte { return append(b, 0) },
		"empty":      func([]byte) []byte { return nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			bad := mutate(append([]byte(nil), raw...))
			assert.ErrorIs(t, Verify(bad, cipher, nil), ErrProofFailed)
		})
	}
}

func TestVerifyBudgetExceeded(t *testing.T) {
	raw := prove(t, zk.DefaultOptions(), cipher)
	err := Verify(raw, cipher, budget.NewMeter(50))
	assert.ErrorIs(t, err, budget.ErrExceeded)
	assert.NotErrorIs(t, err, ErrProofFailed)
}

func TestWorkBounds(t *testing.T) {
	stark := MaxVerifyCost(zk.DefaultOptions(), len(cipher))
	sig := slhdsa.MaxVerifyCost(len(cipher) + 1088 + 12 + 8)

	assert.LessOrEqual(t, stark, budget.DefaultMaxWorkPerCall)
	assert.LessOrEqual(t, sig, budget.DefaultMaxWorkPerCall)
	// Both checks cannot share one call.
	assert.Greater(t, stark+sig, budget.DefaultMaxWorkPerCall)
}
