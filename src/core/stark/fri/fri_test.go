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

// go/src/core/stark/fri/fri_test.go
package fri

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/sphinx-core/stark-pqc/src/core/stark/air"
	"github.com/sphinx-core/stark-pqc/src/core/stark/poly"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lowDegreeEvals(t *testing.T, d *poly.Domain, degree int) []fr.Element {
	t.Helper()
	coeffs := make([]fr.Element, degree+1)
	for i := range coeffs {
		coeffs[i].SetUint64(uint64(3*i + 1))
	}
	evals, err := d.Evaluate(coeffs)
	require.NoError(t, err)
	return evals
}

func TestFoldHalvesDegree(t *testing.T) {
	d := poly.MustDomain(32, fr.NewElement(5))
	evals := lowDegreeEvals(t, d, 7)
	folded := FoldLayer(evals, d, fr.NewElement(9))
	sq, err := d.Square()
	require.NoError(t, err)
	coeffs, err := sq.Interpolate(folded)
	require.NoError(t, err)
	assert.Equal(t, 3, poly.Degree(coeffs))
}

func TestPairPositions(t *testing.T) {
	assert.Equal(t, []int{1, 3, 9, 11}, PairPositions([]int{9, 3, 1}, 16))
}

type setup struct {
	opts    zk.ProofOptions
	lde     *poly.Domain
	res     *Result
	betas   []fr.Element
	queries []int
	values  []fr.Element
}

func build(t *testing.T, degree int) (*setup, error) {
	t.Helper()
	opts := zk.ProofOptions{NumQueries: 12, BlowupFactor: 16, MaxRemainderDegree: 1}
	pub := air.PublicInputs{Seed: fr.NewElement(1), Inc: fr.NewElement(2)}
	lde := poly.MustDomain(opts.LDESize(), fr.NewElement(5))
	evals := lowDegreeEvals(t, lde, degree)

	res, err := Build(evals, lde, opts.NumLayers(), opts.RemainderSize(), zk.NewChannel(pub, opts, nil))
	if err != nil {
		return nil, err
	}
	replay := zk.NewChannel(pub, opts, nil)
	s := &setup{opts: opts, lde: lde, res: res}
	for _, l := range res.Layers {
		replay.AbsorbRoot(l.Tree.RootHash())
		s.betas = append(s.betas, replay.DrawElement())
	}
	s.queries = []int{0, 5, 64, 77, 127, 5}
	for _, q := range s.queries {
		s.values = append(s.values, evals[q])
	}
	return s, nil
}

func (s *setup) proof(t *testing.T) *zk.Proof {
	openings, err := s.res.Open(s.queries)
	require.NoError(t, err)
	p := &zk.Proof{Options: s.opts, Remainder: s.res.Remainder, LayerOpened: openings}
	for _, l := range s.res.Layers {
		p.LayerRoots = append(p.LayerRoots, l.Tree.RootHash())
	}
	return p
}

func TestBuildOpenVerify(t *testing.T) {
	s, err := build(t, 7)
	require.NoError(t, err)
	require.Len(t, s.res.Layers, 2)
	require.Len(t, s.res.Remainder, 2)

	p := s.proof(t)
	require.NoError(t, Verify(p, s.lde, s.betas, s.queries, s.values, nil))

	s.values[2].SetUint64(1)
	assert.ErrorIs(t, Verify(p, s.lde, s.betas, s.queries, s.values, nil), ErrLayerMismatch)
}

func TestVerifyRejectsBadRemainder(t *testing.T) {
	s, err := build(t, 7)
	require.NoError(t, err)
	p := s.proof(t)
	p.Remainder[0].SetUint64(42)
	assert.ErrorIs(t, Verify(p, s.lde, s.betas, s.queries, s.values, nil), ErrRemainder)
}

func TestVerifyRejectsTamperedOpening(t *testing.T) {
	s, err := build(t, 7)
	require.NoError(t, err)
	p := s.proof(t)
	p.LayerOpened[1].Values[0].SetUint64(42)
	assert.ErrorIs(t, Verify(p, s.lde, s.betas, s.queries, s.values, nil), ErrOpeningInvalid)
}

func TestBuildRejectsHighDegree(t *testing.T) {
	_, err := build(t, 8)
	assert.ErrorIs(t, err, ErrDegreeTooHigh)
}
