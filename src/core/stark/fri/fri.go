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

// go/src/core/stark/fri/fri.go
package fri

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/sphinx-core/stark-pqc/src/core/budget"
	"github.com/sphinx-core/stark-pqc/src/core/hashtree"
	"github.com/sphinx-core/stark-pqc/src/core/stark/poly"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
)

var (
	ErrDegreeTooHigh  = errors.New("fri: evaluations exceed the degree bound")
	ErrLayerMismatch  = errors.New("fri: layer value does not match folded value")
	ErrRemainder      = errors.New("fri: remainder does not match folded value")
	ErrOpeningInvalid = errors.New("fri: layer opening invalid")
)

// Layer is one committed FRI layer.
type Layer struct {
	Domain *poly.Domain
	Evals  []fr.Element
	Tree   *hashtree.HashTree
}

// Result holds the committed layers and the remainder coefficients.
type Result struct {
	Layers    []Layer
	Remainder []fr.Element
}

// LeafBytes encodes elements as 32-byte tree leaves.
func LeafBytes(es []fr.Element) [][]byte {
	out := make([][]byte, len(es))
	for i := range es {
		b := es[i].Bytes()
		out[i] = b[:]
	}
	return out
}

// Commit builds the tree over evaluations.
func Commit(evals []fr.Element) (*hashtree.HashTree, error) {
	tree := hashtree.NewHashTree(LeafBytes(evals))
	if err := tree.Build(); err != nil {
		return nil, err
	}
	return tree, nil
}

// FoldPair returns (f(x) + f(-x))/2 + beta·(f(x) - f(-x))/(2x), given
// inv2x = 1/(2x).
func FoldPair(fx, fnx, beta, inv2x fr.Element) fr.Element {
	var even, odd, half fr.Element
	even.Add(&fx, &fnx)
	even.Halve()
	odd.Sub(&fx, &fnx)
	odd.Mul(&odd, &inv2x)
	half.Mul(&odd, &beta)
	even.Add(&even, &half)
	return even
}

// FoldLayer folds evaluations over domain into evaluations over its square.
// x and -x sit half the domain apart.
func FoldLayer(evals []fr.Element, domain *poly.Domain, beta fr.Element) []fr.Element {
	half := len(evals) / 2
	points := domain.Elements()[:half]
	twoX := make([]fr.Element, half)
	for j := range twoX {
		twoX[j].Double(&points[j])
	}
	inv := fr.BatchInvert(twoX)
	out := make([]fr.Element, half)
	for j := range out {
		out[j] = FoldPair(evals[j], evals[j+half], beta, inv[j])
	}
	return out
}

// PairPositions returns, for each position in a layer of size n, the
// position and its partner half a layer away, sorted and distinct.
func PairPositions(positions []int, n int) []int {
	half := n / 2
	out := make([]int, 0, 2*len(positions))
	for _, p := range positions {
		lo := p % half
		out = append(out, lo, lo+half)
	}
	return hashtree.SortedUnique(out)
}

// Build commits numLayers folds of evals, drawing each folding
// coefficient from ch after the layer's root, and returns the remainder.
func Build(evals []fr.Element, domain *poly.Domain, numLayers, remainderSize int, ch *zk.Channel) (*Result, error) {
	res := &Result{}
	for k := 0; k < numLayers; k++ {
		tree, err := Commit(evals)
		if err != nil {
			return nil, err
		}
		res.Layers = append(res.Layers, Layer{Domain: domain, Evals: evals, Tree: tree})
		ch.AbsorbRoot(tree.RootHash())
		beta := ch.DrawElement()
		evals = FoldLayer(evals, domain, beta)
		if domain, err = domain.Square(); err != nil {
			return nil, err
		}
	}
	coeffs, err := domain.Interpolate(evals)
	if err != nil {
		return nil, err
	}
	if poly.Degree(coeffs) >= remainderSize {
		return nil, fmt.Errorf("%w: degree %d, bound %d", ErrDegreeTooHigh, poly.Degree(coeffs), remainderSize)
	}
	res.Remainder = coeffs[:remainderSize]
	ch.AbsorbElements(res.Remainder)
	return res, nil
}

// Open returns the openings of every layer for the query positions.
func (r *Result) Open(queries []int) ([]zk.Opening, error) {
	openings := make([]zk.Opening, len(r.Layers))
	for k, layer := range r.Layers {
		positions := PairPositions(queries, layer.Domain.Size)
		proof, err := layer.Tree.Prove(positions)
		if err != nil {
			return nil, err
		}
		values := make([]fr.Element, len(positions))
		for i, p := range positions {
			values[i] = layer.Evals[p]
		}
		openings[k] = zk.Opening{Values: values, Proof: *proof}
	}
	return openings, nil
}

// OpenedValues authenticates an opening at positions against root and
// returns the values keyed by position. Leaf and node hashes are charged
// to m.
func OpenedValues(root [hashtree.Size]byte, size int, positions []int, o *zk.Opening, m *budget.Meter) (map[int]fr.Element, error) {
	if len(o.Values) != len(positions) {
		return nil, fmt.Errorf("%w: %d values for %d positions", ErrOpeningInvalid, len(o.Values), len(positions))
	}
	if err := m.Charge(uint64(len(positions) + hashtree.BatchHashCount(size, positions))); err != nil {
		return nil, err
	}
	if err := hashtree.VerifyBatch(root, size, positions, LeafBytes(o.Values), &o.Proof); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpeningInvalid, err)
	}
	values := make(map[int]fr.Element, len(positions))
	for i, p := range positions {
		values[p] = o.Values[i]
	}
	return values, nil
}

// Verify checks the committed layers and the remainder. values holds the
// first-layer value the verifier derived for each query.
func Verify(p *zk.Proof, lde *poly.Domain, betas []fr.Element, queries []int, values []fr.Element, m *budget.Meter) error {
	if len(betas) != len(p.LayerRoots) || len(p.LayerOpened) != len(p.LayerRoots) || len(values) != len(queries) {
		return fmt.Errorf("%w: layer count", ErrOpeningInvalid)
	}
	current := append([]fr.Element(nil), values...)
	pos := append([]int(nil), queries...)
	domain := lde
	var err error
	for k := range p.LayerRoots {
		n, half := domain.Size, domain.Size/2
		opened, err := OpenedValues(p.LayerRoots[k], n, PairPositions(pos, n), &p.LayerOpened[k], m)
		if err != nil {
			return err
		}
		for i := range pos {
			v := opened[pos[i]]
			if v != current[i] {
				return fmt.Errorf("%w: layer %d query %d", ErrLayerMismatch, k, i)
			}
			lo := pos[i] % half
			if err := m.Charge(2); err != nil {
				return err
			}
			var twoX, inv fr.Element
			x := domain.Element(lo)
			twoX.Double(&x)
			inv.Inverse(&twoX)
			current[i] = FoldPair(opened[lo], opened[lo+half], betas[k], inv)
			pos[i] = lo
		}
		if domain, err = domain.Square(); err != nil {
			return err
		}
	}
	for i := range pos {
		if err = m.Charge(1); err != nil {
			return err
		}
		got := poly.Eval(p.Remainder, domain.Element(pos[i]))
		if got != current[i] {
			return fmt.Errorf("%w: query %d", ErrRemainder, i)
		}
	}
	return nil
}
