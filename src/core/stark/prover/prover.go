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

// go/src/core/stark/prover/prover.go
package prover

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/sphinx-core/stark-pqc/src/core/stark/air"
	"github.com/sphinx-core/stark-pqc/src/core/stark/fri"
	"github.com/sphinx-core/stark-pqc/src/core/stark/poly"
	"github.com/sphinx-core/stark-pqc/src/core/stark/zk"
	"go.uber.org/zap"
)

// cosetOffset shifts the evaluation domain off the trace subgroup.
var cosetOffset = fr.NewElement(5)

// Prover generates proofs for the affine counter bound to a ciphertext.
type Prover struct {
	opts   zk.ProofOptions
	logger *zap.Logger
}

// NewProver returns a prover for the given options. Options below the
// security floor are accepted so that tests can produce weak proofs.
func NewProver(opts zk.ProofOptions, logger *zap.Logger) (*Prover, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prover{opts: opts, logger: logger}, nil
}

// Options returns the options every proof of p carries.
func (p *Prover) Options() zk.ProofOptions { return p.opts }

// GenerateProof proves the counter whose inputs derive from SHA-256(cipher).
func (p *Prover) GenerateProof(cipher []byte) ([]byte, error) {
	proof, err := p.Prove(air.PublicInputsFromCipher(cipher))
	if err != nil {
		return nil, err
	}
	return proof.Bytes(), nil
}

// Prove runs the full protocol for pub.
func (p *Prover) Prove(pub air.PublicInputs) (*zk.Proof, error) {
	opts := p.opts
	n := opts.LDESize()
	blowup := int(opts.BlowupFactor)

	trace := air.BuildTrace(pub)
	if err := air.CheckTrace(pub, trace); err != nil {
		return nil, err
	}
	traceCoeffs, err := air.TraceDomain.Interpolate(trace)
	if err != nil {
		return nil, err
	}
	lde, err := poly.NewDomain(n, cosetOffset)
	if err != nil {
		return nil, err
	}
	traceLDE, err := lde.Evaluate(traceCoeffs)
	if err != nil {
		return nil, err
	}
	traceTree, err := fri.Commit(traceLDE)
	if err != nil {
		return nil, err
	}

	ch := zk.NewChannel(pub, opts, nil)
	ch.AbsorbRoot(traceTree.RootHash())
	alphas := ch.DrawAlphas()

	// Composition over the LDE, with every divisor inverted in one batch.
	points := lde.Elements()
	dens := make([]fr.Element, 0, n*air.NumConstraints)
	for i := range points {
		d := air.DenominatorsAt(points[i])
		dens = append(dens, d[:]...)
	}
	inv := fr.BatchInvert(dens)
	composition := make([]fr.Element, n)
	for i := range composition {
		var di air.Denominators
		copy(di[:], inv[i*air.NumConstraints:(i+1)*air.NumConstraints])
		composition[i] = air.Composition(pub, &alphas, points[i], traceLDE[i], traceLDE[(i+blowup)%n], &di)
	}

	layers, err := fri.Build(composition, lde, opts.NumLayers(), opts.RemainderSize(), ch)
	if err != nil {
		return nil, fmt.Errorf("prover: %w", err)
	}

	nonce := ch.Grind(opts.GrindingFactor)
	ch.AbsorbNonce(nonce)
	queries := ch.DrawIndices(int(opts.NumQueries), n)

	positions := opts.TracePositions(queries)
	traceProof, err := traceTree.Prove(positions)
	if err != nil {
		return nil, err
	}
	traceValues := make([]fr.Element, len(positions))
	for i, pos := range positions {
		traceValues[i] = traceLDE[pos]
	}
	openings, err := layers.Open(queries)
	if err != nil {
		return nil, err
	}

	proof := &zk.Proof{
		Options:     opts,
		TraceRoot:   traceTree.RootHash(),
		Remainder:   layers.Remainder,
		Nonce:       nonce,
		Trace:       zk.Opening{Values: traceValues, Proof: *traceProof},
		LayerOpened: openings,
	}
	for _, l := range layers.Layers {
		proof.LayerRoots = append(proof.LayerRoots, l.Tree.RootHash())
	}
	p.logger.Debug("proof generated",
		zap.Int("lde", n),
		zap.Int("layers", len(proof.LayerRoots)),
		zap.Uint64("nonce", nonce),
		zap.Int("bytes", proof.Size()))
	return proof, nil
}
