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

// go/src/core/sphincs/config/params.go
package params

import (
	"errors"
	"fmt"
)

// SLH-DSA-SHA2-128s (FIPS 205, security category 1, small signatures).
const (
	N      = 16 // security parameter, hash output bytes
	H      = 63 // total hypertree height
	D      = 7  // hypertree layers
	HPrime = 9  // height of one XMSS tree
	A      = 12 // FORS tree height
	K      = 14 // number of FORS trees
	LgW    = 4  // Winternitz log2(w)
	W      = 16 // Winternitz parameter
	M      = 30 // message digest bytes

	Len1 = 8 * N / LgW // 32 message chains
	Len2 = 3           // checksum chains
	Len  = Len1 + Len2 // 35 WOTS+ chains

	// Digest split: md || idx_tree || idx_leaf.
	MDBytes      = (K*A + 7) / 8      // 21
	TreeIdxBytes = (H - H/D + 7) / 8  // 7
	LeafIdxBytes = (H/D + 7) / 8      // 2
	ForsSigBytes = K * (A + 1) * N    // 2912
	XMSSSigBytes = (Len + HPrime) * N // 704
	HTSigBytes   = D * XMSSSigBytes   // 4928
	SigBytes     = N + ForsSigBytes + HTSigBytes

	PublicKeyBytes  = 2 * N // PK.seed || PK.root
	PrivateKeyBytes = 4 * N // SK.seed || SK.prf || PK.seed || PK.root
)

// SLHDSAParameters describes the parameter set a key or signature belongs to.
type SLHDSAParameters struct {
	Name           string
	N              int
	H              int
	D              int
	HPrime         int
	A              int
	K              int
	W              int
	SignatureSize  int
	PublicKeySize  int
	PrivateKeySize int
}

// NewSLHDSAParameters returns the SLH-DSA-SHA2-128s parameter set.
func NewSLHDSAParameters() (*SLHDSAParameters, error) {
	p := &SLHDSAParameters{
		Name:           "SLH-DSA-SHA2-128s",
		N:              N,
		H:              H,
		D:              D,
		HPrime:         HPrime,
		A:              A,
		K:              K,
		W:              W,
		SignatureSize:  SigBytes,
		PublicKeySize:  PublicKeyBytes,
		PrivateKeySize: PrivateKeyBytes,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the internal consistency of the parameter set.
func (p *SLHDSAParameters) Validate() error {
	if p == nil {
		return errors.New("SLH-DSA parameters are nil")
	}
	if p.H != p.D*p.HPrime {
		return fmt.Errorf("hypertree height %d is not %d layers of %d", p.H, p.D, p.HPrime)
	}
	want := p.N * (1 + p.K*(p.A+1) + p.H + p.D*Len)
	if p.SignatureSize != want {
		return fmt.Errorf("signature size %d, expected %d", p.SignatureSize, want)
	}
	return nil
}
