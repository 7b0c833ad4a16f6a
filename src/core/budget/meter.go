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

// go/src/core/budget/meter.go
package budget

import (
	"errors"
	"fmt"
)

// DefaultMaxWorkPerCall is the work ceiling applied to a single operation.
// One signature verification or one proof verification fits under it,
// both together do not.
const DefaultMaxWorkPerCall uint64 = 4200

// ErrExceeded is returned once a call has spent more than its limit.
var ErrExceeded = errors.New("budget: work limit exceeded")

// Meter counts abstract work units spent by one call.
// A nil *Meter accepts every charge.
type Meter struct {
	limit uint64
	used  uint64
}

// NewMeter returns a meter that fails after limit units. A zero limit
// means unlimited.
func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// Charge spends units and reports ErrExceeded when the limit is crossed.
func (m *Meter) Charge(units uint64) error {
	if m == nil {
		return nil
	}
	m.used += units
	if m.limit != 0 && m.used > m.limit {
		return fmt.Errorf("%w: used %d of %d", ErrExceeded, m.used, m.limit)
	}
	return nil
}

// Hash charges one hash invocation over n input bytes.
func (m *Meter) Hash(n int) error {
	return m.Charge(HashUnits(n))
}

// Used returns the units spent so far.
func (m *Meter) Used() uint64 {
	if m == nil {
		return 0
	}
	return m.used
}

// Limit returns the configured ceiling (0 if unlimited).
func (m *Meter) Limit() uint64 {
	if m == nil {
		return 0
	}
	return m.limit
}

// HashUnits is the cost of hashing n bytes: one unit per call and one
// more for every 64-byte block past the first 128 bytes.
func HashUnits(n int) uint64 {
	if n <= 128 {
		return 1
	}
	return 1 + uint64(n-128+63)/64
}
