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

// go/src/core/budget/meter_test.go
package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeterStopsAtLimit(t *testing.T) {
	m := NewMeter(10)
	require.NoError(t, m.Charge(4))
	require.NoError(t, m.Charge(6))
	assert.Equal(t, uint64(10), m.Used())

	err := m.Charge(1)
	assert.ErrorIs(t, err, ErrExceeded)
	assert.Equal(t, uint64(10), m.Limit())
}

func TestZeroLimitIsUnlimited(t *testing.T) {
	m := NewMeter(0)
	require.NoError(t, m.Charge(1<<40))
}

func TestNilMeterAcceptsEverything(t *testing.T) {
	var m *Meter
	require.NoError(t, m.Charge(1000))
	require.NoError(t, m.Hash(1<<20))
	assert.Zero(t, m.Used())
	assert.Zero(t, m.Limit())
}

func TestHashUnits(t *testing.T) {
	assert.Equal(t, uint64(1), HashUnits(0))
	assert.Equal(t, uint64(1), HashUnits(128))
	assert.Equal(t, uint64(2), HashUnits(129))
	assert.Equal(t, uint64(2), HashUnits(192))
	assert.Equal(t, uint64(3), HashUnits(193))
}
