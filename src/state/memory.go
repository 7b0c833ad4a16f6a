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

// go/src/state/memory.go
package state

import (
	"bytes"
	"sync"

	"github.com/elliotchance/orderedmap/v2"
)

// Memory is a volatile Store. Scan visits keys in insertion order.
type Memory struct {
	mu     sync.RWMutex
	data   *orderedmap.OrderedMap[string, []byte]
	closed bool
}

// Ensure Memory implements Store
var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: orderedmap.NewOrderedMap[string, []byte]()}
}

// Get implements Store
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data.Get(string(key))
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

// Has implements Store
func (m *Memory) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, ErrClosed
	}
	return m.data.Has(string(key)), nil
}

// Write implements Store
func (m *Memory) Write(b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, op := range b.ops {
		if op.delete {
			m.data.Delete(string(op.key))
			continue
		}
		v := op.value
		if v == nil {
			v = []byte{}
		}
		m.data.Set(string(op.key), v)
	}
	return nil
}

// Scan implements Store
func (m *Memory) Scan(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	type kv struct{ k, v []byte }
	var hits []kv
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	for el := m.data.Front(); el != nil; el = el.Next() {
		if bytes.HasPrefix([]byte(el.Key), prefix) {
			hits = append(hits, kv{[]byte(el.Key), clone(el.Value)})
		}
	}
	m.mu.RUnlock()

	for _, h := range hits {
		if err := fn(h.k, h.v); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Len()
}

// Close implements Store
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
