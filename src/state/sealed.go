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

// go/src/state/sealed.go
package state

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/minio/highwayhash"
)

// ErrChecksum is returned when a stored value fails its integrity check.
var ErrChecksum = errors.New("state: checksum mismatch")

// sealKeyName holds the HighwayHash key of a sealed store.
var sealKeyName = []byte("meta:hhkey")

// Sealed wraps a Store and appends a keyed HighwayHash-256 checksum to
// every value, binding it to its key. Reads verify the checksum so that
// on-disk corruption surfaces as ErrChecksum instead of a bad decode.
type Sealed struct {
	inner Store
	key   []byte
}

// Ensure Sealed implements Store
var _ Store = (*Sealed)(nil)

// NewSealed wraps inner, creating the checksum key on first use.
func NewSealed(inner Store) (*Sealed, error) {
	key, err := inner.Get(sealKeyName)
	switch {
	case errors.Is(err, ErrNotFound):
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate checksum key: %w", err)
		}
		if err := Put(inner, sealKeyName, key); err != nil {
			return nil, fmt.Errorf("failed to persist checksum key: %w", err)
		}
	case err != nil:
		return nil, err
	case len(key) != 32:
		return nil, fmt.Errorf("%w: checksum key has %d bytes", ErrChecksum, len(key))
	}
	return &Sealed{inner: inner, key: key}, nil
}

func (s *Sealed) checksum(key, value []byte) [highwayhash.Size]byte {
	msg := make([]byte, 0, 4+len(key)+len(value))
	msg = append(msg, byte(len(key)>>24), byte(len(key)>>16), byte(len(key)>>8), byte(len(key)))
	msg = append(msg, key...)
	msg = append(msg, value...)
	return highwayhash.Sum(msg, s.key)
}

func (s *Sealed) open(key, stored []byte) ([]byte, error) {
	if len(stored) < highwayhash.Size {
		return nil, fmt.Errorf("%w: value too short for key %x", ErrChecksum, key)
	}
	n := len(stored) - highwayhash.Size
	value, sum := stored[:n], stored[n:]
	want := s.checksum(key, value)
	if !bytes.Equal(sum, want[:]) {
		return nil, fmt.Errorf("%w: key %x", ErrChecksum, key)
	}
	return value, nil
}

// Get implements Store
func (s *Sealed) Get(key []byte) ([]byte, error) {
	stored, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	return s.open(key, stored)
}

// Has implements Store
func (s *Sealed) Has(key []byte) (bool, error) {
	return s.inner.Has(key)
}

// Write implements Store
func (s *Sealed) Write(b *Batch) error {
	sealed := NewBatch()
	for _, op := range b.ops {
		if op.delete {
			sealed.Delete(op.key)
			continue
		}
		sum := s.checksum(op.key, op.value)
		sealed.Put(op.key, append(clone(op.value), sum[:]...))
	}
	return s.inner.Write(sealed)
}

// Scan implements Store
func (s *Sealed) Scan(prefix []byte, fn func(key, value []byte) error) error {
	return s.inner.Scan(prefix, func(key, stored []byte) error {
		if bytes.Equal(key, sealKeyName) {
			return nil
		}
		value, err := s.open(key, stored)
		if err != nil {
			return err
		}
		return fn(key, value)
	})
}

// Close implements Store
func (s *Sealed) Close() error {
	return s.inner.Close()
}
