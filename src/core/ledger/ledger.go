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

// go/src/core/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sphinx-core/stark-pqc/src/core/message"
	"github.com/sphinx-core/stark-pqc/src/core/types"
	"go.uber.org/zap"
)

// ErrStopped is returned for operations submitted after Stop.
var ErrStopped = errors.New("ledger: stopped")

// Observer is told about every executed operation.
type Observer func(op string, took time.Duration, err error)

type operation struct {
	name   string
	run    func(*message.Engine) (any, error)
	result chan result
}

type result struct {
	value any
	err   error
}

// Ledger serializes every engine operation through one goroutine, so the
// store sees them in a single total order.
type Ledger struct {
	engine   *message.Engine
	logger   *zap.Logger
	observer Observer

	opCh     chan *operation
	quit     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// New returns a ledger over engine with room for queue pending operations.
func New(engine *message.Engine, queue int, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queue <= 0 {
		queue = 1
	}
	return &Ledger{
		engine: engine,
		logger: logger,
		opCh:   make(chan *operation, queue),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// SetObserver installs fn. It must be called before Start.
func (l *Ledger) SetObserver(fn Observer) { l.observer = fn }

// Start launches the operation loop.
func (l *Ledger) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.handleOperations()
	l.logger.Info("ledger started", zap.Uint64("max_work_per_call", l.engine.MaxWorkPerCall()))
}

// Stop ends the loop after the operation in progress. Queued operations
// fail with ErrStopped.
func (l *Ledger) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
		// Claiming the start flag keeps a later Start from launching the
		// loop, so done is closed here exactly once.
		if l.started.CompareAndSwap(false, true) {
			close(l.done)
		} else {
			<-l.done
		}
		l.logger.Info("ledger stopped")
	})
}

func (l *Ledger) handleOperations() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			for {
				select {
				case op := <-l.opCh:
					op.result <- result{err: ErrStopped}
				default:
					return
				}
			}
		case op := <-l.opCh:
			start := time.Now()
			v, err := op.run(l.engine)
			took := time.Since(start)
			if l.observer != nil {
				l.observer(op.name, took, err)
			}
			l.logger.Debug("operation", zap.String("op", op.name), zap.Duration("took", took), zap.Error(err))
			op.result <- result{value: v, err: err}
		}
	}
}

func (l *Ledger) submit(ctx context.Context, name string, run func(*message.Engine) (any, error)) (any, error) {
	op := &operation{name: name, run: run, result: make(chan result, 1)}
	select {
	case <-l.quit:
		return nil, ErrStopped
	default:
	}
	select {
	case l.opCh <- op:
	case <-l.quit:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// Once queued the operation runs to completion; the caller may stop
	// waiting but cannot cancel it.
	select {
	case r := <-op.result:
		return r.value, r.err
	case <-l.done:
		select {
		case r := <-op.result:
			return r.value, r.err
		default:
			return nil, ErrStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InitBodyBuffer creates or resets the sender's body buffer.
func (l *Ledger) InitBodyBuffer(ctx context.Context, sender types.Pubkey) error {
	_, err := l.submit(ctx, "init_body_buffer", func(e *message.Engine) (any, error) {
		return nil, e.InitBodyBuffer(sender)
	})
	return err
}

// InitSignatureBuffer creates or resets the signature buffer of one message.
func (l *Ledger) InitSignatureBuffer(ctx context.Context, sender, recipient types.Pubkey, seq uint64) error {
	_, err := l.submit(ctx, "init_signature_buffer", func(e *message.Engine) (any, error) {
		return nil, e.InitSignatureBuffer(sender, recipient, seq)
	})
	return err
}

// UploadBodyChunk appends one chunk to the sender's body buffer.
func (l *Ledger) UploadBodyChunk(ctx context.Context, sender types.Pubkey, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	v, err := l.submit(ctx, "upload_body_chunk", func(e *message.Engine) (any, error) {
		return e.UploadBodyChunk(sender, offset, chunk, expected)
	})
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

// UploadSignatureChunk appends one chunk to a signature buffer.
func (l *Ledger) UploadSignatureChunk(ctx context.Context, sender, recipient types.Pubkey, seq uint64, offset uint32, chunk []byte, expected [32]byte) (uint32, error) {
	v, err := l.submit(ctx, "upload_signature_chunk", func(e *message.Engine) (any, error) {
		return e.UploadSignatureChunk(sender, recipient, seq, offset, chunk, expected)
	})
	if err != nil {
		return 0, err
	}
	return v.(uint32), nil
}

// FinalizeSignature runs the signature phase of finalize.
func (l *Ledger) FinalizeSignature(ctx context.Context, sender types.Pubkey, req message.FinalizeRequest) (*types.MessageRecord, error) {
	v, err := l.submit(ctx, "finalize_signature", func(e *message.Engine) (any, error) {
		return e.FinalizeSignature(sender, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.MessageRecord), nil
}

// VerifyProof runs the proof phase of finalize.
func (l *Ledger) VerifyProof(ctx context.Context, id types.RecordID) (types.ProofStatus, error) {
	v, err := l.submit(ctx, "verify_proof", func(e *message.Engine) (any, error) {
		return e.VerifyProof(id)
	})
	status, _ := v.(types.ProofStatus)
	return status, err
}

// ReadRecords lists the records addressed to recipient.
func (l *Ledger) ReadRecords(ctx context.Context, recipient types.Pubkey, seq *uint64) ([]types.RecordView, error) {
	v, err := l.submit(ctx, "read_records", func(e *message.Engine) (any, error) {
		return e.ReadRecords(recipient, seq)
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.RecordView), nil
}

// ReadSignature returns the frozen signature of a record.
func (l *Ledger) ReadSignature(ctx context.Context, id types.RecordID) ([]byte, error) {
	v, err := l.submit(ctx, "read_signature", func(e *message.Engine) (any, error) {
		return e.ReadSignature(id)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Phase reports the finalization phase of one message.
func (l *Ledger) Phase(ctx context.Context, id types.RecordID) (types.Phase, error) {
	v, err := l.submit(ctx, "get_phase", func(e *message.Engine) (any, error) {
		return e.Phase(id)
	})
	phase, _ := v.(types.Phase)
	return phase, err
}
