// Package bridge lets the sequential session loop block on a network round trip
// whose reply is delivered by a transport goroutine.
//
// The transport side only ever calls Slot.Fulfill. It never sees session state.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrNoReply is returned when the reply timed out, the connection dropped
	// or the payload could not be decoded.
	ErrNoReply    = errors.New("no reply")
	ErrBridgeBusy = errors.New("bridge already has an outstanding request")
)

type result[T any] struct {
	v   T
	err error
}

// Slot is a single-use result holder. The first Fulfill wins; later calls are ignored.
type Slot[T any] struct {
	once sync.Once
	ch   chan result[T]
}

func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan result[T], 1)}
}

// Fulfill records the result and releases the waiter. It never blocks and
// reports whether this call was the one that filled the slot.
func (s *Slot[T]) Fulfill(v T, err error) bool {
	filled := false
	s.once.Do(func() {
		s.ch <- result[T]{v: v, err: err}
		filled = true
	})
	return filled
}

// Wait blocks until the slot is filled or ctx is done.
func (s *Slot[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-s.ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ack is invoked exactly once by the transport: with the raw reply frame, or
// with a non-nil error on timeout or disconnect.
type Ack func(raw []byte, err error)

// Requester sends a request message built around the transport-assigned request id.
type Requester interface {
	Request(build func(reqID string) any, ack Ack) error
}

// Bridge enforces one outstanding request at a time for its owner.
type Bridge struct {
	busy atomic.Bool
}

func (b *Bridge) Busy() bool { return b.busy.Load() }

// Ask sends a request through r and blocks until the reply has been decoded.
// decode runs on the transport goroutine and must not touch session state.
func Ask[T any](ctx context.Context, b *Bridge, r Requester, build func(reqID string) any, decode func(raw []byte) (T, error)) (T, error) {
	var zero T
	if !b.busy.CompareAndSwap(false, true) {
		return zero, ErrBridgeBusy
	}
	defer b.busy.Store(false)

	slot := NewSlot[T]()
	ack := func(raw []byte, err error) {
		if err != nil {
			slot.Fulfill(zero, fmt.Errorf("%w: %v", ErrNoReply, err))
			return
		}
		v, err := decode(raw)
		if err != nil {
			slot.Fulfill(zero, fmt.Errorf("%w: %v", ErrNoReply, err))
			return
		}
		slot.Fulfill(v, nil)
	}
	if err := r.Request(build, ack); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrNoReply, err)
	}
	return slot.Wait(ctx)
}
