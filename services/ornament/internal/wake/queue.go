// services/ornament/internal/wake/queue.go
package wake

import (
	"context"
	"sync/atomic"
)

// Source identifies what resumed execution.
type Source uint8

const (
	SourceNone Source = iota
	SourceVoltage
	SourceTimer
	numSources
)

func (s Source) String() string {
	switch s {
	case SourceVoltage:
		return "voltage"
	case SourceTimer:
		return "timer"
	default:
		return "none"
	}
}

// Queue holds at most one pending event per source, in delivery order.
// Post is safe from interrupt context; Wait has a single consumer.
type Queue struct {
	// Written by ISRs; never blocks.
	ch      chan Source
	pending [numSources]atomic.Bool

	coalesced atomic.Uint32
}

func NewQueue() *Queue {
	return &Queue{ch: make(chan Source, int(numSources))}
}

// Post marks src pending. A source that is already pending is coalesced.
func (q *Queue) Post(src Source) {
	if src == SourceNone || src >= numSources {
		return
	}
	if !q.pending[src].CompareAndSwap(false, true) {
		q.coalesced.Add(1)
		return
	}
	select {
	case q.ch <- src:
	default:
		// Unreachable with one slot per source; keep the ISR path non-blocking.
		q.pending[src].Store(false)
		q.coalesced.Add(1)
	}
}

// PostVoltageLow is the voltage monitor's post.
func (q *Queue) PostVoltageLow() { q.Post(SourceVoltage) }

// PostTimer is the wake timer's post.
func (q *Queue) PostTimer() { q.Post(SourceTimer) }

// Pending reports whether any event is waiting.
func (q *Queue) Pending() bool { return len(q.ch) > 0 }

// IsPending reports whether src has an undelivered event.
func (q *Queue) IsPending(src Source) bool {
	if src >= numSources {
		return false
	}
	return q.pending[src].Load()
}

// TryNext returns the oldest pending event without blocking.
func (q *Queue) TryNext() (Source, bool) {
	select {
	case s := <-q.ch:
		q.pending[s].Store(false)
		return s, true
	default:
		return SourceNone, false
	}
}

// Wait suspends until an event is delivered or ctx ends. This is the only
// suspension point of the firmware.
func (q *Queue) Wait(ctx context.Context) (Source, error) {
	select {
	case s := <-q.ch:
		q.pending[s].Store(false)
		return s, nil
	case <-ctx.Done():
		return SourceNone, ctx.Err()
	}
}

// Coalesced counts posts folded into an already pending event.
func (q *Queue) Coalesced() uint32 { return q.coalesced.Load() }
