// Package events provides in-process notification plumbing between the
// screening orchestrator and whoever renders results. A freshly recorded
// result is handed to a single registered listener; there is no queue and no
// fan-out, so a slow listener never blocks persistence (publishing happens
// after the record is already stored).
package events

import (
	"sync"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

// ResultListener receives a result record immediately after it is persisted.
type ResultListener func(r domain.ResultRecord)

// ResultBroadcast is a mutex-guarded single-subscriber callback slot.
// Subscribing replaces any previous listener; publishing with no listener
// registered is a no-op.
type ResultBroadcast struct {
	mu       sync.Mutex
	gen      uint64
	listener ResultListener
}

// Subscribe installs fn as the current listener and returns a function that
// unsubscribes it. Unsubscribing is a no-op if another listener has replaced
// fn in the meantime, and is safe to call more than once.
func (b *ResultBroadcast) Subscribe(fn ResultListener) (unsubscribe func()) {
	b.mu.Lock()
	b.gen++
	mine := b.gen
	b.listener = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		if b.gen == mine {
			b.listener = nil
		}
		b.mu.Unlock()
	}
}

// Publish delivers r to the current listener, if any. The listener runs
// outside the lock so it may re-subscribe without deadlocking.
func (b *ResultBroadcast) Publish(r domain.ResultRecord) {
	b.mu.Lock()
	fn := b.listener
	b.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}
