// Package internal implements the frame supplier.
//
// This package is INTERNAL - clients MUST use public API in parent package.
// Reason: Allows internal refactoring without breaking changes.
package internal

import (
	"sync"
	"sync/atomic"
)

// supplier is the concrete implementation of framesupplier.Supplier interface.
//
// Goroutine topology:
//   - 0 owned goroutines: the supplier is a passive queue
//   - N publishers (typically 1, the host delivery thread)
//   - 1 consumer (the agent worker) blocked in Next()
//
// Thread-safety: All public methods safe for concurrent use.
type supplier struct {
	// --- Inbox Queue ---
	// Publisher → Worker communication

	inboxMu   sync.Mutex // Protects inbox, stopped
	inboxCond *sync.Cond // Signals the consumer
	inbox     []*Job     // FIFO, len(inbox) <= capacity
	capacity  int
	stopped   bool

	// --- Counters (atomic, read by Stats without lock) ---

	publishSeq uint64
	evicted    uint64
	rejected   uint64
	consumed   uint64
}

// NewSupplier creates a new supplier instance (called by public New() in parent package).
// Exported to allow parent package to construct, but returns unexported *supplier type.
func NewSupplier(capacity int) *supplier {
	if capacity < 1 {
		capacity = 1
	}
	s := &supplier{
		inbox:    make([]*Job, 0, capacity),
		capacity: capacity,
	}
	s.inboxCond = sync.NewCond(&s.inboxMu)
	return s
}

// Stop marks the supplier stopped (implements Supplier.Stop).
//
// Behavior:
//  1. Sets stopped flag (Publish becomes a counted no-op)
//  2. Broadcasts inboxCond (wakes the consumer if blocked)
//
// Queued jobs are NOT discarded: Next() keeps returning them until the
// queue is empty, then returns nil.
//
// Idempotent: Safe to call multiple times.
func (s *supplier) Stop() {
	s.inboxMu.Lock()
	s.stopped = true
	s.inboxMu.Unlock()

	s.inboxCond.Broadcast()
}

// Next pops the oldest job (implements Supplier.Next).
//
// Algorithm:
//  1. Wait while queue empty and not stopped (sync.Cond.Wait - efficient blocking)
//  2. Stopped and empty → return nil (consumer exits)
//  3. Otherwise pop the front
func (s *supplier) Next() *Job {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()

	for len(s.inbox) == 0 && !s.stopped {
		s.inboxCond.Wait()
	}
	if len(s.inbox) == 0 {
		return nil
	}

	job := s.inbox[0]
	s.inbox[0] = nil
	s.inbox = s.inbox[1:]
	atomic.AddUint64(&s.consumed, 1)
	return job
}
