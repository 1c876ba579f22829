package internal

import (
	"sync/atomic"
)

// Publish enqueues a job (implements Supplier.Publish).
//
// Algorithm:
//  1. Lock inbox mutex
//  2. Stopped → count as rejected, return
//  3. Queue full → evict front (oldest), increment evicted
//  4. Append job, assign Seq
//  5. Signal inboxCond (wake consumer if blocked)
//
// Semantics:
//   - Non-blocking: Always returns immediately
//   - Drop-oldest: a full queue makes room by discarding its oldest job
//
// Latency: O(1) amortized - Lock + slice ops + signal
func (s *supplier) Publish(job *Job) {
	s.inboxMu.Lock()

	if s.stopped {
		s.inboxMu.Unlock()
		atomic.AddUint64(&s.rejected, 1)
		return
	}

	if len(s.inbox) >= s.capacity {
		s.inbox[0] = nil
		s.inbox = s.inbox[1:]
		atomic.AddUint64(&s.evicted, 1)
	}

	job.Seq = atomic.AddUint64(&s.publishSeq, 1)
	s.inbox = append(s.inbox, job)

	// Wake consumer if blocked in Wait()
	s.inboxCond.Signal()

	s.inboxMu.Unlock()
}
