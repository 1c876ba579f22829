package internal

import (
	"sync/atomic"
)

// Stats returns operational statistics snapshot (implements Supplier.Stats).
//
// Counters are atomic reads; Depth is read under the inbox lock.
// Consistency: Stats may be slightly stale (acceptable for monitoring).
func (s *supplier) Stats() SupplierStats {
	s.inboxMu.Lock()
	depth := len(s.inbox)
	s.inboxMu.Unlock()

	return SupplierStats{
		Published: atomic.LoadUint64(&s.publishSeq),
		Evicted:   atomic.LoadUint64(&s.evicted),
		Rejected:  atomic.LoadUint64(&s.rejected),
		Consumed:  atomic.LoadUint64(&s.consumed),
		Depth:     depth,
		Capacity:  s.capacity,
	}
}
