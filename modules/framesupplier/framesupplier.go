// Package framesupplier hands sampled frames from the host's delivery path
// to the single processing worker.
//
// Philosophy: "Never block the camera. Fresh frames beat old frames."
//
// Design:
//   - Sampler: minimum-interval rate limiter on frame timestamps
//   - Non-blocking Publish() with a bounded queue (drop-oldest on overflow)
//   - Blocking Next() for exactly one consumer (efficient waiting, sync.Cond)
//   - Stop() drains: the consumer keeps receiving queued jobs, then nil
package framesupplier

import (
	"github.com/studio-tech-hub/SafeAging/modules/framesupplier/internal"
)

// Job is re-exported from internal package to avoid import cycles.
// See internal/types.go for full documentation.
type Job = internal.Job

// Supplier is the public interface for frame hand-off.
//
// Design:
//   - Interface (not concrete type) so the agent can be tested with fakes
//   - Lifecycle: New() → Publish()/Next() → Stop()
//   - Thread-safe: all methods safe for concurrent use
//
// Implementation is in internal/supplier.go (hidden from clients).
type Supplier interface {
	// Publish enqueues a job (non-blocking).
	//
	// Semantics:
	//   - Non-blocking: always returns immediately
	//   - Overflow policy: when the queue is full the OLDEST job is evicted
	//   - Drop tracking: increments Evicted per eviction
	//   - After Stop(): job is discarded and counted in Rejected
	//
	// Contract:
	//   - job MUST NOT be nil (caller responsibility)
	//   - job.Image MUST NOT be modified after Publish (ownership moves to the consumer)
	Publish(job *Job)

	// Next returns the oldest queued job, blocking while the queue is empty.
	//
	// Returns nil only once Stop() was called AND the queue is empty.
	// Intended for a single consumer goroutine.
	//
	// Example:
	//   for {
	//       job := supplier.Next()  // Blocks here
	//       if job == nil { break }
	//       process(job)
	//   }
	Next() *Job

	// Stop marks the supplier stopped and wakes the consumer.
	// Idempotent: safe to call multiple times.
	Stop()

	// Stats returns operational statistics (non-blocking snapshot).
	Stats() SupplierStats
}

// SupplierStats is re-exported from internal package to avoid import cycles.
// See internal/types.go for full documentation.
type SupplierStats = internal.SupplierStats

// New creates a Supplier holding at most capacity jobs (values below 1 mean 1).
func New(capacity int) Supplier {
	return internal.NewSupplier(capacity)
}

// Sampler is re-exported from internal package.
// See internal/sampler.go for full documentation.
type Sampler = internal.Sampler

// NewSampler creates a Sampler admitting at most targetFps frames per second
// of frame time. A non-positive rate admits every frame.
func NewSampler(targetFps float64) *Sampler {
	return internal.NewSampler(targetFps)
}
