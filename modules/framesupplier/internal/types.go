package internal

import "image"

// Job is a converted frame waiting for the worker.
//
// OWNERSHIP CONTRACT:
//   - Publisher: MUST NOT touch Image after Publish(job)
//   - Consumer: owns the job exclusively once Next() returns it
type Job struct {
	// Image is the frame in canonical RGBA form.
	Image *image.RGBA

	// TimestampUs is the capture time in microseconds (frame clock).
	TimestampUs int64

	// Seq is assigned by Publish. Monotonically increasing; gaps seen by the
	// consumer are evictions.
	Seq uint64
}

// SupplierStats is a snapshot of supplier operational state.
type SupplierStats struct {
	// Published counts jobs accepted by Publish (including later evicted ones).
	Published uint64 `json:"published"`

	// Evicted counts jobs dropped to make room for newer ones.
	// Non-zero means the worker is slower than the sampled rate.
	Evicted uint64 `json:"evicted"`

	// Rejected counts jobs published after Stop().
	Rejected uint64 `json:"rejected"`

	// Consumed counts jobs handed out by Next().
	Consumed uint64 `json:"consumed"`

	// Depth is the number of jobs queued right now.
	Depth int `json:"depth"`

	// Capacity is the queue bound.
	Capacity int `json:"capacity"`
}
