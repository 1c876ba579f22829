// Package framesupplier implements the hand-off between the camera delivery
// path and the processing worker of a fall-detection agent.
//
// # Philosophy
//
// "Never block the camera. Fresh frames beat old frames."
//
// The host calls into the agent from its own video thread. Anything slow on
// that path (network, JPEG, tracking) would stall the whole camera, so the
// delivery path only samples, converts and enqueues. When inference falls
// behind, the queue evicts its oldest job: a late answer about an old frame
// is worth less than a timely answer about a new one.
//
// # Design Principles
//
//  1. Sampling on frame time: the Sampler compares capture timestamps, so
//     replayed or bursty streams are sampled the same way as live ones
//  2. Non-blocking Publish: Publish() never waits, eviction keeps it O(1)
//  3. Blocking consume: one worker blocks in Next() (sync.Cond, no busy-wait)
//  4. Draining stop: queued jobs are still handed out after Stop(), then nil
//  5. Operational stats: published, evicted, rejected, consumed, depth
//
// # Architecture
//
//	host video thread → Sampler → convert → Supplier.Publish
//	                                           (bounded, drop-oldest)
//	                                                ↓
//	                              worker goroutine ← Supplier.Next
//
// # Basic Usage
//
//	sampler := framesupplier.NewSampler(5)
//	supplier := framesupplier.New(4)
//
//	// delivery path
//	if sampler.Accept(tsUs) {
//	    supplier.Publish(&framesupplier.Job{Image: img, TimestampUs: tsUs})
//	}
//
//	// worker
//	for job := supplier.Next(); job != nil; job = supplier.Next() {
//	    process(job)
//	}
//
//	// shutdown
//	supplier.Stop()
package framesupplier
