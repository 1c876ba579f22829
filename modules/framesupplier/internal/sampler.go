package internal

import (
	"math"
	"sync"
)

// Sampler decides which frames are worth processing, based on capture time.
//
// Rules:
//   - minInterval = round(1e6 / targetFps) µs
//   - minInterval <= 0 (no target rate): accept every frame
//   - timestamp <= 0 (host did not stamp the frame): accept, do not record
//   - first stamped frame: accept
//   - otherwise accept iff ts - lastAccepted >= minInterval
//
// Thread-safety: Safe for concurrent use (mutex-protected).
type Sampler struct {
	mu           sync.Mutex
	minInterval  int64
	lastAccepted int64
}

// NewSampler creates a Sampler (called by public NewSampler() in parent package).
func NewSampler(targetFps float64) *Sampler {
	var interval int64
	if targetFps > 0 && !math.IsInf(targetFps, 0) {
		interval = int64(math.Round(1e6 / targetFps))
	}
	return &Sampler{minInterval: interval}
}

// Accept reports whether the frame stamped tsUs should be processed.
func (s *Sampler) Accept(tsUs int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.minInterval <= 0 {
		s.lastAccepted = tsUs
		return true
	}
	if tsUs <= 0 {
		return true
	}
	if s.lastAccepted > 0 && tsUs-s.lastAccepted < s.minInterval {
		return false
	}
	s.lastAccepted = tsUs
	return true
}

// MinIntervalUs returns the enforced spacing in microseconds (0 = none).
func (s *Sampler) MinIntervalUs() int64 {
	return s.minInterval
}
