package agent

import (
	"sync/atomic"

	"github.com/studio-tech-hub/SafeAging/modules/framesupplier"
	"github.com/studio-tech-hub/SafeAging/modules/inference"
)

const outcomeKinds = int(inference.OutcomeProtocol) + 1

type counters struct {
	submitted     atomic.Uint64
	sampledOut    atomic.Uint64
	convertDrops  atomic.Uint64
	processed     atomic.Uint64
	objectPackets atomic.Uint64
	eventPackets  atomic.Uint64
	skippedItems  atomic.Uint64
	outcomes      [outcomeKinds]atomic.Uint64

	identities      atomic.Int64
	syntheticTracks atomic.Int64
	activeFalls     atomic.Int64
}

func (c *counters) recordOutcome(res inference.Result) {
	if k := int(res.Outcome); k >= 0 && k < outcomeKinds {
		c.outcomes[k].Add(1)
	}
	c.skippedItems.Add(uint64(res.Skipped))
}

// Stats is a snapshot of agent counters.
type Stats struct {
	CameraID string `json:"camera_id"`

	Submitted    uint64 `json:"submitted"`
	SampledOut   uint64 `json:"sampled_out"`
	ConvertDrops uint64 `json:"convert_drops"`
	Processed    uint64 `json:"processed"`

	ObjectPackets uint64 `json:"object_packets"`
	EventPackets  uint64 `json:"event_packets"`
	SkippedItems  uint64 `json:"skipped_items"`

	// Inference maps outcome names ("ok", "circuit_open", ...) to counts.
	Inference map[string]uint64 `json:"inference"`

	// Circuit is the breaker state when the detector reports one.
	Circuit string `json:"circuit,omitempty"`

	Identities      int64 `json:"identities"`
	SyntheticTracks int64 `json:"synthetic_tracks"`
	ActiveFalls     int64 `json:"active_falls"`

	Queue framesupplier.SupplierStats `json:"queue"`

	NeededTypes []string `json:"needed_types,omitempty"`
}

type circuitReporter interface {
	State() inference.CircuitState
}

// Stats returns current counters. Safe to call from any goroutine.
func (a *Agent) Stats() Stats {
	s := Stats{
		CameraID:        a.cfg.CameraID,
		Submitted:       a.counters.submitted.Load(),
		SampledOut:      a.counters.sampledOut.Load(),
		ConvertDrops:    a.counters.convertDrops.Load(),
		Processed:       a.counters.processed.Load(),
		ObjectPackets:   a.counters.objectPackets.Load(),
		EventPackets:    a.counters.eventPackets.Load(),
		SkippedItems:    a.counters.skippedItems.Load(),
		Inference:       make(map[string]uint64, outcomeKinds),
		Identities:      a.counters.identities.Load(),
		SyntheticTracks: a.counters.syntheticTracks.Load(),
		ActiveFalls:     a.counters.activeFalls.Load(),
		Queue:           a.supplier.Stats(),
	}
	for k := 0; k < outcomeKinds; k++ {
		s.Inference[inference.Outcome(k).String()] = a.counters.outcomes[k].Load()
	}
	if cr, ok := a.detector.(circuitReporter); ok {
		s.Circuit = cr.State().String()
	}

	a.neededMu.Lock()
	s.NeededTypes = append([]string(nil), a.needed...)
	a.neededMu.Unlock()
	return s
}
