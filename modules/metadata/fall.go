package metadata

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/studio-tech-hub/SafeAging/modules/inference"
)

const DefaultFinishGrace = 3 * time.Second

// FallTracker keeps the fall state per identity and reports transitions.
//
// An identity becomes active the first frame it is flagged as fallen. It
// finishes when it is seen again without the flag, or when it has not been
// flagged for at least the finish grace (including when it left the frame).
// Not safe for concurrent use.
type FallTracker struct {
	graceUs int64
	active  map[uuid.UUID]int64 // identity -> last flagged frame (µs)
}

// NewFallTracker creates a tracker. A negative grace is treated as zero.
func NewFallTracker(grace time.Duration) *FallTracker {
	if grace < 0 {
		grace = 0
	}
	return &FallTracker{
		graceUs: grace.Microseconds(),
		active:  make(map[uuid.UUID]int64),
	}
}

// Update feeds one processed frame and returns the resulting events:
// started events first, then finished events, each ordered by identity.
func (f *FallTracker) Update(dets []inference.Detection, tsUs int64) []EventPacket {
	seen := make(map[uuid.UUID]struct{}, len(dets))
	falling := make(map[uuid.UUID]struct{})
	for _, d := range dets {
		seen[d.Identity] = struct{}{}
		if d.Fall {
			falling[d.Identity] = struct{}{}
		}
	}

	var started, finished []uuid.UUID
	for id := range falling {
		if _, ok := f.active[id]; !ok {
			started = append(started, id)
		}
		f.active[id] = tsUs
	}
	for id, last := range f.active {
		if _, ok := falling[id]; ok {
			continue
		}
		_, wasSeen := seen[id]
		if wasSeen || tsUs-last >= f.graceUs {
			finished = append(finished, id)
		}
	}

	slices.SortFunc(started, compareUUID)
	slices.SortFunc(finished, compareUUID)

	events := make([]EventPacket, 0, len(started)+len(finished))
	for _, id := range started {
		events = append(events, newEvent(id, tsUs, true))
	}
	for _, id := range finished {
		delete(f.active, id)
		events = append(events, newEvent(id, tsUs, false))
	}
	return events
}

// Active returns the identities currently in the fall state, sorted.
func (f *FallTracker) Active() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(f.active))
	for id := range f.active {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareUUID)
	return ids
}

func newEvent(id uuid.UUID, tsUs int64, active bool) EventPacket {
	ev := EventPacket{
		TimestampUs: tsUs,
		TypeID:      TypeFallEvent,
		TrackID:     id,
		IsActive:    active,
	}
	if active {
		ev.Caption = CaptionStarted
		ev.Description = fmt.Sprintf("Track %s entered fall state", id)
	} else {
		ev.Caption = CaptionFinished
		ev.Description = fmt.Sprintf("Track %s left fall state", id)
	}
	return ev
}

func compareUUID(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
