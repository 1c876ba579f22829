// Package tracker gives every detection a stable identity across frames.
//
// When the inference service supplies a track id the resolver trusts it.
// Otherwise it matches the box against recently seen synthetic tracks by
// overlap (IoU) and reuses or allocates a synthetic id. Each id, external or
// synthetic, maps to a random UUID that stays the same while the id keeps
// showing up. All expiry is measured on frame timestamps, never wall clock.
//
// A Resolver is not safe for concurrent use; it belongs to the processing
// worker.
package tracker

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/studio-tech-hub/SafeAging/modules/inference"
)

const (
	// MatchIoU is the overlap a synthetic track needs to be continued.
	MatchIoU = 0.3

	DefaultSyntheticTTL = 2 * time.Second
	DefaultTrackMapTTL  = 60 * time.Second
)

// Config holds resolver settings.
type Config struct {
	// SyntheticTTL bounds how long an unmatched synthetic track stays
	// eligible for matching.
	SyntheticTTL time.Duration

	// TrackMapTTL bounds how long an id keeps its identity without being seen.
	TrackMapTTL time.Duration

	// NewID mints identities. Defaults to uuid.New.
	NewID func() uuid.UUID
}

type syntheticTrack struct {
	box      inference.Box
	lastSeen int64
}

// trackKey separates service ids from synthetic ids so that a negative id
// sent by the service can never alias a synthetic track.
type trackKey struct {
	id        int64
	synthetic bool
}

// Resolver assigns identities. Synthetic ids count down from -1.
type Resolver struct {
	syntheticTTL int64 // µs
	mapTTL       int64 // µs
	newID        func() uuid.UUID

	synthetic  map[int64]*syntheticTrack
	identities map[trackKey]uuid.UUID
	lastSeen   map[trackKey]int64
	nextSynth  int64
}

// NewResolver creates a Resolver. Non-positive TTLs take the defaults.
func NewResolver(cfg Config) *Resolver {
	if cfg.SyntheticTTL <= 0 {
		cfg.SyntheticTTL = DefaultSyntheticTTL
	}
	if cfg.TrackMapTTL <= 0 {
		cfg.TrackMapTTL = DefaultTrackMapTTL
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.New
	}
	return &Resolver{
		syntheticTTL: cfg.SyntheticTTL.Microseconds(),
		mapTTL:       cfg.TrackMapTTL.Microseconds(),
		newID:        cfg.NewID,
		synthetic:    make(map[int64]*syntheticTrack),
		identities:   make(map[trackKey]uuid.UUID),
		lastSeen:     make(map[trackKey]int64),
		nextSynth:    -1,
	}
}

// Resolve fills in Identity for every detection, in order, for the frame at
// tsUs microseconds.
func (r *Resolver) Resolve(dets []inference.Detection, tsUs int64) {
	for i := range dets {
		d := &dets[i]

		var key trackKey
		if d.ExternalID != nil {
			key = trackKey{id: *d.ExternalID}
		} else {
			key = trackKey{id: r.matchSynthetic(d.Box, tsUs), synthetic: true}
		}

		d.Identity = r.identity(key)
		r.lastSeen[key] = tsUs
	}
}

func (r *Resolver) matchSynthetic(box inference.Box, tsUs int64) int64 {
	keys := make([]int64, 0, len(r.synthetic))
	for k := range r.synthetic {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	best, bestIoU := int64(0), 0.0
	found := false
	for _, k := range keys {
		t := r.synthetic[k]
		if tsUs-t.lastSeen >= r.syntheticTTL {
			continue
		}
		if iou := IoU(box, t.box); iou > MatchIoU && iou > bestIoU {
			best, bestIoU, found = k, iou, true
		}
	}

	if !found {
		best = r.nextSynth
		r.nextSynth--
		r.synthetic[best] = &syntheticTrack{}
	}
	t := r.synthetic[best]
	t.box = box
	t.lastSeen = tsUs
	return best
}

func (r *Resolver) identity(key trackKey) uuid.UUID {
	if id, ok := r.identities[key]; ok {
		return id
	}
	id := r.newID()
	r.identities[key] = id
	return id
}

// Cleanup drops synthetic tracks older than the synthetic TTL and identity
// mappings older than the track map TTL, relative to tsUs.
func (r *Resolver) Cleanup(tsUs int64) {
	for k, t := range r.synthetic {
		if tsUs-t.lastSeen > r.syntheticTTL {
			delete(r.synthetic, k)
		}
	}
	for k, seen := range r.lastSeen {
		if tsUs-seen > r.mapTTL {
			delete(r.lastSeen, k)
			delete(r.identities, k)
		}
	}
}

// Stats is a snapshot of resolver table sizes.
type Stats struct {
	SyntheticTracks int `json:"synthetic_tracks"`
	Identities      int `json:"identities"`
}

func (r *Resolver) Stats() Stats {
	return Stats{SyntheticTracks: len(r.synthetic), Identities: len(r.identities)}
}

// IoU is intersection over union of two boxes; zero when either box has no
// area.
func IoU(a, b inference.Box) float64 {
	areaA, areaB := a.Area(), b.Area()
	if areaA <= 0 || areaB <= 0 {
		return 0
	}
	x1, y1 := max(a.X, b.X), max(a.Y, b.Y)
	x2, y2 := min(a.X+a.W, b.X+b.W), min(a.Y+a.H, b.Y+b.H)
	inter := max(0, x2-x1) * max(0, y2-y1)
	return inter / (areaA + areaB - inter + 1e-6)
}
