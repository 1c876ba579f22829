// Package agent is the per-camera fall-detection agent.
//
// The host pushes raw frames into SubmitFrame from its video thread. The
// agent samples and converts them there, queues them, and a single worker
// goroutine runs inference, identity resolution and fall tracking, pushing
// the resulting packets to a Sink. SubmitFrame never blocks on the worker.
package agent

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studio-tech-hub/SafeAging/internal/throttle"
	"github.com/studio-tech-hub/SafeAging/modules/frameconv"
	"github.com/studio-tech-hub/SafeAging/modules/framesupplier"
	"github.com/studio-tech-hub/SafeAging/modules/inference"
	"github.com/studio-tech-hub/SafeAging/modules/metadata"
	"github.com/studio-tech-hub/SafeAging/modules/tracker"
)

// Detector runs inference on one frame. *inference.Client implements it.
type Detector interface {
	Detect(ctx context.Context, cameraID string, img image.Image) inference.Result
}

// Sink receives the packets produced by the worker. Calls come from the
// worker goroutine only and should return quickly.
type Sink interface {
	PushObjectPacket(p *metadata.ObjectPacket)
	PushEventPacket(p *metadata.EventPacket)
}

// Config holds agent settings.
type Config struct {
	CameraID string

	// SampleFPS caps processed frames per second of frame time.
	// Zero disables sampling.
	SampleFPS float64
	QueueSize int

	FallFinishGrace   time.Duration
	SyntheticTrackTTL time.Duration
	TrackMapTTL       time.Duration

	// LogThrottle spaces repeated frame-drop diagnostics.
	LogThrottle time.Duration

	// NewID mints track identities. Defaults to uuid.New.
	NewID func() uuid.UUID
}

const (
	DefaultSampleFPS = 5.0
	DefaultQueueSize = 4
)

// Agent owns the processing worker for one camera.
type Agent struct {
	cfg      Config
	detector Detector
	sink     Sink

	sampler  *framesupplier.Sampler
	supplier framesupplier.Supplier
	dropLog  *throttle.Throttle

	// Worker-owned.
	resolver *tracker.Resolver
	falls    *metadata.FallTracker

	counters counters

	neededMu sync.Mutex
	needed   []string

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New validates cfg and starts the worker.
func New(cfg Config, detector Detector, sink Sink) (*Agent, error) {
	if detector == nil {
		return nil, fmt.Errorf("agent: detector is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("agent: sink is required")
	}
	if cfg.CameraID == "" {
		return nil, fmt.Errorf("agent: camera id is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.LogThrottle <= 0 {
		cfg.LogThrottle = inference.DefaultLogThrottle
	}

	a := &Agent{
		cfg:      cfg,
		detector: detector,
		sink:     sink,
		sampler:  framesupplier.NewSampler(cfg.SampleFPS),
		supplier: framesupplier.New(cfg.QueueSize),
		dropLog:  throttle.New(cfg.LogThrottle, nil),
		resolver: tracker.NewResolver(tracker.Config{
			SyntheticTTL: cfg.SyntheticTrackTTL,
			TrackMapTTL:  cfg.TrackMapTTL,
			NewID:        cfg.NewID,
		}),
		falls: metadata.NewFallTracker(cfg.FallFinishGrace),
	}

	a.wg.Add(1)
	go a.run()

	slog.Info("agent: started",
		"camera_id", cfg.CameraID,
		"sample_fps", cfg.SampleFPS,
		"queue_size", cfg.QueueSize,
	)
	return a, nil
}

// SubmitFrame offers one frame. It returns false only for a nil frame;
// frames skipped by sampling or conversion still return true.
func (a *Agent) SubmitFrame(f *frameconv.Frame) bool {
	if f == nil {
		return false
	}
	a.counters.submitted.Add(1)

	if !a.sampler.Accept(f.TimestampUs) {
		a.counters.sampledOut.Add(1)
		return true
	}

	img, err := frameconv.Convert(f)
	if err != nil {
		a.counters.convertDrops.Add(1)
		if a.dropLog.Allow() {
			slog.Debug("agent: frame dropped",
				"camera_id", a.cfg.CameraID,
				"format", f.Format.String(),
				"width", f.Width,
				"height", f.Height,
				"error", err,
			)
		}
		return true
	}

	a.supplier.Publish(&framesupplier.Job{Image: img, TimestampUs: f.TimestampUs})
	return true
}

// SetNeededMetadataTypes records the host's interest. All types are always
// produced; the list is kept for diagnostics.
func (a *Agent) SetNeededMetadataTypes(types []string) {
	a.neededMu.Lock()
	a.needed = append([]string(nil), types...)
	a.neededMu.Unlock()

	slog.Debug("agent: needed metadata types", "camera_id", a.cfg.CameraID, "types", types)
}

// Close stops the worker. Jobs already queued are processed first. Frames
// submitted afterwards are discarded. Safe to call more than once.
func (a *Agent) Close() {
	a.closeOnce.Do(func() {
		a.supplier.Stop()
		a.wg.Wait()
		slog.Info("agent: stopped", "camera_id", a.cfg.CameraID)
	})
}

func (a *Agent) run() {
	defer a.wg.Done()

	for job := a.supplier.Next(); job != nil; job = a.supplier.Next() {
		a.process(job)
	}
}

func (a *Agent) process(job *framesupplier.Job) {
	ts := job.TimestampUs

	res := a.detector.Detect(context.Background(), a.cfg.CameraID, job.Image)
	a.counters.recordOutcome(res)

	dets := res.Detections
	a.resolver.Resolve(dets, ts)

	if pkt := metadata.BuildObjectPacket(dets, ts); pkt != nil {
		a.counters.objectPackets.Add(1)
		a.sink.PushObjectPacket(pkt)
	}

	for _, ev := range a.falls.Update(dets, ts) {
		a.counters.eventPackets.Add(1)
		slog.Info("agent: fall event",
			"camera_id", a.cfg.CameraID,
			"track_id", ev.TrackID.String(),
			"active", ev.IsActive,
		)
		a.sink.PushEventPacket(&ev)
	}

	a.resolver.Cleanup(ts)

	rs := a.resolver.Stats()
	a.counters.identities.Store(int64(rs.Identities))
	a.counters.syntheticTracks.Store(int64(rs.SyntheticTracks))
	a.counters.activeFalls.Store(int64(len(a.falls.Active())))
	a.counters.processed.Add(1)
}
