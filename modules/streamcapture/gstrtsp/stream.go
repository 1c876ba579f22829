// Package gstrtsp is the GStreamer implementation of streamcapture.Provider.
package gstrtsp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/studio-tech-hub/SafeAging/modules/frameconv"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture/internal/rtsp"
)

const (
	frameBuffer = 2
	stopTimeout = 3 * time.Second
)

// Stream implements streamcapture.Provider using GStreamer
type Stream struct {
	cfg          streamcapture.Config
	reconnectCfg rtsp.ReconnectConfig

	mu          sync.RWMutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	frames      chan *frameconv.Frame
	started     time.Time
	lastFrameAt time.Time
	connected   atomic.Bool

	frameCount    uint64
	framesDropped uint64
	bytesRead     uint64

	reconnect rtsp.ReconnectState
	errors    rtsp.ErrorCounters
}

// New validates cfg and checks that GStreamer can create elements.
func New(cfg streamcapture.Config) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkGStreamerAvailable(); err != nil {
		return nil, fmt.Errorf("gstrtsp: GStreamer not available: %w", err)
	}

	reconnectCfg := rtsp.DefaultReconnectConfig()
	if cfg.MaxReconnectAttempts > 0 {
		reconnectCfg.MaxRetries = cfg.MaxReconnectAttempts
	}
	if cfg.ReconnectInitialDelay > 0 {
		reconnectCfg.RetryDelay = cfg.ReconnectInitialDelay
	}
	if cfg.ReconnectMaxDelay > 0 {
		reconnectCfg.MaxRetryDelay = cfg.ReconnectMaxDelay
	}

	slog.Info("gstrtsp: RTSP stream created",
		"source", cfg.SourceID,
		"resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
	)
	return &Stream{cfg: cfg, reconnectCfg: reconnectCfg}, nil
}

// Start launches the capture loop and returns the frame channel. The
// pipeline is rebuilt after every error until Stop or ctx is cancelled.
func (s *Stream) Start(ctx context.Context) (<-chan *frameconv.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return nil, fmt.Errorf("gstrtsp: stream already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = time.Now()
	s.frames = make(chan *frameconv.Frame, frameBuffer)

	raw := make(chan rtsp.Frame, frameBuffer)
	out := s.frames
	started := s.started

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		defer close(raw)
		err := rtsp.RunWithReconnect(runCtx, func(ctx context.Context) error {
			return s.runOnce(ctx, raw)
		}, s.reconnectCfg, &s.reconnect)
		if err != nil && runCtx.Err() == nil {
			slog.Error("gstrtsp: capture stopped",
				"source", s.cfg.SourceID,
				"error", err,
				"reconnects", s.reconnect.Reconnects.Load(),
			)
		}
	}()
	go func() {
		defer s.wg.Done()
		defer close(out)
		for f := range raw {
			s.mu.Lock()
			s.lastFrameAt = f.CapturedAt
			s.mu.Unlock()

			select {
			case out <- streamcapture.RGBFrame(f.Data, f.Width, f.Height, f.CapturedAt, started):
			default:
				atomic.AddUint64(&s.framesDropped, 1)
			}
		}
	}()

	slog.Info("gstrtsp: RTSP stream started", "source", s.cfg.SourceID)
	return out, nil
}

// runOnce builds a pipeline, plays it and blocks until it fails or ctx ends.
func (s *Stream) runOnce(ctx context.Context, raw chan<- rtsp.Frame) error {
	elements, err := rtsp.CreatePipeline(rtsp.PipelineConfig{
		RTSPURL: s.cfg.URL,
		Width:   s.cfg.Width,
		Height:  s.cfg.Height,
	})
	if err != nil {
		return err
	}
	defer func() {
		s.connected.Store(false)
		if err := rtsp.DestroyPipeline(elements); err != nil {
			slog.Error("gstrtsp: failed to destroy pipeline", "error", err)
		}
	}()

	cbCtx := &rtsp.CallbackContext{
		FrameChan:     raw,
		FrameCounter:  &s.frameCount,
		BytesRead:     &s.bytesRead,
		FramesDropped: &s.framesDropped,
		Width:         s.cfg.Width,
		Height:        s.cfg.Height,
	}
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			if ctx.Err() != nil {
				return gst.FlowEOS
			}
			return rtsp.OnNewSample(sink, cbCtx)
		},
	})
	elements.RTSPSrc.Connect("pad-added", func(_ *gst.Element, srcPad *gst.Pad) {
		rtsp.OnPadAdded(srcPad, elements.Depay)
	})

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	s.connected.Store(true)

	return rtsp.MonitorPipelineBus(ctx, elements.Pipeline, &s.errors, &s.reconnect, s.cfg.URL)
}

// Stop cancels capture, waits for goroutines (bounded) and closes the frame
// channel. Idempotent.
func (s *Stream) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		return fmt.Errorf("gstrtsp: stop timeout after %s", stopTimeout)
	}

	slog.Info("gstrtsp: RTSP stream stopped",
		"source", s.cfg.SourceID,
		"frames_captured", atomic.LoadUint64(&s.frameCount),
		"reconnects", s.reconnect.Reconnects.Load(),
	)
	return nil
}

// Stats returns current stream statistics
func (s *Stream) Stats() streamcapture.Stats {
	s.mu.RLock()
	started, lastFrameAt := s.started, s.lastFrameAt
	s.mu.RUnlock()

	frames := atomic.LoadUint64(&s.frameCount)
	dropped := atomic.LoadUint64(&s.framesDropped)

	st := streamcapture.Stats{
		SourceID:      s.cfg.SourceID,
		Resolution:    fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		FrameCount:    frames,
		FramesDropped: dropped,
		Reconnects:    s.reconnect.Reconnects.Load(),
		BytesRead:     atomic.LoadUint64(&s.bytesRead),
		IsConnected:   s.connected.Load(),
		ErrorsNetwork: s.errors.Network.Load(),
		ErrorsCodec:   s.errors.Codec.Load(),
		ErrorsAuth:    s.errors.Auth.Load(),
		ErrorsUnknown: s.errors.Unknown.Load(),
	}
	if total := frames + dropped; total > 0 {
		st.DropRate = float64(dropped) / float64(total) * 100
	}
	if !started.IsZero() {
		if up := time.Since(started).Seconds(); up > 0 {
			st.FPSReal = float64(frames) / up
		}
	}
	if !lastFrameAt.IsZero() {
		st.LatencyMS = time.Since(lastFrameAt).Milliseconds()
	}
	return st
}

func checkGStreamerAvailable() error {
	gst.Init(nil)
	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}
