// Package service wires the camera agent to its inputs and outputs: an RTSP
// source in front, the inference client beside it, and MQTT/Redis/log
// emitters behind a packet bus.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/studio-tech-hub/SafeAging/internal/config"
	"github.com/studio-tech-hub/SafeAging/modules/agent"
	"github.com/studio-tech-hub/SafeAging/modules/emitter"
	"github.com/studio-tech-hub/SafeAging/modules/frameconv"
	"github.com/studio-tech-hub/SafeAging/modules/inference"
	"github.com/studio-tech-hub/SafeAging/modules/packetbus"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture"
)

const (
	subscriberBuffer = 64
	statsLogInterval = 30 * time.Second
)

// FrameSource is the subset of streamcapture.Provider the service needs.
type FrameSource interface {
	Start(ctx context.Context) (<-chan *frameconv.Frame, error)
	Stop() error
	Stats() streamcapture.Stats
}

// Components lets callers supply prebuilt parts. A nil Detector or Emitters
// is built from the configuration; a nil Source leaves frame submission to
// the caller through Agent().
type Components struct {
	Detector agent.Detector
	Source   FrameSource
	Emitters []emitter.Emitter
}

// Service is the main orchestrator
type Service struct {
	cfg *config.Config

	detector agent.Detector
	source   FrameSource
	bus      packetbus.Bus
	agent    *agent.Agent
	emitters []emitter.Emitter
	subs     map[string]chan packetbus.Packet
	mqtt     *emitter.MQTTEmitter
	redis    *redis.Client

	started    time.Time
	mu         sync.RWMutex
	wg         sync.WaitGroup
	emitWG     sync.WaitGroup
	emitCancel context.CancelFunc
	isRunning  bool
}

// New builds a service from cfg, filling any component not given in c.
func New(cfg *config.Config, c Components) (*Service, error) {
	s := &Service{
		cfg:      cfg,
		detector: c.Detector,
		source:   c.Source,
		emitters: c.Emitters,
		bus:      packetbus.New(),
		subs:     make(map[string]chan packetbus.Packet),
	}

	if s.detector == nil {
		client, err := inference.NewClient(cfg.InferenceClient())
		if err != nil {
			return nil, fmt.Errorf("failed to create inference client: %w", err)
		}
		s.detector = client
	}

	if c.Emitters == nil {
		s.buildEmitters()
	}

	a, err := agent.New(cfg.Agent(), s.detector, packetbus.NewSink(s.bus, cfg.Camera.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	s.agent = a

	return s, nil
}

func (s *Service) buildEmitters() {
	if s.cfg.MQTT.Enabled {
		s.mqtt = emitter.NewMQTTEmitter(s.cfg.MQTTEmitter())
		s.emitters = append(s.emitters, s.mqtt)
	}
	if s.cfg.Redis.Enabled {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		})
		s.emitters = append(s.emitters, emitter.NewRedisEmitter(s.cfg.RedisEmitter(), s.redis))
	}
	if len(s.emitters) == 0 {
		slog.Info("service: no broker configured, logging packets")
		s.emitters = append(s.emitters, emitter.LogEmitter{})
	}
}

// Agent exposes the agent, mainly for frame submission without a source.
func (s *Service) Agent() *agent.Agent { return s.agent }

// Bus exposes the packet bus for extra subscribers.
func (s *Service) Bus() packetbus.Bus { return s.bus }

// Run connects the outputs, starts the source and blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	s.isRunning = true
	s.started = time.Now()
	s.mu.Unlock()

	slog.Info("service starting",
		"instance_id", s.cfg.InstanceID,
		"camera_id", s.cfg.Camera.ID,
	)

	if hc, ok := s.detector.(interface{ Health(context.Context) error }); ok {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := hc.Health(probeCtx); err != nil {
			// not fatal: the breaker handles an absent service
			slog.Warn("service: inference service not reachable yet", "error", err)
		}
		cancel()
	}

	if s.mqtt != nil {
		if err := s.mqtt.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect mqtt: %w", err)
		}
	}

	// emitters outlive ctx so Shutdown can drain them
	emitCtx, emitCancel := context.WithCancel(context.Background())
	s.emitCancel = emitCancel
	for _, e := range s.emitters {
		ch := make(chan packetbus.Packet, subscriberBuffer)
		if err := s.bus.Subscribe(e.Name(), ch); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", e.Name(), err)
		}
		s.subs[e.Name()] = ch
		s.emitWG.Add(1)
		go func(e emitter.Emitter, ch <-chan packetbus.Packet) {
			defer s.emitWG.Done()
			emitter.Run(emitCtx, ch, e, s.cfg.InferenceClient().LogThrottle)
		}(e, ch)
	}

	if s.source != nil {
		frames, err := s.source.Start(ctx)
		if err != nil {
			return fmt.Errorf("failed to start stream: %w", err)
		}
		s.wg.Add(1)
		go s.consumeFrames(ctx, frames)
	} else {
		slog.Info("service: no frame source configured")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logStats(ctx, statsLogInterval)
	}()

	slog.Info("service running", "emitters", len(s.emitters))

	<-ctx.Done()
	slog.Info("service run loop exiting")
	return nil
}

func (s *Service) consumeFrames(ctx context.Context, frames <-chan *frameconv.Frame) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			s.agent.SubmitFrame(f)
		}
	}
}

func (s *Service) logStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.agent.Stats()
			bs := s.bus.Stats()
			slog.Info("service: stats",
				"processed", st.Processed,
				"queue_depth", st.Queue.Depth,
				"evicted", st.Queue.Evicted,
				"circuit", st.Circuit,
				"active_falls", st.ActiveFalls,
				"bus_drop_rate", packetbus.CalculateDropRate(bs),
			)
		}
	}
}

// Shutdown stops input first, then the agent, then drains and closes the
// outputs. Packets still queued when ctx expires are abandoned.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		s.agent.Close()
		return nil
	}
	s.isRunning = false
	uptime := time.Since(s.started)
	s.mu.Unlock()

	slog.Info("shutting down service")

	if s.source != nil {
		if err := s.source.Stop(); err != nil {
			slog.Error("failed to stop stream", "error", err)
		}
	}
	s.wg.Wait()

	s.agent.Close()
	s.bus.Close()
	for _, ch := range s.subs {
		close(ch)
	}

	drained := make(chan struct{})
	go func() {
		s.emitWG.Wait()
		close(drained)
	}()
	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = fmt.Errorf("shutdown: emitters not drained: %w", ctx.Err())
	}
	if s.emitCancel != nil {
		s.emitCancel()
	}

	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			slog.Error("failed to close redis client", "error", cerr)
		}
	}

	slog.Info("service shutdown complete", "uptime", uptime)
	return err
}

// ShutdownTimeout returns the configured graceful shutdown budget.
func (s *Service) ShutdownTimeout() time.Duration {
	return s.cfg.ShutdownTimeout()
}
