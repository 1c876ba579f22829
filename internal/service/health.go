package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/studio-tech-hub/SafeAging/modules/agent"
	"github.com/studio-tech-hub/SafeAging/modules/emitter"
	"github.com/studio-tech-hub/SafeAging/modules/inference"
	"github.com/studio-tech-hub/SafeAging/modules/packetbus"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture"
)

// HealthStatus represents the health state of the service
type HealthStatus struct {
	Status          string `json:"status"` // "healthy", "degraded", "unhealthy"
	UptimeSeconds   int64  `json:"uptime_seconds"`
	StreamConnected bool   `json:"stream_connected"`
	CircuitOpen     bool   `json:"circuit_open"`
}

// StatsReport is the /stats body
type StatsReport struct {
	Agent    agent.Stats              `json:"agent"`
	Bus      packetbus.BusStats       `json:"bus"`
	Stream   *streamcapture.Stats     `json:"stream,omitempty"`
	Emitters map[string]emitter.Stats `json:"emitters,omitempty"`
}

type statsReporter interface {
	Stats() emitter.Stats
}

// HealthCheck returns the current health status of the service
func (s *Service) HealthCheck() HealthStatus {
	s.mu.RLock()
	running, started := s.isRunning, s.started
	s.mu.RUnlock()

	status := HealthStatus{Status: "healthy"}
	if !started.IsZero() {
		status.UptimeSeconds = int64(time.Since(started).Seconds())
	}
	if s.source != nil {
		status.StreamConnected = s.source.Stats().IsConnected
	}
	if c, ok := s.detector.(interface{ State() inference.CircuitState }); ok {
		status.CircuitOpen = c.State() == inference.CircuitOpen
	}

	switch {
	case !running:
		status.Status = "unhealthy"
	case status.CircuitOpen || (s.source != nil && !status.StreamConnected):
		status.Status = "degraded"
	}
	return status
}

// Report collects agent, bus, stream and emitter statistics.
func (s *Service) Report() StatsReport {
	r := StatsReport{
		Agent:    s.agent.Stats(),
		Bus:      s.bus.Stats(),
		Emitters: make(map[string]emitter.Stats),
	}
	if s.source != nil {
		st := s.source.Stats()
		r.Stream = &st
	}
	for _, e := range s.emitters {
		if sr, ok := e.(statsReporter); ok {
			r.Emitters[e.Name()] = sr.Stats()
		}
	}
	return r
}

// LivenessHandler handles /health. 200 while the process serves requests;
// 503 when the service is not running.
func (s *Service) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	health := s.HealthCheck()
	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// StatsHandler handles /stats
func (s *Service) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Report())
}

// ManifestHandler handles /manifest
func (s *Service) ManifestHandler(w http.ResponseWriter, _ *http.Request) {
	body, err := s.agent.Manifest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Handler returns the health mux.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.LivenessHandler)
	mux.HandleFunc("/stats", s.StatsHandler)
	mux.HandleFunc("/manifest", s.ManifestHandler)
	return mux
}

// StartHealthServer serves Handler on addr in the background. The returned
// server is shut down by the caller.
func (s *Service) StartHealthServer(addr string) *http.Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting health check server",
		"addr", addr,
		"endpoints", []string{"/health", "/stats", "/manifest"},
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health check server failed", "error", err)
		}
	}()
	return server
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("service: write response failed", "error", err)
	}
}
