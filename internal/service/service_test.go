package service

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-tech-hub/SafeAging/internal/config"
	"github.com/studio-tech-hub/SafeAging/modules/emitter"
	"github.com/studio-tech-hub/SafeAging/modules/frameconv"
	"github.com/studio-tech-hub/SafeAging/modules/inference"
	"github.com/studio-tech-hub/SafeAging/modules/packetbus"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture"
)

type fallingDetector struct{}

func (fallingDetector) Detect(context.Context, string, image.Image) inference.Result {
	return inference.Result{
		Outcome: inference.OutcomeOK,
		Detections: []inference.Detection{{
			Box:        inference.Box{X: 0.1, Y: 0.1, W: 0.3, H: 0.5},
			Label:      "person",
			Confidence: 0.9,
			Fall:       true,
		}},
	}
}

type fakeSource struct {
	ch chan *frameconv.Frame
}

func (f *fakeSource) Start(context.Context) (<-chan *frameconv.Frame, error) { return f.ch, nil }
func (f *fakeSource) Stop() error                                           { return nil }
func (f *fakeSource) Stats() streamcapture.Stats {
	return streamcapture.Stats{SourceID: "fake", IsConnected: true}
}

type recordingEmitter struct {
	mu      sync.Mutex
	packets []packetbus.Packet
}

func (r *recordingEmitter) Name() string { return "recorder" }

func (r *recordingEmitter) Emit(_ context.Context, p packetbus.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, p)
	return nil
}

func (r *recordingEmitter) kinds() map[packetbus.Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[packetbus.Kind]int)
	for _, p := range r.packets {
		out[p.Kind]++
	}
	return out
}

func rgbFrame(ts int64) *frameconv.Frame {
	return &frameconv.Frame{
		Format:      frameconv.FormatRGB24,
		Width:       4,
		Height:      4,
		Planes:      [][]byte{make([]byte, 4*4*3)},
		Strides:     []int{12},
		TimestampUs: ts,
	}
}

func newTestService(t *testing.T) (*Service, *fakeSource, *recordingEmitter) {
	t.Helper()
	cfg := config.Default()
	cfg.Camera.ID = "cam-test"

	src := &fakeSource{ch: make(chan *frameconv.Frame, 8)}
	rec := &recordingEmitter{}
	svc, err := New(&cfg, Components{
		Detector: fallingDetector{},
		Source:   src,
		Emitters: []emitter.Emitter{rec},
	})
	require.NoError(t, err)
	return svc, src, rec
}

func TestServiceEndToEnd(t *testing.T) {
	svc, src, rec := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	for i := int64(1); i <= 3; i++ {
		src.ch <- rgbFrame(i * 300_000)
	}

	require.Eventually(t, func() bool {
		k := rec.kinds()
		return k[packetbus.KindObjects] >= 3 && k[packetbus.KindEvent] >= 1
	}, 2*time.Second, 10*time.Millisecond)

	health := svc.HealthCheck()
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.StreamConnected)

	cancel()
	require.NoError(t, <-done)

	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, svc.Shutdown(shutdownCtx))

	assert.Equal(t, "unhealthy", svc.HealthCheck().Status)
	// exactly one fall started for the single synthetic track
	assert.Equal(t, 1, rec.kinds()[packetbus.KindEvent])
}

func TestServiceRunTwice(t *testing.T) {
	svc, _, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	require.Eventually(t, func() bool { return svc.HealthCheck().Status != "unhealthy" }, time.Second, 5*time.Millisecond)

	assert.Error(t, svc.Run(ctx))

	cancel()
	require.NoError(t, svc.Shutdown(context.Background()))
}

func TestHealthEndpoints(t *testing.T) {
	svc, _, _ := newTestService(t)
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()
	defer svc.Shutdown(context.Background())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	// not running yet
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report StatsReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "cam-test", report.Agent.CameraID)
	require.NotNil(t, report.Stream)
	assert.Equal(t, "fake", report.Stream.SourceID)

	resp, err = http.Get(srv.URL + "/manifest")
	require.NoError(t, err)
	defer resp.Body.Close()
	var manifest map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&manifest))
	assert.Contains(t, manifest, "eventTypes")
}
