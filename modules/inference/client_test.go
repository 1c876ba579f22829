package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	hits    atomic.Int64
	status  atomic.Int64
	body    atomic.Value // string
	lastReq atomic.Value // inferRequest
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	fs := &fakeService{}
	fs.status.Store(http.StatusOK)
	fs.body.Store(`[]`)

	mux := http.NewServeMux()
	mux.HandleFunc("/infer", func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		var req inferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			fs.lastReq.Store(req)
		}
		w.WriteHeader(int(fs.status.Load()))
		_, _ = w.Write([]byte(fs.body.Load().(string)))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func newTestClient(t *testing.T, url string, clock *fakeClock) *Client {
	t.Helper()
	c, err := NewClient(Config{
		ServiceURL:     url,
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		SendWidth:      640,
		Now:            clock.Now,
	})
	require.NoError(t, err)
	return c
}

func TestDetectSuccess(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.body.Store(`[{"cls": "person", "score": 0.8, "x": 64, "y": 36, "w": 128, "h": 72, "track_id": 3, "fall_detected": true}]`)
	c := newTestClient(t, srv.URL, newClock())

	res := c.Detect(context.Background(), "cam-1", image.NewRGBA(image.Rect(0, 0, 1280, 720)))
	require.Equal(t, OutcomeOK, res.Outcome, "err: %v", res.Err)
	require.Len(t, res.Detections, 1)

	d := res.Detections[0]
	assert.InDelta(t, 0.1, d.Box.X, 1e-9, "normalized by the transmitted 640x360 frame")
	assert.InDelta(t, 0.2, d.Box.H, 1e-9)
	require.NotNil(t, d.ExternalID)
	assert.Equal(t, int64(3), *d.ExternalID)
	assert.True(t, d.Fall)

	req := fs.lastReq.Load().(inferRequest)
	assert.Equal(t, "cam-1", req.CameraID)
	raw, err := base64.StdEncoding.DecodeString(req.Image)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
}

func TestDetectFailureKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Outcome
	}{
		{"server error", http.StatusInternalServerError, `[]`, OutcomeStatus},
		{"object body", http.StatusOK, `{"error": "x"}`, OutcomeProtocol},
		{"garbage", http.StatusOK, `<html>`, OutcomeProtocol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs, srv := newFakeService(t)
			fs.status.Store(int64(tc.status))
			fs.body.Store(tc.body)
			c := newTestClient(t, srv.URL, newClock())

			res := c.Detect(context.Background(), "cam", image.NewRGBA(image.Rect(0, 0, 32, 32)))
			assert.Equal(t, tc.want, res.Outcome)
			assert.Empty(t, res.Detections)

			var ce *CallError
			require.True(t, errors.As(res.Err, &ce))
			assert.Equal(t, tc.want, ce.Kind)
		})
	}
}

func TestDetectTransportFailure(t *testing.T) {
	_, srv := newFakeService(t)
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, newClock())
	res := c.Detect(context.Background(), "cam", image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.Equal(t, OutcomeTransport, res.Outcome)
}

func TestDetectEncodeFailureCountsAsFailure(t *testing.T) {
	fs, srv := newFakeService(t)
	c := newTestClient(t, srv.URL, newClock())

	res := c.Detect(context.Background(), "cam", image.NewRGBA(image.Rectangle{}))
	assert.Equal(t, OutcomeEncode, res.Outcome)
	assert.Equal(t, int64(0), fs.hits.Load())
	assert.Equal(t, int64(1), c.breaker.Failures())
}

// TestDetectCircuitBreaker checks that three failures open the circuit, the
// fourth call is answered without network traffic, and a call after the
// open window probes the service again.
func TestDetectCircuitBreaker(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.status.Store(http.StatusServiceUnavailable)
	clock := newClock()
	c := newTestClient(t, srv.URL, clock)
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))

	for i := 0; i < 3; i++ {
		res := c.Detect(context.Background(), "cam", img)
		assert.Equal(t, OutcomeStatus, res.Outcome)
	}
	assert.Equal(t, CircuitOpen, c.State())
	assert.Equal(t, int64(3), fs.hits.Load())

	clock.Advance(time.Second)
	res := c.Detect(context.Background(), "cam", img)
	assert.Equal(t, OutcomeCircuitOpen, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrCircuitOpen)
	assert.Equal(t, int64(3), fs.hits.Load(), "no network call while open")

	fs.status.Store(http.StatusOK)
	clock.Advance(2100 * time.Millisecond)
	res = c.Detect(context.Background(), "cam", img)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, int64(4), fs.hits.Load())
	assert.Equal(t, CircuitClosed, c.State())
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{ServiceURL: "https://secure.local"})
	assert.ErrorIs(t, err, ErrInsecureScheme)
}

func TestHealth(t *testing.T) {
	_, srv := newFakeService(t)
	c := newTestClient(t, srv.URL, newClock())
	assert.NoError(t, c.Health(context.Background()))
}
