package streamcapture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/studio-tech-hub/SafeAging/modules/frameconv"
)

// Config contains configuration for RTSP stream capture
type Config struct {
	// URL is the RTSP stream URL (required)
	URL string
	// Width and Height of the frames delivered by the pipeline
	Width  int
	Height int
	// SourceID names the stream in logs and stats
	SourceID string

	// Reconnect policy; zero values take the defaults
	MaxReconnectAttempts  int // 0 retries forever
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
}

// Validate fails fast on settings the pipeline cannot honor.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("streamcapture: RTSP URL is required")
	}
	if !strings.HasPrefix(c.URL, "rtsp://") && !strings.HasPrefix(c.URL, "rtsps://") {
		return fmt.Errorf("streamcapture: unsupported URL scheme in %q", c.URL)
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("streamcapture: invalid resolution %dx%d (must be positive and even)", c.Width, c.Height)
	}
	return nil
}

// Stats contains current stream statistics
type Stats struct {
	SourceID      string  `json:"source_id"`
	Resolution    string  `json:"resolution"`
	FrameCount    uint64  `json:"frame_count"`
	FramesDropped uint64  `json:"frames_dropped"`
	DropRate      float64 `json:"drop_rate"` // percent
	FPSReal       float64 `json:"fps_real"`
	LatencyMS     int64   `json:"latency_ms"` // time since last frame
	Reconnects    uint32  `json:"reconnects"`
	BytesRead     uint64  `json:"bytes_read"`
	IsConnected   bool    `json:"is_connected"`
	ErrorsNetwork uint64  `json:"errors_network"`
	ErrorsCodec   uint64  `json:"errors_codec"`
	ErrorsAuth    uint64  `json:"errors_auth"`
	ErrorsUnknown uint64  `json:"errors_unknown"`
}

// Provider is a source of decoded frames.
//
// Start returns immediately; frames arrive once the source is playing. The
// channel stays open until Stop. Stop is idempotent. Stats is safe from any
// goroutine.
type Provider interface {
	Start(ctx context.Context) (<-chan *frameconv.Frame, error)
	Stop() error
	Stats() Stats
}
