package inference

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/studio-tech-hub/SafeAging/internal/throttle"
	"github.com/studio-tech-hub/SafeAging/modules/imagecodec"
)

// Config holds client settings. Zero durations and sizes fall back to the
// defaults below.
type Config struct {
	ServiceURL string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	SendWidth   int
	JPEGQuality int

	CircuitFailures int
	CircuitOpen     time.Duration
	LogThrottle     time.Duration

	// Now is the clock used by the breaker and log throttle.
	Now func() time.Time
}

const (
	DefaultServiceURL      = "http://127.0.0.1:18000"
	DefaultConnectTimeout  = 250 * time.Millisecond
	DefaultReadTimeout     = 400 * time.Millisecond
	DefaultWriteTimeout    = 250 * time.Millisecond
	DefaultSendWidth       = 640
	DefaultCircuitFailures = 3
	DefaultCircuitOpen     = 3 * time.Second
	DefaultLogThrottle     = 5 * time.Second
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.ServiceURL == "" {
		out.ServiceURL = DefaultServiceURL
	}
	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = DefaultConnectTimeout
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = DefaultReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = DefaultWriteTimeout
	}
	if out.SendWidth == 0 {
		out.SendWidth = DefaultSendWidth
	}
	if out.JPEGQuality == 0 {
		out.JPEGQuality = imagecodec.DefaultQuality
	}
	if out.CircuitFailures <= 0 {
		out.CircuitFailures = DefaultCircuitFailures
	}
	if out.CircuitOpen <= 0 {
		out.CircuitOpen = DefaultCircuitOpen
	}
	if out.LogThrottle <= 0 {
		out.LogThrottle = DefaultLogThrottle
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return out
}

type inferRequest struct {
	CameraID string `json:"camera_id"`
	Image    string `json:"image"`
}

// Client calls the inference service. It is meant to be driven by a single
// worker goroutine; State and Health are safe to call concurrently.
type Client struct {
	endpoint Endpoint
	http     *resty.Client
	encoder  *imagecodec.Encoder
	breaker  *CircuitBreaker
	logGate  *throttle.Throttle
}

// NewClient validates the service URL and builds the HTTP transport.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	ep, err := ParseServiceURL(cfg.ServiceURL)
	if err != nil {
		return nil, fmt.Errorf("inference: parse service url: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
	}

	// net/http has no separate request write timeout; the overall deadline
	// covers connect, write and read.
	httpClient := resty.New().
		SetTransport(transport).
		SetBaseURL(ep.BaseURL()).
		SetTimeout(cfg.ConnectTimeout+cfg.WriteTimeout+cfg.ReadTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Connection", "keep-alive")

	return &Client{
		endpoint: ep,
		http:     httpClient,
		encoder:  imagecodec.NewEncoder(cfg.SendWidth, cfg.JPEGQuality),
		breaker:  NewCircuitBreaker(cfg.CircuitFailures, cfg.CircuitOpen, cfg.Now),
		logGate:  throttle.New(cfg.LogThrottle, cfg.Now),
	}, nil
}

// Endpoint returns the parsed service address.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// State returns the breaker state.
func (c *Client) State() CircuitState {
	return c.breaker.State()
}

// Detect runs one inference round trip for img.
func (c *Client) Detect(ctx context.Context, cameraID string, img image.Image) Result {
	if !c.breaker.Allow() {
		return Result{Outcome: OutcomeCircuitOpen, Err: ErrCircuitOpen}
	}

	enc, err := c.encoder.Encode(img)
	if err != nil {
		return c.fail(cameraID, &CallError{Kind: OutcomeEncode, Err: err})
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(inferRequest{CameraID: cameraID, Image: enc.Base64}).
		Post(c.endpoint.Path)
	if err != nil {
		return c.fail(cameraID, &CallError{Kind: OutcomeTransport, Err: err})
	}
	if resp.StatusCode() != http.StatusOK {
		return c.fail(cameraID, &CallError{Kind: OutcomeStatus, Err: fmt.Errorf("http status %d", resp.StatusCode())})
	}

	dets, skipped, err := parseDetections(resp.Body(), enc.Width, enc.Height)
	if err != nil {
		return c.fail(cameraID, &CallError{Kind: OutcomeProtocol, Err: err})
	}

	c.breaker.RecordSuccess()
	return Result{Detections: dets, Outcome: OutcomeOK, Skipped: skipped}
}

func (c *Client) fail(cameraID string, err *CallError) Result {
	n := c.breaker.RecordFailure()
	if c.logGate.Allow() {
		slog.Warn("inference: call failed",
			"camera_id", cameraID,
			"endpoint", c.endpoint.String(),
			"kind", err.Kind.String(),
			"error", err.Err,
			"consecutive_failures", n,
			"circuit_open", c.breaker.State() == CircuitOpen,
		)
	}
	return Result{Outcome: err.Kind, Err: err}
}

// Health probes the service's /health endpoint. It does not touch the breaker.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("inference: health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("inference: health: http status %d", resp.StatusCode())
	}
	return nil
}
