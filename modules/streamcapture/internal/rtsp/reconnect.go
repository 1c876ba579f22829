package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ReconnectConfig controls exponential backoff between pipeline rebuilds.
type ReconnectConfig struct {
	MaxRetries    int // 0 retries forever
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// DefaultReconnectConfig retries forever, 1s doubling up to 30s. A camera
// agent has nothing better to do than wait for its camera.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:    0,
		RetryDelay:    1 * time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

// ReconnectState tracks retries. CurrentRetries is reset when the pipeline
// reaches PLAYING.
type ReconnectState struct {
	CurrentRetries atomic.Int32
	Reconnects     atomic.Uint32
}

// Reset clears the retry counter after a successful connection.
func (s *ReconnectState) Reset() {
	s.CurrentRetries.Store(0)
}

// ConnectFunc runs one connection until it fails (non-nil error) or ends
// cleanly (nil).
type ConnectFunc func(ctx context.Context) error

// RunWithReconnect calls connectFn until it returns nil, ctx is done, or the
// retry budget is spent. Failures wait calculateBackoff between attempts.
func RunWithReconnect(ctx context.Context, connectFn ConnectFunc, cfg ReconnectConfig, state *ReconnectState) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := connectFn(ctx)
		if err == nil {
			state.Reset()
			return nil
		}

		attempt := int(state.CurrentRetries.Add(1))
		state.Reconnects.Add(1)

		if cfg.MaxRetries > 0 && attempt > cfg.MaxRetries {
			return fmt.Errorf("rtsp: max retries exceeded (%d attempts): %w", cfg.MaxRetries, err)
		}

		delay := calculateBackoff(attempt, cfg)
		slog.Warn("rtsp: connection lost, retrying",
			"error", err,
			"attempt", attempt,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// calculateBackoff returns retryDelay * 2^(attempt-1), capped at maxRetryDelay.
func calculateBackoff(attempt int, cfg ReconnectConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := cfg.RetryDelay
	for i := 1; i < attempt && delay < cfg.MaxRetryDelay; i++ {
		delay *= 2
	}
	if delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	return delay
}
