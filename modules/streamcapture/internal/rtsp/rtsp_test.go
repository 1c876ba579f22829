package rtsp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message, debug string
		want           ErrorCategory
	}{
		{"Unauthorized", "401 from server", ErrCategoryAuth},
		{"Could not open resource for reading", "Could not connect to server", ErrCategoryNetwork},
		{"Internal data stream error", "streaming stopped, reason not-negotiated (not negotiated)", ErrCategoryCodec},
		{"Timeout while waiting for server response", "", ErrCategoryNetwork},
		{"Something odd", "", ErrCategoryUnknown},
		// auth wins over network when both appear
		{"rtsp connection refused", "authentication required", ErrCategoryAuth},
	}

	for _, tt := range tests {
		if got := Classify(tt.message, tt.debug); got != tt.want {
			t.Errorf("Classify(%q, %q) = %v, want %v", tt.message, tt.debug, got, tt.want)
		}
	}
	if ClassifyGStreamerError(nil) != ErrCategoryUnknown {
		t.Error("nil error should classify as unknown")
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := ReconnectConfig{RetryDelay: time.Second, MaxRetryDelay: 30 * time.Second}
	want := []time.Duration{1, 2, 4, 8, 16, 30, 30}
	for i, w := range want {
		if got := calculateBackoff(i+1, cfg); got != w*time.Second {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, w*time.Second)
		}
	}
	// large attempts must not overflow
	if got := calculateBackoff(200, cfg); got != 30*time.Second {
		t.Errorf("attempt 200: got %v", got)
	}
}

func TestRunWithReconnect_RecoversAfterFailures(t *testing.T) {
	cfg := ReconnectConfig{MaxRetries: 5, RetryDelay: time.Millisecond, MaxRetryDelay: 2 * time.Millisecond}
	var state ReconnectState
	var calls atomic.Int32

	err := RunWithReconnect(context.Background(), func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, cfg, &state)

	if err != nil {
		t.Fatalf("RunWithReconnect() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if state.Reconnects.Load() != 2 || state.CurrentRetries.Load() != 0 {
		t.Errorf("state: reconnects=%d retries=%d", state.Reconnects.Load(), state.CurrentRetries.Load())
	}
}

func TestRunWithReconnect_MaxRetries(t *testing.T) {
	cfg := ReconnectConfig{MaxRetries: 2, RetryDelay: time.Millisecond, MaxRetryDelay: time.Millisecond}
	var state ReconnectState
	boom := errors.New("boom")

	err := RunWithReconnect(context.Background(), func(context.Context) error { return boom }, cfg, &state)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
	if state.Reconnects.Load() != 3 {
		t.Errorf("reconnects = %d, want 3", state.Reconnects.Load())
	}
}

func TestRunWithReconnect_ContextCancelDuringBackoff(t *testing.T) {
	cfg := ReconnectConfig{RetryDelay: time.Hour, MaxRetryDelay: time.Hour}
	var state ReconnectState
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- RunWithReconnect(ctx, func(context.Context) error { return errors.New("down") }, cfg, &state)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunWithReconnect did not return after cancel")
	}
}

func TestOfferDropsWhenFull(t *testing.T) {
	ch := make(chan Frame, 1)
	var dropped uint64
	ctx := &CallbackContext{FrameChan: ch, FramesDropped: &dropped}

	if !offer(ctx, Frame{Seq: 1}) {
		t.Fatal("first offer should succeed")
	}
	if offer(ctx, Frame{Seq: 2}) {
		t.Fatal("second offer should drop")
	}
	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if (<-ch).Seq != 1 {
		t.Error("queued frame should be the first one")
	}
}

func TestErrorCounters(t *testing.T) {
	var c ErrorCounters
	c.Count(ErrCategoryNetwork)
	c.Count(ErrCategoryNetwork)
	c.Count(ErrCategoryAuth)
	c.Count(ErrorCategory(42))

	if c.Network.Load() != 2 || c.Auth.Load() != 1 || c.Unknown.Load() != 1 || c.Codec.Load() != 0 {
		t.Errorf("counters: net=%d auth=%d unknown=%d codec=%d",
			c.Network.Load(), c.Auth.Load(), c.Unknown.Load(), c.Codec.Load())
	}
	if BuildRGBCaps(640, 480) != "video/x-raw,format=RGB,width=640,height=480" {
		t.Error("unexpected caps string")
	}
}
