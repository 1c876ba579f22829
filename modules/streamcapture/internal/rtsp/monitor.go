package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCounters are per-category atomic error counts.
type ErrorCounters struct {
	Network atomic.Uint64
	Codec   atomic.Uint64
	Auth    atomic.Uint64
	Unknown atomic.Uint64
}

// Count increments the counter for c.
func (e *ErrorCounters) Count(c ErrorCategory) {
	switch c {
	case ErrCategoryNetwork:
		e.Network.Add(1)
	case ErrCategoryCodec:
		e.Codec.Add(1)
	case ErrCategoryAuth:
		e.Auth.Add(1)
	default:
		e.Unknown.Add(1)
	}
}

// MonitorPipelineBus polls the pipeline bus until ctx is done (nil) or the
// stream ends or errors (non-nil, triggering a reconnect). Reaching PLAYING
// resets the retry counter.
func MonitorPipelineBus(ctx context.Context, pipeline *gst.Pipeline, counters *ErrorCounters, state *ReconnectState, url string) error {
	if pipeline == nil {
		return fmt.Errorf("pipeline not initialized")
	}

	bus := pipeline.GetPipelineBus()
	for {
		if ctx.Err() != nil {
			return nil
		}

		// short poll keeps shutdown responsive
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("rtsp: end of stream received", "rtsp_url", url)
			return fmt.Errorf("end of stream")

		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyGStreamerError(gerr)
			counters.Count(category)

			slog.Error("rtsp: pipeline error",
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"category", category.String(),
				"rtsp_url", url,
				"reconnects", state.Reconnects.Load(),
			)
			return fmt.Errorf("pipeline error [%s]: %s", category, gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				_, newState := msg.ParseStateChanged()
				if newState == gst.StatePlaying {
					state.Reset()
					slog.Info("rtsp: pipeline playing", "rtsp_url", url)
				}
			}
		}
	}
}
