// Package emitter delivers agent packets to external systems: MQTT, Redis
// Streams, or the structured log.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/studio-tech-hub/SafeAging/internal/throttle"
	"github.com/studio-tech-hub/SafeAging/modules/packetbus"
)

// Emitter publishes one packet.
type Emitter interface {
	Name() string
	Emit(ctx context.Context, p packetbus.Packet) error
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

// Run feeds packets from in to e until ctx is done or in is closed.
// Failures are logged at most once per errorLogEvery.
func Run(ctx context.Context, in <-chan packetbus.Packet, e Emitter, errorLogEvery time.Duration) {
	gate := throttle.New(errorLogEvery, nil)
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-in:
			if !ok {
				return
			}
			if err := e.Emit(ctx, p); err != nil && gate.Allow() {
				slog.Warn("emitter: publish failed",
					"emitter", e.Name(),
					"camera_id", p.CameraID,
					"kind", p.Kind.String(),
					"error", err,
				)
			}
		}
	}
}

func marshalPayload(p packetbus.Packet) ([]byte, error) {
	payload, err := json.Marshal(p.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal %s packet: %w", p.Kind, err)
	}
	return payload, nil
}

// LogEmitter writes packets to slog. Useful for bench runs without a broker.
type LogEmitter struct{}

func (LogEmitter) Name() string { return "log" }

func (LogEmitter) Emit(_ context.Context, p packetbus.Packet) error {
	switch p.Kind {
	case packetbus.KindEvent:
		slog.Info("emitter: event",
			"camera_id", p.CameraID,
			"track_id", p.Event.TrackID.String(),
			"caption", p.Event.Caption,
			"active", p.Event.IsActive,
			"timestamp_us", p.Event.TimestampUs,
		)
	default:
		slog.Debug("emitter: objects",
			"camera_id", p.CameraID,
			"count", len(p.Objects.Objects),
			"timestamp_us", p.Objects.TimestampUs,
		)
	}
	return nil
}
