package packetbus_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio-tech-hub/SafeAging/modules/metadata"
	"github.com/studio-tech-hub/SafeAging/modules/packetbus"
)

func TestSinkTagsPackets(t *testing.T) {
	bus := packetbus.New()
	defer bus.Close()

	ch := make(chan packetbus.Packet, 4)
	require.NoError(t, bus.Subscribe("rec", ch))

	sink := packetbus.NewSink(bus, "cam-7")
	sink.PushObjectPacket(&metadata.ObjectPacket{TimestampUs: 10})
	sink.PushEventPacket(&metadata.EventPacket{TimestampUs: 11, TrackID: uuid.New(), IsActive: true})

	obj := <-ch
	assert.Equal(t, packetbus.KindObjects, obj.Kind)
	assert.Equal(t, "cam-7", obj.CameraID)
	assert.Equal(t, int64(10), obj.TimestampUs())
	assert.IsType(t, &metadata.ObjectPacket{}, obj.Payload())

	ev := <-ch
	assert.Equal(t, packetbus.KindEvent, ev.Kind)
	assert.Equal(t, "events", ev.Kind.String())
	assert.True(t, ev.Event.IsActive)
	assert.Equal(t, uint64(2), ev.Sequence)
}

func TestCalculateDropRate(t *testing.T) {
	tests := []struct {
		name     string
		stats    packetbus.BusStats
		expected float64
	}{
		{"no packets", packetbus.BusStats{}, 0.0},
		{"no drops", packetbus.BusStats{TotalSent: 100}, 0.0},
		{"all dropped", packetbus.BusStats{TotalDropped: 100}, 1.0},
		{"half dropped", packetbus.BusStats{TotalSent: 50, TotalDropped: 50}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := packetbus.CalculateDropRate(tt.stats); got != tt.expected {
				t.Errorf("CalculateDropRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateSubscriberDropRate(t *testing.T) {
	stats := packetbus.BusStats{Subscribers: map[string]packetbus.SubscriberStats{
		"mqtt": {Sent: 3, Dropped: 1},
	}}
	assert.Equal(t, 0.25, packetbus.CalculateSubscriberDropRate(stats, "mqtt"))
	assert.Equal(t, 0.0, packetbus.CalculateSubscriberDropRate(stats, "redis"))
}
