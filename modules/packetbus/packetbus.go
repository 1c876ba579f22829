// Package packetbus fans out agent output to any number of sinks.
//
// Core Philosophy: "The worker never waits for a sink."
//
// Each subscriber owns a buffered channel. Publish does a non-blocking send
// per subscriber; a full channel drops the packet for that subscriber only,
// so a stalled MQTT broker cannot delay inference or starve the Redis sink.
//
// Usage:
//
//	bus := packetbus.New()
//	defer bus.Close()
//
//	ch := make(chan packetbus.Packet, 64)
//	bus.Subscribe("mqtt", ch)
//
//	a, _ := agent.New(cfg, detector, packetbus.NewSink(bus, "cam-1"))
package packetbus

import (
	"github.com/studio-tech-hub/SafeAging/modules/metadata"
	"github.com/studio-tech-hub/SafeAging/modules/packetbus/internal/bus"
)

// New creates a new packet bus instance
func New() Bus {
	return bus.New()
}

// Sink publishes agent output onto a bus, tagged with a camera id.
// It satisfies agent.Sink.
type Sink struct {
	bus      Bus
	cameraID string
}

// NewSink returns a Sink for one camera.
func NewSink(b Bus, cameraID string) *Sink {
	return &Sink{bus: b, cameraID: cameraID}
}

func (s *Sink) PushObjectPacket(p *metadata.ObjectPacket) {
	s.bus.Publish(Packet{Kind: KindObjects, CameraID: s.cameraID, Objects: p})
}

func (s *Sink) PushEventPacket(p *metadata.EventPacket) {
	s.bus.Publish(Packet{Kind: KindEvent, CameraID: s.cameraID, Event: p})
}
