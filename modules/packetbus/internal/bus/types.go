package bus

import (
	"errors"

	"github.com/studio-tech-hub/SafeAging/modules/metadata"
)

// Internal errors - mapped to public errors in packetbus package
var (
	ErrBusClosed          = errors.New("packetbus: bus is closed")
	ErrSubscriberExists   = errors.New("packetbus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("packetbus: subscriber not found")
	ErrNilChannel         = errors.New("packetbus: nil channel provided")
)

// Kind tells which payload a Packet carries.
type Kind int

const (
	KindObjects Kind = iota
	KindEvent
)

func (k Kind) String() string {
	if k == KindEvent {
		return "events"
	}
	return "objects"
}

// Packet is one record on its way to the sinks. Exactly one of Objects and
// Event is set, matching Kind.
type Packet struct {
	Kind     Kind
	CameraID string
	Sequence uint64
	Objects  *metadata.ObjectPacket
	Event    *metadata.EventPacket
}

// TimestampUs returns the frame timestamp of the payload.
func (p Packet) TimestampUs() int64 {
	switch {
	case p.Objects != nil:
		return p.Objects.TimestampUs
	case p.Event != nil:
		return p.Event.TimestampUs
	}
	return 0
}

// Payload returns the carried record for serialization.
func (p Packet) Payload() any {
	if p.Kind == KindEvent {
		return p.Event
	}
	return p.Objects
}

// SubscriberStats tracks packet distribution metrics
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// BusStats is a snapshot of the whole bus.
type BusStats struct {
	TotalPublished uint64                     `json:"total_published"`
	TotalSent      uint64                     `json:"total_sent"`
	TotalDropped   uint64                     `json:"total_dropped"`
	Subscribers    map[string]SubscriberStats `json:"subscribers"`
}

// Bus distributes packets to multiple subscribers
type Bus interface {
	Subscribe(id string, ch chan<- Packet) error
	Publish(p Packet)
	Unsubscribe(id string) error
	Stats() BusStats
	Close()
}
