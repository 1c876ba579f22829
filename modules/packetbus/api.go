package packetbus

import "github.com/studio-tech-hub/SafeAging/modules/packetbus/internal/bus"

// Public API - Re-export internal types as stable contract

// Kind tells which payload a Packet carries
type Kind = bus.Kind

const (
	KindObjects = bus.KindObjects
	KindEvent   = bus.KindEvent
)

// Packet is one record on its way to the sinks
type Packet = bus.Packet

// SubscriberStats tracks packet distribution metrics
type SubscriberStats = bus.SubscriberStats

// BusStats is a snapshot of the whole bus
type BusStats = bus.BusStats

// Bus distributes packets to multiple subscribers (drop-new on full channel)
type Bus = bus.Bus

// Public API errors - Re-export internal errors as stable contract
var (
	ErrBusClosed          = bus.ErrBusClosed
	ErrSubscriberExists   = bus.ErrSubscriberExists
	ErrSubscriberNotFound = bus.ErrSubscriberNotFound
	ErrNilChannel         = bus.ErrNilChannel
)
