// Package metadata turns resolved detections into the records handed to the
// host: per-frame object packets and fall start/finish events.
package metadata

import (
	"github.com/google/uuid"

	"github.com/studio-tech-hub/SafeAging/modules/inference"
)

// Type identifiers advertised in the manifest and stamped on records.
const (
	TypePerson      = "safeaging.person"
	TypeObject      = "safeaging.object"
	TypeFallEvent   = "safeaging.fallDetected"
	FallEventName   = "Fall detected"
	CaptionStarted  = "Fall detected STARTED"
	CaptionFinished = "Fall detected FINISHED"
)

// AttributeType tells consumers how to interpret an attribute value.
type AttributeType string

const (
	AttributeString AttributeType = "string"
	AttributeNumber AttributeType = "number"
)

type Attribute struct {
	Name  string        `json:"name"`
	Value string        `json:"value"`
	Type  AttributeType `json:"type"`
}

// Object is one detection inside an ObjectPacket.
type Object struct {
	TypeID     string        `json:"type_id"`
	TrackID    uuid.UUID     `json:"track_id"`
	Box        inference.Box `json:"box"`
	Confidence float64       `json:"confidence"`
	Attributes []Attribute   `json:"attributes"`
}

// ObjectPacket carries all objects found in one frame.
type ObjectPacket struct {
	TimestampUs int64    `json:"timestamp_us"`
	Objects     []Object `json:"objects"`
}

// EventPacket is a fall state transition for one identity.
type EventPacket struct {
	TimestampUs int64     `json:"timestamp_us"`
	TypeID      string    `json:"type_id"`
	TrackID     uuid.UUID `json:"track_id"`
	Caption     string    `json:"caption"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
}
