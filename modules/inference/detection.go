// Package inference talks to the remote detection service.
//
// A Client encodes a frame, posts it as JSON, and parses the returned list
// of detections. Calls are guarded by a CircuitBreaker: after a run of
// failures the client fails fast for a while instead of piling timeouts
// onto the processing worker. Every call yields a Result whose Outcome says
// what happened; failures never propagate to the frame source.
package inference

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Box is a rectangle in normalized [0,1] image coordinates.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns W*H.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Detection is one object reported by the service for one frame.
type Detection struct {
	Box        Box
	Label      string
	Confidence float64

	// ExternalID is the service-provided track id, when it sent one.
	ExternalID *int64

	// Fall is the service's per-object fall flag.
	Fall bool

	// Identity is filled in by the track resolver.
	Identity uuid.UUID
}

// Outcome classifies a Detect call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeCircuitOpen means no call was made.
	OutcomeCircuitOpen
	OutcomeEncode
	OutcomeTransport
	OutcomeStatus
	OutcomeProtocol
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeCircuitOpen:
		return "circuit_open"
	case OutcomeEncode:
		return "encode"
	case OutcomeTransport:
		return "transport"
	case OutcomeStatus:
		return "status"
	case OutcomeProtocol:
		return "protocol"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is what Detect returns. Detections is empty on any failure.
type Result struct {
	Detections []Detection
	Outcome    Outcome

	// Skipped counts response items dropped as malformed or degenerate.
	Skipped int

	Err error
}

// ErrCircuitOpen is the error carried by results short-circuited by the breaker.
var ErrCircuitOpen = errors.New("inference: circuit open")

// CallError is a failed call with its classification.
type CallError struct {
	Kind Outcome
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}
