package agent

import (
	"encoding/json"

	"github.com/studio-tech-hub/SafeAging/modules/metadata"
)

// TypeInfo describes one record type the agent can produce.
type TypeInfo struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Flags []string `json:"flags,omitempty"`
}

// Manifest advertises the agent's record types and frame requirements.
type Manifest struct {
	Capabilities []string   `json:"capabilities"`
	EventTypes   []TypeInfo `json:"eventTypes"`
	ObjectTypes  []TypeInfo `json:"objectTypes"`
}

// DefaultManifest is the manifest of every agent.
func DefaultManifest() Manifest {
	return Manifest{
		Capabilities: []string{"uncompressedFrames"},
		EventTypes: []TypeInfo{
			{ID: metadata.TypeFallEvent, Name: metadata.FallEventName, Flags: []string{"stateDependent"}},
		},
		ObjectTypes: []TypeInfo{
			{ID: metadata.TypePerson, Name: "Person"},
			{ID: metadata.TypeObject, Name: "Object"},
		},
	}
}

// Manifest returns the JSON manifest.
func (a *Agent) Manifest() ([]byte, error) {
	return json.Marshal(DefaultManifest())
}
