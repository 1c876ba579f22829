package metadata

import (
	"strconv"

	"github.com/studio-tech-hub/SafeAging/modules/inference"
)

// BuildObjectPacket converts resolved detections into an object packet.
// Boxes are clamped to the unit square; empty boxes are left out. It returns
// nil when nothing remains.
func BuildObjectPacket(dets []inference.Detection, tsUs int64) *ObjectPacket {
	if len(dets) == 0 {
		return nil
	}

	objects := make([]Object, 0, len(dets))
	for _, d := range dets {
		box, ok := inference.ClampBox(d.Box)
		if !ok {
			continue
		}
		typeID := TypeObject
		if d.Label == "person" {
			typeID = TypePerson
		}
		fall := "0"
		if d.Fall {
			fall = "1"
		}
		objects = append(objects, Object{
			TypeID:     typeID,
			TrackID:    d.Identity,
			Box:        box,
			Confidence: d.Confidence,
			Attributes: []Attribute{
				{Name: "classLabel", Value: d.Label, Type: AttributeString},
				{Name: "confidence", Value: strconv.FormatFloat(d.Confidence, 'f', -1, 64), Type: AttributeNumber},
				{Name: "fallDetected", Value: fall, Type: AttributeString},
			},
		})
	}
	if len(objects) == 0 {
		return nil
	}
	return &ObjectPacket{TimestampUs: tsUs, Objects: objects}
}
