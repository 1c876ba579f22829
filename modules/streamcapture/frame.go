package streamcapture

import (
	"time"

	"github.com/studio-tech-hub/SafeAging/modules/frameconv"
)

// RGBFrame wraps a packed RGB24 buffer. The timestamp is microseconds from
// start to capturedAt, never less than 1 so the agent's sampler always
// records it.
func RGBFrame(data []byte, width, height int, capturedAt, start time.Time) *frameconv.Frame {
	ts := capturedAt.Sub(start).Microseconds()
	if ts < 1 {
		ts = 1
	}
	return &frameconv.Frame{
		Format:      frameconv.FormatRGB24,
		Width:       width,
		Height:      height,
		Planes:      [][]byte{data},
		Strides:     []int{width * 3},
		TimestampUs: ts,
	}
}
