// Package frameconv normalizes raw camera buffers into the canonical
// in-memory image used by the rest of the pipeline (*image.RGBA).
//
// Supported layouts:
//   - RGB24, BGR24: packed 3 bytes per pixel
//   - RGBA32, BGRA32: packed 4 bytes per pixel
//   - YUV420: planar 4:2:0, either three planes (Y, U, V) or one
//     contiguous YV12 buffer (Y plane, then V, then U)
//
// Conversion never mutates the source buffer; the returned image owns
// its pixels, so the caller may recycle the frame right after Convert.
package frameconv

import (
	"errors"
	"fmt"
)

// PixelFormat identifies the memory layout of a Frame.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatRGB24
	FormatBGR24
	FormatRGBA32
	FormatBGRA32
	FormatYUV420
)

func (p PixelFormat) String() string {
	switch p {
	case FormatRGB24:
		return "rgb24"
	case FormatBGR24:
		return "bgr24"
	case FormatRGBA32:
		return "rgba32"
	case FormatBGRA32:
		return "bgra32"
	case FormatYUV420:
		return "yuv420"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePixelFormat maps a config/CLI name to a PixelFormat.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "rgb24", "rgb":
		return FormatRGB24, nil
	case "bgr24", "bgr":
		return FormatBGR24, nil
	case "rgba32", "rgba":
		return FormatRGBA32, nil
	case "bgra32", "bgra":
		return FormatBGRA32, nil
	case "yuv420", "yv12", "i420":
		return FormatYUV420, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

var (
	// ErrUnsupportedFormat is returned for pixel layouts the converter cannot read.
	ErrUnsupportedFormat = errors.New("frameconv: unsupported pixel format")

	// ErrInvalidFrame is returned for non-positive dimensions or short buffers.
	ErrInvalidFrame = errors.New("frameconv: invalid frame")
)

// Frame is one uncompressed video frame as delivered by the host.
type Frame struct {
	Format PixelFormat
	Width  int
	Height int

	// Planes holds the pixel data. Packed formats use Planes[0].
	Planes [][]byte

	// Strides holds the line size in bytes of each plane.
	// A missing or zero entry means tightly packed rows.
	Strides []int

	// TimestampUs is the capture time in microseconds (host clock).
	TimestampUs int64
}

func (f *Frame) stride(plane, tight int) int {
	if plane < len(f.Strides) && f.Strides[plane] > 0 {
		return f.Strides[plane]
	}
	return tight
}
