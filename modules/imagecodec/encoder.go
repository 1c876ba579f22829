// Package imagecodec turns a canonical frame into the compact payload sent
// to the inference service: optional downscale, JPEG, base64.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/nfnt/resize"
)

const (
	MinQuality     = 40
	MaxQuality     = 95
	DefaultQuality = 80
)

var ErrEmptyImage = errors.New("imagecodec: empty image")

// Encoded is the transmitted representation of a frame. Width and Height
// are the dimensions after downscaling; detections returned by the service
// are in this coordinate space.
type Encoded struct {
	Width  int
	Height int
	Base64 string
}

// Encoder holds the transmit settings. The zero value sends at native size
// with DefaultQuality.
type Encoder struct {
	// TargetWidth caps the transmitted width. Non-positive disables scaling.
	TargetWidth int
	Quality     int
}

// NewEncoder returns an Encoder with quality clamped to [MinQuality, MaxQuality].
func NewEncoder(targetWidth, quality int) *Encoder {
	return &Encoder{TargetWidth: targetWidth, Quality: ClampQuality(quality)}
}

// ClampQuality bounds a JPEG quality setting.
func ClampQuality(q int) int {
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}

// ScaledSize returns the transmit size for a w x h source: wider frames are
// scaled down to targetWidth keeping the aspect ratio, others keep their size.
func ScaledSize(w, h, targetWidth int) (int, int) {
	if targetWidth <= 0 || w <= targetWidth {
		return w, h
	}
	scale := float64(targetWidth) / float64(w)
	nh := int(math.Round(float64(h) * scale))
	if nh < 1 {
		nh = 1
	}
	return targetWidth, nh
}

// Encode downscales (never upscales) and compresses img.
func (e *Encoder) Encode(img image.Image) (Encoded, error) {
	if img == nil || img.Bounds().Empty() {
		return Encoded{}, ErrEmptyImage
	}
	b := img.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy(), e.TargetWidth)
	if w != b.Dx() || h != b.Dy() {
		img = resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	}

	q := e.Quality
	if q == 0 {
		q = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: ClampQuality(q)}); err != nil {
		return Encoded{}, fmt.Errorf("imagecodec: jpeg encode: %w", err)
	}

	return Encoded{
		Width:  w,
		Height: h,
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
