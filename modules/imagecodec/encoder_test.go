package imagecodec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func decode(t *testing.T, enc Encoded) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(enc.Base64)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestEncodeDownscalesWideFrames(t *testing.T) {
	enc, err := NewEncoder(640, 80).Encode(solid(1920, 1080))
	require.NoError(t, err)
	assert.Equal(t, 640, enc.Width)
	assert.Equal(t, 360, enc.Height)

	img := decode(t, enc)
	assert.Equal(t, image.Rect(0, 0, 640, 360), img.Bounds())
}

func TestEncodeKeepsNarrowFrames(t *testing.T) {
	enc, err := NewEncoder(640, 80).Encode(solid(320, 240))
	require.NoError(t, err)
	assert.Equal(t, 320, enc.Width)
	assert.Equal(t, 240, enc.Height)
	assert.Equal(t, image.Rect(0, 0, 320, 240), decode(t, enc).Bounds())
}

func TestEncodeWithoutTargetWidth(t *testing.T) {
	enc, err := NewEncoder(0, 80).Encode(solid(800, 10))
	require.NoError(t, err)
	assert.Equal(t, 800, enc.Width)
}

func TestScaledSizeMinimumHeight(t *testing.T) {
	w, h := ScaledSize(4000, 1, 160)
	assert.Equal(t, 160, w)
	assert.Equal(t, 1, h)
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 40, ClampQuality(5))
	assert.Equal(t, 95, ClampQuality(100))
	assert.Equal(t, 70, ClampQuality(70))
	assert.Equal(t, 40, NewEncoder(640, 1).Quality)
}

func TestEncodeEmptyImage(t *testing.T) {
	_, err := NewEncoder(640, 80).Encode(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrEmptyImage)
}
