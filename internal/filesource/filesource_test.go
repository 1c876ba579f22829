package filesource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNGs(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 6, 4))
		img.Set(0, 0, color.RGBA{R: uint8(10 * (i + 1)), A: 255})
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
	return dir
}

func TestNewNoFrames(t *testing.T) {
	_, err := New(Config{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestReplayOrderAndTimestamps(t *testing.T) {
	dir := writePNGs(t, 3)
	src, err := New(Config{Dir: dir, FPS: 4, Loops: 2})
	require.NoError(t, err)

	frames, err := src.Start(context.Background())
	require.NoError(t, err)

	var got []int64
	var reds []uint8
	for f := range frames {
		got = append(got, f.TimestampUs)
		assert.Equal(t, 6, f.Width)
		assert.Equal(t, 4, f.Height)
		reds = append(reds, f.Planes[0][0])
	}

	assert.Equal(t, []int64{250000, 500000, 750000, 1000000, 1250000, 1500000}, got)
	assert.Equal(t, []uint8{10, 20, 30, 10, 20, 30}, reds)
	assert.Equal(t, 2, src.Loops())
	assert.Equal(t, uint64(6), src.Stats().FrameCount)
	assert.False(t, src.Stats().IsConnected)
	require.NoError(t, src.Stop())
}

func TestStopInfiniteReplay(t *testing.T) {
	dir := writePNGs(t, 2)
	src, err := New(Config{Dir: dir, FPS: 100, Realtime: true})
	require.NoError(t, err)

	frames, err := src.Start(context.Background())
	require.NoError(t, err)
	<-frames

	_, err = src.Start(context.Background())
	assert.Error(t, err, "second start")

	done := make(chan struct{})
	go func() {
		for range frames {
		}
		close(done)
	}()
	require.NoError(t, src.Stop())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame channel not closed after Stop")
	}
	require.NoError(t, src.Stop())
}

func TestCorruptFileSkipped(t *testing.T) {
	dir := writePNGs(t, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame_999.png"), []byte("not a png"), 0o644))

	src, err := New(Config{Dir: dir, Loops: 1})
	require.NoError(t, err)
	frames, err := src.Start(context.Background())
	require.NoError(t, err)

	n := 0
	for range frames {
		n++
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), src.Stats().FramesDropped)
}
