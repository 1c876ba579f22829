// Package filesource replays a directory of still images as a camera
// stream. Timestamps are synthetic (index / fps), so a replay is
// deterministic regardless of how fast it runs.
package filesource

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"github.com/studio-tech-hub/SafeAging/modules/frameconv"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture"
)

// Config describes one replay.
type Config struct {
	Dir      string
	Pattern  string  // glob, default "*.png"
	FPS      float64 // synthetic frame rate, default 5
	Loops    int     // 0 = infinite
	Realtime bool    // pace delivery at FPS; otherwise as fast as consumed
	SourceID string
}

// Source implements the service frame source over image files.
type Source struct {
	cfg   Config
	files []string

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	published atomic.Uint64
	failed    atomic.Uint64
	loops     atomic.Int64
}

// New lists the matching files, sorted by name.
func New(cfg Config) (*Source, error) {
	if cfg.Pattern == "" {
		cfg.Pattern = "*.png"
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 5
	}
	if cfg.SourceID == "" {
		cfg.SourceID = filepath.Base(cfg.Dir)
	}

	files, err := filepath.Glob(filepath.Join(cfg.Dir, cfg.Pattern))
	if err != nil {
		return nil, fmt.Errorf("filesource: bad pattern: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("filesource: no frames in %s matching %s", cfg.Dir, cfg.Pattern)
	}
	sort.Strings(files)

	return &Source{cfg: cfg, files: files}, nil
}

// Files returns the replay order.
func (s *Source) Files() []string { return s.files }

// Loops returns completed passes over the directory.
func (s *Source) Loops() int { return int(s.loops.Load()) }

// Start launches the producer. The channel closes after the last loop or
// on Stop.
func (s *Source) Start(ctx context.Context) (<-chan *frameconv.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil, fmt.Errorf("filesource: already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	out := make(chan *frameconv.Frame, 1)
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)
		defer s.running.Store(false)
		s.produce(ctx, out)
	}()
	return out, nil
}

func (s *Source) produce(ctx context.Context, out chan<- *frameconv.Frame) {
	interval := time.Duration(float64(time.Second) / s.cfg.FPS)
	stepUs := int64(1e6 / s.cfg.FPS)

	var tick <-chan time.Time
	if s.cfg.Realtime {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var seq int64
	for {
		for _, path := range s.files {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			}

			seq++
			f, err := LoadFrame(path)
			if err != nil {
				s.failed.Add(1)
				slog.Warn("filesource: skipping frame", "path", path, "error", err)
				continue
			}
			f.TimestampUs = seq * stepUs

			select {
			case out <- f:
				s.published.Add(1)
			case <-ctx.Done():
				return
			}
		}

		n := s.loops.Add(1)
		slog.Debug("filesource: loop completed", "loop", n)
		if s.cfg.Loops > 0 && int(n) >= s.cfg.Loops {
			return
		}
	}
}

// Stop cancels the producer and waits for it. Idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

// Stats reports replay progress in stream terms.
func (s *Source) Stats() streamcapture.Stats {
	return streamcapture.Stats{
		SourceID:      s.cfg.SourceID,
		FrameCount:    s.published.Load(),
		FramesDropped: s.failed.Load(),
		IsConnected:   s.running.Load(),
	}
}

// LoadFrame decodes a PNG or JPEG file into a packed RGBA frame.
func LoadFrame(path string) (*frameconv.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	return &frameconv.Frame{
		Format:  frameconv.FormatRGBA32,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Planes:  [][]byte{rgba.Pix},
		Strides: []int{rgba.Stride},
	}, nil
}
