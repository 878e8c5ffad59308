// Package export turns sample animations into video files.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/raster"
	"github.com/gridplane/gridplane/internal/samples"
)

const (
	maxFrames      = 1800
	defaultSeconds = 2
	framePattern   = "frame_%04d.png"
)

var ErrTooManyFrames = errors.New("animation exceeds the frame limit")

// Job describes an offline render of a sample.
type Job struct {
	Sample string
	FPS    int
	// Seconds caps the render length. Zero renders an animation to its end and
	// a static scene for two seconds.
	Seconds float64
}

// Renderer paints samples frame by frame at a fixed size.
type Renderer struct {
	Width, Height int
	Delta         float64
	Picture       engine.Picture
}

// stepClock is advanced by exactly one frame period between frames.
type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

// Render writes PNG frames numbered from zero into dir and returns how many it
// wrote.
func (r Renderer) Render(ctx context.Context, dir string, job Job) (int, error) {
	smp, err := samples.Lookup(job.Sample)
	if err != nil {
		return 0, err
	}
	if job.FPS <= 0 {
		return 0, fmt.Errorf("fps must be positive, got %d", job.FPS)
	}

	target, err := raster.New(r.Width, r.Height)
	if err != nil {
		return 0, err
	}
	defer target.Close()

	var queue engine.FrameQueue
	clock := &stepClock{now: time.Unix(0, 0)}
	opts := []engine.Option{
		engine.WithScheduler(queue.Scheduler()),
		engine.WithClock(clock.Now),
	}
	if r.Delta > 0 {
		opts = append(opts, engine.WithDelta(r.Delta))
	}
	e, err := engine.New(target, opts...)
	if err != nil {
		return 0, err
	}

	anim, err := smp.Install(e, samples.Options{Picture: r.Picture})
	if err != nil {
		return 0, err
	}

	limit := maxFrames
	if job.Seconds > 0 {
		limit = min(limit, int(job.Seconds*float64(job.FPS))+1)
	} else if anim == nil {
		limit = defaultSeconds*job.FPS + 1
	}
	period := time.Second / time.Duration(job.FPS)

	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		if err := writeFrame(target, dir, frames); err != nil {
			return frames, err
		}
		frames++

		if anim != nil && anim.Done() {
			if err := anim.Err(); err != nil {
				return frames, fmt.Errorf("animation: %w", err)
			}
			if job.Seconds == 0 {
				return frames, nil
			}
		}
		if frames >= limit {
			if anim != nil && !anim.Done() && job.Seconds == 0 {
				return frames, ErrTooManyFrames
			}
			return frames, nil
		}

		clock.now = clock.now.Add(period)
		queue.Flush()
	}
}

func writeFrame(target *raster.Target, dir string, n int) error {
	path := filepath.Join(dir, fmt.Sprintf(framePattern, n))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := target.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode frame %d: %w", n, err)
	}
	return f.Close()
}
