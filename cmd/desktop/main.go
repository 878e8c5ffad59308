// Command desktop shows the sample scenes in a native window.
//
// Drag to pan, scroll to zoom. Keys 1-9 switch samples, R resets the view,
// Space stops the running animation and Escape quits.
package main

import (
	"errors"
	"image"
	"image/draw"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gridplane/gridplane/internal/config"
	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/raster"
	"github.com/gridplane/gridplane/internal/samples"
)

// wheelNotch is the browser wheel delta of one mouse wheel notch.
const wheelNotch = 120

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	g, err := newGame(cfg)
	if err != nil {
		slog.Error("start viewer", "error", err)
		os.Exit(1)
	}
	defer g.target.Close()

	ebiten.SetWindowTitle("gridplane")
	ebiten.SetWindowSize(cfg.CanvasWidth, cfg.CanvasHeight)
	ebiten.SetTPS(cfg.FrameRate)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		slog.Error("run window", "error", err)
		os.Exit(1)
	}
}

type game struct {
	target *raster.Target
	eng    *engine.Engine
	input  *engine.Input
	queue  *engine.FrameQueue

	samples   []samples.Sample
	sample    samples.Sample
	animation *engine.Animation

	width, height int
	cursorX       int
	cursorY       int
	inside        bool

	frame   *ebiten.Image
	pixels  *image.RGBA
	uploads uint64
}

func newGame(cfg *config.Config) (*game, error) {
	target, err := raster.New(cfg.CanvasWidth, cfg.CanvasHeight)
	if err != nil {
		return nil, err
	}
	g := &game{
		target:  target,
		queue:   &engine.FrameQueue{},
		samples: samples.All(),
		width:   cfg.CanvasWidth,
		height:  cfg.CanvasHeight,
	}
	g.eng, err = engine.New(target,
		engine.WithDelta(cfg.SampleDelta),
		engine.WithScheduler(g.queue.Scheduler()),
		engine.WithLogger(slog.Default()),
	)
	if err != nil {
		target.Close()
		return nil, err
	}
	g.input = engine.NewInput(g.eng)

	smp, err := samples.Lookup(cfg.Sample)
	if err != nil {
		target.Close()
		return nil, err
	}
	if err := g.load(smp); err != nil {
		target.Close()
		return nil, err
	}
	return g, nil
}

func (g *game) load(smp samples.Sample) error {
	if g.animation != nil {
		g.animation.Stop()
	}
	a, err := smp.Install(g.eng, samples.Options{})
	g.sample, g.animation = smp, a
	if err == nil {
		slog.Info("sample loaded", "sample", smp.Name)
	}
	return err
}

func (g *game) Update() error {
	g.queue.Flush()

	if a := g.animation; a != nil && a.Done() {
		g.animation = nil
		if a.Err() == nil && g.sample.Loop {
			if err := g.load(g.sample); err != nil {
				return err
			}
		}
	}

	if err := g.pollMouse(); err != nil {
		slog.Warn("input", "error", err)
	}
	return g.pollKeys()
}

func (g *game) pollMouse() error {
	x, y := ebiten.CursorPosition()
	inside := x >= 0 && y >= 0 && x < g.width && y < g.height
	if !inside {
		if g.inside {
			g.input.PointerLeave()
		}
		g.inside = false
		return nil
	}
	g.inside = true

	fx, fy := float64(x), float64(y)
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.input.PointerDown(fx, fy)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.input.PointerUp()
	}
	if x != g.cursorX || y != g.cursorY {
		g.cursorX, g.cursorY = x, y
		if err := refused(g.input.PointerMove(fx, fy)); err != nil {
			return err
		}
	}
	if _, wy := ebiten.Wheel(); wy != 0 {
		return refused(g.input.WheelAt(wy*wheelNotch, fx, fy))
	}
	return nil
}

// refused drops pan and zoom steps the engine declines at the edge of its
// range; any other error ends the game.
func refused(err error) error {
	if errors.Is(err, engine.ErrInvalidArgument) {
		slog.Debug("view step refused", "error", err)
		return nil
	}
	return err
}

func (g *game) pollKeys() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.eng.ResetView(); err != nil {
			return err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && g.animation != nil {
		g.animation.Stop()
		g.animation = nil
	}
	for i, smp := range g.samples {
		if i >= 9 {
			break
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyDigit1 + ebiten.Key(i)) {
			if err := g.load(smp); err != nil {
				slog.Warn("load sample", "sample", smp.Name, "error", err)
			}
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.frame == nil {
		g.frame = ebiten.NewImage(g.width, g.height)
		g.pixels = image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	}
	if r := g.eng.Redraws(); r != g.uploads {
		if err := g.target.Err(); err != nil {
			slog.Warn("paint frame", "error", err)
		}
		draw.Draw(g.pixels, g.pixels.Bounds(), g.target.Image(), image.Point{}, draw.Src)
		g.frame.WritePixels(g.pixels.Pix)
		g.uploads = r
	}
	screen.DrawImage(g.frame, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
