// Package samples holds the demo scenes shipped with gridplane.
package samples

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/gridplane/gridplane/internal/engine"
)

// ErrUnknownSample is returned by Lookup for a name that is not registered.
var ErrUnknownSample = errors.New("unknown sample")

// Sample is a named demo scene.
type Sample struct {
	Name        string
	Title       string
	Description string
	// Loop reports whether the sample's animation should restart when it ends.
	Loop bool

	install func(e *engine.Engine, opts Options) (*engine.Animation, error)
}

// Options customise a sample installation.
type Options struct {
	// Picture is shown by the image sample. A generated globe is used when nil.
	Picture engine.Picture
}

// Install clears e, frames the view and adds the sample's objects. Animated
// samples return their running animation; static ones return nil.
func (s Sample) Install(e *engine.Engine, opts Options) (*engine.Animation, error) {
	e.RemoveAll()
	if err := e.ResetView(); err != nil {
		return nil, fmt.Errorf("sample %s: reset view: %w", s.Name, err)
	}
	w, h := e.Target().Size()
	// Zoom out to 12.5 pixels per unit about the centre.
	if err := e.ZoomAt(-1+0.125, 0.5*w, 0.5*h); err != nil {
		return nil, fmt.Errorf("sample %s: frame view: %w", s.Name, err)
	}
	a, err := s.install(e, opts)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", s.Name, err)
	}
	return a, nil
}

var registry = map[string]Sample{}

func register(s Sample) { registry[s.Name] = s }

// Lookup returns the sample called name.
func Lookup(name string) (Sample, error) {
	s, ok := registry[name]
	if !ok {
		return Sample{}, fmt.Errorf("%w: %q", ErrUnknownSample, name)
	}
	return s, nil
}

// All returns every sample sorted by name.
func All() []Sample {
	out := make([]Sample, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func init() {
	register(Sample{
		Name:        "function",
		Title:       "Simple function plotting",
		Description: "y = xsin(x)",
		install: func(e *engine.Engine, _ Options) (*engine.Animation, error) {
			_, err := e.AddFunction(
				func(x float64) float64 { return x * math.Sin(x) },
				engine.Domain{Start: -10 * math.Pi, End: 10 * math.Pi},
				engine.Colour("darkgreen"), engine.LineWidth(5),
			)
			return nil, err
		},
	})

	register(Sample{
		Name:        "parametric",
		Title:       "Parametric functions",
		Description: "x = tsin(t), y = tcos(t)",
		install: func(e *engine.Engine, _ Options) (*engine.Animation, error) {
			_, err := e.AddParametricFunction(
				func(t float64) (engine.Point, error) {
					return engine.Pt(t*math.Sin(t), t*math.Cos(t)), nil
				},
				engine.Domain{Start: 0, End: 50 * math.Pi},
				engine.Colour("darkred"), engine.LineWidth(5),
			)
			return nil, err
		},
	})

	register(Sample{
		Name:        "polygons",
		Title:       "Simple polygons",
		Description: "regular polygons are easy to draw",
		install: func(e *engine.Engine, _ Options) (*engine.Animation, error) {
			if _, err := e.AddPolygon(4, 0, 2.5, 10, math.Pi/4,
				engine.Colour("green"), engine.Filled(true), engine.LineWidth(10)); err != nil {
				return nil, err
			}
			if _, err := e.AddPolygon(3, 0, 0, 5, math.Pi/2,
				engine.Colour("darkblue"), engine.Filled(true)); err != nil {
				return nil, err
			}
			_, err := e.AddPolygon(5, 5, 5, 2, math.Pi/5, engine.Colour("red"), engine.Filled(true))
			return nil, err
		},
	})

	register(Sample{
		Name:        "images",
		Title:       "Images and text",
		Description: "Images and text are also supported",
		install: func(e *engine.Engine, opts Options) (*engine.Animation, error) {
			pic := opts.Picture
			if pic == nil {
				pic = Globe(256)
			}
			if _, err := e.AddImage(pic, -7.5, 7.5, 15, 15, 0); err != nil {
				return nil, err
			}
			_, err := e.AddText("This is the Earth from space", 0, 10, "center")
			return nil, err
		},
	})

	register(Sample{
		Name:        "animation",
		Title:       "Animations",
		Description: "you can create animations",
		Loop:        true,
		install: func(e *engine.Engine, _ Options) (*engine.Animation, error) {
			const seconds = 5
			var shape *engine.ID
			draw := func(rotation float64) error {
				if shape != nil {
					if err := e.Remove(*shape); err != nil {
						return err
					}
				}
				id, err := e.AddPolygon(4, 0, 0, 10, rotation, engine.Colour("red"), engine.Filled(true))
				if err != nil {
					return err
				}
				shape = &id
				return nil
			}
			if err := draw(0); err != nil {
				return nil, err
			}
			return e.RunAnimation(draw, 0, 2*math.Pi, 2*math.Pi/seconds)
		},
	})

	register(Sample{
		Name:        "tangent",
		Title:       "Tangent lines",
		Description: "you can add tangent lines to a function",
		Loop:        true,
		install: func(e *engine.Engine, _ Options) (*engine.Animation, error) {
			const (
				seconds   = 16
				lineWidth = 5
			)
			domain := engine.Domain{Start: 0, End: 2 * math.Pi}
			fn, err := e.AddParametricFunction(wobblyCircle, domain,
				engine.Colour("black"), engine.LineWidth(lineWidth))
			if err != nil {
				return nil, err
			}

			var drawn []engine.ID
			draw := func(t float64) error {
				for _, id := range drawn {
					if err := e.Remove(id); err != nil {
						return err
					}
				}
				drawn = drawn[:0]

				tangent, err := e.AddTangent(fn, t, engine.Colour("red"), engine.LineWidth(lineWidth))
				if err != nil {
					return err
				}
				drawn = append(drawn, tangent)

				p, _ := wobblyCircle(t)
				dot, err := e.AddCircle(p.X, p.Y, 0.5, engine.Colour("blue"), engine.Filled(true))
				if err != nil {
					return err
				}
				drawn = append(drawn, dot)
				return nil
			}
			return e.RunAnimation(draw, domain.Start, domain.End, (domain.End-domain.Start)/seconds)
		},
	})
}

// wobblyCircle is a radius-10 circle perturbed ten times per turn.
func wobblyCircle(t float64) (engine.Point, error) {
	const (
		k = 10
		r = 10
		a = 1
	)
	wobble := a * math.Sin(k*t)
	return engine.Pt(
		r*math.Sin(t)+wobble*math.Sin(t),
		r*math.Cos(t)+wobble*math.Cos(t),
	), nil
}

// Globe draws a simple blue-and-green disc on a transparent square.
func Globe(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-c, float64(y)+0.5-c
			d := math.Hypot(dx, dy) / c
			if d > 1 {
				continue
			}
			land := math.Sin(dx/c*7)*math.Cos(dy/c*5) > 0.35
			shade := uint8(255 * (1 - 0.4*d))
			if land {
				img.SetNRGBA(x, y, color.NRGBA{G: shade, B: shade / 4, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: shade / 8, G: shade / 3, B: shade, A: 255})
			}
		}
	}
	return img
}
