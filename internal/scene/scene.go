// Package scene decodes wire descriptions of plane objects into engine calls.
package scene

import (
	"fmt"
	"math"
	"sort"

	"github.com/gridplane/gridplane/internal/engine"
)

// Wire objects are bounded so one message cannot exhaust memory or stall every
// redraw of a session.
const (
	MaxPolygonSides = 4096
	MaxSamples      = 200_000
)

// ObjectSpec is the JSON form of a new object. Functions cannot travel over the
// wire, so function objects name one of the built-in curves.
type ObjectSpec struct {
	Kind string `json:"kind"` // shape, polygon, circle, function, parametric, line, tangent, text or image

	Points []engine.Point `json:"points,omitempty"`

	Sides    int           `json:"sides,omitempty"`
	Centre   *engine.Point `json:"centre,omitempty"`
	Radius   float64       `json:"radius,omitempty"`
	Rotation float64       `json:"rotation,omitempty"`

	Curve         string    `json:"curve,omitempty"`
	Amplitude     float64   `json:"amplitude,omitempty"`
	Frequency     float64   `json:"frequency,omitempty"`
	Domain        []float64 `json:"domain,omitempty"`
	IntegerPoints bool      `json:"integerPoints,omitempty"`

	Point     *engine.Point `json:"point,omitempty"`
	Direction *engine.Point `json:"direction,omitempty"`

	Of engine.ID `json:"of,omitempty"`
	At float64   `json:"at,omitempty"`

	Text     string        `json:"text,omitempty"`
	Position *engine.Point `json:"position,omitempty"`
	Align    string        `json:"align,omitempty"`

	Asset  string  `json:"asset,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	Style StyleSpec `json:"style"`
}

// StyleSpec overrides parts of the engine's default style.
type StyleSpec struct {
	Colour    *string  `json:"colour,omitempty"`
	LineWidth *float64 `json:"lineWidth,omitempty"`
	Fill      *bool    `json:"fill,omitempty"`
	Font      *string  `json:"font,omitempty"`
	FontSize  *float64 `json:"fontSize,omitempty"`
	Hidden    *bool    `json:"hidden,omitempty"`
}

// Options converts s into engine style options.
func (s StyleSpec) Options() []engine.StyleOption {
	var opts []engine.StyleOption
	if s.Colour != nil {
		opts = append(opts, engine.Colour(*s.Colour))
	}
	if s.LineWidth != nil {
		opts = append(opts, engine.LineWidth(*s.LineWidth))
	}
	if s.Fill != nil {
		opts = append(opts, engine.Filled(*s.Fill))
	}
	if s.Font != nil {
		opts = append(opts, engine.Font(*s.Font))
	}
	if s.FontSize != nil {
		opts = append(opts, engine.FontSize(*s.FontSize))
	}
	if s.Hidden != nil {
		opts = append(opts, engine.Hidden(*s.Hidden))
	}
	return opts
}

var graphs = map[string]func(float64) float64{
	"sin":    math.Sin,
	"cos":    math.Cos,
	"tan":    math.Tan,
	"exp":    math.Exp,
	"log":    math.Log,
	"sqrt":   math.Sqrt,
	"abs":    math.Abs,
	"square": func(x float64) float64 { return x * x },
	"cube":   func(x float64) float64 { return x * x * x },
	"recip":  func(x float64) float64 { return 1 / x },
	"xsinx":  func(x float64) float64 { return x * math.Sin(x) },
}

var curves = map[string]func(float64) engine.Point{
	"circle":    func(t float64) engine.Point { return engine.Pt(math.Cos(t), math.Sin(t)) },
	"spiral":    func(t float64) engine.Point { return engine.Pt(t*math.Sin(t), t*math.Cos(t)) },
	"lissajous": func(t float64) engine.Point { return engine.Pt(math.Sin(3*t), math.Cos(2*t)) },
	"cardioid": func(t float64) engine.Point {
		r := 1 - math.Cos(t)
		return engine.Pt(r*math.Cos(t), r*math.Sin(t))
	},
}

// Curves lists the built-in graph and parametric curve names.
func Curves() (graph, parametric []string) {
	for name := range graphs {
		graph = append(graph, name)
	}
	for name := range curves {
		parametric = append(parametric, name)
	}
	sort.Strings(graph)
	sort.Strings(parametric)
	return graph, parametric
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func pointOr(p *engine.Point) engine.Point {
	if p == nil {
		return engine.Point{}
	}
	return *p
}

// boundedDomain parses spec's domain and rejects one that would be sampled
// more than MaxSamples times at step delta.
func boundedDomain(spec ObjectSpec, delta float64) (engine.Domain, error) {
	d, err := engine.NewDomain(spec.Domain, spec.IntegerPoints)
	if err != nil {
		return engine.Domain{}, err
	}
	step := delta
	if d.IntegerPointsOnly {
		step = 1
	}
	n := (d.End - d.Start) / step
	if math.IsNaN(n) || n > MaxSamples {
		return engine.Domain{}, fmt.Errorf("%w: domain [%g, %g] needs more than %d samples",
			engine.ErrInvalidArgument, d.Start, d.End, MaxSamples)
	}
	return d, nil
}

// Add adds the object described by spec to e. pictures resolves asset ids.
func Add(e *engine.Engine, spec ObjectSpec, pictures func(string) engine.Picture) (engine.ID, error) {
	style := spec.Style.Options()

	switch spec.Kind {
	case "shape":
		return e.AddShape(spec.Points, style...)

	case "polygon":
		if spec.Sides > MaxPolygonSides {
			return 0, fmt.Errorf("%w: polygon has %d sides, at most %d allowed",
				engine.ErrInvalidArgument, spec.Sides, MaxPolygonSides)
		}
		c := pointOr(spec.Centre)
		return e.AddPolygon(spec.Sides, c.X, c.Y, spec.Radius, spec.Rotation, style...)

	case "circle":
		c := pointOr(spec.Centre)
		return e.AddCircle(c.X, c.Y, spec.Radius, style...)

	case "function":
		f, ok := graphs[spec.Curve]
		if !ok {
			return 0, fmt.Errorf("%w: unknown function %q", engine.ErrInvalidArgument, spec.Curve)
		}
		domain, err := boundedDomain(spec, e.Settings().Delta)
		if err != nil {
			return 0, err
		}
		a, k := orOne(spec.Amplitude), orOne(spec.Frequency)
		return e.AddFunction(func(x float64) float64 { return a * f(k*x) }, domain, style...)

	case "parametric":
		f, ok := curves[spec.Curve]
		if !ok {
			return 0, fmt.Errorf("%w: unknown curve %q", engine.ErrInvalidArgument, spec.Curve)
		}
		domain, err := boundedDomain(spec, e.Settings().Delta)
		if err != nil {
			return 0, err
		}
		a, k := orOne(spec.Amplitude), orOne(spec.Frequency)
		return e.AddParametricFunction(func(t float64) (engine.Point, error) {
			p := f(k * t)
			return engine.Pt(a*p.X, a*p.Y), nil
		}, domain, style...)

	case "line":
		return e.AddLine(pointOr(spec.Point), pointOr(spec.Direction), style...)

	case "tangent":
		return e.AddTangent(spec.Of, spec.At, style...)

	case "text":
		p := pointOr(spec.Position)
		align := spec.Align
		if align == "" {
			align = "center"
		}
		return e.AddText(spec.Text, p.X, p.Y, align, style...)

	case "image":
		var pic engine.Picture
		if pictures != nil {
			pic = pictures(spec.Asset)
		}
		if pic == nil {
			return 0, fmt.Errorf("%w: asset %q", engine.ErrNotFound, spec.Asset)
		}
		p := pointOr(spec.Position)
		return e.AddImage(pic, p.X, p.Y, spec.Width, spec.Height, spec.Rotation, style...)
	}
	return 0, fmt.Errorf("%w: unknown object kind %q", engine.ErrInvalidArgument, spec.Kind)
}
