// Package engine implements the coordinate-plane engine: a scene of plotted
// objects, the pan/zoom transform between the real plane and target pixels,
// and the renderer, animation and input drivers that act on them.
//
// An Engine is not safe for concurrent use. Every mutation redraws the whole
// scene synchronously on the calling goroutine.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"
)

// tangentStep is the finite-difference probe used to estimate tangent directions.
const tangentStep = 0.0001

// Engine owns the scene, the transform and the settings for one target.
type Engine struct {
	settings  Settings
	target    Target
	transform *Transform

	objects map[ID]*Object
	z       *zIndex
	nextID  ID

	scheduler FrameScheduler
	clock     func() time.Time
	logger    *slog.Logger

	redraws uint64
	// gridScale is the product of every gridline rescale since the last reset.
	gridScale float64
}

// New creates an engine drawing on target and paints the empty grid.
func New(target Target, opts ...Option) (*Engine, error) {
	if target == nil {
		return nil, invalidf("nil render target")
	}

	o := options{
		settings: DefaultSettings(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.settings.validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		settings:  o.settings,
		target:    target,
		objects:   make(map[ID]*Object),
		z:         newZIndex(),
		scheduler: o.scheduler,
		clock:     o.clock,
		logger:    o.logger,
		gridScale: 1,
	}
	e.transform = newTransform(target.Size)

	if err := e.Redraw(); err != nil {
		return nil, err
	}
	return e, nil
}

// Transform exposes the engine's coordinate transform for conversions.
func (e *Engine) Transform() *Transform { return e.transform }

// Target returns the render target.
func (e *Engine) Target() Target { return e.target }

// Settings returns a copy of the current settings.
func (e *Engine) Settings() Settings { return e.settings }

// Configure edits the settings, validates them and redraws. On a validation
// failure the previous settings are kept.
func (e *Engine) Configure(fn func(*Settings)) error {
	next := e.settings
	fn(&next)
	if err := next.validate(); err != nil {
		return err
	}
	e.settings = next
	return e.Redraw()
}

// Redraws returns how many full redraws have completed.
func (e *Engine) Redraws() uint64 { return e.redraws }

// Add stores a new object at z-level 0, redraws and returns its id. The style
// options are applied over the engine's default style. If the redraw fails
// the object stays registered and the id is returned alongside the error.
func (e *Engine) Add(data Data, style ...StyleOption) (ID, error) {
	data, err := normalise(data)
	if err != nil {
		return 0, err
	}

	id := e.nextID
	e.nextID++
	e.objects[id] = &Object{
		ID:    id,
		Data:  data,
		Style: mergeStyle(e.settings.DefaultStyle, style),
	}
	e.z.set(id, 0)

	e.logger.Debug("object added", "id", id, "kind", data.Kind())
	return id, e.Redraw()
}

// normalise validates data and copies any slices so the caller keeps no alias
// into the store.
func normalise(data Data) (Data, error) {
	switch d := data.(type) {
	case Shape:
		if len(d.Points) == 0 {
			return nil, invalidf("shape needs at least one point")
		}
		d.Points = slices.Clone(d.Points)
		return d, nil
	case Circle:
		return d, nil
	case Function:
		if d.F == nil {
			return nil, invalidf("function is nil")
		}
		if err := d.Domain.validate(); err != nil {
			return nil, err
		}
		return d, nil
	case Line:
		if d.Direction.X == 0 && d.Direction.Y == 0 {
			return nil, invalidf("line direction must be non-zero")
		}
		return d, nil
	case Text:
		if d.Align < AlignLeft || d.Align > AlignRight {
			return nil, invalidf("unknown alignment %d", int(d.Align))
		}
		return d, nil
	case Image:
		if d.Picture == nil {
			return nil, invalidf("image has no picture")
		}
		return d, nil
	default:
		return nil, invalidf("unrecognised object kind %T", data)
	}
}

// Remove deletes an object.
func (e *Engine) Remove(id ID) error {
	if _, ok := e.objects[id]; !ok {
		return notFound(id)
	}
	e.z.unset(id)
	delete(e.objects, id)
	e.logger.Debug("object removed", "id", id)
	return nil
}

// RemoveAll deletes every live object.
func (e *Engine) RemoveAll() {
	for _, id := range e.z.order() {
		e.z.unset(id)
		delete(e.objects, id)
	}
}

// Get returns a copy of the object with the given id.
func (e *Engine) Get(id ID) (Object, error) {
	o, ok := e.objects[id]
	if !ok {
		return Object{}, notFound(id)
	}
	out := *o
	if s, ok := out.Data.(Shape); ok {
		s.Points = slices.Clone(s.Points)
		out.Data = s
	}
	return out, nil
}

// Len returns the number of live objects.
func (e *Engine) Len() int { return e.z.size() }

// Order returns the live ids in draw order.
func (e *Engine) Order() []ID { return e.z.order() }

// Z returns the z-level of an object.
func (e *Engine) Z(id ID) (int, error) {
	z, ok := e.z.level(id)
	if !ok {
		return 0, notFound(id)
	}
	return z, nil
}

// SetZ moves an object to level z, behind anything already at that level's end,
// and redraws.
func (e *Engine) SetZ(id ID, z int) error {
	if _, ok := e.objects[id]; !ok {
		return notFound(id)
	}
	e.z.set(id, z)
	return e.Redraw()
}

// AddShape adds a closed polyline through points.
func (e *Engine) AddShape(points []Point, style ...StyleOption) (ID, error) {
	return e.Add(Shape{Points: points}, style...)
}

// AddPolygon adds a regular n-gon centred on (cx, cy) with vertices at distance
// radius, rotated anticlockwise by rotation radians. The point list is closed:
// it has n+1 entries and the last repeats the first.
func (e *Engine) AddPolygon(n int, cx, cy, radius, rotation float64, style ...StyleOption) (ID, error) {
	if n < 3 {
		return 0, invalidf("polygon needs at least 3 sides, got %d", n)
	}
	return e.AddShape(PolygonPoints(n, cx, cy, radius, rotation), style...)
}

// PolygonPoints returns the closed vertex list used by AddPolygon.
func PolygonPoints(n int, cx, cy, radius, rotation float64) []Point {
	points := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		angle := rotation + 2*math.Pi*float64(i)/float64(n)
		points = append(points, Point{
			X: radius*math.Cos(angle) + cx,
			Y: radius*math.Sin(angle) + cy,
		})
	}
	return points
}

// AddCircle adds a circle of the given radius in real units.
func (e *Engine) AddCircle(x, y, radius float64, style ...StyleOption) (ID, error) {
	return e.Add(Circle{Centre: Pt(x, y), Radius: radius}, style...)
}

// AddParametricFunction adds the curve t ↦ f(t) over domain.
func (e *Engine) AddParametricFunction(f ParametricFunc, domain Domain, style ...StyleOption) (ID, error) {
	return e.Add(Function{F: f, Domain: domain}, style...)
}

// AddFunction adds the graph of y = f(x) over domain. A NaN or infinite result
// leaves a gap in the graph.
func (e *Engine) AddFunction(f func(x float64) float64, domain Domain, style ...StyleOption) (ID, error) {
	if f == nil {
		return 0, invalidf("function is nil")
	}
	graph := func(x float64) (Point, error) {
		return Point{X: x, Y: f(x)}, nil
	}
	return e.AddParametricFunction(graph, domain, style...)
}

// AddLine adds the infinite line through point with the given direction.
func (e *Engine) AddLine(point, direction Point, style ...StyleOption) (ID, error) {
	return e.Add(Line{Point: point, Direction: direction}, style...)
}

// AddTangent adds the tangent to function object fn at parameter x.
func (e *Engine) AddTangent(fn ID, x float64, style ...StyleOption) (ID, error) {
	o, ok := e.objects[fn]
	if !ok {
		return 0, notFound(fn)
	}
	f, ok := o.Data.(Function)
	if !ok {
		return 0, fmt.Errorf("%w: tangent needs a function, object %d is a %s", ErrWrongType, fn, o.Data.Kind())
	}

	p1, err := f.F(x)
	if err != nil {
		return 0, fmt.Errorf("tangent at %g: %w", x, err)
	}
	p2, err := f.F(x + tangentStep)
	if err != nil {
		return 0, fmt.Errorf("tangent at %g: %w", x+tangentStep, err)
	}
	if !finite(p1) || !finite(p2) {
		return 0, fmt.Errorf("tangent at %g: %w", x, ErrUndefined)
	}

	return e.AddLine(p1, Point{X: p2.X - p1.X, Y: p2.Y - p1.Y}, style...)
}

// AddText adds a label at (x, y). align is "left", "center" or "right".
func (e *Engine) AddText(text string, x, y float64, align string, style ...StyleOption) (ID, error) {
	a, err := ParseAlign(align)
	if err != nil {
		return 0, err
	}
	return e.Add(Text{Text: text, Position: Pt(x, y), Align: a}, style...)
}

// AddImage adds pic with its top-left corner at (x, y) and the given size in
// real units, rotated anticlockwise by rotation radians about its centre.
func (e *Engine) AddImage(pic Picture, x, y, width, height, rotation float64, style ...StyleOption) (ID, error) {
	return e.Add(Image{
		Picture:  pic,
		Position: Pt(x, y),
		Width:    width,
		Height:   height,
		Rotation: rotation,
	}, style...)
}

// Pan moves the view by (dx, dy) real units and redraws. It does nothing when
// panning is disabled or the veto declines.
func (e *Engine) Pan(dx, dy float64) error {
	pan := e.settings.Pan
	if !pan.Enabled {
		return nil
	}
	if pan.Veto != nil && !pan.Veto(dx, dy) {
		return nil
	}

	if err := e.transform.pan(dx, dy); err != nil {
		return err
	}
	return e.Redraw()
}

// ZoomAt scales the view by (1+factor) about pixel (px, py) and redraws: 0 is
// no change, 1 doubles. The real point under (px, py) stays where it is. A
// factor that is not finite and greater than -1, or a step that would take the
// view out of floating-point range, returns ErrInvalidArgument.
func (e *Engine) ZoomAt(factor, px, py float64) error {
	zoom := e.settings.Zoom
	if !zoom.Enabled {
		return nil
	}
	if err := validZoomFactor(factor); err != nil {
		return err
	}
	if zoom.Veto != nil && !zoom.Veto(factor, px, py) {
		return nil
	}

	spacing, err := e.transform.zoomAt(factor, px, py)
	if err != nil {
		return err
	}
	if spacing != 1 {
		e.settings.Gridlines.Major.Spacing *= spacing
		e.settings.Gridlines.Minor.Spacing *= spacing
		e.gridScale *= spacing
		e.logger.Debug("gridlines rescaled",
			"factor", spacing,
			"major", e.settings.Gridlines.Major.Spacing,
			"minor", e.settings.Gridlines.Minor.Spacing)
	}
	return e.Redraw()
}

// ResetView restores the initial pan and zoom, undoes any gridline rescaling
// and redraws.
func (e *Engine) ResetView() error {
	e.settings.Gridlines.Major.Spacing /= e.gridScale
	e.settings.Gridlines.Minor.Spacing /= e.gridScale
	e.gridScale = 1
	e.transform.reset()
	return e.Redraw()
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
