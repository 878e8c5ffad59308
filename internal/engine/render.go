package engine

import (
	"errors"
	"math"
)

// viewport is the real-plane rectangle currently visible on the target.
type viewport struct {
	left, right float64
	bottom, top float64
}

func (e *Engine) viewport() viewport {
	w, h := e.target.Size()
	x0, y0 := e.transform.ToReal(0, 0)
	x1, y1 := e.transform.ToReal(w, h)
	return viewport{
		left:   math.Min(x0, x1),
		right:  math.Max(x0, x1),
		bottom: math.Min(y0, y1),
		top:    math.Max(y0, y1),
	}
}

// Redraw repaints the whole scene: background, border, gridlines, axes and
// then every visible object in z-order. A failure raised by a plotted
// function stops the redraw and is returned as a *RenderError.
func (e *Engine) Redraw() error {
	t := e.target
	w, h := t.Size()
	s := &e.settings

	if ft, ok := t.(FrameTarget); ok {
		ft.BeginFrame()
	}

	t.SetFillColour(s.Background)
	rectPath(t, w, h)
	t.Fill()

	t.SetStrokeColour(s.Border.Colour)
	t.SetLineWidth(s.Border.Width)
	rectPath(t, w, h)
	t.Stroke()

	vp := e.viewport()
	e.drawGridTier(s.Gridlines.Major, vp, w, h)
	e.drawGridTier(s.Gridlines.Minor, vp, w, h)

	if s.Axes.Enabled {
		e.drawAxes(w, h)
	}

	for _, id := range e.z.order() {
		o := e.objects[id]
		if o.Style.Hidden {
			continue
		}
		if err := e.drawObject(o, vp, w, h); err != nil {
			e.logger.Warn("redraw aborted", "id", id, "kind", o.Data.Kind(), "error", err)
			return &RenderError{ID: id, Err: err}
		}
	}

	e.redraws++
	return nil
}

func rectPath(t Target, w, h float64) {
	t.BeginPath()
	t.MoveTo(0, 0)
	t.LineTo(w, 0)
	t.LineTo(w, h)
	t.LineTo(0, h)
	t.ClosePath()
}

// drawGridTier strokes every vertical and horizontal line at a multiple of the
// tier spacing inside the viewport.
func (e *Engine) drawGridTier(tier GridTier, vp viewport, w, h float64) {
	t := e.target
	t.SetStrokeColour(tier.Colour)
	t.SetLineWidth(tier.Width)
	t.BeginPath()

	sp := tier.Spacing
	gridMultiples(vp.left, vp.right, sp, func(x float64) {
		px, _ := e.transform.ToPixel(x, 0)
		t.MoveTo(px, 0)
		t.LineTo(px, h)
	})
	gridMultiples(vp.bottom, vp.top, sp, func(y float64) {
		_, py := e.transform.ToPixel(0, y)
		t.MoveTo(0, py)
		t.LineTo(w, py)
	})

	t.Stroke()
}

// maxGridlines bounds the lines drawn per direction for one tier.
const maxGridlines = 4096

// gridMultiples calls fn for each multiple of sp in [lo, hi]. A range holding
// more than maxGridlines multiples, or one too far out for float64 to tell
// neighbouring multiples apart, draws nothing.
func gridMultiples(lo, hi, sp float64, fn func(v float64)) {
	first, last := math.Ceil(lo/sp), math.Floor(hi/sp)
	n := last - first
	if !(n <= maxGridlines) || first+1 == first {
		return
	}
	for k := 0.0; k <= n; k++ {
		fn((first + k) * sp)
	}
}

func (e *Engine) drawAxes(w, h float64) {
	x, y := e.transform.ToPixel(0, 0)
	inX := x >= 0 && x <= w
	inY := y >= 0 && y <= h
	if !inX && !inY {
		return
	}

	t := e.target
	t.SetStrokeColour(e.settings.Axes.Colour)
	t.SetLineWidth(e.settings.Axes.Width)
	t.BeginPath()
	if inY {
		t.MoveTo(0, y)
		t.LineTo(w, y)
	}
	if inX {
		t.MoveTo(x, 0)
		t.LineTo(x, h)
	}
	t.Stroke()
}

func (e *Engine) drawObject(o *Object, vp viewport, w, h float64) error {
	t := e.target
	t.SetFillColour(o.Style.Colour)
	t.SetStrokeColour(o.Style.Colour)

	switch d := o.Data.(type) {
	case Shape:
		e.tracePolyline(d.Points)
	case Circle:
		x, y := e.transform.ToPixel(d.Centre.X, d.Centre.Y)
		r := d.Radius / e.transform.UnitsToPixels()
		t.BeginPath()
		t.Arc(x, y, r, 0, 2*math.Pi)
	case Function:
		if err := e.traceFunction(d); err != nil {
			return err
		}
	case Line:
		e.traceLine(d, vp, w, h)
	case Text:
		x, y := e.transform.ToPixel(d.Position.X, d.Position.Y)
		t.FillText(d.Text, x, y, d.Align, o.Style.Font, o.Style.FontSize)
		return nil
	case Image:
		x0, y0 := e.transform.ToPixel(d.Position.X, d.Position.Y)
		x1, y1 := e.transform.ToPixel(d.Position.X+d.Width, d.Position.Y-d.Height)
		t.DrawImage(d.Picture, x0, y0, x1-x0, y1-y0, -d.Rotation)
		return nil
	}

	if o.Style.Fill {
		t.Fill()
	} else {
		t.SetLineWidth(o.Style.LineWidth)
		t.Stroke()
	}
	return nil
}

func (e *Engine) tracePolyline(points []Point) {
	t := e.target
	t.BeginPath()
	x0, y0 := e.transform.ToPixel(points[0].X, points[0].Y)
	t.MoveTo(x0, y0)
	for _, p := range points[1:] {
		x, y := e.transform.ToPixel(p.X, p.Y)
		t.LineTo(x, y)
	}
	t.LineTo(x0, y0)
}

// traceFunction samples f across its domain. Undefined samples end the current
// subpath; the next defined sample starts a new one.
func (e *Engine) traceFunction(f Function) error {
	t := e.target
	t.BeginPath()

	start, end, step := f.Domain.Start, f.Domain.End, e.settings.Delta
	if f.Domain.IntegerPointsOnly {
		start, end, step = math.Ceil(start), math.Floor(end), 1
	}

	penDown := false
	plot := func(param float64) error {
		p, err := f.F(param)
		if errors.Is(err, ErrUndefined) || (err == nil && !finite(p)) {
			penDown = false
			return nil
		}
		if err != nil {
			return err
		}
		x, y := e.transform.ToPixel(p.X, p.Y)
		if penDown {
			t.LineTo(x, y)
		} else {
			t.MoveTo(x, y)
			penDown = true
		}
		return nil
	}

	if start > end {
		return nil
	}
	n := int(math.Floor((end - start) / step))
	last := start
	for i := 0; i <= n; i++ {
		last = start + float64(i)*step
		if err := plot(last); err != nil {
			return err
		}
	}
	if !f.Domain.IntegerPointsOnly && last < end {
		return plot(end)
	}
	return nil
}

// traceLine traces the part of an infinite line that crosses the viewport.
func (e *Engine) traceLine(l Line, vp viewport, w, h float64) {
	t := e.target
	t.BeginPath()

	m := l.Direction.Y / l.Direction.X
	if l.Direction.X == 0 || math.IsInf(m, 0) || math.IsNaN(m) {
		x, _ := e.transform.ToPixel(l.Point.X, 0)
		if x < 0 || x > w {
			return
		}
		t.MoveTo(x, 0)
		t.LineTo(x, h)
		return
	}

	c := l.Point.Y - m*l.Point.X
	yl := m*vp.left + c
	yr := m*vp.right + c
	if math.IsNaN(yl) || math.IsNaN(yr) || math.IsInf(yl, 0) || math.IsInf(yr, 0) {
		return
	}
	if math.Max(yl, yr) < vp.bottom || math.Min(yl, yr) > vp.top {
		return
	}

	x0, y0 := e.transform.ToPixel(vp.left, yl)
	x1, y1 := e.transform.ToPixel(vp.right, yr)
	t.MoveTo(x0, y0)
	t.LineTo(x1, y1)
}
