package engine

import (
	"fmt"
	"math"

	"github.com/gridplane/gridplane/internal/matrix"
)

const (
	initialZoom = 100

	// The gridline spacing is rescaled whenever the cumulative zoom since the
	// last rescale leaves [zoomBandLow, zoomBandHigh).
	zoomBandLow  = 0.5
	zoomBandHigh = 2.0

	// The scale stays inside [minScale, maxScale] so that its reciprocal and
	// the gridline spacings that track it stay finite.
	minScale = 1e-300
	maxScale = 1e300
)

// Transform maps between real coordinates and target pixels:
//
//	pixel = flipY(zoom·real + translation) + size/2
//
// zoom is always a uniform 2×2 scale.
type Transform struct {
	zoom        matrix.Matrix
	translation matrix.Matrix
	counter     float64
	size        func() (float64, float64)
}

func newTransform(size func() (float64, float64)) *Transform {
	t := &Transform{size: size}
	t.reset()
	return t
}

func (t *Transform) reset() {
	t.zoom = matrix.Diagonal(initialZoom)
	t.translation = matrix.Vector(1, 1)
	t.counter = 1
}

// ToPixel converts a real point to pixel coordinates.
func (t *Transform) ToPixel(x, y float64) (px, py float64) {
	p := must(t.zoom.Multiply(matrix.Vector(x, y)))
	p = must(p.Add(t.translation))

	w, h := t.size()
	return p.At(0, 0) + 0.5*w, -p.At(1, 0) + 0.5*h
}

// ToReal converts pixel coordinates to a real point.
func (t *Transform) ToReal(px, py float64) (x, y float64) {
	w, h := t.size()
	px -= 0.5 * w
	py = -(py - 0.5*h)

	// zoom is a uniform diagonal, so its inverse is the reciprocal scale.
	inv := matrix.Diagonal(1 / t.zoom.At(0, 0))
	p := must(inv.Multiply(must(matrix.Vector(px, py).Subtract(t.translation))))
	return p.At(0, 0), p.At(1, 0)
}

// UnitsToPixels returns how many real units one pixel spans.
func (t *Transform) UnitsToPixels() float64 {
	// x and y always zoom together, so one diagonal entry describes both.
	return 1 / t.zoom.At(0, 0)
}

// Scale returns the number of pixels per real unit.
func (t *Transform) Scale() float64 { return t.zoom.At(0, 0) }

// Translation returns the current translation in pixels.
func (t *Transform) Translation() (tx, ty float64) {
	return t.translation.At(0, 0), t.translation.At(1, 0)
}

// ZoomCounter returns the zoom accumulated since gridlines were last rescaled.
func (t *Transform) ZoomCounter() float64 { return t.counter }

// pan shifts the view by (dx, dy) real units. A shift that would leave the
// translation non-finite is refused.
func (t *Transform) pan(dx, dy float64) error {
	shift := must(t.zoom.Multiply(matrix.Vector(dx, dy)))
	next := must(t.translation.Add(shift))
	if !finiteMatrix(next) {
		return invalidf("pan by (%g, %g) leaves the view unrepresentable", dx, dy)
	}
	t.translation = next
	return nil
}

// validZoomFactor rejects factors that would not scale by a positive finite amount.
func validZoomFactor(factor float64) error {
	if !(factor > -1) || math.IsInf(factor, 1) {
		return invalidf("zoom factor %g must be finite and greater than -1", factor)
	}
	return nil
}

// zoomAt scales by (1+factor) keeping the real point under (px, py) fixed. It
// returns the factor gridline spacing must be multiplied by, 1 meaning none.
// A step that would take the scale outside [minScale, maxScale], or leave the
// translation or zoom counter unrepresentable, is refused and leaves the
// transform unchanged.
func (t *Transform) zoomAt(factor, px, py float64) (spacing float64, err error) {
	if err := validZoomFactor(factor); err != nil {
		return 1, err
	}

	scale := t.zoom.At(0, 0) * (1 + factor)
	if !(scale >= minScale && scale <= maxScale) {
		return 1, invalidf("zoom factor %g takes the scale out of range", factor)
	}
	counter := t.counter * (1 + factor)
	if math.IsInf(counter, 0) || counter < 0x1p-1022 {
		return 1, invalidf("zoom factor %g takes the zoom counter out of range", factor)
	}

	wx, wy := t.ToReal(px, py)
	w := matrix.Vector(wx, wy)

	next := matrix.Diagonal(scale)
	diff := must(next.Subtract(t.zoom))
	translation := must(t.translation.Subtract(must(diff.Multiply(w))))
	if !finiteMatrix(translation) {
		return 1, invalidf("zoom factor %g at (%g, %g) leaves the view unrepresentable", factor, px, py)
	}
	t.translation = translation
	t.zoom = next

	// counter is finite and normal here, so each halving or doubling moves it
	// towards the band and the loop ends.
	spacing = 1
	for counter >= zoomBandHigh || counter < zoomBandLow {
		f := 2.0
		if counter >= zoomBandHigh {
			f = 0.5
		}
		counter *= f
		spacing *= f
	}
	t.counter = counter
	return spacing, nil
}

func finiteMatrix(m matrix.Matrix) bool {
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			v := m.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// must unwraps matrix results whose shapes are fixed by construction here.
func must(m matrix.Matrix, err error) matrix.Matrix {
	if err != nil {
		panic(fmt.Sprintf("engine: transform algebra: %v", err))
	}
	return m
}
