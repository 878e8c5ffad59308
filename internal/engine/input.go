package engine

import "math"

const (
	// wheelScale converts a wheel delta into a fractional zoom factor.
	wheelScale = 0.001
	// minWheelFactor keeps a single large wheel step from inverting the zoom.
	minWheelFactor = -0.9
)

// Input turns pointer and wheel events, in target pixel coordinates, into pans
// and zooms on an engine. Gating and vetoes are those of Engine.Pan and
// Engine.ZoomAt.
type Input struct {
	e       *Engine
	pressed bool
	x, y    float64
}

// NewInput returns an input controller for e.
func NewInput(e *Engine) *Input {
	return &Input{e: e}
}

// Pressed reports whether a drag is in progress.
func (in *Input) Pressed() bool { return in.pressed }

// Position returns the last pointer position seen.
func (in *Input) Position() (x, y float64) { return in.x, in.y }

// PointerDown starts a drag at (x, y).
func (in *Input) PointerDown(x, y float64) {
	in.pressed = true
	in.x, in.y = x, y
}

// PointerUp ends a drag.
func (in *Input) PointerUp() { in.pressed = false }

// PointerLeave ends a drag when the pointer leaves the target.
func (in *Input) PointerLeave() { in.pressed = false }

// PointerMove records the pointer position and, while pressed, pans so the
// real point under the pointer follows it.
func (in *Input) PointerMove(x, y float64) error {
	px, py := in.x, in.y
	in.x, in.y = x, y
	if !in.pressed {
		return nil
	}

	// Both ends are converted with the transform as it is before the pan.
	t := in.e.transform
	x0, y0 := t.ToReal(px, py)
	x1, y1 := t.ToReal(x, y)
	return in.e.Pan(x1-x0, y1-y0)
}

// Wheel zooms about the last pointer position. Positive deltas zoom in.
func (in *Input) Wheel(delta float64) error {
	return in.e.ZoomAt(WheelFactor(delta), in.x, in.y)
}

// WheelAt records the pointer at (x, y) and zooms about it.
func (in *Input) WheelAt(delta, x, y float64) error {
	in.x, in.y = x, y
	return in.Wheel(delta)
}

// WheelFactor converts a wheel delta into a zoom factor for ZoomAt.
func WheelFactor(delta float64) float64 {
	return math.Max(wheelScale*delta, minWheelFactor)
}
