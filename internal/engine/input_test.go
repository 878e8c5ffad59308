package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridplane/internal/engine"
)

func TestDragFollowsPointer(t *testing.T) {
	e, _ := newEngine(t)
	in := engine.NewInput(e)
	tr := e.Transform()

	// Drag at two zoom levels; the grabbed point must stay under the pointer.
	for _, zoom := range []float64{0, 2.5} {
		require.NoError(t, e.ZoomAt(zoom, 0, 0))

		wx, wy := tr.ToReal(400, 300)
		in.PointerDown(400, 300)
		require.NoError(t, in.PointerMove(520, 250))
		require.NoError(t, in.PointerMove(530, 260))
		in.PointerUp()

		px, py := tr.ToPixel(wx, wy)
		require.InDelta(t, 530, px, 1e-9)
		require.InDelta(t, 260, py, 1e-9)
	}
}

func TestMoveWithoutPressDoesNotPan(t *testing.T) {
	e, _ := newEngine(t)
	in := engine.NewInput(e)

	tx, ty := e.Transform().Translation()
	require.NoError(t, in.PointerMove(10, 10))
	require.NoError(t, in.PointerMove(300, 200))

	nx, ny := e.Transform().Translation()
	require.Equal(t, tx, nx)
	require.Equal(t, ty, ny)

	x, y := in.Position()
	require.Equal(t, 300.0, x)
	require.Equal(t, 200.0, y)
}

func TestPointerLeaveEndsDrag(t *testing.T) {
	e, _ := newEngine(t)
	in := engine.NewInput(e)

	in.PointerDown(0, 0)
	require.True(t, in.Pressed())
	in.PointerLeave()
	require.False(t, in.Pressed())

	tx, _ := e.Transform().Translation()
	require.NoError(t, in.PointerMove(100, 0))
	nx, _ := e.Transform().Translation()
	require.Equal(t, tx, nx)
}

func TestWheelZoomsAtPointer(t *testing.T) {
	e, _ := newEngine(t)
	in := engine.NewInput(e)
	tr := e.Transform()

	wx, wy := tr.ToReal(200, 100)
	require.NoError(t, in.WheelAt(1000, 200, 100))
	require.InDelta(t, 200, tr.Scale(), 1e-9)

	px, py := tr.ToPixel(wx, wy)
	require.InDelta(t, 200, px, 1e-9)
	require.InDelta(t, 100, py, 1e-9)

	require.NoError(t, in.Wheel(-500))
	require.InDelta(t, 100, tr.Scale(), 1e-9)
}

func TestWheelFactorIsClamped(t *testing.T) {
	require.InDelta(t, 0.12, engine.WheelFactor(120), 1e-12)
	require.Equal(t, -0.9, engine.WheelFactor(-5000))
}

func TestInputRespectsGates(t *testing.T) {
	var vetoed bool
	e, _ := newEngine(t,
		engine.WithZoomVeto(func(f, px, py float64) bool { vetoed = true; return false }),
		engine.Configure(func(s *engine.Settings) { s.Pan.Enabled = false }),
	)
	in := engine.NewInput(e)

	tx, ty := e.Transform().Translation()
	in.PointerDown(0, 0)
	require.NoError(t, in.PointerMove(50, 50))
	nx, ny := e.Transform().Translation()
	require.Equal(t, tx, nx)
	require.Equal(t, ty, ny)

	require.NoError(t, in.Wheel(100))
	require.True(t, vetoed)
	require.Equal(t, 100.0, e.Transform().Scale())
}
