package engine_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gridplane/gridplane/internal/engine"
)

type TransformSuite struct {
	suite.Suite
	e *engine.Engine
}

func (s *TransformSuite) SetupTest() {
	s.e, _ = newEngine(s.T())
}

func (s *TransformSuite) TestInitialMapping() {
	tr := s.e.Transform()
	px, py := tr.ToPixel(0, 0)
	s.InDelta(401, px, 1e-9)
	s.InDelta(299, py, 1e-9)

	px, py = tr.ToPixel(1, 1)
	s.InDelta(501, px, 1e-9)
	s.InDelta(199, py, 1e-9)

	s.InDelta(0.01, tr.UnitsToPixels(), 1e-12)
	s.Equal(100.0, tr.Scale())
	s.Equal(1.0, tr.ZoomCounter())
}

func (s *TransformSuite) TestRoundTrip() {
	require.NoError(s.T(), s.e.Pan(3.5, -2))
	require.NoError(s.T(), s.e.ZoomAt(0.37, 120, 75))
	require.NoError(s.T(), s.e.ZoomAt(-0.6, 700, 20))

	tr := s.e.Transform()
	for _, p := range [][2]float64{{0, 0}, {1, -1}, {-123.4, 56.7}, {1e-3, 1e3}} {
		px, py := tr.ToPixel(p[0], p[1])
		x, y := tr.ToReal(px, py)
		s.InDelta(p[0], x, 1e-9)
		s.InDelta(p[1], y, 1e-9)
	}
}

func (s *TransformSuite) TestZoomKeepsCursorPointFixed() {
	tr := s.e.Transform()
	for _, z := range []struct{ f, px, py float64 }{
		{0.5, 100, 100},
		{1, 640, 480},
		{-0.3, 0, 600},
		{0.05, 401, 299},
	} {
		wx, wy := tr.ToReal(z.px, z.py)
		require.NoError(s.T(), s.e.ZoomAt(z.f, z.px, z.py))

		px, py := tr.ToPixel(wx, wy)
		s.InDelta(z.px, px, 1e-7)
		s.InDelta(z.py, py, 1e-7)
	}
}

func (s *TransformSuite) TestZoomRejectsBadFactor() {
	for _, f := range []float64{-1, -2, math.NaN(), math.Inf(1)} {
		require.ErrorIs(s.T(), s.e.ZoomAt(f, 0, 0), engine.ErrInvalidArgument)
	}
	s.Equal(100.0, s.e.Transform().Scale())
}

func (s *TransformSuite) TestPanMovesByRealUnits() {
	tr := s.e.Transform()
	before, _ := tr.ToPixel(0, 0)
	require.NoError(s.T(), s.e.Pan(2, 0))
	after, _ := tr.ToPixel(0, 0)
	s.InDelta(200, after-before, 1e-9)
}

func (s *TransformSuite) TestGridlinesRescaleOnZoomIn() {
	require.NoError(s.T(), s.e.ZoomAt(0.5, 0, 0))
	s.Equal(1.0, s.e.Settings().Gridlines.Major.Spacing)

	require.NoError(s.T(), s.e.ZoomAt(1, 0, 0))
	g := s.e.Settings().Gridlines
	s.Equal(0.5, g.Major.Spacing)
	s.Equal(0.1, g.Minor.Spacing)
	s.InDelta(1.5, s.e.Transform().ZoomCounter(), 1e-12)
}

func (s *TransformSuite) TestGridlinesRescaleOnZoomOut() {
	require.NoError(s.T(), s.e.ZoomAt(-0.5, 0, 0))
	s.Equal(1.0, s.e.Settings().Gridlines.Major.Spacing, "0.5 is inside the band")

	require.NoError(s.T(), s.e.ZoomAt(-0.5, 0, 0))
	g := s.e.Settings().Gridlines
	s.Equal(2.0, g.Major.Spacing)
	s.Equal(0.4, g.Minor.Spacing)
	s.Equal(0.5, s.e.Transform().ZoomCounter())
}

func (s *TransformSuite) TestLargeZoomRescalesRepeatedly() {
	require.NoError(s.T(), s.e.ZoomAt(15, 0, 0))
	s.Equal(1.0/16, s.e.Settings().Gridlines.Major.Spacing)
	c := s.e.Transform().ZoomCounter()
	s.GreaterOrEqual(c, 0.5)
	s.Less(c, 2.0)
}

func (s *TransformSuite) TestCompoundedZoomStaysInRange() {
	for _, factor := range []float64{-0.9, 1000} {
		require.NoError(s.T(), s.e.ResetView())
		in := engine.NewInput(s.e)
		for i := 0; i < 400; i++ {
			var err error
			if factor < 0 {
				err = in.WheelAt(-2000, 400, 300)
			} else {
				err = s.e.ZoomAt(factor, 400, 300)
			}
			if err != nil {
				require.ErrorIs(s.T(), err, engine.ErrInvalidArgument)
			}
		}

		tr := s.e.Transform()
		scale := tr.Scale()
		s.LessOrEqual(scale, 1e300, "factor %g", factor)
		s.GreaterOrEqual(scale, 1e-300, "factor %g", factor)

		x, y := tr.ToReal(123, 45)
		s.False(math.IsNaN(x) || math.IsNaN(y), "factor %g", factor)
		c := tr.ZoomCounter()
		s.GreaterOrEqual(c, 0.5)
		s.Less(c, 2.0)
	}
}

func (s *TransformSuite) TestZoomCounterOverflowIsRefused() {
	require.NoError(s.T(), s.e.ZoomAt(0.5, 400, 300))
	scale := s.e.Transform().Scale()

	done := make(chan error, 1)
	go func() { done <- s.e.ZoomAt(math.MaxFloat64, 400, 300) }()
	select {
	case err := <-done:
		require.ErrorIs(s.T(), err, engine.ErrInvalidArgument)
	case <-time.After(2 * time.Second):
		s.FailNow("zoom did not return")
	}
	s.Equal(scale, s.e.Transform().Scale())
	s.InDelta(1.5, s.e.Transform().ZoomCounter(), 1e-12)
}

func (s *TransformSuite) TestVetoSeesOnlyValidFactors() {
	var seen []float64
	require.NoError(s.T(), s.e.Configure(func(st *engine.Settings) {
		st.Zoom.Veto = func(f, px, py float64) bool { seen = append(seen, f); return true }
	}))
	for _, f := range []float64{math.NaN(), -1, -2, math.Inf(1)} {
		require.ErrorIs(s.T(), s.e.ZoomAt(f, 0, 0), engine.ErrInvalidArgument)
	}
	s.Empty(seen)

	require.NoError(s.T(), s.e.ZoomAt(0.25, 0, 0))
	s.Equal([]float64{0.25}, seen)
}

func (s *TransformSuite) TestPanOverflowIsRefused() {
	tx, ty := s.e.Transform().Translation()
	require.ErrorIs(s.T(), s.e.Pan(math.MaxFloat64, 0), engine.ErrInvalidArgument)
	nx, ny := s.e.Transform().Translation()
	s.Equal(tx, nx)
	s.Equal(ty, ny)
}

func (s *TransformSuite) TestPanAndZoomGates() {
	var panned, zoomed int
	require.NoError(s.T(), s.e.Configure(func(st *engine.Settings) {
		st.Pan.Veto = func(dx, dy float64) bool { panned++; return false }
		st.Zoom.Veto = func(f, px, py float64) bool { zoomed++; return f < 1 }
	}))

	tx, ty := s.e.Transform().Translation()
	require.NoError(s.T(), s.e.Pan(5, 5))
	nx, ny := s.e.Transform().Translation()
	s.Equal(tx, nx)
	s.Equal(ty, ny)
	s.Equal(1, panned)

	require.NoError(s.T(), s.e.ZoomAt(2, 0, 0))
	s.Equal(100.0, s.e.Transform().Scale())
	require.NoError(s.T(), s.e.ZoomAt(0.5, 0, 0))
	s.Equal(150.0, s.e.Transform().Scale())
	s.Equal(2, zoomed)

	require.NoError(s.T(), s.e.Configure(func(st *engine.Settings) {
		st.Pan.Enabled = false
		st.Zoom.Enabled = false
	}))
	require.NoError(s.T(), s.e.Pan(5, 5))
	require.NoError(s.T(), s.e.ZoomAt(0.5, 0, 0))
	s.Equal(1, panned, "disabled panning skips the veto")
	s.Equal(150.0, s.e.Transform().Scale())
}

func (s *TransformSuite) TestResetView() {
	require.NoError(s.T(), s.e.Pan(3, 4))
	require.NoError(s.T(), s.e.ZoomAt(-0.875, 10, 10))
	s.Equal(4.0, s.e.Settings().Gridlines.Major.Spacing)

	require.NoError(s.T(), s.e.ResetView())
	tr := s.e.Transform()
	s.Equal(100.0, tr.Scale())
	s.Equal(1.0, tr.ZoomCounter())
	tx, ty := tr.Translation()
	s.Equal(1.0, tx)
	s.Equal(1.0, ty)
	g := s.e.Settings().Gridlines
	s.Equal(1.0, g.Major.Spacing)
	s.Equal(0.2, g.Minor.Spacing)
}

func TestTransformSuite(t *testing.T) {
	suite.Run(t, new(TransformSuite))
}
