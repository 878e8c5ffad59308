package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridplane/internal/engine"
)

// fakeClock advances only when told to.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newAnimatedEngine(t *testing.T) (*engine.Engine, *engine.FrameQueue, *fakeClock) {
	t.Helper()
	q := &engine.FrameQueue{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	e, _ := newEngine(t, engine.WithScheduler(q.Scheduler()), engine.WithClock(clock.Now))
	return e, q, clock
}

// drive flushes frames every step until a finishes, failing after limit frames.
func drive(t *testing.T, a *engine.Animation, q *engine.FrameQueue, clock *fakeClock, step time.Duration, limit int) {
	t.Helper()
	for i := 0; i < limit && !a.Done(); i++ {
		clock.Advance(step)
		q.Flush()
	}
	require.True(t, a.Done(), "animation did not finish")
}

func TestAnimationEndsExactlyAtEnd(t *testing.T) {
	e, q, clock := newAnimatedEngine(t)

	var calls []float64
	a, err := e.RunAnimation(func(n float64) error {
		calls = append(calls, n)
		return nil
	}, 0, 10, 10)
	require.NoError(t, err)
	require.Empty(t, calls, "nothing runs before the first frame")

	drive(t, a, q, clock, 300*time.Millisecond, 100)

	require.Len(t, calls, 4)
	require.InDelta(t, 3, calls[0], 1e-9)
	require.InDelta(t, 9, calls[2], 1e-9)
	require.Equal(t, 10.0, calls[len(calls)-1])
	require.NoError(t, a.Err())
	require.Zero(t, q.Len(), "no frame is scheduled after the terminal one")
}

func TestAnimationLandingOnEndRunsTerminalFrameOnce(t *testing.T) {
	e, q, clock := newAnimatedEngine(t)

	var calls []float64
	a, err := e.RunAnimation(func(n float64) error {
		calls = append(calls, n)
		return nil
	}, 0, 10, 10)
	require.NoError(t, err)

	drive(t, a, q, clock, time.Second, 10)
	require.Equal(t, []float64{10}, calls)
	require.Equal(t, 1, a.Frames())
}

func TestAnimationRedrawsEachFrame(t *testing.T) {
	e, q, clock := newAnimatedEngine(t)
	before := e.Redraws()

	a, err := e.RunAnimation(func(float64) error { return nil }, 0, 1, 1)
	require.NoError(t, err)
	drive(t, a, q, clock, 250*time.Millisecond, 10)

	require.Equal(t, before+uint64(a.Frames()), e.Redraws())
}

func TestAnimationsRunIndependently(t *testing.T) {
	e, q, clock := newAnimatedEngine(t)

	var slow, fast []float64
	a, err := e.RunAnimation(func(n float64) error { slow = append(slow, n); return nil }, 0, 1, 1)
	require.NoError(t, err)
	b, err := e.RunAnimation(func(n float64) error { fast = append(fast, n); return nil }, 0, 1, 4)
	require.NoError(t, err)

	drive(t, a, q, clock, 125*time.Millisecond, 20)
	require.True(t, b.Done())
	require.Len(t, slow, 8)
	require.Len(t, fast, 2)
	require.Equal(t, 1.0, slow[len(slow)-1])
	require.Equal(t, 1.0, fast[len(fast)-1])
}

func TestAnimationStop(t *testing.T) {
	e, q, clock := newAnimatedEngine(t)

	var calls int
	a, err := e.RunAnimation(func(float64) error { calls++; return nil }, 0, 10, 1)
	require.NoError(t, err)

	clock.Advance(time.Second)
	q.Flush()
	a.Stop()
	clock.Advance(time.Second)
	q.Flush()

	require.Equal(t, 1, calls)
	require.True(t, a.Stopped())
	require.False(t, a.Done())
	require.Zero(t, q.Len())
}

func TestAnimationCallbackError(t *testing.T) {
	e, q, clock := newAnimatedEngine(t)
	boom := errors.New("boom")

	a, err := e.RunAnimation(func(n float64) error {
		if n > 2 {
			return boom
		}
		return nil
	}, 0, 10, 1)
	require.NoError(t, err)

	drive(t, a, q, clock, time.Second, 10)
	require.ErrorIs(t, a.Err(), boom)
	require.Equal(t, 3, a.Frames())
}

func TestRunAnimationValidation(t *testing.T) {
	e, _, _ := newAnimatedEngine(t)
	noop := func(float64) error { return nil }

	_, err := e.RunAnimation(noop, 0, 1, 0)
	require.ErrorIs(t, err, engine.ErrInvalidArgument)
	_, err = e.RunAnimation(nil, 0, 1, 1)
	require.ErrorIs(t, err, engine.ErrInvalidArgument)

	bare, _ := newEngine(t)
	_, err = bare.RunAnimation(noop, 0, 1, 1)
	require.ErrorIs(t, err, engine.ErrInvalidArgument)
}

func TestFrameQueueDefersNestedRequests(t *testing.T) {
	var q engine.FrameQueue
	var order []int
	q.Request(func() {
		order = append(order, 1)
		q.Request(func() { order = append(order, 3) })
	})
	q.Request(func() { order = append(order, 2) })

	require.Equal(t, 2, q.Flush())
	require.Equal(t, []int{1, 2}, order)
	require.Equal(t, 1, q.Flush())
	require.Equal(t, []int{1, 2, 3}, order)
	require.Zero(t, q.Flush())
}
