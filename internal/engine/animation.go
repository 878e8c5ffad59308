package engine

import "time"

// FrameScheduler arranges for cb to run once before the next display refresh.
type FrameScheduler func(cb func())

// FrameQueue is a cooperative FrameScheduler for hosts without a native one.
// The host calls Flush once per refresh. It is not safe for concurrent use.
type FrameQueue struct {
	pending []func()
}

// Request queues cb for the next Flush.
func (q *FrameQueue) Request(cb func()) {
	q.pending = append(q.pending, cb)
}

// Scheduler adapts the queue to a FrameScheduler.
func (q *FrameQueue) Scheduler() FrameScheduler { return q.Request }

// Flush runs the callbacks queued before the call and returns how many ran.
// Callbacks requested while flushing wait for the next Flush.
func (q *FrameQueue) Flush() int {
	batch := q.pending
	q.pending = nil
	for _, cb := range batch {
		cb()
	}
	return len(batch)
}

// Len returns the number of callbacks waiting for the next Flush.
func (q *FrameQueue) Len() int { return len(q.pending) }

// Animation is a running animation task. Methods must be called from the
// goroutine that drives the engine.
type Animation struct {
	e     *Engine
	cb    func(n float64) error
	n     float64
	end   float64
	speed float64
	then  time.Time

	frames  int
	stopped bool
	done    bool
	err     error
}

// RunAnimation calls cb(n) and redraws once per frame, with n starting at start
// and advancing by speed units per second of elapsed time. When n reaches end
// the task makes one last call cb(end), redraws and finishes, so the terminal
// frame is always drawn exactly at end.
//
// Each call owns its own loop state; several animations may run at once.
func (e *Engine) RunAnimation(cb func(n float64) error, start, end, speed float64) (*Animation, error) {
	if cb == nil {
		return nil, invalidf("animation callback is nil")
	}
	if !(speed > 0) {
		return nil, invalidf("animation speed must be positive, got %g", speed)
	}
	if e.scheduler == nil {
		return nil, invalidf("engine has no frame scheduler")
	}

	a := &Animation{
		e:     e,
		cb:    cb,
		n:     start,
		end:   end,
		speed: speed,
		then:  e.clock(),
	}
	e.logger.Debug("animation started", "start", start, "end", end, "speed", speed)
	e.scheduler(a.frame)
	return a, nil
}

func (a *Animation) frame() {
	if a.stopped || a.done {
		return
	}

	now := a.e.clock()
	a.n += a.speed * now.Sub(a.then).Seconds()
	a.then = now
	a.frames++

	if a.n < a.end {
		if err := a.step(a.n); err != nil {
			a.finish(err)
			return
		}
		a.e.scheduler(a.frame)
		return
	}

	a.finish(a.step(a.end))
}

func (a *Animation) step(n float64) error {
	if err := a.cb(n); err != nil {
		return err
	}
	return a.e.Redraw()
}

func (a *Animation) finish(err error) {
	a.done = true
	a.err = err
	if err != nil {
		a.e.logger.Warn("animation failed", "n", a.n, "frames", a.frames, "error", err)
		return
	}
	a.e.logger.Debug("animation finished", "end", a.end, "frames", a.frames)
}

// Stop ends the animation before its next frame. No terminal frame is drawn.
func (a *Animation) Stop() {
	if !a.done {
		a.stopped = true
	}
}

// Done reports whether the animation has drawn its terminal frame or failed.
func (a *Animation) Done() bool { return a.done }

// Stopped reports whether Stop ended the animation early.
func (a *Animation) Stopped() bool { return a.stopped }

// Err returns the error that ended the animation, if any.
func (a *Animation) Err() error { return a.err }

// Frames returns how many frames have run.
func (a *Animation) Frames() int { return a.frames }
