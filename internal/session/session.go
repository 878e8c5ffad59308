// Package session runs live, shared engine sessions. Each session owns one
// engine on a dedicated goroutine; viewers drive it over websocket messages and
// receive every redraw as a frame of draw commands.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridplane/gridplane/internal/auth"
	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/samples"
	"github.com/gridplane/gridplane/internal/scene"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
)

const inboxSize = 64

// Config describes the engine every session starts with.
type Config struct {
	Width, Height int
	FrameRate     int
	Delta         float64

	// SamplePicture is shown by the images sample.
	SamplePicture engine.Picture
	// Pictures resolves asset ids for image objects.
	Pictures func(id string) engine.Picture

	Logger *slog.Logger
	Clock  func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = 800
	}
	if c.Height <= 0 {
		c.Height = 600
	}
	if c.FrameRate <= 0 {
		c.FrameRate = 30
	}
	if c.Delta <= 0 {
		c.Delta = engine.DefaultSettings().Delta
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID        string    `json:"id"`
	Sample    string    `json:"sample,omitempty"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Objects   int       `json:"objects"`
	Viewers   int       `json:"viewers"`
	Redraws   uint64    `json:"redraws"`
	Animating bool      `json:"animating"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is a live engine shared by its viewers. The engine and everything
// below it is touched only by the goroutine running Run.
type Session struct {
	ID        string
	CreatedAt time.Time

	cfg    Config
	logger *slog.Logger

	engine   *engine.Engine
	recorder *engine.Recorder
	queue    engine.FrameQueue

	sample    samples.Sample
	animation *engine.Animation

	clients  map[string]*Client
	inputs   map[string]*engine.Input
	presence *PresenceManager

	lastRedraw uint64
	seq        int64

	inbox    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	viewers    atomic.Int32
	lastActive atomic.Int64
}

// New creates a session showing an empty plane. Call Run to start it.
func New(id string, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	s := &Session{
		ID:       id,
		cfg:      cfg,
		logger:   cfg.Logger.With("session", id),
		recorder: engine.NewRecorder(float64(cfg.Width), float64(cfg.Height)),
		clients:  make(map[string]*Client),
		inputs:   make(map[string]*engine.Input),
		presence: NewPresenceManager(),
		inbox:    make(chan func(), inboxSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.CreatedAt = cfg.Clock()
	s.touch()

	e, err := engine.New(s.recorder,
		engine.WithDelta(cfg.Delta),
		engine.WithScheduler(s.queue.Scheduler()),
		engine.WithClock(cfg.Clock),
		engine.WithLogger(s.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	s.engine = e
	return s, nil
}

// Run drives the session until ctx ends or Close is called. Queued animation
// frames run once per tick; a frame message goes out whenever the scene was
// redrawn since the last tick.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FrameRate))
	defer func() {
		ticker.Stop()
		s.shutdown()
	}()

	for {
		select {
		case fn := <-s.inbox:
			s.run(fn)
		case <-ticker.C:
			s.run(s.tick)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// run calls fn, closing the session instead of crashing the process if fn
// panics.
func (s *Session) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session task panicked, closing session", "panic", r)
			s.Close()
		}
	}()
	fn()
}

// Close stops the session. Connected clients are disconnected.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) shutdown() {
	if s.animation != nil {
		s.animation.Stop()
	}
	for id, c := range s.clients {
		c.closeSend()
		delete(s.clients, id)
	}
	s.viewers.Store(0)
	close(s.done)
	s.logger.Info("session stopped")
}

func (s *Session) tick() {
	if s.queue.Len() > 0 {
		s.queue.Flush()
	}

	if a := s.animation; a != nil && a.Done() {
		s.animation = nil
		switch {
		case a.Err() != nil:
			s.logger.Warn("animation failed", "sample", s.sample.Name, "error", a.Err())
		case s.sample.Loop && !a.Stopped():
			if err := s.install(s.sample); err != nil {
				s.logger.Warn("restart sample", "sample", s.sample.Name, "error", err)
			}
		}
	}

	if r := s.engine.Redraws(); r != s.lastRedraw {
		s.lastRedraw = r
		s.broadcast(s.frameMessage(), "")
	}
}

func (s *Session) touch() { s.lastActive.Store(s.cfg.Clock().UnixNano()) }

// Idle reports how long the session has gone without activity.
func (s *Session) Idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastActive.Load()))
}

// Viewers returns the number of connected clients.
func (s *Session) Viewers() int { return int(s.viewers.Load()) }

// enqueue hands task to the session goroutine without waiting for it.
func (s *Session) enqueue(ctx context.Context, task func()) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- task:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the session goroutine and returns its result. The result
// travels over a channel owned by the task, so a caller that gives up early
// shares no memory with a task that runs later.
func call[T any](ctx context.Context, s *Session, fn func() T) (T, error) {
	var zero T
	result := make(chan T, 1)
	if err := s.enqueue(ctx, func() { result <- fn() }); err != nil {
		return zero, err
	}
	select {
	case v := <-result:
		return v, nil
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// do runs fn on the session goroutine and waits for it.
func (s *Session) do(ctx context.Context, fn func()) error {
	_, err := call(ctx, s, func() struct{} {
		fn()
		return struct{}{}
	})
	return err
}

// Info summarises the session.
func (s *Session) Info(ctx context.Context) (Info, error) {
	return call(ctx, s, s.info)
}

func (s *Session) info() Info {
	w, h := s.recorder.Size()
	return Info{
		ID:        s.ID,
		Sample:    s.sample.Name,
		Width:     w,
		Height:    h,
		Objects:   s.engine.Len(),
		Viewers:   len(s.clients),
		Redraws:   s.engine.Redraws(),
		Animating: s.animation != nil,
		CreatedAt: s.CreatedAt,
	}
}

// Frame returns the most recently drawn frame.
func (s *Session) Frame(ctx context.Context) (FramePayload, error) {
	return call(ctx, s, s.frame)
}

func (s *Session) frame() FramePayload {
	w, h := s.recorder.Size()
	return FramePayload{
		Redraw:   s.engine.Redraws(),
		Width:    w,
		Height:   h,
		Objects:  s.engine.Len(),
		Commands: s.recorder.Commands(),
	}
}

func (s *Session) frameMessage() *Message {
	return newMessage(TypeFrame, s.frame())
}

// Load replaces the scene with the named sample.
func (s *Session) Load(ctx context.Context, name string) error {
	smp, err := samples.Lookup(name)
	if err != nil {
		return err
	}
	loadErr, err := call(ctx, s, func() error { return s.install(smp) })
	if err != nil {
		return err
	}
	return loadErr
}

func (s *Session) install(smp samples.Sample) error {
	if s.animation != nil {
		s.animation.Stop()
		s.animation = nil
	}
	a, err := smp.Install(s.engine, samples.Options{Picture: s.cfg.SamplePicture})
	s.sample = smp
	s.animation = a
	if err != nil {
		return err
	}
	s.logger.Debug("sample installed", "sample", smp.Name)
	return nil
}

// Edit runs fn against the engine on the session goroutine.
func (s *Session) Edit(ctx context.Context, fn func(e *engine.Engine) error) error {
	editErr, err := call(ctx, s, func() error { return fn(s.engine) })
	if err != nil {
		return err
	}
	s.touch()
	return editErr
}

// Join attaches c to the session and greets it with the session state and the
// current frame.
func (s *Session) Join(ctx context.Context, c *Client) error {
	return s.do(ctx, func() { s.join(c) })
}

func (s *Session) join(c *Client) {
	s.clients[c.ClientID] = c
	s.inputs[c.ClientID] = engine.NewInput(s.engine)
	s.viewers.Store(int32(len(s.clients)))
	s.touch()

	names := make([]string, 0)
	for _, smp := range samples.All() {
		names = append(names, smp.Name)
	}
	c.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID: c.ClientID,
		Role:     c.Viewer.Role,
		Info:     s.info(),
		Samples:  names,
	}))
	if msg := s.presence.StateMessage(); msg != nil {
		c.Send(msg)
	}
	c.Send(s.frameMessage())

	join := newMessage(TypePresenceJoin, PresenceJoinPayload{
		ViewerID:    c.Viewer.ID,
		DisplayName: c.Viewer.DisplayName,
	})
	join.ViewerID = c.Viewer.ID
	s.broadcast(join, c.ClientID)

	s.logger.Info("viewer joined", "viewer", c.Viewer.ID, "client", c.ClientID)
}

// Leave detaches c. It is safe to call after the session stopped.
func (s *Session) Leave(c *Client) {
	_ = s.do(context.Background(), func() { s.leave(c) })
}

func (s *Session) leave(c *Client) {
	if _, ok := s.clients[c.ClientID]; !ok {
		return
	}
	delete(s.clients, c.ClientID)
	delete(s.inputs, c.ClientID)
	c.closeSend()
	s.viewers.Store(int32(len(s.clients)))
	s.presence.Remove(c.Viewer.ID)
	s.touch()

	leave := newMessage(TypePresenceLeave, PresenceLeavePayload{ViewerID: c.Viewer.ID})
	leave.ViewerID = c.Viewer.ID
	s.broadcast(leave, "")

	s.logger.Info("viewer left", "viewer", c.Viewer.ID, "client", c.ClientID)
}

// Receive queues msg from c for handling. It reports false once the session
// has stopped.
func (s *Session) Receive(c *Client, msg *Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- func() { s.handle(c, msg) }:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) broadcast(msg *Message, excludeClientID string) {
	s.seq++
	msg.Seq = s.seq
	msg.SessionID = s.ID
	for id, c := range s.clients {
		if id != excludeClientID {
			c.Send(msg)
		}
	}
}

var ownerOnly = map[string]bool{
	TypeObjectAdd:    true,
	TypeObjectRemove: true,
	TypeObjectSetZ:   true,
	TypeObjectClear:  true,
	TypeSceneLoad:    true,
	TypeAnimStop:     true,
}

func (s *Session) handle(c *Client, msg *Message) {
	if _, ok := s.clients[c.ClientID]; !ok {
		return
	}
	s.touch()

	if ownerOnly[msg.Type] && !c.Viewer.CanEdit() {
		c.Send(errorMessage(msg.Type, auth.ErrForbidden))
		return
	}

	reply, err := s.apply(c, msg)
	if err != nil {
		s.logger.Debug("message rejected", "type", msg.Type, "viewer", c.Viewer.ID, "error", err)
		c.Send(errorMessage(msg.Type, err))
		return
	}
	if reply != nil {
		reply.Seq = msg.Seq
		c.Send(reply)
	}
}

func decode[T any](msg *Message) (T, error) {
	var v T
	if len(msg.Payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: %s payload: %v", engine.ErrInvalidArgument, msg.Type, err)
	}
	return v, nil
}

func (s *Session) apply(c *Client, msg *Message) (*Message, error) {
	in := s.inputs[c.ClientID]
	e := s.engine

	switch msg.Type {
	case TypePointerDown:
		p, err := decode[PointerPayload](msg)
		if err != nil {
			return nil, err
		}
		in.PointerDown(p.X, p.Y)
		return nil, nil

	case TypePointerMove:
		p, err := decode[PointerPayload](msg)
		if err != nil {
			return nil, err
		}
		if err := in.PointerMove(p.X, p.Y); err != nil {
			return nil, err
		}
		x, y := e.Transform().ToReal(p.X, p.Y)
		s.updatePresence(c, &PresencePayload{Cursor: &CursorPos{X: x, Y: y}})
		return nil, nil

	case TypePointerUp:
		in.PointerUp()
		return nil, nil

	case TypePointerLeave:
		in.PointerLeave()
		return nil, nil

	case TypeWheel:
		p, err := decode[WheelPayload](msg)
		if err != nil {
			return nil, err
		}
		return nil, in.WheelAt(p.Delta, p.X, p.Y)

	case TypeViewPan:
		p, err := decode[PanPayload](msg)
		if err != nil {
			return nil, err
		}
		return nil, e.Pan(p.DX, p.DY)

	case TypeViewZoom:
		p, err := decode[ZoomPayload](msg)
		if err != nil {
			return nil, err
		}
		return nil, e.ZoomAt(p.Factor, p.X, p.Y)

	case TypeViewReset:
		return nil, e.ResetView()

	case TypeObjectAdd:
		p, err := decode[ObjectAddPayload](msg)
		if err != nil {
			return nil, err
		}
		id, err := scene.Add(e, p.Object, s.cfg.Pictures)
		var renderErr *engine.RenderError
		if err != nil && !errors.As(err, &renderErr) {
			return nil, err
		}
		reply := newMessage(TypeObjectAdded, ObjectAddedPayload{ID: id})
		if err != nil {
			// The object is stored even though it could not be drawn.
			c.Send(errorMessage(msg.Type, err))
		}
		return reply, nil

	case TypeObjectRemove:
		p, err := decode[ObjectRefPayload](msg)
		if err != nil {
			return nil, err
		}
		if err := e.Remove(p.ID); err != nil {
			return nil, err
		}
		return nil, e.Redraw()

	case TypeObjectSetZ:
		p, err := decode[ObjectRefPayload](msg)
		if err != nil {
			return nil, err
		}
		return nil, e.SetZ(p.ID, p.Z)

	case TypeObjectClear:
		s.stopAnimation()
		e.RemoveAll()
		return nil, e.Redraw()

	case TypeSceneLoad:
		p, err := decode[SceneLoadPayload](msg)
		if err != nil {
			return nil, err
		}
		smp, err := samples.Lookup(p.Sample)
		if err != nil {
			return nil, err
		}
		return nil, s.install(smp)

	case TypeAnimStop:
		s.stopAnimation()
		return nil, nil

	case TypePresenceUpdate:
		p, err := decode[PresencePayload](msg)
		if err != nil {
			return nil, err
		}
		s.updatePresence(c, &p)
		return nil, nil
	}

	return nil, fmt.Errorf("%w: unknown message type %q", engine.ErrInvalidArgument, msg.Type)
}

func (s *Session) stopAnimation() {
	if s.animation != nil {
		s.animation.Stop()
		s.animation = nil
	}
}

func (s *Session) updatePresence(c *Client, p *PresencePayload) {
	p.DisplayName = c.Viewer.DisplayName
	s.presence.Update(c.Viewer.ID, p)

	out := newMessage(TypePresenceUpdate, p)
	out.ViewerID = c.Viewer.ID
	s.broadcast(out, c.ClientID)
}
