package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gridplane/gridplane/internal/typeid"
)

const (
	reapInterval = time.Minute
	joinTimeout  = 5 * time.Second
)

// Hub owns every live session and expires the ones nobody uses.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	ttl      time.Duration

	register chan *Client

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub whose sessions use cfg. Sessions with no viewers that
// have been idle longer than ttl are closed by Run.
func NewHub(cfg Config, ttl time.Duration) *Hub {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		ttl:      ttl,
		register: make(chan *Client),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run attaches registered clients and reaps idle sessions until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.join(ctx, client)
		case <-ticker.C:
			h.Reap(h.cfg.Clock())
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		}
	}
}

// join attaches client, giving up after joinTimeout so one busy session cannot
// hold up joins to the others.
func (h *Hub) join(ctx context.Context, client *Client) {
	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	if err := client.session.Join(ctx, client); err != nil {
		slog.Warn("join session", "session", client.session.ID, "error", err)
		client.drop()
	}
}

// Register hands a connected client to Run for joining its session.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		client.drop()
	}
}

// Create starts a new session, optionally loading a sample into it.
func (h *Hub) Create(ctx context.Context, sample string) (*Session, error) {
	s, err := New(typeid.NewSessionID(), h.cfg)
	if err != nil {
		return nil, err
	}
	go s.Run(h.ctx)

	if sample != "" {
		if err := s.Load(ctx, sample); err != nil {
			s.Close()
			return nil, fmt.Errorf("load sample: %w", err)
		}
	}

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	slog.Info("session created", "session", s.ID, "sample", sample)
	return s, nil
}

func (h *Hub) Get(id string) (*Session, error) {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete closes a session and forgets it.
func (h *Hub) Delete(id string) error {
	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Close()
	slog.Info("session deleted", "session", id)
	return nil
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Reap closes sessions without viewers that have idled past the ttl and
// returns how many were closed.
func (h *Hub) Reap(now time.Time) int {
	if h.ttl <= 0 {
		return 0
	}

	h.mu.Lock()
	var expired []*Session
	for id, s := range h.sessions {
		if s.Viewers() == 0 && s.Idle(now) > h.ttl {
			expired = append(expired, s)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, s := range expired {
		s.Close()
		slog.Info("session expired", "session", s.ID)
	}
	return len(expired)
}

// Stop closes every session and waits for them to finish.
func (h *Hub) Stop() {
	h.mu.Lock()
	all := make([]*Session, 0, len(h.sessions))
	for id, s := range h.sessions {
		all = append(all, s)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	h.cancel()
	for _, s := range all {
		<-s.Done()
	}
}
