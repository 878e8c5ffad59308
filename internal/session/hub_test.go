package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridplane/internal/auth"
	"github.com/gridplane/gridplane/internal/session"
	"github.com/gridplane/gridplane/internal/typeid"
)

func newHub(t *testing.T, ttl time.Duration) *session.Hub {
	t.Helper()
	hub := session.NewHub(testConfig(), ttl)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Stop()
	})
	return hub
}

func TestHubLifecycle(t *testing.T) {
	hub := newHub(t, time.Hour)

	s, err := hub.Create(context.Background(), "polygons")
	require.NoError(t, err)
	require.NoError(t, typeid.Validate(s.ID, typeid.PrefixSession))
	assert.Equal(t, 1, hub.Len())

	got, err := hub.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	info, err := s.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "polygons", info.Sample)
	assert.Equal(t, 3, info.Objects)

	require.NoError(t, hub.Delete(s.ID))
	<-s.Done()
	_, err = hub.Get(s.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
	require.ErrorIs(t, hub.Delete(s.ID), session.ErrNotFound)
}

func TestHubRejectsUnknownSample(t *testing.T) {
	hub := newHub(t, time.Hour)
	_, err := hub.Create(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, 0, hub.Len())
}

func TestHubReapsIdleSessions(t *testing.T) {
	hub := newHub(t, time.Minute)

	idle, err := hub.Create(context.Background(), "")
	require.NoError(t, err)
	watched, err := hub.Create(context.Background(), "")
	require.NoError(t, err)
	join(t, watched, "a", auth.RoleViewer)

	assert.Equal(t, 0, hub.Reap(time.Now()))
	assert.Equal(t, 1, hub.Reap(time.Now().Add(2*time.Minute)))
	<-idle.Done()

	_, err = hub.Get(idle.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = hub.Get(watched.ID)
	require.NoError(t, err)
}

func TestHubRegisterJoinsSession(t *testing.T) {
	hub := newHub(t, time.Hour)
	s, err := hub.Create(context.Background(), "")
	require.NoError(t, err)

	c := session.NewClient(s, nil, auth.Viewer{ID: "v", SessionID: s.ID, Role: auth.RoleViewer}, "c1")
	hub.Register(c)
	next(t, c, session.TypeWelcome)
	assert.Equal(t, 1, s.Viewers())
}
