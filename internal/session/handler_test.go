package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridplane/internal/auth"
	"github.com/gridplane/gridplane/internal/session"
)

type tokenResponse struct {
	Session session.Info `json:"session"`
	Token   string       `json:"token"`
	Viewer  auth.Viewer  `json:"viewer"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	hub := newHub(t, time.Hour)
	authService := auth.NewService("test-secret", time.Hour)
	h := session.NewHandler(hub, authService, nil)

	r := mux.NewRouter()
	r.HandleFunc("/api/samples", h.Samples).Methods("GET")
	r.HandleFunc("/api/sessions", h.Create).Methods("POST")
	r.HandleFunc("/api/sessions/{sessionId}/join", h.Join).Methods("POST")

	api := r.PathPrefix("/api/sessions/{sessionId}").Subrouter()
	api.Use(authService.AuthMiddleware)
	api.HandleFunc("", h.Get).Methods("GET")
	api.HandleFunc("", h.Delete).Methods("DELETE")
	api.HandleFunc("/frame", h.Frame).Methods("GET")
	api.HandleFunc("/snapshot.png", h.Snapshot).Methods("GET")

	ws := r.PathPrefix("/ws/session/{sessionId}").Subrouter()
	ws.Use(authService.AuthMiddleware)
	ws.HandleFunc("", h.WebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createSession(t *testing.T, srv *httptest.Server, sample string) tokenResponse {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/api/sessions", "", map[string]string{"sample": sample, "displayName": "Ada"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandlerCreateGetDelete(t *testing.T) {
	srv := newServer(t)
	owner := createSession(t, srv, "polygons")
	assert.Equal(t, auth.RoleOwner, owner.Viewer.Role)
	assert.Equal(t, "Ada", owner.Viewer.DisplayName)
	assert.Equal(t, 3, owner.Session.Objects)

	url := srv.URL + "/api/sessions/" + owner.Session.ID
	resp := do(t, http.MethodGet, url, owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, url+"/join", "", map[string]string{"displayName": "Bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var viewer tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&viewer))
	assert.Equal(t, auth.RoleViewer, viewer.Viewer.Role)

	resp = do(t, http.MethodDelete, url, viewer.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodDelete, url, owner.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, url, owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/sessions", "", map[string]string{"sample": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/sessions/sess_missing/join", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	a := createSession(t, srv, "")
	b := createSession(t, srv, "")
	resp = do(t, http.MethodGet, srv.URL+"/api/sessions/"+a.Session.ID, b.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/sessions/"+a.Session.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerSamples(t *testing.T) {
	srv := newServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/api/samples", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []struct {
		Name     string `json:"name"`
		Animated bool   `json:"animated"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.NotEmpty(t, list)
	for _, s := range list {
		if s.Name == "animation" {
			assert.True(t, s.Animated)
		}
	}
}

func TestHandlerFrameAndSnapshot(t *testing.T) {
	srv := newServer(t)
	owner := createSession(t, srv, "images")
	url := srv.URL + "/api/sessions/" + owner.Session.ID

	resp := do(t, http.MethodGet, url+"/frame", owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var frame session.FramePayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	assert.Equal(t, 2, frame.Objects)
	assert.NotEmpty(t, frame.Commands)

	resp = do(t, http.MethodGet, url+"/snapshot.png", owner.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestHandlerWebSocket(t *testing.T) {
	srv := newServer(t)
	owner := createSession(t, srv, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session/" + owner.Session.ID + "?token=" + owner.Token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func(typ string) session.Message {
		for {
			_, data, err := conn.Read(ctx)
			require.NoError(t, err)
			var msg session.Message
			require.NoError(t, json.Unmarshal(data, &msg))
			if msg.Type == typ {
				return msg
			}
		}
	}

	welcome := read(session.TypeWelcome)
	var w session.WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &w))
	assert.Equal(t, auth.RoleOwner, w.Role)

	msg, err := json.Marshal(session.Message{
		Type:    session.TypeObjectAdd,
		Payload: json.RawMessage(`{"object":{"kind":"line","point":{"x":0,"y":0},"direction":{"x":1,"y":1}}}`),
	})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, msg))

	read(session.TypeObjectAdded)
	for {
		frame := read(session.TypeFrame)
		var f session.FramePayload
		require.NoError(t, json.Unmarshal(frame.Payload, &f))
		if f.Objects == 1 {
			break
		}
	}
}
