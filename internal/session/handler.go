package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/gridplane/gridplane/internal/auth"
	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/raster"
	"github.com/gridplane/gridplane/internal/samples"
)

type Handler struct {
	hub     *Hub
	auth    *auth.Service
	origins []string
}

// NewHandler serves the session API. origins are the websocket origin
// patterns accepted besides the request's own host.
func NewHandler(hub *Hub, authService *auth.Service, origins []string) *Handler {
	return &Handler{hub: hub, auth: authService, origins: origins}
}

type createRequest struct {
	Sample      string `json:"sample"`
	DisplayName string `json:"displayName"`
}

type joinRequest struct {
	DisplayName string `json:"displayName"`
}

type tokenResponse struct {
	Session Info        `json:"session"`
	Token   string      `json:"token"`
	Viewer  auth.Viewer `json:"viewer"`
}

type sampleInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Animated    bool   `json:"animated"`
}

// Samples handles GET /api/samples.
func (h *Handler) Samples(w http.ResponseWriter, r *http.Request) {
	all := samples.All()
	out := make([]sampleInfo, 0, len(all))
	for _, s := range all {
		out = append(out, sampleInfo{Name: s.Name, Title: s.Title, Description: s.Description, Animated: s.Loop})
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/sessions and returns an owner token.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if req.Sample != "" {
		if _, err := samples.Lookup(req.Sample); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	s, err := h.hub.Create(r.Context(), req.Sample)
	if err != nil {
		slog.Error("create session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	h.issue(w, r, s, req.DisplayName, auth.RoleOwner, http.StatusCreated)
}

// Join handles POST /api/sessions/{sessionId}/join and returns a viewer token.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	s, err := h.hub.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		handleError(w, err)
		return
	}

	var req joinRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	h.issue(w, r, s, req.DisplayName, auth.RoleViewer, http.StatusOK)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, s *Session, name, role string, status int) {
	if name == "" {
		name = "Anonymous"
	}
	tok, err := h.auth.Issue(s.ID, name, role)
	if err != nil {
		slog.Error("issue token failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	info, err := s.Info(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, status, tokenResponse{Session: info, Token: tok.Token, Viewer: tok.Viewer})
}

// session resolves the path's session and checks the caller's token belongs to it.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, *auth.Viewer, bool) {
	id := mux.Vars(r)["sessionId"]
	viewer := auth.ViewerFromContext(r.Context())
	if viewer == nil || viewer.SessionID != id {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "token is not for this session"})
		return nil, nil, false
	}
	s, err := h.hub.Get(id)
	if err != nil {
		handleError(w, err)
		return nil, nil, false
	}
	return s, viewer, true
}

// Get handles GET /api/sessions/{sessionId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	info, err := s.Info(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /api/sessions/{sessionId}. Owners only.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	s, viewer, ok := h.session(w, r)
	if !ok {
		return
	}
	if !viewer.CanEdit() {
		handleError(w, auth.ErrForbidden)
		return
	}
	if err := h.hub.Delete(s.ID); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Frame handles GET /api/sessions/{sessionId}/frame.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	f, err := s.Frame(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Snapshot handles GET /api/sessions/{sessionId}/snapshot.png by replaying the
// current frame onto a raster target.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	f, err := s.Frame(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	target, err := raster.New(int(f.Width), int(f.Height))
	if err != nil {
		slog.Error("create raster target", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	defer target.Close()

	if err := engine.Replay(target, f.Commands, h.hub.cfg.Pictures); err != nil {
		slog.Error("replay frame", "session", s.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	var buf bytes.Buffer
	if err := target.EncodePNG(&buf); err != nil {
		slog.Error("encode snapshot", "session", s.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// WebSocket handles GET /ws/session/{sessionId}?token=...
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	s, viewer, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(s, conn, *viewer, uuid.New().String())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrClosed):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, auth.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	default:
		slog.Error("session request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
