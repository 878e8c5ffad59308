package session

import (
	"encoding/json"
	"log/slog"

	"github.com/gridplane/gridplane/internal/engine"
	"github.com/gridplane/gridplane/internal/scene"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	ViewerID  string          `json:"viewerId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Pointer input, in canvas pixels
	TypePointerDown  = "input.pointerDown"
	TypePointerMove  = "input.pointerMove"
	TypePointerUp    = "input.pointerUp"
	TypePointerLeave = "input.pointerLeave"
	TypeWheel        = "input.wheel"

	// View
	TypeViewPan   = "view.pan"
	TypeViewZoom  = "view.zoom"
	TypeViewReset = "view.reset"

	// Scene edits, owner only
	TypeObjectAdd    = "object.add"
	TypeObjectAdded  = "object.added"
	TypeObjectRemove = "object.remove"
	TypeObjectSetZ   = "object.setZ"
	TypeObjectClear  = "object.clear"
	TypeSceneLoad    = "scene.load"
	TypeAnimStop     = "animation.stop"

	TypeFrame = "frame"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"

	TypeError   = "error"
	TypeWelcome = "welcome"
)

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type WheelPayload struct {
	Delta float64 `json:"delta"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type PanPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type ZoomPayload struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type ObjectAddPayload struct {
	Object scene.ObjectSpec `json:"object"`
}

type ObjectAddedPayload struct {
	ID engine.ID `json:"id"`
}

type ObjectRefPayload struct {
	ID engine.ID `json:"id"`
	Z  int       `json:"z,omitempty"`
}

type SceneLoadPayload struct {
	Sample string `json:"sample"`
}

type FramePayload struct {
	Redraw   uint64               `json:"redraw"`
	Width    float64              `json:"width"`
	Height   float64              `json:"height"`
	Objects  int                  `json:"objects"`
	Commands []engine.DrawCommand `json:"commands"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is a pointer position in real plane coordinates.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ViewerID    string `json:"viewerId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ViewerID string `json:"viewerId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	// Ref is the type of the message that failed.
	Ref string `json:"ref,omitempty"`
}

type WelcomePayload struct {
	ClientID string   `json:"clientId"`
	Role     string   `json:"role"`
	Info     Info     `json:"session"`
	Samples  []string `json:"samples"`
}

// newMessage encodes payload into a message of type typ. A payload that cannot
// be encoded is logged and replaced by an error message referring to typ.
func newMessage(typ string, payload any) *Message {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal message", "type", typ, "error", err)
		raw, _ = json.Marshal(ErrorPayload{Message: "encode " + typ + ": " + err.Error(), Ref: typ})
		return &Message{Type: TypeError, Payload: raw}
	}
	return &Message{Type: typ, Payload: raw}
}

func errorMessage(ref string, err error) *Message {
	return newMessage(TypeError, ErrorPayload{Message: err.Error(), Ref: ref})
}
