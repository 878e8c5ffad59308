package session

import (
	"log/slog"
	"maps"
	"sync"
)

// PresenceManager tracks each viewer's cursor in a session.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // viewerID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(viewerID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[viewerID] = p
}

func (pm *PresenceManager) Remove(viewerID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, viewerID)
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return maps.Clone(pm.presences)
}

func (pm *PresenceManager) StateMessage() *Message {
	msg := newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
	if msg.Payload == nil {
		slog.Error("marshal presence state")
		return nil
	}
	return msg
}
