package arena

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// SessionChannel is the pub/sub channel carrying one session's events.
func SessionChannel(sessionID string) string {
	return "session_events:" + sessionID
}

// publishEvent pushes a session state change to its redis channel so the
// websocket layer can fan it out. Best effort; a nil client is a no-op.
func (m *Manager) publishEvent(s *Session, eventType string) {
	if m.rdb == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"session": s,
	})
	if err != nil {
		log.Printf("[ARENA] event marshal failed for session %s: %v", s.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.rdb.Publish(ctx, SessionChannel(s.ID), payload).Err(); err != nil {
		log.Printf("[ARENA] event publish failed for session %s: %v", s.ID, err)
	}
}

// snapshot caches the session state in redis for recovery and inspection.
func (m *Manager) snapshot(s *Session) {
	if m.rdb == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		log.Printf("[ARENA] snapshot marshal failed for session %s: %v", s.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := fmt.Sprintf("session:%s", s.ID)
	if err := m.rdb.Set(ctx, key, data, 24*time.Hour).Err(); err != nil {
		log.Printf("[ARENA] snapshot save failed for session %s: %v", s.ID, err)
	}
}
