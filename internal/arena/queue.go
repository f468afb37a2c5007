package arena

import (
	"fmt"
	"sort"
	"time"
)

// queueKey addresses one of the four queues per game: side preference
// crossed with VIP status.
type queueKey struct {
	game string
	side string
	vip  bool
}

// QueueEntry is one waiting seeker.
type QueueEntry struct {
	UserID     int64     `json:"user_id"`
	Game       string    `json:"game"`
	Side       string    `json:"side"`
	VIP        bool      `json:"vip"`
	Rating     int       `json:"rating"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// popBestLocked removes and returns the entry with the smallest rating
// distance to the seeker. Ties go to the earlier entry, so long waiters are
// not starved by equally close newcomers. Caller holds m.mu.
func (m *Manager) popBestLocked(key queueKey, seekerRating int) *QueueEntry {
	q := m.queues[key]
	if len(q) == 0 {
		return nil
	}
	bestIdx := 0
	bestDiff := absInt(q[0].Rating - seekerRating)
	for i := 1; i < len(q); i++ {
		if d := absInt(q[i].Rating - seekerRating); d < bestDiff {
			bestIdx, bestDiff = i, d
		}
	}
	entry := q[bestIdx]
	m.queues[key] = append(q[:bestIdx], q[bestIdx+1:]...)
	delete(m.inQueue, entry.UserID)
	return entry
}

// removeFromQueueLocked drops a user's queue entry if present. Caller holds m.mu.
func (m *Manager) removeFromQueueLocked(userID int64) bool {
	entry, ok := m.inQueue[userID]
	if !ok {
		return false
	}
	key := queueKey{game: entry.Game, side: entry.Side, vip: entry.VIP}
	q := m.queues[key]
	for i, e := range q {
		if e.UserID == userID {
			m.queues[key] = append(q[:i], q[i+1:]...)
			break
		}
	}
	delete(m.inQueue, userID)
	return true
}

// searchOrder returns the opposite-side queues to scan for a seeker, own tier
// first: VIP seekers scan the VIP queue before the regular one, regular
// seekers the other way around.
func searchOrder(game, side string, vip bool) [2]queueKey {
	opp := "X"
	if side == "X" {
		opp = "O"
	}
	if vip {
		return [2]queueKey{{game, opp, true}, {game, opp, false}}
	}
	return [2]queueKey{{game, opp, false}, {game, opp, true}}
}

// LobbySnapshot lists every queued seeker across all queues for a game,
// ordered by enqueue time.
func (m *Manager) LobbySnapshot(gameName string) []QueueEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []QueueEntry
	for key, q := range m.queues {
		if key.game != gameName {
			continue
		}
		for _, e := range q {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out
}

// Challenge starts a PvP session directly against a queued seeker, skipping
// rating-based selection. The challenger takes the side opposite the target's
// preference; both leave the queues and their fallback timers are disarmed.
func (m *Manager) Challenge(challengerID, targetID int64) (*Session, error) {
	if challengerID == targetID {
		return nil, fmt.Errorf("%w: cannot challenge yourself", ErrValidation)
	}

	m.mu.Lock()
	if sid, ok := m.userSession[challengerID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: already in session %s", ErrValidation, sid)
	}
	target, ok := m.inQueue[targetID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: player %d is no longer waiting", ErrNotFound, targetID)
	}

	m.removeFromQueueLocked(targetID)
	m.removeFromQueueLocked(challengerID)
	m.timers.Cancel(fallbackHandle(targetID))
	m.timers.Cancel(fallbackHandle(challengerID))

	var x, o int64
	if target.Side == "X" {
		x, o = targetID, challengerID
	} else {
		x, o = challengerID, targetID
	}
	s := m.createPvPSessionLocked(target.Game, x, o, 0, 0)
	m.mu.Unlock()

	m.afterSessionStart(s)
	return s, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
