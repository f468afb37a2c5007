package arena

import (
	"context"
	"log"
	"time"
)

// StartWorkers launches the watchdog goroutine.
func (m *Manager) StartWorkers(ctx context.Context) {
	go m.StartWatchdog(ctx)
}

// aiSessionTTL drops abandoned computer games from memory.
const aiSessionTTL = time.Hour

// StartWatchdog runs the inactivity scan until ctx is done. One ticker covers
// every live session; the scan itself is in checkIdle so tests can drive it
// with synthetic clocks.
func (m *Manager) StartWatchdog(ctx context.Context) {
	interval := time.Duration(m.cfg.WatchdogPollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[ARENA] inactivity watchdog started (every %v)", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[ARENA] inactivity watchdog stopped")
			return
		case <-ticker.C:
			m.checkIdle(time.Now())
		}
	}
}

// checkIdle settles sessions whose turn clock ran out. Casual PvP is
// canceled; a bracket match becomes a technical loss for the player on turn.
// Expired sessions are collected under the read lock first, then each is
// re-checked under the write lock before settling, so a move that lands
// between the two passes wins.
func (m *Manager) checkIdle(now time.Time) {
	pvpLimit := time.Duration(m.cfg.PvPInactivitySeconds) * time.Second
	techLimit := time.Duration(m.cfg.TechLossSeconds) * time.Second

	m.mu.RLock()
	var expired []string
	var stale []string
	for id, s := range m.sessions {
		switch {
		case s.Mode == ModePvP && s.live():
			limit := pvpLimit
			if s.isTournament() {
				limit = techLimit
			}
			if now.Sub(s.LastMoveAt) >= limit {
				expired = append(expired, id)
			}
		case s.Mode == ModeAI && now.Sub(s.LastMoveAt) >= aiSessionTTL:
			stale = append(stale, id)
		case s.terminal() && now.Sub(s.LastMoveAt) >= aiSessionTTL:
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.mu.Lock()
		s, ok := m.sessions[id]
		if !ok || !s.live() {
			m.mu.Unlock()
			continue
		}
		limit := pvpLimit
		if s.isTournament() {
			limit = techLimit
		}
		if now.Sub(s.LastMoveAt) < limit {
			m.mu.Unlock()
			continue
		}

		if s.isTournament() {
			// The player on turn ran out the clock and forfeits.
			idle := s.playerOf(s.Turn)
			winnerMark := s.markOf(s.opponentOf(idle))
			m.finishLocked(s, winnerMark, ReasonTechLoss)
			log.Printf("[ARENA] tech loss in session %s: player %d idle", s.ID, idle)
		} else {
			m.cancelLocked(s, ReasonTimeout)
			log.Printf("[ARENA] session %s canceled after inactivity", s.ID)
		}
		cp := *s
		m.mu.Unlock()
		m.settle(&cp)
	}

	if len(stale) > 0 {
		m.mu.Lock()
		for _, id := range stale {
			s, ok := m.sessions[id]
			if !ok {
				continue
			}
			if s.live() {
				m.cancelLocked(s, ReasonTimeout)
			}
			delete(m.sessions, id)
		}
		m.mu.Unlock()
	}
}

// CheckIdleNow is the test hook for a single watchdog pass.
func (m *Manager) CheckIdleNow(now time.Time) {
	m.checkIdle(now)
}
