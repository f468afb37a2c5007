package arena

import (
	"testing"
	"time"
)

func TestWatchdogCancelsIdleCasualGame(t *testing.T) {
	m, ratings, _, notifier := newTestManager()
	defer m.Stop()
	s := startPvP(t, m)

	m.CheckIdleNow(time.Now().Add(61 * time.Second))

	out, err := m.GetSession(s.ID)
	if err != nil {
		t.Fatalf("session lookup failed: %v", err)
	}
	if out.Status != StatusCanceled || out.Reason != ReasonTimeout {
		t.Errorf("idle casual game should cancel, got status=%s reason=%s", out.Status, out.Reason)
	}
	if ratings.callCount() != 0 {
		t.Errorf("a canceled game must not move ratings")
	}
	if len(notifier.sent[1]) == 0 || len(notifier.sent[2]) == 0 {
		t.Errorf("both players should hear about the cancellation")
	}

	// Players are released.
	if _, err := m.RequestMatch(1, "xo", "X", 1000, false); err != nil {
		t.Errorf("players of a canceled game should be free: %v", err)
	}
}

func TestWatchdogSparesActiveGame(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()
	s := startPvP(t, m)

	m.CheckIdleNow(time.Now().Add(30 * time.Second))

	out, _ := m.GetSession(s.ID)
	if out.Status != StatusPlaying {
		t.Errorf("game under the threshold must keep running, got %s", out.Status)
	}
}

func TestWatchdogTechLossInTournament(t *testing.T) {
	m, ratings, hook, _ := newTestManager()
	defer m.Stop()

	s, err := m.StartTournamentMatch("xo", 1, 2, 100, 7)
	if err != nil {
		t.Fatalf("tournament match failed: %v", err)
	}

	// X is on turn and idles out; O's player takes the match.
	m.CheckIdleNow(time.Now().Add(61 * time.Second))

	out, _ := m.GetSession(s.ID)
	if out.Status != StatusFinished || out.Winner != "O" || out.Reason != ReasonTechLoss {
		t.Errorf("expected tech loss for X, got status=%s winner=%s reason=%s", out.Status, out.Winner, out.Reason)
	}
	if hook.callCount() != 1 || hook.calls[0].winnerID != 2 {
		t.Errorf("bracket should learn the tech-loss winner, calls=%+v", hook.calls)
	}
	if ratings.callCount() != 1 || ratings.calls[0].winner != 2 {
		t.Errorf("tech loss settles like a normal win, calls=%+v", ratings.calls)
	}
}

func TestWatchdogTechLossTracksTurn(t *testing.T) {
	m, _, hook, _ := newTestManager()
	defer m.Stop()

	s, _ := m.StartTournamentMatch("xo", 1, 2, 100, 7)
	if _, err := m.Move(s.ID, 1, 0); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	// Now O idles, so X's player wins.
	m.CheckIdleNow(time.Now().Add(61 * time.Second))

	out, _ := m.GetSession(s.ID)
	if out.Winner != "X" {
		t.Errorf("the player on turn forfeits, winner=%s", out.Winner)
	}
	if hook.callCount() != 1 || hook.calls[0].winnerID != 1 {
		t.Errorf("hook should carry X's player, calls=%+v", hook.calls)
	}
}

func TestWatchdogNeverSettlesTwice(t *testing.T) {
	m, ratings, hook, _ := newTestManager()
	defer m.Stop()

	m.StartTournamentMatch("xo", 1, 2, 100, 7)
	deadline := time.Now().Add(61 * time.Second)
	m.CheckIdleNow(deadline)
	m.CheckIdleNow(deadline.Add(5 * time.Second))
	m.CheckIdleNow(deadline.Add(10 * time.Second))

	if hook.callCount() != 1 {
		t.Errorf("repeat scans must not re-report, got %d calls", hook.callCount())
	}
	if ratings.callCount() != 1 {
		t.Errorf("repeat scans must not re-settle ratings, got %d calls", ratings.callCount())
	}
}

func TestWatchdogMoveResetsClock(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()
	s := startPvP(t, m)

	// A move lands; the old deadline no longer applies.
	if _, err := m.Move(s.ID, 1, 4); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	m.CheckIdleNow(time.Now().Add(59 * time.Second))

	out, _ := m.GetSession(s.ID)
	if out.Status != StatusPlaying {
		t.Errorf("fresh move should keep the game alive, got %s", out.Status)
	}
}

func TestWatchdogDropsStaleAISessions(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	s, _ := m.StartAISession(1, "xo", "X", "easy")
	m.CheckIdleNow(time.Now().Add(2 * time.Hour))

	if _, err := m.GetSession(s.ID); err == nil {
		t.Errorf("stale AI session should be dropped from memory")
	}
}
