package arena

import (
	"errors"
	"testing"
)

func startPvP(t *testing.T, m *Manager) *Session {
	t.Helper()
	if _, err := m.RequestMatch(1, "xo", "X", 1000, false); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	res, err := m.RequestMatch(2, "xo", "O", 1000, false)
	if err != nil || res.Session == nil {
		t.Fatalf("pairing failed: %v", err)
	}
	return res.Session
}

func TestMoveValidation(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()
	s := startPvP(t, m)

	if _, err := m.Move(s.ID, 2, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("O moving first should be ErrNotYourTurn, got %v", err)
	}
	if _, err := m.Move(s.ID, 99, 0); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("stranger should be ErrNotParticipant, got %v", err)
	}
	if _, err := m.Move("nope", 1, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown session should be ErrNotFound, got %v", err)
	}

	if _, err := m.Move(s.ID, 1, 4); err != nil {
		t.Fatalf("legal move failed: %v", err)
	}
	if _, err := m.Move(s.ID, 2, 4); !errors.Is(err, ErrValidation) {
		t.Errorf("occupied cell should be ErrValidation, got %v", err)
	}
}

func TestPvPGameToWin(t *testing.T) {
	m, ratings, _, notifier := newTestManager()
	defer m.Stop()
	s := startPvP(t, m)

	moves := []struct {
		user int64
		cell int
	}{{1, 0}, {2, 3}, {1, 1}, {2, 4}, {1, 2}}

	var last *Session
	for _, mv := range moves {
		var err error
		last, err = m.Move(s.ID, mv.user, mv.cell)
		if err != nil {
			t.Fatalf("move %+v failed: %v", mv, err)
		}
	}

	if last.Status != StatusFinished || last.Winner != "X" {
		t.Errorf("X should win, got status=%s winner=%s", last.Status, last.Winner)
	}
	if ratings.callCount() != 1 {
		t.Fatalf("one rating settlement expected, got %d", ratings.callCount())
	}
	call := ratings.calls[0]
	if call.winner != 1 || call.loser != 2 || call.draw {
		t.Errorf("rating call wrong: %+v", call)
	}
	if len(notifier.sent[1]) == 0 || len(notifier.sent[2]) == 0 {
		t.Errorf("both players should be notified of the result")
	}

	// Players are released: both can search again.
	if _, err := m.RequestMatch(1, "xo", "X", 1000, false); err != nil {
		t.Errorf("finished players should be free to queue: %v", err)
	}
}

func TestPvPDrawSettlesUnrated(t *testing.T) {
	m, ratings, _, _ := newTestManager()
	defer m.Stop()
	s := startPvP(t, m)

	moves := []struct {
		user int64
		cell int
	}{{1, 0}, {2, 1}, {1, 2}, {2, 4}, {1, 3}, {2, 5}, {1, 7}, {2, 6}, {1, 8}}
	var last *Session
	for _, mv := range moves {
		var err error
		last, err = m.Move(s.ID, mv.user, mv.cell)
		if err != nil {
			t.Fatalf("move %+v failed: %v", mv, err)
		}
	}

	if last.Status != StatusFinished || last.Winner != "D" {
		t.Errorf("expected draw, got status=%s winner=%s", last.Status, last.Winner)
	}
	if ratings.callCount() != 1 || !ratings.calls[0].draw {
		t.Errorf("draw should settle stats with draw=true")
	}
}

func TestResign(t *testing.T) {
	m, ratings, _, _ := newTestManager()
	defer m.Stop()
	s := startPvP(t, m)

	out, err := m.Resign(s.ID, 1)
	if err != nil {
		t.Fatalf("resign failed: %v", err)
	}
	if out.Status != StatusFinished || out.Winner != "O" || out.Reason != ReasonResign {
		t.Errorf("resign should hand the win to O, got %+v", out)
	}
	if ratings.callCount() != 1 || ratings.calls[0].winner != 2 {
		t.Errorf("resign should settle rating for the opponent")
	}

	if _, err := m.Resign(s.ID, 1); err == nil {
		t.Errorf("resigning a settled session must fail")
	}
}

func TestAISessionFlow(t *testing.T) {
	m, ratings, _, _ := newTestManager()
	defer m.Stop()

	s, err := m.StartAISession(1, "xo", "X", "normal")
	if err != nil {
		t.Fatalf("ai session failed: %v", err)
	}
	if s.Turn != "X" || s.Board != "........." {
		t.Errorf("user on X should open: turn=%s board=%q", s.Turn, s.Board)
	}

	out, err := m.Move(s.ID, 1, 0)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	// The computer answers within the same call.
	if out.Turn != "X" && out.Status == StatusPlaying {
		t.Errorf("computer should reply immediately, turn=%s", out.Turn)
	}
	count := 0
	for _, ch := range out.Board {
		if ch != '.' {
			count++
		}
	}
	if count != 2 {
		t.Errorf("board should hold both moves, got %q", out.Board)
	}
	if ratings.callCount() != 0 {
		t.Errorf("AI games must not touch ratings")
	}
}

func TestAIResignCancels(t *testing.T) {
	m, ratings, _, _ := newTestManager()
	defer m.Stop()

	s, _ := m.StartAISession(1, "xo", "X", "easy")
	out, err := m.Resign(s.ID, 1)
	if err != nil {
		t.Fatalf("resign failed: %v", err)
	}
	if out.Status != StatusCanceled {
		t.Errorf("AI resign should cancel, got %s", out.Status)
	}
	if ratings.callCount() != 0 {
		t.Errorf("AI resign must not settle ratings")
	}
}

func TestTournamentResultReachesHook(t *testing.T) {
	m, _, hook, _ := newTestManager()
	defer m.Stop()

	s, err := m.StartTournamentMatch("xo", 1, 2, 100, 7)
	if err != nil {
		t.Fatalf("tournament match failed: %v", err)
	}

	moves := []struct {
		user int64
		cell int
	}{{1, 0}, {2, 3}, {1, 1}, {2, 4}, {1, 2}}
	for _, mv := range moves {
		if _, err := m.Move(s.ID, mv.user, mv.cell); err != nil {
			t.Fatalf("move %+v failed: %v", mv, err)
		}
	}

	if hook.callCount() != 1 {
		t.Fatalf("bracket hook should fire once, got %d", hook.callCount())
	}
	call := hook.calls[0]
	if call.tournamentID != 100 || call.matchID != 7 || call.winnerID != 1 {
		t.Errorf("hook call wrong: %+v", call)
	}
}

func TestTournamentMatchPreemptsCasualSession(t *testing.T) {
	m, _, _, notifier := newTestManager()
	defer m.Stop()

	// User 1 is mid-game against user 3 when their bracket match starts.
	m.RequestMatch(1, "xo", "X", 1000, false)
	res, err := m.RequestMatch(3, "xo", "O", 1000, false)
	if err != nil || res.Session == nil {
		t.Fatalf("casual pairing failed: %v", err)
	}
	casual := res.Session

	ts, err := m.StartTournamentMatch("xo", 1, 2, 100, 7)
	if err != nil {
		t.Fatalf("tournament match failed: %v", err)
	}

	out, err := m.GetSession(casual.ID)
	if err != nil {
		t.Fatalf("casual session lookup failed: %v", err)
	}
	if out.Status != StatusCanceled || out.Reason != ReasonPreempted {
		t.Errorf("casual game should be canceled by the bracket, got status=%s reason=%s", out.Status, out.Reason)
	}

	got, err := m.GetUserSession(1)
	if err != nil || got.ID != ts.ID {
		t.Errorf("user 1 should map to the bracket session, err=%v", err)
	}
	if _, err := m.GetUserSession(3); err == nil {
		t.Errorf("the abandoned opponent should be released")
	}
	if _, err := m.RequestMatch(1, "xo", "X", 1000, false); err == nil {
		t.Errorf("a player in a bracket match must not re-enter matchmaking")
	}
	if len(notifier.sent[3]) == 0 {
		t.Errorf("the abandoned opponent should hear the cancellation")
	}
}

func TestLateSettleKeepsNewSessionIndex(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "X", 1000, false)
	res, _ := m.RequestMatch(3, "xo", "O", 1000, false)
	casual := res.Session
	ts, err := m.StartTournamentMatch("xo", 1, 2, 100, 7)
	if err != nil {
		t.Fatalf("tournament match failed: %v", err)
	}

	// Late cleanup of the replaced session must not strip the mapping to the
	// live bracket session.
	m.mu.Lock()
	m.cancelLocked(m.sessions[casual.ID], ReasonTimeout)
	m.mu.Unlock()

	got, err := m.GetUserSession(1)
	if err != nil || got.ID != ts.ID {
		t.Errorf("bracket mapping should survive stale cleanup, err=%v", err)
	}
}

func TestTournamentDrawReplays(t *testing.T) {
	m, _, hook, _ := newTestManager()
	defer m.Stop()

	s, _ := m.StartTournamentMatch("xo", 1, 2, 100, 7)
	moves := []struct {
		user int64
		cell int
	}{{1, 0}, {2, 1}, {1, 2}, {2, 4}, {1, 3}, {2, 5}, {1, 7}, {2, 6}, {1, 8}}
	var last *Session
	for _, mv := range moves {
		var err error
		last, err = m.Move(s.ID, mv.user, mv.cell)
		if err != nil {
			t.Fatalf("move %+v failed: %v", mv, err)
		}
	}

	if last.Status != StatusPlaying || last.Board != "........." {
		t.Errorf("drawn bracket match should reset and continue, got status=%s board=%q", last.Status, last.Board)
	}
	if hook.callCount() != 0 {
		t.Errorf("a replayed draw must not report a result")
	}
}
