package arena

import (
	"testing"
)

func TestRequestMatchQueuesWhenAlone(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	res, err := m.RequestMatch(1, "xo", "X", 1000, false)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !res.Queued || res.Session != nil {
		t.Errorf("lone seeker should be queued")
	}
	if len(m.LobbySnapshot("xo")) != 1 {
		t.Errorf("lobby should show one seeker")
	}
}

func TestRequestMatchPairsOppositeSides(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	if _, err := m.RequestMatch(1, "xo", "X", 1000, false); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	res, err := m.RequestMatch(2, "xo", "O", 1000, false)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if res.Session == nil {
		t.Fatalf("opposite sides should match immediately")
	}
	s := res.Session
	if s.PlayerX != 1 || s.PlayerO != 2 {
		t.Errorf("sides wrong: x=%d o=%d", s.PlayerX, s.PlayerO)
	}
	if s.Turn != "X" {
		t.Errorf("X should move first, turn=%s", s.Turn)
	}
	if len(m.LobbySnapshot("xo")) != 0 {
		t.Errorf("both seekers should have left the lobby")
	}
}

func TestRequestMatchSameSideDoesNotPair(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "X", 1000, false)
	res, err := m.RequestMatch(2, "xo", "X", 1000, false)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !res.Queued {
		t.Errorf("same-side seekers must not pair")
	}
}

func TestBestMatchPicksClosestRating(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "O", 800, false)
	m.RequestMatch(2, "xo", "O", 1190, false)
	m.RequestMatch(3, "xo", "O", 1500, false)

	res, err := m.RequestMatch(4, "xo", "X", 1200, false)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.Session == nil {
		t.Fatalf("should match against a queued O")
	}
	if res.Session.PlayerO != 2 {
		t.Errorf("closest rating (1190) should win, matched %d", res.Session.PlayerO)
	}
	if len(m.LobbySnapshot("xo")) != 2 {
		t.Errorf("other seekers should remain queued")
	}
}

func TestBestMatchTieGoesToEarlierEntry(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "O", 1100, false)
	m.RequestMatch(2, "xo", "O", 900, false)

	// Both are 100 points away; the first enqueued should win.
	res, _ := m.RequestMatch(3, "xo", "X", 1000, false)
	if res.Session == nil || res.Session.PlayerO != 1 {
		t.Errorf("tie should go to the earlier entry")
	}
}

func TestVIPSeekerPrefersVIPQueue(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "O", 1000, false)
	m.RequestMatch(2, "xo", "O", 1300, true)

	// Exact rating match waits in the regular queue, but a VIP seeker scans
	// the VIP queue first.
	res, _ := m.RequestMatch(3, "xo", "X", 1000, true)
	if res.Session == nil || res.Session.PlayerO != 2 {
		t.Errorf("VIP seeker should take the VIP opponent first")
	}
}

func TestRegularSeekerPrefersRegularQueue(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "O", 1000, true)
	m.RequestMatch(2, "xo", "O", 1300, false)

	res, _ := m.RequestMatch(3, "xo", "X", 1000, false)
	if res.Session == nil || res.Session.PlayerO != 2 {
		t.Errorf("regular seeker should scan the regular queue before VIP")
	}
}

func TestSingleQueueMembership(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	if _, err := m.RequestMatch(1, "xo", "X", 1000, false); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := m.RequestMatch(1, "xo", "O", 1000, false); err == nil {
		t.Errorf("double enqueue must be rejected")
	}
	if len(m.LobbySnapshot("xo")) != 1 {
		t.Errorf("user should hold exactly one queue slot")
	}
}

func TestQueueAndSessionAreExclusive(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "X", 1000, false)
	m.RequestMatch(2, "xo", "O", 1000, false)

	// Both are now in a session; searching again must fail.
	if _, err := m.RequestMatch(1, "xo", "X", 1000, false); err == nil {
		t.Errorf("user in a session must not enter a queue")
	}
}

func TestCancelSearch(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "X", 1000, false)
	if !m.CancelSearch(1) {
		t.Errorf("cancel should report removal")
	}
	if m.CancelSearch(1) {
		t.Errorf("second cancel should be a no-op")
	}
	if len(m.LobbySnapshot("xo")) != 0 {
		t.Errorf("lobby should be empty after cancel")
	}
}

func TestFallbackOnlyFiresWhenStillQueued(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "X", 1000, false)
	m.CancelSearch(1)

	// Simulate the timer firing after the cancel.
	m.fallbackToAI(1)
	if _, err := m.GetUserSession(1); err == nil {
		t.Errorf("fallback after cancel must not create a session")
	}
}

func TestFallbackCreatesAISession(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "O", 1000, false)
	m.fallbackToAI(1)

	s, err := m.GetUserSession(1)
	if err != nil {
		t.Fatalf("fallback should create an AI session: %v", err)
	}
	if s.Mode != ModeAI {
		t.Errorf("expected AI session, got %s", s.Mode)
	}
	if s.PlayerO != 1 {
		t.Errorf("user should keep the requested side, playerO=%d", s.PlayerO)
	}
	// The computer holds X and must already have moved.
	if s.Board == "........." {
		t.Errorf("computer on X should open the game")
	}
	if s.Turn != "O" {
		t.Errorf("after the computer's opening it is the user's turn, got %s", s.Turn)
	}
}

func TestChallengeStartsImmediateSession(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(5, "xo", "X", 1400, false)

	s, err := m.Challenge(9, 5)
	if err != nil {
		t.Fatalf("challenge failed: %v", err)
	}
	if s.PlayerX != 5 || s.PlayerO != 9 {
		t.Errorf("target keeps its side, challenger takes the other: x=%d o=%d", s.PlayerX, s.PlayerO)
	}
	if len(m.LobbySnapshot("xo")) != 0 {
		t.Errorf("target should leave the queue")
	}
}

func TestChallengeRejectsSelfAndMissingTarget(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	if _, err := m.Challenge(1, 1); err == nil {
		t.Errorf("self-challenge must be rejected")
	}
	if _, err := m.Challenge(1, 42); err == nil {
		t.Errorf("challenging an absent player must fail gracefully")
	}
}

func TestChallengeRemovesChallengerFromQueue(t *testing.T) {
	m, _, _, _ := newTestManager()
	defer m.Stop()

	m.RequestMatch(1, "xo", "X", 1000, false)
	m.RequestMatch(2, "xo", "X", 1000, false)

	if _, err := m.Challenge(2, 1); err != nil {
		t.Fatalf("challenge failed: %v", err)
	}
	if len(m.LobbySnapshot("xo")) != 0 {
		t.Errorf("both challenger and target should leave the queues")
	}
}
