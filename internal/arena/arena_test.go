package arena

import (
	"context"
	"sync"

	"github.com/smarena/backend/internal/config"
)

// Shared test doubles for the arena package.

func testConfig() *config.Config {
	return &config.Config{
		VIPFallbackAISeconds:     10,
		RegularFallbackAISeconds: 25,
		PvPInactivitySeconds:     60,
		TechLossSeconds:          60,
		WatchdogPollSeconds:      5,
		DefaultRating:            1000,
	}
}

type ratingCall struct {
	game   string
	winner int64
	loser  int64
	draw   bool
}

type fakeRatings struct {
	mu    sync.Mutex
	calls []ratingCall
}

func (f *fakeRatings) Rating(userID int64, gameName string) (int, error) {
	return 1000, nil
}

func (f *fakeRatings) ApplyMatchResult(gameName string, winner, loser int64, draw bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ratingCall{game: gameName, winner: winner, loser: loser, draw: draw})
	return !draw, nil
}

func (f *fakeRatings) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type hookCall struct {
	tournamentID int64
	matchID      int64
	winnerID     int64
}

type fakeHook struct {
	mu    sync.Mutex
	calls []hookCall
}

func (f *fakeHook) ReportResult(_ context.Context, tournamentID, matchID, winnerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hookCall{tournamentID, matchID, winnerID})
	return nil
}

func (f *fakeHook) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(map[int64][]string)}
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[userID] = append(n.sent[userID], text)
	return nil
}

func newTestManager() (*Manager, *fakeRatings, *fakeHook, *recordingNotifier) {
	ratings := &fakeRatings{}
	hook := &fakeHook{}
	notifier := newRecordingNotifier()
	m := NewManager(testConfig(), ratings, notifier, nil)
	m.SetTournamentHook(hook)
	return m, ratings, hook, notifier
}
