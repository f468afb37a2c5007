package tournament

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/models"
)

type startCall struct {
	game    string
	playerA int64
	playerB int64
	tid     int64
	mid     int64
}

type fakeStarter struct {
	mu     sync.Mutex
	calls  []startCall
	nextID int
}

func (f *fakeStarter) StartTournamentMatch(gameName string, playerA, playerB, tournamentID, matchID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.calls = append(f.calls, startCall{gameName, playerA, playerB, tournamentID, matchID})
	return fmt.Sprintf("sess-%d", f.nextID), nil
}

type staticRatings struct{}

func (staticRatings) Rating(userID int64, gameName string) (int, error) { return 1000, nil }

type recorder struct {
	mu   sync.Mutex
	msgs map[int64][]string
}

func newRecorder() *recorder { return &recorder{msgs: make(map[int64][]string)} }

func (r *recorder) Notify(_ context.Context, userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[userID] = append(r.msgs[userID], text)
	return nil
}

func (r *recorder) count(userID int64, substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs[userID] {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

func serviceConfig() *config.Config {
	return &config.Config{
		TournamentRegMinutes: 10,
		TournamentSize:       8,
		TournamentMinPlayers: 4,
		TournamentEntryFee:   20,
		RemindFirstSeconds:   120,
		RemindFinalSeconds:   30,
	}
}

func serviceRules() Rules {
	return Rules{
		MinPlayers:          4,
		ArenaFeePercent:     10,
		WinnerPercent:       70,
		RunnerUpPercent:     30,
		PointsJoin:          10,
		PointsWin:           20,
		PointsChampionBonus: 60,
		PointsRunnerUpBonus: 30,
		StreakTarget:        3,
		StreakBonusCoins:    30,
	}
}

func newTestService() (*Service, *MemStore, *fakeStarter, *recorder) {
	store := NewMemStore(serviceRules())
	starter := &fakeStarter{}
	rec := newRecorder()
	svc := NewService(store, starter, staticRatings{}, rec, serviceConfig())
	return svc, store, starter, rec
}

func createOpen(t *testing.T, svc *Service, gameName string, size, fee int) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), gameName, "Test cup", size, fee,
		time.Now().Add(10*time.Minute), "", "test")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return id
}

// playAllMatches drives the bracket to completion, letting player A win every
// live match.
func playAllMatches(t *testing.T, svc *Service, store *MemStore, id int64) {
	t.Helper()
	ctx := context.Background()
	for round := 0; round < 10; round++ {
		tour, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if tour.Status != models.TournamentStatusRunning {
			return
		}
		matches, err := store.Matches(ctx, id)
		if err != nil {
			t.Fatalf("matches failed: %v", err)
		}
		played := false
		for _, m := range matches {
			if m.Status == models.MatchStatusPlaying {
				if err := svc.ReportResult(ctx, id, m.ID, m.PlayerA.Int64); err != nil {
					t.Fatalf("report failed: %v", err)
				}
				played = true
			}
		}
		if !played {
			t.Fatalf("bracket stalled with no playable matches")
		}
	}
	t.Fatalf("bracket never finished")
}

func TestJoinChargesFeeOnce(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)

	store.SetCoins(1, 50)
	if err := svc.Join(ctx, id, 1, false); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := svc.Join(ctx, id, 1, false); err != nil {
		t.Fatalf("repeat join should succeed, got %v", err)
	}

	if got := store.Coins(1); got != 30 {
		t.Errorf("coins = %d, want 30 (fee charged once)", got)
	}
	tour, _ := store.Get(ctx, id)
	if tour.PrizePool != 20 {
		t.Errorf("prize pool = %d, want 20", tour.PrizePool)
	}
}

func TestJoinWithTicket(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)

	store.SetCoins(1, 0)
	store.SetTickets(1, 1)
	if err := svc.Join(ctx, id, 1, true); err != nil {
		t.Fatalf("ticket join failed: %v", err)
	}
	if got := store.Tickets(1); got != 0 {
		t.Errorf("tickets = %d, want 0", got)
	}
	tour, _ := store.Get(ctx, id)
	if tour.PrizePool != 20 {
		t.Errorf("prize pool = %d, want 20 (ticket entry still funds the pool)", tour.PrizePool)
	}
}

func TestJoinRejections(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 2, 20)

	if err := svc.Join(ctx, id, 1, false); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("broke join err = %v, want ErrInsufficientFunds", err)
	}
	if err := svc.Join(ctx, id, 1, true); !errors.Is(err, ErrNoTickets) {
		t.Errorf("ticketless join err = %v, want ErrNoTickets", err)
	}

	store.SetCoins(1, 100)
	store.SetCoins(2, 100)
	store.SetCoins(3, 100)
	if err := svc.Join(ctx, id, 1, false); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := svc.Join(ctx, id, 2, false); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := svc.Join(ctx, id, 3, false); !errors.Is(err, ErrTournamentFull) {
		t.Errorf("overflow join err = %v, want ErrTournamentFull", err)
	}
}

func TestLeaveRefundsEntry(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)

	store.SetCoins(1, 20)
	if err := svc.Join(ctx, id, 1, false); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := svc.Leave(ctx, id, 1); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if got := store.Coins(1); got != 20 {
		t.Errorf("coins after leave = %d, want 20", got)
	}
	tour, _ := store.Get(ctx, id)
	if tour.PrizePool != 0 {
		t.Errorf("prize pool = %d, want 0", tour.PrizePool)
	}

	if err := svc.Leave(ctx, id, 1); err != nil {
		t.Errorf("repeat leave should succeed, got %v", err)
	}
}

func TestCreateReplacesActiveTournament(t *testing.T) {
	svc, store, _, rec := newTestService()
	ctx := context.Background()
	first := createOpen(t, svc, "xo", 8, 20)

	store.SetCoins(1, 20)
	if err := svc.Join(ctx, first, 1, false); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	second := createOpen(t, svc, "xo", 8, 20)
	if second == first {
		t.Fatalf("expected a new tournament id")
	}

	old, _ := store.Get(ctx, first)
	if old.Status != models.TournamentStatusCancelled {
		t.Errorf("prior status = %s, want CANCELLED", old.Status)
	}
	if got := store.Coins(1); got != 20 {
		t.Errorf("coins = %d, want 20 (entry refunded)", got)
	}
	if rec.count(1, "refunded") == 0 {
		t.Errorf("expected a refund notification for user 1")
	}
}

func TestDailyCreateOncePerDay(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateDaily(ctx, "xo"); err != nil {
		t.Fatalf("first daily create failed: %v", err)
	}
	if _, err := svc.CreateDaily(ctx, "xo"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("second daily create err = %v, want ErrAlreadyProcessed", err)
	}
}

func TestRegistrarSendsRemindersOnce(t *testing.T) {
	svc, store, _, rec := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)
	store.SetCoins(1, 20)
	if err := svc.Join(ctx, id, 1, false); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	tour, _ := store.Get(ctx, id)

	early := tour.RegEndsAt.Add(-100 * time.Second)
	svc.RegistrarPassNow(ctx, early)
	svc.RegistrarPassNow(ctx, early)
	if got := rec.count(1, "starts in"); got != 1 {
		t.Errorf("first reminders = %d, want 1", got)
	}

	late := tour.RegEndsAt.Add(-20 * time.Second)
	svc.RegistrarPassNow(ctx, late)
	svc.RegistrarPassNow(ctx, late)
	if got := rec.count(1, "starts in"); got != 2 {
		t.Errorf("total reminders = %d, want 2 (first plus final)", got)
	}
}

func TestRegistrarCancelsUnderfilled(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)
	store.SetCoins(1, 20)
	store.SetCoins(2, 20)
	for _, uid := range []int64{1, 2} {
		if err := svc.Join(ctx, id, uid, false); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	tour, _ := store.Get(ctx, id)

	svc.RegistrarPassNow(ctx, tour.RegEndsAt.Add(time.Second))

	tour, _ = store.Get(ctx, id)
	if tour.Status != models.TournamentStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", tour.Status)
	}
	if store.Coins(1) != 20 || store.Coins(2) != 20 {
		t.Errorf("entries not refunded: coins %d and %d", store.Coins(1), store.Coins(2))
	}
}

func TestBracketRunAndPayout(t *testing.T) {
	svc, store, starter, rec := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)
	for uid := int64(1); uid <= 4; uid++ {
		store.SetCoins(uid, 20)
		if err := svc.Join(ctx, id, uid, false); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	tour, _ := store.Get(ctx, id)

	svc.RegistrarPassNow(ctx, tour.RegEndsAt.Add(time.Second))

	tour, _ = store.Get(ctx, id)
	if tour.Status != models.TournamentStatusRunning {
		t.Fatalf("status = %s, want RUNNING", tour.Status)
	}
	if len(starter.calls) != 2 {
		t.Fatalf("round one starts = %d, want 2", len(starter.calls))
	}

	playAllMatches(t, svc, store, id)

	tour, _ = store.Get(ctx, id)
	if tour.Status != models.TournamentStatusDone {
		t.Fatalf("status = %s, want DONE", tour.Status)
	}
	if tour.PrizePool != 0 {
		t.Errorf("prize pool = %d, want 0", tour.PrizePool)
	}

	// Pool 80, arena fee 8, net 72 split 70/30: 50 and 21. Seed one wins
	// every match so the first joiner is champion and the second runner-up.
	if got := store.Coins(1); got != 50 {
		t.Errorf("champion coins = %d, want 50", got)
	}
	if got := store.Coins(2); got != 21 {
		t.Errorf("runner-up coins = %d, want 21", got)
	}
	if store.Coins(3) != 0 || store.Coins(4) != 0 {
		t.Errorf("eliminated players should hold 0 coins, got %d and %d",
			store.Coins(3), store.Coins(4))
	}

	if rec.count(1, "Champion") != 1 {
		t.Errorf("champion not congratulated")
	}
	if rec.count(2, "Runner-up") != 1 {
		t.Errorf("runner-up not notified")
	}
	if rec.count(3, "over") != 1 || rec.count(4, "over") != 1 {
		t.Errorf("participants not notified of the finish")
	}

	// Champion: 10 join + 2 wins * 20 + 60 bonus = 110 points, in both the
	// game scope and the overall scope.
	for _, scope := range []string{"xo", "all"} {
		rows, err := store.TopPoints(ctx, scope, 10)
		if err != nil {
			t.Fatalf("top points failed: %v", err)
		}
		if len(rows) != 4 {
			t.Fatalf("points rows for %s = %d, want 4", scope, len(rows))
		}
		if rows[0].UserID != 1 || rows[0].Points != 110 {
			t.Errorf("%s leader = user %d with %d, want user 1 with 110",
				scope, rows[0].UserID, rows[0].Points)
		}
		if rows[1].UserID != 2 || rows[1].Points != 60 {
			t.Errorf("%s second = user %d with %d, want user 2 with 60",
				scope, rows[1].UserID, rows[1].Points)
		}
	}
}

func TestByesAdvanceWithoutPlay(t *testing.T) {
	svc, store, starter, _ := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)
	for uid := int64(1); uid <= 5; uid++ {
		store.SetCoins(uid, 20)
		if err := svc.Join(ctx, id, uid, false); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	tour, _ := store.Get(ctx, id)

	svc.RegistrarPassNow(ctx, tour.RegEndsAt.Add(time.Second))

	// Five players pad to eight seeds: three byes and one live match.
	if len(starter.calls) != 1 {
		t.Fatalf("round one starts = %d, want 1", len(starter.calls))
	}

	playAllMatches(t, svc, store, id)

	tour, _ = store.Get(ctx, id)
	if tour.Status != models.TournamentStatusDone {
		t.Errorf("status = %s, want DONE", tour.Status)
	}
}

func TestRepeatResultIgnored(t *testing.T) {
	svc, store, _, rec := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)
	for uid := int64(1); uid <= 4; uid++ {
		store.SetCoins(uid, 20)
		if err := svc.Join(ctx, id, uid, false); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	tour, _ := store.Get(ctx, id)
	svc.RegistrarPassNow(ctx, tour.RegEndsAt.Add(time.Second))
	playAllMatches(t, svc, store, id)

	matches, _ := store.Matches(ctx, id)
	finalMatch := matches[len(matches)-1]
	if err := svc.ReportResult(ctx, id, finalMatch.ID, finalMatch.PlayerB.Int64); err != nil {
		t.Fatalf("repeat report failed: %v", err)
	}

	if got := store.Coins(1); got != 50 {
		t.Errorf("champion coins = %d, want 50 (settled once)", got)
	}
	if got := rec.count(1, "Champion"); got != 1 {
		t.Errorf("champion notifications = %d, want 1", got)
	}
}

func TestAdvanceWaitsForFullRound(t *testing.T) {
	svc, store, starter, _ := newTestService()
	ctx := context.Background()
	id := createOpen(t, svc, "xo", 8, 20)
	for uid := int64(1); uid <= 4; uid++ {
		store.SetCoins(uid, 20)
		if err := svc.Join(ctx, id, uid, false); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	tour, _ := store.Get(ctx, id)
	svc.RegistrarPassNow(ctx, tour.RegEndsAt.Add(time.Second))

	matches, _ := store.Matches(ctx, id)
	if err := svc.ReportResult(ctx, id, matches[0].ID, matches[0].PlayerA.Int64); err != nil {
		t.Fatalf("report failed: %v", err)
	}

	if len(starter.calls) != 2 {
		t.Errorf("starts after one result = %d, want 2 (no final yet)", len(starter.calls))
	}
	matches, _ = store.Matches(ctx, id)
	for _, m := range matches {
		if m.Round > 1 {
			t.Errorf("round %d match created before round 1 finished", m.Round)
		}
	}
}

func TestStreakBonusEveryThirdDay(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	days := []string{"2026-03-01", "2026-03-02", "2026-03-03"}
	for _, day := range days {
		store.SetToday(day)
		id := createOpen(t, svc, "xo", 8, 0)
		for uid := int64(1); uid <= 4; uid++ {
			if err := svc.Join(ctx, id, uid, false); err != nil {
				t.Fatalf("join failed: %v", err)
			}
		}
		tour, _ := store.Get(ctx, id)
		svc.RegistrarPassNow(ctx, tour.RegEndsAt.Add(time.Second))
		playAllMatches(t, svc, store, id)
	}

	// Zero entry fee, so every coin comes from the third-day streak bonus.
	for uid := int64(1); uid <= 4; uid++ {
		if got := store.Coins(uid); got != 30 {
			t.Errorf("user %d coins = %d, want 30 streak bonus", uid, got)
		}
		if items := store.OwnedItems(uid); len(items) != 1 {
			t.Errorf("user %d skins = %v, want exactly one", uid, items)
		}
	}
}
