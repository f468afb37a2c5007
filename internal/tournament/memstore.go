package tournament

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/smarena/backend/internal/models"
	"github.com/smarena/backend/internal/shop"
)

// MemStore is the in-memory Store. It mirrors SQLStore's semantics over maps
// and backs the package tests and local development without Postgres.
type MemStore struct {
	mu     sync.Mutex
	rules  Rules
	nextID int64

	tournaments map[int64]*models.Tournament
	players     map[int64][]*models.TournamentPlayer
	matches     map[int64][]*models.TournamentMatch
	points      map[string]*models.TournamentPoints // key userID:game
	inventory   map[int64]map[string]bool

	coins   map[int64]int
	tickets map[int64]int

	// today overrides the streak clock in tests; empty means wall clock.
	today string
}

func NewMemStore(rules Rules) *MemStore {
	return &MemStore{
		rules:       rules,
		nextID:      1,
		tournaments: make(map[int64]*models.Tournament),
		players:     make(map[int64][]*models.TournamentPlayer),
		matches:     make(map[int64][]*models.TournamentMatch),
		points:      make(map[string]*models.TournamentPoints),
		inventory:   make(map[int64]map[string]bool),
		coins:       make(map[int64]int),
		tickets:     make(map[int64]int),
	}
}

// Wallet helpers for tests.

func (m *MemStore) SetCoins(userID int64, coins int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coins[userID] = coins
}

func (m *MemStore) Coins(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coins[userID]
}

func (m *MemStore) SetTickets(userID int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[userID] = n
}

func (m *MemStore) Tickets(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets[userID]
}

func (m *MemStore) SetToday(day string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.today = day
}

func (m *MemStore) OwnedItems(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.inventory[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *MemStore) Create(_ context.Context, nt NewTournament) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nt.DayKey != "" {
		for _, t := range m.tournaments {
			if t.Game == nt.Game && t.DayKey == nt.DayKey {
				return 0, ErrAlreadyProcessed
			}
		}
	}

	id := m.nextID
	m.nextID++
	m.tournaments[id] = &models.Tournament{
		ID:        id,
		Game:      nt.Game,
		Title:     nt.Title,
		Status:    models.TournamentStatusReg,
		Size:      nt.Size,
		EntryFee:  nt.EntryFee,
		RegEndsAt: nt.RegEndsAt,
		DayKey:    nt.DayKey,
		CreatedBy: nt.CreatedBy,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (m *MemStore) Get(_ context.Context, id int64) (*models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemStore) ActiveByGame(_ context.Context, gameName string) (*models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Tournament
	for _, t := range m.tournaments {
		if t.Game != gameName {
			continue
		}
		if t.Status != models.TournamentStatusReg && t.Status != models.TournamentStatusRunning {
			continue
		}
		if best == nil || t.ID > best.ID {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *MemStore) ListOpen(_ context.Context) ([]models.Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Tournament
	for _, t := range m.tournaments {
		if t.Status == models.TournamentStatusReg {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegEndsAt.Before(out[j].RegEndsAt) })
	return out, nil
}

func (m *MemStore) Players(_ context.Context, id int64) ([]models.TournamentPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TournamentPlayer
	for _, p := range m.players[id] {
		out = append(out, *p)
	}
	return out, nil
}

func (m *MemStore) Join(_ context.Context, id, userID int64, rating int, useTicket bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != models.TournamentStatusReg {
		return ErrRegistrationClosed
	}
	for _, p := range m.players[id] {
		if p.UserID == userID {
			return ErrAlreadyProcessed
		}
	}
	if len(m.players[id]) >= t.Size {
		return ErrTournamentFull
	}

	kind := models.EntryKindCoins
	if t.EntryFee > 0 {
		if useTicket {
			if m.tickets[userID] <= 0 {
				return ErrNoTickets
			}
			m.tickets[userID]--
			kind = models.EntryKindTicket
		} else {
			if m.coins[userID] < t.EntryFee {
				return ErrInsufficientFunds
			}
			m.coins[userID] -= t.EntryFee
		}
		t.PrizePool += t.EntryFee
	}

	m.players[id] = append(m.players[id], &models.TournamentPlayer{
		TournamentID: id,
		UserID:       userID,
		EntryKind:    kind,
		RatingAtJoin: rating,
		JoinedAt:     time.Now(),
	})
	return nil
}

func (m *MemStore) Leave(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != models.TournamentStatusReg {
		return ErrRegistrationClosed
	}
	for i, p := range m.players[id] {
		if p.UserID == userID {
			m.players[id] = append(m.players[id][:i], m.players[id][i+1:]...)
			if t.EntryFee > 0 {
				m.refundLocked(userID, t.EntryFee, p.EntryKind)
				t.PrizePool -= t.EntryFee
				if t.PrizePool < 0 {
					t.PrizePool = 0
				}
			}
			return nil
		}
	}
	return ErrAlreadyProcessed
}

func (m *MemStore) Cancel(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status == models.TournamentStatusDone || t.Status == models.TournamentStatusCancelled {
		return ErrAlreadyProcessed
	}
	if t.EntryFee > 0 {
		for _, p := range m.players[id] {
			m.refundLocked(p.UserID, t.EntryFee, p.EntryKind)
		}
	}
	t.PrizePool = 0
	t.Status = models.TournamentStatusCancelled
	return nil
}

func (m *MemStore) MarkReminder(_ context.Context, id int64, final bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tournaments[id]
	if !ok {
		return false, ErrNotFound
	}
	if final {
		if t.RemindFinalSent {
			return false, nil
		}
		t.RemindFinalSent = true
		return true, nil
	}
	if t.RemindFirstSent {
		return false, nil
	}
	t.RemindFirstSent = true
	return true, nil
}

func (m *MemStore) GenerateBracket(_ context.Context, id int64, maxSize int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != models.TournamentStatusReg {
		return nil, ErrRegistrationClosed
	}

	players := append([]*models.TournamentPlayer(nil), m.players[id]...)
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].RatingAtJoin != players[j].RatingAtJoin {
			return players[i].RatingAtJoin > players[j].RatingAtJoin
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})

	ids := make([]int64, len(players))
	kinds := make(map[int64]string, len(players))
	for i, p := range players {
		ids[i] = p.UserID
		kinds[p.UserID] = p.EntryKind
	}

	seeds, cut := bracketSeeds(ids, maxSize)
	for _, uid := range cut {
		for i, p := range m.players[id] {
			if p.UserID == uid {
				m.players[id] = append(m.players[id][:i], m.players[id][i+1:]...)
				break
			}
		}
		if t.EntryFee > 0 {
			m.refundLocked(uid, t.EntryFee, kinds[uid])
			t.PrizePool -= t.EntryFee
			if t.PrizePool < 0 {
				t.PrizePool = 0
			}
		}
	}

	for _, pair := range foldPairs(seeds) {
		m.insertMatchLocked(id, 1, pair)
	}
	t.Status = models.TournamentStatusRunning
	return cut, nil
}

func (m *MemStore) PendingMatches(_ context.Context, id int64) ([]models.TournamentMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TournamentMatch
	for _, match := range m.matches[id] {
		if match.Status == models.MatchStatusPending && match.PlayerA.Valid && match.PlayerB.Valid {
			out = append(out, *match)
		}
	}
	return out, nil
}

func (m *MemStore) MarkMatchPlaying(_ context.Context, matchID int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, matches := range m.matches {
		for _, match := range matches {
			if match.ID == matchID && match.Status == models.MatchStatusPending {
				match.Status = models.MatchStatusPlaying
				match.SessionID = sessionID
				match.StartedAt = nullTimeNow()
			}
		}
	}
	return nil
}

func (m *MemStore) SetMatchResult(_ context.Context, matchID, winnerID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, matches := range m.matches {
		for _, match := range matches {
			if match.ID != matchID {
				continue
			}
			if match.Status != models.MatchStatusPending && match.Status != models.MatchStatusPlaying {
				return false, nil
			}
			match.Status = models.MatchStatusDone
			match.WinnerID = nullInt64(winnerID)
			match.EndedAt = nullTimeNow()
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) AdvanceRound(_ context.Context, id int64) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != models.TournamentStatusRunning {
		return nil, nil
	}

	maxRound := 0
	for _, match := range m.matches[id] {
		if match.Round > maxRound {
			maxRound = match.Round
		}
	}
	if maxRound == 0 {
		return nil, nil
	}

	var winners []int64
	for _, match := range m.matches[id] {
		if match.Round != maxRound {
			continue
		}
		if match.Status == models.MatchStatusPending || match.Status == models.MatchStatusPlaying {
			return nil, nil
		}
		if match.WinnerID.Valid {
			winners = append(winners, match.WinnerID.Int64)
		}
	}

	if len(winners) > 1 {
		for _, pair := range pairWinners(winners) {
			m.insertMatchLocked(id, maxRound+1, pair)
		}
		return nil, nil
	}

	return m.finalizeLocked(t, maxRound)
}

func (m *MemStore) finalizeLocked(t *models.Tournament, lastRound int) (*Settlement, error) {
	var final *models.TournamentMatch
	for _, match := range m.matches[t.ID] {
		if match.Round == lastRound {
			final = match
		}
	}
	if final == nil || !final.WinnerID.Valid {
		return nil, nil
	}

	champion := final.WinnerID.Int64
	runnerUp := final.PlayerA.Int64
	if runnerUp == champion {
		runnerUp = final.PlayerB.Int64
	}

	arenaFee := t.PrizePool * m.rules.ArenaFeePercent / 100
	net := t.PrizePool - arenaFee
	championPrize := net * m.rules.WinnerPercent / 100
	runnerUpPrize := net * m.rules.RunnerUpPercent / 100

	m.coins[champion] += championPrize
	if runnerUp != 0 {
		m.coins[runnerUp] += runnerUpPrize
	}

	winCounts := map[int64]int{}
	for _, match := range m.matches[t.ID] {
		if match.WinnerID.Valid && (match.Status == models.MatchStatusDone || match.Status == models.MatchStatusBye) {
			winCounts[match.WinnerID.Int64]++
		}
	}

	var participants []int64
	for _, p := range m.players[t.ID] {
		participants = append(participants, p.UserID)

		points := m.rules.PointsJoin + m.rules.PointsWin*winCounts[p.UserID]
		if p.UserID == champion {
			points += m.rules.PointsChampionBonus
		}
		if p.UserID == runnerUp {
			points += m.rules.PointsRunnerUpBonus
		}
		for _, scope := range []string{t.Game, "all"} {
			m.addPointsLocked(p.UserID, scope, points)
		}
		m.awardStreakLocked(p.UserID, t.Game)
	}

	t.PrizePool = 0
	t.Status = models.TournamentStatusDone

	return &Settlement{
		TournamentID:  t.ID,
		Game:          t.Game,
		Champion:      champion,
		RunnerUp:      runnerUp,
		ChampionPrize: championPrize,
		RunnerUpPrize: runnerUpPrize,
		ArenaFee:      arenaFee,
		Participants:  participants,
	}, nil
}

func (m *MemStore) awardStreakLocked(userID int64, gameName string) {
	today := m.today
	if today == "" {
		today = time.Now().UTC().Format("2006-01-02")
	}
	parsed, _ := time.Parse("2006-01-02", today)
	yesterday := parsed.AddDate(0, 0, -1).Format("2006-01-02")

	key := pointsKey(userID, gameName)
	row, ok := m.points[key]
	if !ok {
		row = &models.TournamentPoints{UserID: userID, Game: gameName}
		m.points[key] = row
	}

	switch row.LastParticipationDay {
	case today:
		return
	case yesterday:
		row.Streak++
	default:
		row.Streak = 1
	}
	row.LastParticipationDay = today

	if m.rules.StreakTarget > 0 && row.Streak%m.rules.StreakTarget == 0 {
		m.coins[userID] += m.rules.StreakBonusCoins

		owned := m.inventory[userID]
		if owned == nil {
			owned = make(map[string]bool)
			m.inventory[userID] = owned
		}
		var candidates []string
		for _, item := range shop.ItemsForGame(gameName) {
			if !owned[item.ID] {
				candidates = append(candidates, item.ID)
			}
		}
		if len(candidates) > 0 {
			owned[candidates[rand.Intn(len(candidates))]] = true
		}
	}
}

func (m *MemStore) Matches(_ context.Context, id int64) ([]models.TournamentMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TournamentMatch
	for _, match := range m.matches[id] {
		out = append(out, *match)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) TopPoints(_ context.Context, gameName string, limit int) ([]models.TournamentPoints, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TournamentPoints
	for _, row := range m.points {
		if row.Game == gameName {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) refundLocked(userID int64, fee int, kind string) {
	if kind == models.EntryKindTicket {
		m.tickets[userID]++
		return
	}
	m.coins[userID] += fee
}

func (m *MemStore) addPointsLocked(userID int64, scope string, points int) {
	key := pointsKey(userID, scope)
	row, ok := m.points[key]
	if !ok {
		row = &models.TournamentPoints{UserID: userID, Game: scope}
		m.points[key] = row
	}
	row.Points += points
}

func (m *MemStore) insertMatchLocked(tournamentID int64, round int, pair [2]int64) {
	match := &models.TournamentMatch{
		ID:           m.nextID,
		TournamentID: tournamentID,
		Round:        round,
		PlayerA:      nullInt64(pair[0]),
	}
	m.nextID++
	if pair[1] == 0 {
		match.Status = models.MatchStatusBye
		match.WinnerID = nullInt64(pair[0])
		match.EndedAt = nullTimeNow()
	} else {
		match.Status = models.MatchStatusPending
		match.PlayerB = nullInt64(pair[1])
	}
	m.matches[tournamentID] = append(m.matches[tournamentID], match)
}

func pointsKey(userID int64, scope string) string {
	return fmt.Sprintf("%s:%d", scope, userID)
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullTimeNow() sql.NullTime {
	return sql.NullTime{Time: time.Now(), Valid: true}
}
