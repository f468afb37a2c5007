package tournament

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/models"
	"github.com/smarena/backend/internal/shop"
)

// SQLStore is the Postgres-backed Store. Money and state move in the same
// transaction; row locks on the tournament serialize concurrent joins.
type SQLStore struct {
	db    *sqlx.DB
	rules Rules
}

func NewSQLStore(db *sqlx.DB, rules Rules) *SQLStore {
	return &SQLStore{db: db, rules: rules}
}

func (s *SQLStore) Create(ctx context.Context, nt NewTournament) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO tournaments (game, title, status, size, entry_fee, reg_ends_at, day_key, created_by)
		VALUES ($1, $2, 'REG', $3, $4, $5, $6, $7)
		ON CONFLICT (game, day_key) WHERE day_key <> '' DO NOTHING
		RETURNING id
	`, nt.Game, nt.Title, nt.Size, nt.EntryFee, nt.RegEndsAt, nt.DayKey, nt.CreatedBy).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrAlreadyProcessed
	}
	if err != nil {
		return 0, fmt.Errorf("tournament insert failed: %w", err)
	}
	return id, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*models.Tournament, error) {
	var t models.Tournament
	err := s.db.GetContext(ctx, &t, `SELECT * FROM tournaments WHERE id=$1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tournament query failed: %w", err)
	}
	return &t, nil
}

func (s *SQLStore) ActiveByGame(ctx context.Context, gameName string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.db.GetContext(ctx, &t, `
		SELECT * FROM tournaments
		WHERE game=$1 AND status IN ('REG','RUNNING')
		ORDER BY id DESC LIMIT 1
	`, gameName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active tournament query failed: %w", err)
	}
	return &t, nil
}

func (s *SQLStore) ListOpen(ctx context.Context) ([]models.Tournament, error) {
	var out []models.Tournament
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM tournaments WHERE status='REG' ORDER BY reg_ends_at`)
	if err != nil {
		return nil, fmt.Errorf("open tournaments query failed: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Players(ctx context.Context, id int64) ([]models.TournamentPlayer, error) {
	var out []models.TournamentPlayer
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM tournament_players WHERE tournament_id=$1 ORDER BY joined_at
	`, id)
	if err != nil {
		return nil, fmt.Errorf("players query failed: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Join(ctx context.Context, id, userID int64, rating int, useTicket bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := lockTournament(ctx, tx, id)
	if err != nil {
		return err
	}
	if t.Status != models.TournamentStatusReg {
		return ErrRegistrationClosed
	}

	var joined int
	if err := tx.GetContext(ctx, &joined, `
		SELECT COUNT(*) FROM tournament_players WHERE tournament_id=$1 AND user_id=$2
	`, id, userID); err != nil {
		return fmt.Errorf("membership check failed: %w", err)
	}
	if joined > 0 {
		return ErrAlreadyProcessed
	}

	var count int
	if err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM tournament_players WHERE tournament_id=$1
	`, id); err != nil {
		return fmt.Errorf("capacity check failed: %w", err)
	}
	if count >= t.Size {
		return ErrTournamentFull
	}

	kind := models.EntryKindCoins
	if t.EntryFee > 0 {
		if useTicket {
			kind = models.EntryKindTicket
			res, err := tx.ExecContext(ctx, `
				UPDATE users SET tickets = tickets - 1, updated_at = NOW()
				WHERE user_id = $1 AND tickets > 0
			`, userID)
			if err != nil {
				return fmt.Errorf("ticket debit failed: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrNoTickets
			}
		} else {
			res, err := tx.ExecContext(ctx, `
				UPDATE users SET coins = coins - $1, updated_at = NOW()
				WHERE user_id = $2 AND coins >= $1
			`, t.EntryFee, userID)
			if err != nil {
				return fmt.Errorf("entry fee debit failed: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrInsufficientFunds
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tournaments SET prize_pool = prize_pool + $1 WHERE id = $2
		`, t.EntryFee, id); err != nil {
			return fmt.Errorf("pool update failed: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tournament_players (tournament_id, user_id, entry_kind, rating_at_join)
		VALUES ($1, $2, $3, $4)
	`, id, userID, kind, rating); err != nil {
		return fmt.Errorf("player insert failed: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) Leave(ctx context.Context, id, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := lockTournament(ctx, tx, id)
	if err != nil {
		return err
	}
	if t.Status != models.TournamentStatusReg {
		return ErrRegistrationClosed
	}

	var player models.TournamentPlayer
	err = tx.GetContext(ctx, &player, `
		SELECT * FROM tournament_players WHERE tournament_id=$1 AND user_id=$2
	`, id, userID)
	if err == sql.ErrNoRows {
		return ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("membership check failed: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM tournament_players WHERE tournament_id=$1 AND user_id=$2
	`, id, userID); err != nil {
		return fmt.Errorf("player delete failed: %w", err)
	}

	if t.EntryFee > 0 {
		if err := refundEntry(ctx, tx, userID, t.EntryFee, player.EntryKind); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE tournaments SET prize_pool = GREATEST(prize_pool - $1, 0) WHERE id = $2
		`, t.EntryFee, id); err != nil {
			return fmt.Errorf("pool update failed: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) Cancel(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := lockTournament(ctx, tx, id)
	if err != nil {
		return err
	}
	if t.Status == models.TournamentStatusDone || t.Status == models.TournamentStatusCancelled {
		return ErrAlreadyProcessed
	}

	var players []models.TournamentPlayer
	if err := tx.SelectContext(ctx, &players, `
		SELECT * FROM tournament_players WHERE tournament_id=$1
	`, id); err != nil {
		return fmt.Errorf("players query failed: %w", err)
	}

	if t.EntryFee > 0 {
		for _, p := range players {
			if err := refundEntry(ctx, tx, p.UserID, t.EntryFee, p.EntryKind); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tournaments SET status='CANCELLED', prize_pool=0, ended_at=NOW() WHERE id=$1
	`, id); err != nil {
		return fmt.Errorf("cancel update failed: %w", err)
	}

	log.Printf("[TOURN] tournament %d cancelled, %d players refunded", id, len(players))
	return tx.Commit()
}

func (s *SQLStore) MarkReminder(ctx context.Context, id int64, final bool) (bool, error) {
	col := "remind_first_sent"
	if final {
		col = "remind_final_sent"
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE tournaments SET %[1]s = TRUE WHERE id = $1 AND NOT %[1]s
	`, col), id)
	if err != nil {
		return false, fmt.Errorf("reminder flag update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reminder flag update failed: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) GenerateBracket(ctx context.Context, id int64, maxSize int) ([]int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := lockTournament(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TournamentStatusReg {
		return nil, ErrRegistrationClosed
	}

	var players []models.TournamentPlayer
	if err := tx.SelectContext(ctx, &players, `
		SELECT * FROM tournament_players WHERE tournament_id=$1
		ORDER BY rating_at_join DESC, joined_at ASC
	`, id); err != nil {
		return nil, fmt.Errorf("seeding query failed: %w", err)
	}

	ids := make([]int64, len(players))
	kinds := make(map[int64]string, len(players))
	for i, p := range players {
		ids[i] = p.UserID
		kinds[p.UserID] = p.EntryKind
	}

	seeds, cut := bracketSeeds(ids, maxSize)
	for _, uid := range cut {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM tournament_players WHERE tournament_id=$1 AND user_id=$2
		`, id, uid); err != nil {
			return nil, fmt.Errorf("overflow removal failed: %w", err)
		}
		if t.EntryFee > 0 {
			if err := refundEntry(ctx, tx, uid, t.EntryFee, kinds[uid]); err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE tournaments SET prize_pool = GREATEST(prize_pool - $1, 0) WHERE id = $2
			`, t.EntryFee, id); err != nil {
				return nil, fmt.Errorf("pool update failed: %w", err)
			}
		}
	}

	for _, pair := range foldPairs(seeds) {
		if err := insertMatch(ctx, tx, id, 1, pair); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tournaments SET status='RUNNING' WHERE id=$1
	`, id); err != nil {
		return nil, fmt.Errorf("status update failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	log.Printf("[TOURN] bracket generated for tournament %d: %d seeds, %d cut", id, len(seeds), len(cut))
	return cut, nil
}

func (s *SQLStore) PendingMatches(ctx context.Context, id int64) ([]models.TournamentMatch, error) {
	var out []models.TournamentMatch
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM tournament_matches
		WHERE tournament_id=$1 AND status='PENDING'
		  AND player_a IS NOT NULL AND player_b IS NOT NULL
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("pending matches query failed: %w", err)
	}
	return out, nil
}

func (s *SQLStore) MarkMatchPlaying(ctx context.Context, matchID int64, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tournament_matches SET status='PLAYING', session_id=$2, started_at=NOW()
		WHERE id=$1 AND status='PENDING'
	`, matchID, sessionID)
	if err != nil {
		return fmt.Errorf("match start update failed: %w", err)
	}
	return nil
}

func (s *SQLStore) SetMatchResult(ctx context.Context, matchID, winnerID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tournament_matches SET status='DONE', winner_id=$2, ended_at=NOW()
		WHERE id=$1 AND status IN ('PENDING','PLAYING')
	`, matchID, winnerID)
	if err != nil {
		return false, fmt.Errorf("result update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("result update failed: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) AdvanceRound(ctx context.Context, id int64) (*Settlement, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	t, err := lockTournament(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TournamentStatusRunning {
		return nil, nil
	}

	var maxRound int
	if err := tx.GetContext(ctx, &maxRound, `
		SELECT COALESCE(MAX(round), 0) FROM tournament_matches WHERE tournament_id=$1
	`, id); err != nil {
		return nil, fmt.Errorf("round query failed: %w", err)
	}
	if maxRound == 0 {
		return nil, nil
	}

	var unfinished int
	if err := tx.GetContext(ctx, &unfinished, `
		SELECT COUNT(*) FROM tournament_matches
		WHERE tournament_id=$1 AND round=$2 AND status IN ('PENDING','PLAYING')
	`, id, maxRound); err != nil {
		return nil, fmt.Errorf("round progress query failed: %w", err)
	}
	if unfinished > 0 {
		return nil, nil
	}

	var winners []int64
	if err := tx.SelectContext(ctx, &winners, `
		SELECT winner_id FROM tournament_matches
		WHERE tournament_id=$1 AND round=$2 AND winner_id IS NOT NULL
		ORDER BY id
	`, id, maxRound); err != nil {
		return nil, fmt.Errorf("winners query failed: %w", err)
	}

	if len(winners) > 1 {
		for _, pair := range pairWinners(winners) {
			if err := insertMatch(ctx, tx, id, maxRound+1, pair); err != nil {
				return nil, err
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		log.Printf("[TOURN] tournament %d advanced to round %d (%d winners)", id, maxRound+1, len(winners))
		return nil, nil
	}

	settlement, err := s.finalize(ctx, tx, t, maxRound)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return settlement, nil
}

// finalize pays out the bracket inside the caller's transaction. The
// RUNNING->DONE transition in the same tx makes it run exactly once.
func (s *SQLStore) finalize(ctx context.Context, tx *sqlx.Tx, t *models.Tournament, lastRound int) (*Settlement, error) {
	var final models.TournamentMatch
	if err := tx.GetContext(ctx, &final, `
		SELECT * FROM tournament_matches
		WHERE tournament_id=$1 AND round=$2
		ORDER BY id DESC LIMIT 1
	`, t.ID, lastRound); err != nil {
		return nil, fmt.Errorf("final match query failed: %w", err)
	}

	champion := final.WinnerID.Int64
	runnerUp := final.PlayerA.Int64
	if runnerUp == champion {
		runnerUp = final.PlayerB.Int64
	}

	arenaFee := t.PrizePool * s.rules.ArenaFeePercent / 100
	net := t.PrizePool - arenaFee
	championPrize := net * s.rules.WinnerPercent / 100
	runnerUpPrize := net * s.rules.RunnerUpPercent / 100

	if arenaFee > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO arena_revenue (amount, reference)
			VALUES ($1, $2)
			ON CONFLICT (reference) DO NOTHING
		`, arenaFee, fmt.Sprintf("tournament_fee:%d", t.ID)); err != nil {
			return nil, fmt.Errorf("revenue insert failed: %w", err)
		}
	}
	if championPrize > 0 {
		if err := creditCoins(ctx, tx, champion, championPrize); err != nil {
			return nil, err
		}
	}
	if runnerUpPrize > 0 && runnerUp != 0 {
		if err := creditCoins(ctx, tx, runnerUp, runnerUpPrize); err != nil {
			return nil, err
		}
	}

	var players []models.TournamentPlayer
	if err := tx.SelectContext(ctx, &players, `
		SELECT * FROM tournament_players WHERE tournament_id=$1
	`, t.ID); err != nil {
		return nil, fmt.Errorf("players query failed: %w", err)
	}

	winCounts := map[int64]int{}
	rows, err := tx.QueryxContext(ctx, `
		SELECT winner_id, COUNT(*) FROM tournament_matches
		WHERE tournament_id=$1 AND winner_id IS NOT NULL AND status IN ('DONE','BYE')
		GROUP BY winner_id
	`, t.ID)
	if err != nil {
		return nil, fmt.Errorf("win count query failed: %w", err)
	}
	for rows.Next() {
		var uid int64
		var n int
		if err := rows.Scan(&uid, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("win count scan failed: %w", err)
		}
		winCounts[uid] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("win count rows failed: %w", err)
	}
	rows.Close()

	participants := make([]int64, 0, len(players))
	for _, p := range players {
		participants = append(participants, p.UserID)

		points := s.rules.PointsJoin + s.rules.PointsWin*winCounts[p.UserID]
		if p.UserID == champion {
			points += s.rules.PointsChampionBonus
		}
		if p.UserID == runnerUp {
			points += s.rules.PointsRunnerUpBonus
		}
		for _, scope := range []string{t.Game, "all"} {
			if err := addPoints(ctx, tx, p.UserID, scope, points); err != nil {
				return nil, err
			}
		}

		if err := s.awardStreak(ctx, tx, p.UserID, t.Game); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tournaments SET status='DONE', prize_pool=0, ended_at=NOW() WHERE id=$1
	`, t.ID); err != nil {
		return nil, fmt.Errorf("finalize update failed: %w", err)
	}

	log.Printf("[TOURN] tournament %d settled: champion=%d (%d coins) runner-up=%d (%d coins) fee=%d",
		t.ID, champion, championPrize, runnerUp, runnerUpPrize, arenaFee)

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

// awardStreak advances the participation streak: a consecutive day extends
// it, a gap resets it, the same day keeps it. Every full streak target pays
// bonus coins plus a random unowned skin for the game.
func (s *SQLStore) awardStreak(ctx context.Context, tx *sqlx.Tx, userID int64, gameName string) error {
	today := time.Now().UTC().Format("2006-01-02")
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	var lastDay string
	var streak int
	err := tx.QueryRowxContext(ctx, `
		SELECT last_participation_day, streak FROM tournament_points
		WHERE user_id=$1 AND game=$2
	`, userID, gameName).Scan(&lastDay, &streak)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("streak query failed: %w", err)
	}

	switch lastDay {
	case today:
		// Second tournament the same day leaves the streak alone.
		return nil
	case yesterday:
		streak++
	default:
		streak = 1
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tournament_points (user_id, game, streak, last_participation_day, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, game) DO UPDATE
		SET streak = $3, last_participation_day = $4, updated_at = NOW()
	`, userID, gameName, streak, today); err != nil {
		return fmt.Errorf("streak update failed: %w", err)
	}

	if s.rules.StreakTarget > 0 && streak%s.rules.StreakTarget == 0 {
		if err := creditCoins(ctx, tx, userID, s.rules.StreakBonusCoins); err != nil {
			return err
		}
		if err := s.grantRandomSkin(ctx, tx, userID, gameName); err != nil {
			return err
		}
		log.Printf("[TOURN] streak bonus for user %d (%s streak %d)", userID, gameName, streak)
	}
	return nil
}

func (s *SQLStore) grantRandomSkin(ctx context.Context, tx *sqlx.Tx, userID int64, gameName string) error {
	var owned []string
	if err := tx.SelectContext(ctx, &owned, `
		SELECT item_id FROM inventory WHERE user_id=$1
	`, userID); err != nil {
		return fmt.Errorf("inventory query failed: %w", err)
	}
	ownedSet := make(map[string]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}

	var candidates []string
	for _, item := range shop.ItemsForGame(gameName) {
		if !ownedSet[item.ID] {
			candidates = append(candidates, item.ID)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	pick := candidates[rand.Intn(len(candidates))]
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (user_id, item_id) VALUES ($1, $2)
		ON CONFLICT (user_id, item_id) DO NOTHING
	`, userID, pick); err != nil {
		return fmt.Errorf("skin grant failed: %w", err)
	}
	return nil
}

func (s *SQLStore) Matches(ctx context.Context, id int64) ([]models.TournamentMatch, error) {
	var out []models.TournamentMatch
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM tournament_matches WHERE tournament_id=$1 ORDER BY round, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("matches query failed: %w", err)
	}
	return out, nil
}

func (s *SQLStore) TopPoints(ctx context.Context, gameName string, limit int) ([]models.TournamentPoints, error) {
	var out []models.TournamentPoints
	err := s.db.SelectContext(ctx, &out, `
		SELECT * FROM tournament_points WHERE game=$1
		ORDER BY points DESC, updated_at ASC LIMIT $2
	`, gameName, limit)
	if err != nil {
		return nil, fmt.Errorf("points query failed: %w", err)
	}
	return out, nil
}

func lockTournament(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Tournament, error) {
	var t models.Tournament
	err := tx.GetContext(ctx, &t, `SELECT * FROM tournaments WHERE id=$1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tournament lock failed: %w", err)
	}
	return &t, nil
}

func refundEntry(ctx context.Context, tx *sqlx.Tx, userID int64, fee int, kind string) error {
	if kind == models.EntryKindTicket {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET tickets = tickets + 1, updated_at = NOW() WHERE user_id = $1
		`, userID); err != nil {
			return fmt.Errorf("ticket refund failed: %w", err)
		}
		return nil
	}
	return creditCoins(ctx, tx, userID, fee)
}

func creditCoins(ctx context.Context, tx *sqlx.Tx, userID int64, amount int) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET coins = coins + $1, updated_at = NOW() WHERE user_id = $2
	`, amount, userID); err != nil {
		return fmt.Errorf("coin credit failed: %w", err)
	}
	return nil
}

func addPoints(ctx context.Context, tx *sqlx.Tx, userID int64, scope string, points int) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tournament_points (user_id, game, points, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, game) DO UPDATE
		SET points = tournament_points.points + $3, updated_at = NOW()
	`, userID, scope, points); err != nil {
		return fmt.Errorf("points update failed: %w", err)
	}
	return nil
}

func insertMatch(ctx context.Context, tx *sqlx.Tx, tournamentID int64, round int, pair [2]int64) error {
	a, b := pair[0], pair[1]
	if b == 0 {
		// A bye completes instantly with the real player advancing.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tournament_matches (tournament_id, round, player_a, status, winner_id, ended_at)
			VALUES ($1, $2, $3, 'BYE', $3, NOW())
		`, tournamentID, round, a)
		if err != nil {
			return fmt.Errorf("bye insert failed: %w", err)
		}
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tournament_matches (tournament_id, round, player_a, player_b, status)
		VALUES ($1, $2, $3, $4, 'PENDING')
	`, tournamentID, round, a, b)
	if err != nil {
		return fmt.Errorf("match insert failed: %w", err)
	}
	return nil
}
