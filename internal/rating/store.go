package rating

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/models"
)

// Store persists per-game ratings, win/loss counters and the anti-boost pair
// throttle. All methods are safe for concurrent use; mutations run in single
// statements or short transactions.
type Store struct {
	db            *sqlx.DB
	defaultRating int
	k             int
	window        time.Duration
	maxRated      int
}

func NewStore(db *sqlx.DB, defaultRating, k, windowHours, maxRated int) *Store {
	return &Store{
		db:            db,
		defaultRating: defaultRating,
		k:             k,
		window:        time.Duration(windowHours) * time.Hour,
		maxRated:      maxRated,
	}
}

// Rating returns the user's rating for a game, creating the row at the
// default rating on first lookup.
func (s *Store) Rating(userID int64, game string) (int, error) {
	var r int
	err := s.db.Get(&r, `SELECT rating FROM game_ratings WHERE user_id=$1 AND game=$2`, userID, game)
	if err == nil {
		return r, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("rating lookup failed: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO game_ratings (user_id, game, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, game) DO NOTHING
	`, userID, game, s.defaultRating)
	if err != nil {
		return 0, fmt.Errorf("rating init failed: %w", err)
	}
	return s.defaultRating, nil
}

// SetRating overwrites the stored rating for a game.
func (s *Store) SetRating(userID int64, game string, value int) error {
	_, err := s.db.Exec(`
		INSERT INTO game_ratings (user_id, game, rating, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, game) DO UPDATE SET rating = $3, updated_at = NOW()
	`, userID, game, value)
	if err != nil {
		return fmt.Errorf("rating set failed: %w", err)
	}
	return nil
}

// IsRatedPair reports whether the next decisive game between the two players
// still counts for rating under the anti-boost throttle.
func (s *Store) IsRatedPair(a, b int64, game string) (bool, error) {
	stats, err := s.pairStats(PairKey(a, b), game)
	if err != nil {
		return false, err
	}
	return pairAllowed(stats, time.Now(), s.window, s.maxRated), nil
}

// RecordPair counts one rated game for the pair, restarting the window when
// it has elapsed.
func (s *Store) RecordPair(a, b int64, game string) error {
	key := PairKey(a, b)
	stats, err := s.pairStats(key, game)
	if err != nil {
		return err
	}
	count, start, total := nextPairStats(stats, time.Now(), s.window)
	_, err = s.db.Exec(`
		INSERT INTO pair_stats (pair_key, game, rated_count, window_start, total_games)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pair_key, game) DO UPDATE
		SET rated_count = $3, window_start = $4, total_games = $5
	`, key, game, count, start, total)
	if err != nil {
		return fmt.Errorf("pair record failed: %w", err)
	}
	return nil
}

func (s *Store) pairStats(key, game string) (*models.PairStats, error) {
	var stats models.PairStats
	err := s.db.Get(&stats, `SELECT * FROM pair_stats WHERE pair_key=$1 AND game=$2`, key, game)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pair lookup failed: %w", err)
	}
	return &stats, nil
}

// BumpStats updates the win/loss/draw counters for one player.
// outcome is "win", "loss" or "draw".
func (s *Store) BumpStats(userID int64, game, outcome string) error {
	col := ""
	switch outcome {
	case "win":
		col = "wins"
	case "loss":
		col = "losses"
	case "draw":
		col = "draws"
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	query := fmt.Sprintf(`
		INSERT INTO game_ratings (user_id, game, rating, %[1]s, games_played)
		VALUES ($1, $2, $3, 1, 1)
		ON CONFLICT (user_id, game) DO UPDATE
		SET %[1]s = game_ratings.%[1]s + 1,
		    games_played = game_ratings.games_played + 1,
		    updated_at = NOW()
	`, col)
	if _, err := s.db.Exec(query, userID, game, s.defaultRating); err != nil {
		return fmt.Errorf("stats bump failed: %w", err)
	}
	return nil
}

// ApplyMatchResult settles the rating side of a finished PvP game: stat
// counters always move; ratings move only for decisive games between pairs
// the throttle still allows. Returns whether the game was rated.
func (s *Store) ApplyMatchResult(game string, winner, loser int64, draw bool) (bool, error) {
	if draw {
		if err := s.BumpStats(winner, game, "draw"); err != nil {
			return false, err
		}
		if err := s.BumpStats(loser, game, "draw"); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := s.BumpStats(winner, game, "win"); err != nil {
		return false, err
	}
	if err := s.BumpStats(loser, game, "loss"); err != nil {
		return false, err
	}

	rated, err := s.IsRatedPair(winner, loser, game)
	if err != nil {
		return false, err
	}
	if !rated {
		log.Printf("[RATING] pair %s unrated for %s (throttle)", PairKey(winner, loser), game)
		return false, nil
	}

	wr, err := s.Rating(winner, game)
	if err != nil {
		return false, err
	}
	lr, err := s.Rating(loser, game)
	if err != nil {
		return false, err
	}
	newW, newL := UpdatePair(wr, lr, ScoreWin, s.k)
	if err := s.SetRating(winner, game, newW); err != nil {
		return false, err
	}
	if err := s.SetRating(loser, game, newL); err != nil {
		return false, err
	}
	if err := s.RecordPair(winner, loser, game); err != nil {
		return false, err
	}
	log.Printf("[RATING] %s: %d %d->%d, %d %d->%d", game, winner, wr, newW, loser, lr, newL)
	return true, nil
}

// TopRatings returns the rating leaderboard for a game.
func (s *Store) TopRatings(game string, limit int) ([]models.GameRating, error) {
	var rows []models.GameRating
	err := s.db.Select(&rows, `
		SELECT * FROM game_ratings WHERE game=$1
		ORDER BY rating DESC, games_played DESC LIMIT $2
	`, game, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query failed: %w", err)
	}
	return rows, nil
}
