package tournament

import (
	"context"
	"errors"
	"time"

	"github.com/smarena/backend/internal/models"
)

var (
	ErrNotFound           = errors.New("tournament not found")
	ErrRegistrationClosed = errors.New("registration closed")
	ErrTournamentFull     = errors.New("tournament full")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNoTickets          = errors.New("no tickets")
	ErrAlreadyProcessed   = errors.New("already processed")
)

// Rules carries the economics of tournament settlement.
type Rules struct {
	MinPlayers          int
	ArenaFeePercent     int
	WinnerPercent       int
	RunnerUpPercent     int
	PointsJoin          int
	PointsWin           int
	PointsChampionBonus int
	PointsRunnerUpBonus int
	StreakTarget        int
	StreakBonusCoins    int
}

// NewTournament is the input to Store.Create.
type NewTournament struct {
	Game      string
	Title     string
	Size      int
	EntryFee  int
	RegEndsAt time.Time
	DayKey    string
	CreatedBy string
}

// Settlement summarizes a finished tournament's payouts.
type Settlement struct {
	TournamentID  int64
	Game          string
	Champion      int64
	RunnerUp      int64
	ChampionPrize int
	RunnerUpPrize int
	ArenaFee      int
	Participants  []int64
}

// Store persists tournaments, brackets and points. Join, Leave, Cancel and
// AdvanceRound are transactional: wallet movement and state change commit
// together or not at all.
type Store interface {
	// Create inserts a REG tournament. A duplicate day key returns
	// ErrAlreadyProcessed.
	Create(ctx context.Context, nt NewTournament) (int64, error)
	Get(ctx context.Context, id int64) (*models.Tournament, error)
	// ActiveByGame returns the REG or RUNNING tournament for a game, or nil.
	ActiveByGame(ctx context.Context, gameName string) (*models.Tournament, error)
	// ListOpen returns every tournament still in registration.
	ListOpen(ctx context.Context) ([]models.Tournament, error)
	Players(ctx context.Context, id int64) ([]models.TournamentPlayer, error)

	// Join registers a player, taking the fee from coins or one ticket.
	// A repeat join returns ErrAlreadyProcessed.
	Join(ctx context.Context, id, userID int64, rating int, useTicket bool) error
	// Leave refunds by entry kind during registration. Leaving without
	// having joined returns ErrAlreadyProcessed.
	Leave(ctx context.Context, id, userID int64) error
	// Cancel refunds every player and marks the tournament CANCELLED.
	// Terminal tournaments return ErrAlreadyProcessed.
	Cancel(ctx context.Context, id int64) error

	// MarkReminder flips a reminder flag, reporting whether it was unset.
	MarkReminder(ctx context.Context, id int64, final bool) (bool, error)

	// GenerateBracket seeds round one and moves the tournament to RUNNING.
	// Overflow players are refunded and returned. Only REG tournaments
	// generate; anything else returns ErrRegistrationClosed.
	GenerateBracket(ctx context.Context, id int64, maxSize int) (cut []int64, err error)
	// PendingMatches lists round matches with two real players awaiting play.
	PendingMatches(ctx context.Context, id int64) ([]models.TournamentMatch, error)
	MarkMatchPlaying(ctx context.Context, matchID int64, sessionID string) error
	// SetMatchResult records a winner; a DONE match is left untouched and
	// reports false.
	SetMatchResult(ctx context.Context, matchID, winnerID int64) (bool, error)
	// AdvanceRound pairs winners into the next round once the current round
	// is complete. When one winner remains it settles the tournament and
	// returns the settlement, exactly once.
	AdvanceRound(ctx context.Context, id int64) (*Settlement, error)

	Matches(ctx context.Context, id int64) ([]models.TournamentMatch, error)
	TopPoints(ctx context.Context, gameName string, limit int) ([]models.TournamentPoints, error)
}
