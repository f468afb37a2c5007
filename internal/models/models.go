package models

import (
	"database/sql"
	"time"
)

// User is an arena account with its coin/ticket wallet and VIP status
type User struct {
	UserID             int64        `db:"user_id" json:"user_id"`
	DisplayName        string       `db:"display_name" json:"display_name"`
	Coins              int          `db:"coins" json:"coins"`
	Tickets            int          `db:"tickets" json:"tickets"`
	VIPUntil           sql.NullTime `db:"vip_until" json:"vip_until,omitempty"`
	VIPLastDailyAt     sql.NullTime `db:"vip_last_daily_at" json:"-"`
	TicketLastClaimDay string       `db:"ticket_last_claim_day" json:"-"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}

// GameRating is a per-game rating row with win/loss counters
type GameRating struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	Game        string    `db:"game" json:"game"`
	Rating      int       `db:"rating" json:"rating"`
	Wins        int       `db:"wins" json:"wins"`
	Losses      int       `db:"losses" json:"losses"`
	Draws       int       `db:"draws" json:"draws"`
	GamesPlayed int       `db:"games_played" json:"games_played"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}

// PairStats tracks how often two players met for the rated-game throttle
type PairStats struct {
	PairKey     string    `db:"pair_key" json:"pair_key"`
	Game        string    `db:"game" json:"game"`
	RatedCount  int       `db:"rated_count" json:"rated_count"`
	WindowStart time.Time `db:"window_start" json:"window_start"`
	TotalGames  int       `db:"total_games" json:"total_games"`
}

// Tournament statuses
const (
	TournamentStatusReg       = "REG"
	TournamentStatusRunning   = "RUNNING"
	TournamentStatusDone      = "DONE"
	TournamentStatusCancelled = "CANCELLED"
)

type Tournament struct {
	ID              int64        `db:"id" json:"id"`
	Game            string       `db:"game" json:"game"`
	Title           string       `db:"title" json:"title"`
	Status          string       `db:"status" json:"status"`
	Size            int          `db:"size" json:"size"`
	EntryFee        int          `db:"entry_fee" json:"entry_fee"`
	PrizePool       int          `db:"prize_pool" json:"prize_pool"`
	RegEndsAt       time.Time    `db:"reg_ends_at" json:"reg_ends_at"`
	DayKey          string       `db:"day_key" json:"day_key,omitempty"`
	RemindFirstSent bool         `db:"remind_first_sent" json:"-"`
	RemindFinalSent bool         `db:"remind_final_sent" json:"-"`
	CreatedBy       string       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	EndedAt         sql.NullTime `db:"ended_at" json:"ended_at,omitempty"`
}

// Entry kinds for tournament_players
const (
	EntryKindCoins  = "coins"
	EntryKindTicket = "ticket"
)

type TournamentPlayer struct {
	TournamentID int64     `db:"tournament_id" json:"tournament_id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	EntryKind    string    `db:"entry_kind" json:"entry_kind"`
	RatingAtJoin int       `db:"rating_at_join" json:"rating_at_join"`
	JoinedAt     time.Time `db:"joined_at" json:"joined_at"`
}

// Bracket match statuses
const (
	MatchStatusPending = "PENDING"
	MatchStatusPlaying = "PLAYING"
	MatchStatusDone    = "DONE"
	MatchStatusBye     = "BYE"
)

type TournamentMatch struct {
	ID           int64         `db:"id" json:"id"`
	TournamentID int64         `db:"tournament_id" json:"tournament_id"`
	Round        int           `db:"round" json:"round"`
	PlayerA      sql.NullInt64 `db:"player_a" json:"player_a,omitempty"`
	PlayerB      sql.NullInt64 `db:"player_b" json:"player_b,omitempty"`
	Status       string        `db:"status" json:"status"`
	WinnerID     sql.NullInt64 `db:"winner_id" json:"winner_id,omitempty"`
	SessionID    string        `db:"session_id" json:"session_id,omitempty"`
	StartedAt    sql.NullTime  `db:"started_at" json:"started_at,omitempty"`
	EndedAt      sql.NullTime  `db:"ended_at" json:"ended_at,omitempty"`
}

type TournamentPoints struct {
	UserID               int64     `db:"user_id" json:"user_id"`
	Game                 string    `db:"game" json:"game"`
	Points               int       `db:"points" json:"points"`
	Streak               int       `db:"streak" json:"streak"`
	LastParticipationDay string    `db:"last_participation_day" json:"-"`
	UpdatedAt            time.Time `db:"updated_at" json:"-"`
}

type InventoryItem struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	ItemID     string    `db:"item_id" json:"item_id"`
	AcquiredAt time.Time `db:"acquired_at" json:"acquired_at"`
}

type ArenaRevenue struct {
	ID        int64     `db:"id" json:"id"`
	Amount    int       `db:"amount" json:"amount"`
	Reference string    `db:"reference" json:"reference"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type OperatorAccount struct {
	Account     string    `db:"account" json:"account"`
	DisplayName string    `db:"display_name" json:"display_name"`
	TokenHash   string    `db:"token_hash" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type OperatorAudit struct {
	ID        int64     `db:"id" json:"id"`
	Account   string    `db:"account" json:"account"`
	Action    string    `db:"action" json:"action"`
	Details   []byte    `db:"details" json:"details"`
	Success   bool      `db:"success" json:"success"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
