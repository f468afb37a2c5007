package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/models"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoTickets         = errors.New("no tickets")
	ErrAlreadyProcessed  = errors.New("already processed")
)

// GetOrCreateUser fetches a user row, creating it on first contact.
func GetOrCreateUser(db *sqlx.DB, userID int64, displayName string) (*models.User, error) {
	var user models.User
	err := db.Get(&user, `SELECT * FROM users WHERE user_id=$1`, userID)
	if err == nil {
		return &user, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = db.Get(&user, `
		INSERT INTO users (user_id, display_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING *
	`, userID, displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// TryDebit removes amount coins only if the balance covers it. The condition
// and the update are a single statement, so concurrent debits cannot overdraw.
func TryDebit(db *sqlx.DB, userID int64, amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative debit amount %d", amount)
	}
	res, err := db.Exec(`
		UPDATE users SET coins = coins - $1, updated_at = NOW()
		WHERE user_id = $2 AND coins >= $1
	`, amount, userID)
	if err != nil {
		return fmt.Errorf("debit failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit failed: %w", err)
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// Credit adds coins to a user's balance.
func Credit(db *sqlx.DB, userID int64, amount int) error {
	if amount < 0 {
		return fmt.Errorf("negative credit amount %d", amount)
	}
	_, err := db.Exec(`
		UPDATE users SET coins = coins + $1, updated_at = NOW()
		WHERE user_id = $2
	`, amount, userID)
	if err != nil {
		return fmt.Errorf("credit failed: %w", err)
	}
	return nil
}

// ConsumeTicket spends one tournament ticket if the user has any.
func ConsumeTicket(db *sqlx.DB, userID int64) error {
	res, err := db.Exec(`
		UPDATE users SET tickets = tickets - 1, updated_at = NOW()
		WHERE user_id = $1 AND tickets > 0
	`, userID)
	if err != nil {
		return fmt.Errorf("ticket consume failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ticket consume failed: %w", err)
	}
	if n == 0 {
		return ErrNoTickets
	}
	return nil
}

// CreditTicket grants tournament tickets.
func CreditTicket(db *sqlx.DB, userID int64, count int) error {
	if count < 0 {
		return fmt.Errorf("negative ticket count %d", count)
	}
	_, err := db.Exec(`
		UPDATE users SET tickets = tickets + $1, updated_at = NOW()
		WHERE user_id = $2
	`, count, userID)
	if err != nil {
		return fmt.Errorf("ticket credit failed: %w", err)
	}
	return nil
}

// BuyTicket converts coins into one tournament ticket at the given price.
func BuyTicket(db *sqlx.DB, userID int64, price int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE users SET coins = coins - $1, tickets = tickets + 1, updated_at = NOW()
		WHERE user_id = $2 AND coins >= $1
	`, price, userID)
	if err != nil {
		return fmt.Errorf("ticket purchase failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ticket purchase failed: %w", err)
	}
	if n == 0 {
		return ErrInsufficientFunds
	}
	return tx.Commit()
}

// IsVIP reports whether the user's VIP subscription is active.
func IsVIP(db *sqlx.DB, userID int64) (bool, error) {
	var until sql.NullTime
	err := db.Get(&until, `SELECT vip_until FROM users WHERE user_id=$1`, userID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vip lookup failed: %w", err)
	}
	return until.Valid && until.Time.After(time.Now()), nil
}

// ClaimVIPDailyTicket grants a VIP user one ticket per UTC day. A repeat claim
// on the same day returns ErrAlreadyProcessed, which callers treat as success.
func ClaimVIPDailyTicket(db *sqlx.DB, userID int64) error {
	vip, err := IsVIP(db, userID)
	if err != nil {
		return err
	}
	if !vip {
		return fmt.Errorf("vip required")
	}

	dayKey := time.Now().UTC().Format("2006-01-02")
	res, err := db.Exec(`
		UPDATE users SET tickets = tickets + 1, ticket_last_claim_day = $1, updated_at = NOW()
		WHERE user_id = $2 AND ticket_last_claim_day <> $1
	`, dayKey, userID)
	if err != nil {
		return fmt.Errorf("vip ticket claim failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vip ticket claim failed: %w", err)
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return nil
}

// VIPUser is a row from ListVIPDue used by the daily bonus worker.
type VIPUser struct {
	UserID      int64        `db:"user_id"`
	LastDailyAt sql.NullTime `db:"vip_last_daily_at"`
}

// ListVIPDue returns active VIP users whose last daily bonus is older than a day.
func ListVIPDue(db *sqlx.DB) ([]VIPUser, error) {
	var users []VIPUser
	err := db.Select(&users, `
		SELECT user_id, vip_last_daily_at FROM users
		WHERE vip_until IS NOT NULL AND vip_until > NOW()
		  AND (vip_last_daily_at IS NULL OR vip_last_daily_at < NOW() - INTERVAL '24 hours')
	`)
	if err != nil {
		return nil, fmt.Errorf("vip list failed: %w", err)
	}
	return users, nil
}

// PayVIPDaily credits the daily VIP coin bonus and stamps the payout time.
func PayVIPDaily(db *sqlx.DB, userID int64, coins int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE users SET coins = coins + $1, vip_last_daily_at = NOW(), updated_at = NOW()
		WHERE user_id = $2
		  AND (vip_last_daily_at IS NULL OR vip_last_daily_at < NOW() - INTERVAL '24 hours')
	`, coins, userID)
	if err != nil {
		return fmt.Errorf("vip daily payout failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vip daily payout failed: %w", err)
	}
	if n == 0 {
		return ErrAlreadyProcessed
	}
	return tx.Commit()
}

// RecordArenaRevenue books a fee under a unique reference. Replays of the same
// reference are ignored, so settlement retries never double-book.
func RecordArenaRevenue(db *sqlx.DB, amount int, reference string) error {
	res, err := db.Exec(`
		INSERT INTO arena_revenue (amount, reference)
		VALUES ($1, $2)
		ON CONFLICT (reference) DO NOTHING
	`, amount, reference)
	if err != nil {
		return fmt.Errorf("revenue record failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Printf("[LEDGER] revenue reference %s already booked, skipping", reference)
		return ErrAlreadyProcessed
	}
	return nil
}
