package shop

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/ledger"
)

// OwnedItemIDs lists the item ids a user holds.
func OwnedItemIDs(db *sqlx.DB, userID int64) ([]string, error) {
	var ids []string
	err := db.Select(&ids, `SELECT item_id FROM inventory WHERE user_id=$1`, userID)
	if err != nil {
		return nil, fmt.Errorf("inventory query failed: %w", err)
	}
	return ids, nil
}

// AddItem grants an item; owning it already is fine.
func AddItem(db *sqlx.DB, userID int64, itemID string) error {
	_, err := db.Exec(`
		INSERT INTO inventory (user_id, item_id) VALUES ($1, $2)
		ON CONFLICT (user_id, item_id) DO NOTHING
	`, userID, itemID)
	if err != nil {
		return fmt.Errorf("inventory add failed: %w", err)
	}
	return nil
}

// Buy debits the item price and grants the item. Owning it already returns
// ledger.ErrAlreadyProcessed without charging.
func Buy(db *sqlx.DB, userID int64, itemID string) error {
	item, ok := GetItem(itemID)
	if !ok {
		return fmt.Errorf("unknown item %q", itemID)
	}

	owned, err := OwnedItemIDs(db, userID)
	if err != nil {
		return err
	}
	for _, id := range owned {
		if id == itemID {
			return ledger.ErrAlreadyProcessed
		}
	}

	if err := ledger.TryDebit(db, userID, item.Price); err != nil {
		return err
	}
	if err := AddItem(db, userID, itemID); err != nil {
		// The debit went through; hand the coins back rather than leave
		// the purchase half done.
		if cerr := ledger.Credit(db, userID, item.Price); cerr != nil {
			return fmt.Errorf("grant failed (%v) and refund failed: %w", err, cerr)
		}
		return err
	}
	return nil
}
