package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/ledger"
	"github.com/smarena/backend/internal/shop"
)

// GetProfile returns the player's balances and VIP state.
func GetProfile(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "user_id")
		if !ok {
			return
		}
		user, err := ledger.GetOrCreateUser(db, userID, "")
		if err != nil {
			log.Printf("[API] profile fetch failed for %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		vip, _ := ledger.IsVIP(db, userID)
		c.JSON(http.StatusOK, gin.H{
			"user_id":      user.UserID,
			"display_name": user.DisplayName,
			"coins":        user.Coins,
			"tickets":      user.Tickets,
			"vip":          vip,
		})
	}
}

// BuyTicket converts coins into one tournament ticket.
func BuyTicket(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "user_id")
		if !ok {
			return
		}
		if err := ledger.BuyTicket(db, userID, cfg.TicketPriceCoins); err != nil {
			ledgerError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"purchased": true, "price": cfg.TicketPriceCoins})
	}
}

// ClaimVIPTicket grants the once-a-day free VIP ticket. Claiming twice on the
// same day reports claimed without granting again.
func ClaimVIPTicket(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "user_id")
		if !ok {
			return
		}
		err := ledger.ClaimVIPDailyTicket(db, userID)
		if errors.Is(err, ledger.ErrAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"claimed": true, "repeat": true})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"claimed": true})
	}
}

// ShopCatalog lists purchasable items, optionally filtered by game.
func ShopCatalog() gin.HandlerFunc {
	return func(c *gin.Context) {
		gameName := c.Query("game")
		if gameName != "" {
			c.JSON(http.StatusOK, gin.H{"items": shop.ItemsForGame(gameName)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": shop.Items()})
	}
}

// BuyItem purchases a catalog item with coins.
func BuyItem(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "user_id")
		if !ok {
			return
		}
		var req struct {
			ItemID string `json:"item_id"`
		}
		if err := c.BindJSON(&req); err != nil || req.ItemID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "item_id required"})
			return
		}
		err := shop.Buy(db, userID, req.ItemID)
		if errors.Is(err, ledger.ErrAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"purchased": true, "repeat": true})
			return
		}
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"purchased": true})
	}
}

// GetInventory lists the items a player owns.
func GetInventory(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "user_id")
		if !ok {
			return
		}
		ids, err := shop.OwnedItemIDs(db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": ids})
	}
}
