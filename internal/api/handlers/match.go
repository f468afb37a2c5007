package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/arena"
	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/ledger"
	"github.com/smarena/backend/internal/rating"
)

// RequestMatch puts a player into matchmaking or returns the session when an
// opponent is already waiting.
func RequestMatch(db *sqlx.DB, manager *arena.Manager, ratings *rating.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID      int64  `json:"user_id"`
			DisplayName string `json:"display_name"`
			Game        string `json:"game"`
			Side        string `json:"side"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, game and side required"})
			return
		}

		if _, err := ledger.GetOrCreateUser(db, req.UserID, req.DisplayName); err != nil {
			log.Printf("[API] user upsert failed for %d: %v", req.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		vip, err := ledger.IsVIP(db, req.UserID)
		if err != nil {
			log.Printf("[API] vip lookup failed for %d: %v", req.UserID, err)
			vip = false
		}
		ratingVal, err := ratings.Rating(req.UserID, req.Game)
		if err != nil {
			ratingVal = cfg.DefaultRating
		}

		result, err := manager.RequestMatch(req.UserID, req.Game, req.Side, ratingVal, vip)
		if err != nil {
			arenaError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// CancelSearch removes a player from the matchmaking queues.
func CancelSearch(manager *arena.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID int64 `json:"user_id"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		removed := manager.CancelSearch(req.UserID)
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

// Lobby lists everyone currently searching for a game.
func Lobby(manager *arena.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameName := c.Query("game")
		if gameName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"lobby": manager.LobbySnapshot(gameName)})
	}
}

// Challenge starts an immediate match against a queued player.
func Challenge(manager *arena.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID   int64 `json:"user_id"`
			TargetID int64 `json:"target_id"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 || req.TargetID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and target_id required"})
			return
		}
		session, err := manager.Challenge(req.UserID, req.TargetID)
		if err != nil {
			arenaError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}

// StartAI begins a practice session against the computer.
func StartAI(db *sqlx.DB, manager *arena.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID      int64  `json:"user_id"`
			DisplayName string `json:"display_name"`
			Game        string `json:"game"`
			Side        string `json:"side"`
			Level       string `json:"level"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id, game and side required"})
			return
		}

		if _, err := ledger.GetOrCreateUser(db, req.UserID, req.DisplayName); err != nil {
			log.Printf("[API] user upsert failed for %d: %v", req.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		session, err := manager.StartAISession(req.UserID, req.Game, req.Side, req.Level)
		if err != nil {
			arenaError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}
