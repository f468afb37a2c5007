package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/smarena/backend/internal/arena"
	"github.com/smarena/backend/internal/config"
)

// GetSession returns the current state of a session.
func GetSession(manager *arena.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := manager.GetSession(c.Param("id"))
		if err != nil {
			arenaError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}

// GetUserSession returns the live session a player is part of, if any.
func GetUserSession(manager *arena.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDParam(c, "user_id")
		if !ok {
			return
		}
		session, err := manager.GetUserSession(userID)
		if err != nil {
			arenaError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}

// Move applies one move. A redis key throttles move spam per player.
func Move(manager *arena.Manager, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID int64 `json:"user_id"`
			Cell   *int  `json:"cell"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 || req.Cell == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and cell required"})
			return
		}

		if rdb != nil && cfg.MoveRateLimitMillis > 0 {
			key := fmt.Sprintf("move_rate:%d", req.UserID)
			ttl := time.Duration(cfg.MoveRateLimitMillis) * time.Millisecond
			ok, err := rdb.SetNX(context.Background(), key, "1", ttl).Result()
			if err == nil && !ok {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many moves"})
				return
			}
		}

		session, err := manager.Move(c.Param("id"), req.UserID, *req.Cell)
		if err != nil {
			arenaError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}

// Resign concedes the session.
func Resign(manager *arena.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID int64 `json:"user_id"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		session, err := manager.Resign(c.Param("id"), req.UserID)
		if err != nil {
			arenaError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": session})
	}
}
