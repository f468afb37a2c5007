package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/auth"
	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/ledger"
	"github.com/smarena/backend/internal/tournament"
)

// OperatorLogin exchanges an account name and access token for a JWT.
func OperatorLogin(db *sqlx.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Account string `json:"account"`
			Token   string `json:"token"`
		}
		if err := c.BindJSON(&req); err != nil || req.Account == "" || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "account and token required"})
			return
		}

		op, err := auth.ValidateOperator(db, req.Account, req.Token)
		if err != nil {
			auth.LogOperatorAction(db, req.Account, "login", nil, false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		signed, err := auth.IssueOperatorJWT(cfg, op.Account)
		if err != nil {
			log.Printf("[API] failed to sign operator token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		auth.LogOperatorAction(db, op.Account, "login", nil, true)
		c.JSON(http.StatusOK, gin.H{"token": signed, "account": op.Account, "display_name": op.DisplayName})
	}
}

// AdminCreateTournament opens a custom tournament, replacing any live one for
// the same game.
func AdminCreateTournament(db *sqlx.DB, svc *tournament.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := c.GetString("operator")
		var req struct {
			Game       string `json:"game"`
			Title      string `json:"title"`
			Size       int    `json:"size"`
			EntryFee   *int   `json:"entry_fee"`
			RegMinutes int    `json:"reg_minutes"`
		}
		if err := c.BindJSON(&req); err != nil || req.Game == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game required"})
			return
		}
		if req.Title == "" {
			req.Title = "Arena tournament"
		}
		if req.Size <= 0 {
			req.Size = cfg.TournamentSize
		}
		fee := cfg.TournamentEntryFee
		if req.EntryFee != nil && *req.EntryFee >= 0 {
			fee = *req.EntryFee
		}
		if req.RegMinutes <= 0 {
			req.RegMinutes = cfg.TournamentRegMinutes
		}

		regEnds := time.Now().Add(time.Duration(req.RegMinutes) * time.Minute)
		id, err := svc.Create(c.Request.Context(), req.Game, req.Title, req.Size, fee, regEnds, "", operator)
		if err != nil {
			auth.LogOperatorAction(db, operator, "tournament_create",
				map[string]interface{}{"game": req.Game, "error": err.Error()}, false)
			tournamentError(c, err)
			return
		}

		auth.LogOperatorAction(db, operator, "tournament_create",
			map[string]interface{}{"game": req.Game, "tournament_id": id, "entry_fee": fee}, true)
		c.JSON(http.StatusOK, gin.H{"tournament_id": id})
	}
}

// AdminCancelTournament aborts a tournament, refunding all entries.
func AdminCancelTournament(db *sqlx.DB, svc *tournament.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := c.GetString("operator")
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := svc.Cancel(c.Request.Context(), id); err != nil {
			auth.LogOperatorAction(db, operator, "tournament_cancel",
				map[string]interface{}{"tournament_id": id, "error": err.Error()}, false)
			tournamentError(c, err)
			return
		}
		auth.LogOperatorAction(db, operator, "tournament_cancel",
			map[string]interface{}{"tournament_id": id}, true)
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
	}
}

// AdminGrantCoins credits coins to a player.
func AdminGrantCoins(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := c.GetString("operator")
		var req struct {
			UserID int64 `json:"user_id"`
			Amount int   `json:"amount"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 || req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and positive amount required"})
			return
		}
		if _, err := ledger.GetOrCreateUser(db, req.UserID, ""); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if err := ledger.Credit(db, req.UserID, req.Amount); err != nil {
			auth.LogOperatorAction(db, operator, "grant_coins",
				map[string]interface{}{"user_id": req.UserID, "amount": req.Amount, "error": err.Error()}, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		auth.LogOperatorAction(db, operator, "grant_coins",
			map[string]interface{}{"user_id": req.UserID, "amount": req.Amount}, true)
		c.JSON(http.StatusOK, gin.H{"granted": true})
	}
}

// AdminAuditLog returns recent operator actions.
func AdminAuditLog(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		logs, err := auth.GetOperatorAuditLogs(db, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}
