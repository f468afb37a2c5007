package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/smarena/backend/internal/ledger"
	"github.com/smarena/backend/internal/rating"
	"github.com/smarena/backend/internal/tournament"
)

// ActiveTournament returns the open or running tournament for a game.
func ActiveTournament(svc *tournament.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameName := c.Query("game")
		if gameName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game required"})
			return
		}
		t, err := svc.ActiveByGame(c.Request.Context(), gameName)
		if err != nil {
			tournamentError(c, err)
			return
		}
		if t == nil {
			c.JSON(http.StatusOK, gin.H{"tournament": nil})
			return
		}
		players, err := svc.Players(c.Request.Context(), t.ID)
		if err != nil {
			tournamentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tournament": t, "players": players})
	}
}

// GetTournament returns one tournament with its players.
func GetTournament(svc *tournament.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		t, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			tournamentError(c, err)
			return
		}
		players, err := svc.Players(c.Request.Context(), id)
		if err != nil {
			tournamentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tournament": t, "players": players})
	}
}

// JoinTournament registers a player, paying with coins or a ticket.
func JoinTournament(db *sqlx.DB, svc *tournament.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req struct {
			UserID      int64  `json:"user_id"`
			DisplayName string `json:"display_name"`
			UseTicket   bool   `json:"use_ticket"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		if _, err := ledger.GetOrCreateUser(db, req.UserID, req.DisplayName); err != nil {
			log.Printf("[API] user upsert failed for %d: %v", req.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if err := svc.Join(c.Request.Context(), id, req.UserID, req.UseTicket); err != nil {
			tournamentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"joined": true})
	}
}

// LeaveTournament withdraws a player during registration.
func LeaveTournament(svc *tournament.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req struct {
			UserID int64 `json:"user_id"`
		}
		if err := c.BindJSON(&req); err != nil || req.UserID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		if err := svc.Leave(c.Request.Context(), id, req.UserID); err != nil {
			tournamentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"left": true})
	}
}

// TournamentBracket returns the matches grouped by round.
func TournamentBracket(svc *tournament.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		matches, err := svc.Bracket(c.Request.Context(), id)
		if err != nil {
			tournamentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// PointsLeaderboard returns the tournament points table for a game, or the
// overall table for game=all.
func PointsLeaderboard(svc *tournament.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameName := c.DefaultQuery("game", "all")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		rows, err := svc.TopPoints(c.Request.Context(), gameName, limit)
		if err != nil {
			tournamentError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
	}
}

// RatingLeaderboard returns the Elo table for a game.
func RatingLeaderboard(ratings *rating.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameName := c.Query("game")
		if gameName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game required"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		rows, err := ratings.TopRatings(gameName, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
	}
}
