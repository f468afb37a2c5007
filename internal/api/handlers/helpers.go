package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smarena/backend/internal/arena"
	"github.com/smarena/backend/internal/ledger"
	"github.com/smarena/backend/internal/tournament"
)

// userIDParam reads a numeric :user_id path parameter.
func userIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

// idParam reads a numeric path parameter.
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// arenaError maps arena sentinels onto HTTP responses.
func arenaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, arena.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, arena.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, arena.ErrNotYourTurn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, arena.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// tournamentError maps tournament sentinels onto HTTP responses.
func tournamentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tournament.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, tournament.ErrRegistrationClosed),
		errors.Is(err, tournament.ErrTournamentFull):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, tournament.ErrInsufficientFunds),
		errors.Is(err, tournament.ErrNoTickets):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ledgerError maps ledger sentinels onto HTTP responses.
func ledgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNoTickets):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"already_processed": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
