// Package auth handles operator accounts: bcrypt-hashed access tokens, JWT
// sessions and the audit trail behind the admin endpoints.
package auth

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/models"
)

// GetOperatorAccount retrieves an operator account by name.
func GetOperatorAccount(db *sqlx.DB, account string) (*models.OperatorAccount, error) {
	var op models.OperatorAccount
	err := db.Get(&op, `
		SELECT account, display_name, token_hash, created_at, updated_at
		FROM operator_accounts WHERE account=$1
	`, account)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// CreateOperatorAccount upserts an operator account with a freshly hashed token.
// Used by the seed command.
func CreateOperatorAccount(db *sqlx.DB, account, displayName, plainToken string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO operator_accounts (account, display_name, token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (account) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			updated_at = NOW()
	`, account, displayName, string(hashed))
	return err
}

// ValidateOperator checks the account name and plaintext token pair.
func ValidateOperator(db *sqlx.DB, account, token string) (*models.OperatorAccount, error) {
	op, err := GetOperatorAccount(db, account)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("operator account not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(op.TokenHash), []byte(token)) != nil {
		log.Printf("[AUTH] token verification failed for operator %s", account)
		return nil, fmt.Errorf("invalid token")
	}
	return op, nil
}

// IssueOperatorJWT signs a session token for a validated operator.
func IssueOperatorJWT(cfg *config.Config, account string) (string, error) {
	exp := time.Now().Add(time.Duration(cfg.JWTExpiryHours) * time.Hour)
	claims := jwt.MapClaims{
		"operator": account,
		"exp":      exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// OperatorMiddleware validates the bearer JWT and sets "operator" in context.
func OperatorMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		account, ok := claims["operator"].(string)
		if !ok || account == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("operator", account)
		c.Next()
	}
}

// LogOperatorAction records an operator action in the audit log. Audit
// failures are logged but never block the action itself.
func LogOperatorAction(db *sqlx.DB, account, action string, details map[string]interface{}, success bool) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("[AUTH] failed to marshal audit details: %v", err)
		detailsJSON = []byte("{}")
	}
	_, err = db.Exec(`
		INSERT INTO operator_audit (account, action, details, success, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, account, action, detailsJSON, success)
	if err != nil {
		log.Printf("[AUTH] failed to log operator action: %v", err)
	}
}

// GetOperatorAuditLogs retrieves recent audit entries with pagination.
func GetOperatorAuditLogs(db *sqlx.DB, limit, offset int) ([]models.OperatorAudit, error) {
	var logs []models.OperatorAudit
	err := db.Select(&logs, `
		SELECT id, account, action, details, success, created_at
		FROM operator_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	return logs, err
}
