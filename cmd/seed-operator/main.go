package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/smarena/backend/internal/auth"
	"github.com/smarena/backend/internal/config"
	"github.com/smarena/backend/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	account := cfg.OperatorAccount
	token := os.Getenv("OPERATOR_TOKEN")
	if token == "" {
		token = "change-me-in-production"
		log.Printf("WARNING: Using default operator token. Set OPERATOR_TOKEN env var in production!")
	}

	if err := auth.CreateOperatorAccount(db, account, "Operator", token); err != nil {
		log.Fatalf("Failed to create operator account: %v", err)
	}

	log.Printf("✓ Operator account created/updated successfully")
	log.Printf("  Account: %s", account)
	log.Println("\nYou can now login at /api/v1/operator/login with:")
	log.Printf("  Account: %s", account)
	log.Printf("  Token: %s", token)
}
