package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/scevolution/ladder/internal/admin"
	"github.com/scevolution/ladder/internal/config"
	"github.com/scevolution/ladder/internal/database"
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

	adminUID := int64(1)
	if v := os.Getenv("ADMIN_UID"); v != "" {
		adminUID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("Invalid ADMIN_UID: %v", err)
		}
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "change-me-in-production"
		log.Printf("WARNING: Using default admin token. Set ADMIN_TOKEN env var in production!")
	}

	displayName := os.Getenv("ADMIN_NAME")
	if displayName == "" {
		displayName = "Admin"
	}

	if err := admin.CreateAccount(db, adminUID, displayName, adminToken); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("✓ Admin account created/updated successfully")
	log.Printf("  UID: %d", adminUID)
	log.Printf("  Display Name: %s", displayName)
	log.Println("\nYou can now login at /api/v1/admin/login with:")
	log.Printf("  admin_uid: %d", adminUID)
	log.Printf("  token: %s", adminToken)
}
