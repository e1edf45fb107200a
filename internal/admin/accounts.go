// Package admin implements administrative access (bcrypt-hashed tokens,
// account lookup) and the override service that re-resolves matches
// idempotently against their initial MMRs.
package admin

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/scevolution/ladder/internal/models"
)

// GetAccount retrieves an admin account by uid.
func GetAccount(db *sqlx.DB, adminUID int64) (*models.AdminAccount, error) {
	var account models.AdminAccount
	err := db.Get(&account, `SELECT admin_uid, display_name, token_hash, created_at, updated_at FROM admin_accounts WHERE admin_uid=$1`, adminUID)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// VerifyToken checks the provided token against the stored hash.
func VerifyToken(hashedToken, plainToken string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), []byte(plainToken)) == nil
}

// CreateAccount creates or refreshes an admin account (seeding/testing).
func CreateAccount(db *sqlx.DB, adminUID int64, displayName, plainToken string) error {
	hashedToken, err := bcrypt.GenerateFromPassword([]byte(plainToken), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash token: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO admin_accounts (admin_uid, display_name, token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (admin_uid) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			token_hash = EXCLUDED.token_hash,
			updated_at = NOW()
	`, adminUID, displayName, string(hashedToken))

	return err
}

// Authenticate validates uid + token.
func Authenticate(db *sqlx.DB, adminUID int64, token string) (*models.AdminAccount, error) {
	account, err := GetAccount(db, adminUID)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[ADMIN] No admin account for uid %d", adminUID)
			return nil, fmt.Errorf("admin account not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !VerifyToken(account.TokenHash, token) {
		log.Printf("[ADMIN] Token verification failed for uid %d", adminUID)
		return nil, fmt.Errorf("invalid token")
	}
	return account, nil
}
