package auth

import (
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DBCredentialChecker validates against the users table (bcrypt hashes),
// with a config-supplied admin account as fallback so a fresh deployment is
// reachable before any users exist.
func DBCredentialChecker(db *sql.DB, adminUser, adminPassHash string) CredentialChecker {
	return func(username, password string) (string, bool) {
		var (
			hash string
			role string
		)
		err := db.QueryRow(`SELECT password_hash, role FROM users WHERE username=$1`, username).
			Scan(&hash, &role)
		switch {
		case err == nil:
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
				return "", false
			}
			return role, true
		case errors.Is(err, sql.ErrNoRows):
			if username == adminUser &&
				bcrypt.CompareHashAndPassword([]byte(adminPassHash), []byte(password)) == nil {
				return "admin", true
			}
			return "", false
		default:
			return "", false
		}
	}
}
