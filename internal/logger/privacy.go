package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// MinHashSaltLength is the shortest LOG_HASH_SALT accepted in production.
const MinHashSaltLength = 32

const defaultHashSalt = "wallet-default-salt-change-in-production"

var hashSalt = defaultHashSalt

// InitHashSalt installs the salt used for privacy-preserving hashes.
func InitHashSalt(salt string) error {
	if salt == "" {
		return errors.New("LOG_HASH_SALT is required")
	}
	if len(salt) < MinHashSaltLength {
		return fmt.Errorf("LOG_HASH_SALT must be at least %d characters", MinHashSaltLength)
	}
	hashSalt = salt
	return nil
}

// InitHashSaltForTesting sets the salt without length checks.
func InitHashSaltForTesting(salt string) {
	hashSalt = salt
}

// HashUserID creates a privacy-preserving hash of a user ID.
// This allows correlating a user's actions across log lines without
// exposing the account UUID.
func HashUserID(userID string) string {
	data := userID + ":" + hashSalt
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:8]
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "<invalid-email>"
	}
	return email[:1] + "***" + email[at:]
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	runes := []rune(text)
	if len(runes) <= 10 {
		return fmt.Sprintf("<%d chars>", len(runes))
	}

	return fmt.Sprintf("%s...<%d chars>", string(runes[:3]), len(runes))
}

// SanitizeDescription redacts free-form descriptions but keeps their shape.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(desc)), len([]rune(desc)))
}
