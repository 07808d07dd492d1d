package log

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
)

// SanitizationMode controls how sensitive data is handled in logs
type SanitizationMode int

const (
	// ProductionMode hashes sensitive data for production use
	ProductionMode SanitizationMode = iota
	// DevelopmentMode shows truncated sensitive data for debugging
	DevelopmentMode
	// DebugMode shows full sensitive data (only for development)
	DebugMode
)

var currentMode = ProductionMode

func init() {
	if mode := os.Getenv("FILESMANAGER_LOG_MODE"); mode != "" {
		SetMode(ParseMode(mode))
	}
}

// ParseMode maps a mode name to a SanitizationMode. Unknown names map to
// ProductionMode.
func ParseMode(mode string) SanitizationMode {
	switch strings.ToLower(mode) {
	case "development":
		return DevelopmentMode
	case "debug":
		return DebugMode
	default:
		return ProductionMode
	}
}

// SetMode changes the sanitization mode for the whole process.
func SetMode(mode SanitizationMode) {
	currentMode = mode
}

func sanitize(value, hashPrefix string, hashBytes, keep int) string {
	if value == "" {
		return ""
	}

	switch currentMode {
	case DevelopmentMode:
		if len(value) <= keep*2 {
			return value
		}
		return value[:keep] + "****"
	case DebugMode:
		return value
	default:
		hash := sha256.Sum256([]byte(value))
		return fmt.Sprintf("%s:%x", hashPrefix, hash[:hashBytes])
	}
}

// SanitizeUserID sanitizes user IDs for logging
func SanitizeUserID(userID string) string {
	return sanitize(userID, "user_hash", 6, 4)
}

// SanitizeEmail sanitizes email addresses for logging
func SanitizeEmail(email string) string {
	return sanitize(email, "email_hash", 6, 3)
}

// SanitizeToken sanitizes authentication tokens. Tokens are bearer secrets,
// so even development mode shows only a short prefix.
func SanitizeToken(token string) string {
	if currentMode == DevelopmentMode && len(token) > 8 {
		return token[:4] + "****"
	}
	return sanitize(token, "token_hash", 6, 4)
}

// SanitizeFileName sanitizes file names for logging
func SanitizeFileName(name string) string {
	if name == "" {
		return ""
	}

	switch currentMode {
	case DevelopmentMode:
		if len(name) <= 20 {
			return name
		}
		return name[:10] + "..." + name[len(name)-7:]
	case DebugMode:
		return name
	default:
		hash := sha256.Sum256([]byte(name))
		return fmt.Sprintf("hash:%x", hash[:8])
	}
}
