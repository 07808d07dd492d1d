package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ebogdum/filesmanager/core/log"
	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/metrics"
)

// CredentialVerifier checks email/password pairs against stored identities.
type CredentialVerifier struct {
	users  UserLookup
	cost   int
	logger *zap.Logger
}

// NewCredentialVerifier creates a verifier. A cost of 0 selects bcrypt.DefaultCost.
func NewCredentialVerifier(users UserLookup, cost int, logger *zap.Logger) *CredentialVerifier {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &CredentialVerifier{users: users, cost: cost, logger: logger}
}

// Verify returns the identity for email when password matches its digest.
// An unknown email and a wrong password both yield ErrUnauthenticated.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (metadata.ID, error) {
	if email == "" || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		return "", ErrUnauthenticated
	}

	user, err := v.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
			v.logger.Debug("Login rejected", zap.String("email", log.SanitizeEmail(email)))
			return "", ErrUnauthenticated
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return "", apperr.Infra("auth.verify_credentials", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordDigest), []byte(password)); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		v.logger.Debug("Login rejected", zap.String("email", log.SanitizeEmail(email)))
		return "", ErrUnauthenticated
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return user.ID, nil
}

// HashPassword produces the digest stored at registration.
func (v *CredentialVerifier) HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.Invalid("password", "Password too long")
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}
