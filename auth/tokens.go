package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/core/log"
	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/metrics"
	"github.com/ebogdum/filesmanager/sessions"
)

// DefaultTokenTTL is the lifetime of a session entry, fixed at issuance.
const DefaultTokenTTL = 86400 * time.Second

// TokenAuthority issues, resolves and revokes tokens on top of a session
// store. Expiry is left entirely to the store.
type TokenAuthority struct {
	store  sessions.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewTokenAuthority(store sessions.Store, ttl time.Duration, logger *zap.Logger) *TokenAuthority {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenAuthority{store: store, ttl: ttl, logger: logger}
}

// SessionKey returns the store key for token.
func SessionKey(token string) string {
	return SessionKeyPrefix + token
}

// Issue creates a fresh token bound to id.
func (a *TokenAuthority) Issue(ctx context.Context, id metadata.ID) (string, error) {
	token := uuid.NewString()
	if err := a.store.Set(ctx, SessionKey(token), string(id), a.ttl); err != nil {
		metrics.ErrorsTotal.WithLabelValues("auth", "token_issue").Inc()
		return "", apperr.Infra("auth.issue_token", err)
	}

	metrics.TokensIssuedTotal.Inc()
	a.logger.Debug("Token issued", zap.String("user_id", log.SanitizeUserID(string(id))), zap.String("token", log.SanitizeToken(token)))
	return token, nil
}

// Resolve returns the identity token was issued for. It never extends the
// entry's lifetime.
func (a *TokenAuthority) Resolve(ctx context.Context, token string) (metadata.ID, error) {
	if token == "" {
		metrics.TokenResolutionsTotal.WithLabelValues("unauthenticated").Inc()
		return "", ErrUnauthenticated
	}

	value, found, err := a.store.Get(ctx, SessionKey(token))
	if err != nil {
		metrics.TokenResolutionsTotal.WithLabelValues("error").Inc()
		return "", apperr.Infra("auth.resolve_token", err)
	}
	if !found {
		metrics.TokenResolutionsTotal.WithLabelValues("unauthenticated").Inc()
		return "", ErrUnauthenticated
	}

	id, err := metadata.ParseID(value)
	if err != nil {
		metrics.TokenResolutionsTotal.WithLabelValues("unauthenticated").Inc()
		a.logger.Warn("Session entry holds an invalid identity reference", zap.String("token", log.SanitizeToken(token)))
		return "", ErrUnauthenticated
	}

	metrics.TokenResolutionsTotal.WithLabelValues("ok").Inc()
	return id, nil
}

// Revoke deletes the session entry for token. Revoking an absent or empty
// token is a no-op.
func (a *TokenAuthority) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := a.store.Del(ctx, SessionKey(token)); err != nil {
		metrics.ErrorsTotal.WithLabelValues("auth", "token_revoke").Inc()
		return apperr.Infra("auth.revoke_token", err)
	}

	metrics.TokensRevokedTotal.Inc()
	a.logger.Debug("Token revoked", zap.String("token", log.SanitizeToken(token)))
	return nil
}
