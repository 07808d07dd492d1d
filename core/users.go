package core

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/core/log"
	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/locks"
	"github.com/ebogdum/filesmanager/metadata"
)

// Register creates a new identity. Registration for one email is serialised
// through the lock manager so that the existence check and the insert do
// not interleave.
func (e *Engine) Register(ctx context.Context, email, password string) (*metadata.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Invalid("email", "Missing email")
	}
	if password == "" {
		return nil, apperr.Invalid("password", "Missing password")
	}

	var user *metadata.User
	err := locks.WithLock(ctx, e.lockManager, "register:"+email, func(ctx context.Context) error {
		_, err := e.metadataStore.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return apperr.Invalid("email", "Already exist")
		case !errors.Is(err, metadata.ErrNotFound):
			return err
		}

		digest, err := e.hasher.HashPassword(password)
		if err != nil {
			return err
		}

		candidate := &metadata.User{Email: email, PasswordDigest: digest}
		if err := e.metadataStore.CreateUser(ctx, candidate); err != nil {
			if errors.Is(err, metadata.ErrAlreadyExists) {
				return apperr.Invalid("email", "Already exist")
			}
			return err
		}
		user = candidate
		return nil
	})
	if err != nil {
		if apperr.IsValidation(err) {
			return nil, err
		}
		return nil, apperr.Infra("core.register", err)
	}

	e.logger.Info("User registered", zap.String("user_id", log.SanitizeUserID(string(user.ID))))
	return user, nil
}
