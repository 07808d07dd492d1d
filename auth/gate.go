package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/core/log"
	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/metrics"
)

// AccessRequest is what the gate needs to know about a request.
type AccessRequest struct {
	// Token is the X-Token header value, empty when absent.
	Token string
	// ContentFileID is the raw file id of a content request. It is empty
	// for every other route.
	ContentFileID string
}

// Gate makes the per-request access decision.
type Gate struct {
	resolver Resolver
	users    UserLookup
	files    FileLookup
	logger   *zap.Logger
}

func NewGate(resolver Resolver, users UserLookup, files FileLookup, logger *zap.Logger) *Gate {
	return &Gate{resolver: resolver, users: users, files: files, logger: logger}
}

// Admit grants or rejects req. A rejection is ErrUnauthenticated. A store
// failure is returned as an infrastructure error, never as a rejection.
func (g *Gate) Admit(ctx context.Context, req AccessRequest) (Principal, error) {
	if req.ContentFileID != "" {
		public, err := g.isPublicFile(ctx, req.ContentFileID)
		if err != nil {
			metrics.AccessDecisionsTotal.WithLabelValues("error").Inc()
			return Principal{}, err
		}
		if public {
			metrics.AccessDecisionsTotal.WithLabelValues("granted_public").Inc()
			return Principal{}, nil
		}
	}

	if req.Token == "" {
		metrics.AccessDecisionsTotal.WithLabelValues("rejected").Inc()
		return Principal{}, ErrUnauthenticated
	}

	id, err := g.resolver.Resolve(ctx, req.Token)
	if err != nil {
		return Principal{}, g.reject(err)
	}

	user, err := g.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			g.logger.Debug("Token resolved to a missing identity", zap.String("user_id", log.SanitizeUserID(string(id))))
			return Principal{}, g.reject(ErrUnauthenticated)
		}
		return Principal{}, g.reject(apperr.Infra("auth.gate_lookup_user", err))
	}

	metrics.AccessDecisionsTotal.WithLabelValues("granted").Inc()
	return Principal{User: user}, nil
}

func (g *Gate) isPublicFile(ctx context.Context, rawID string) (bool, error) {
	id, err := metadata.ParseID(rawID)
	if err != nil {
		return false, nil
	}

	f, err := g.files.GetFile(ctx, id)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return false, nil
		}
		return false, apperr.Infra("auth.gate_lookup_file", err)
	}
	return f.IsPublic, nil
}

func (g *Gate) reject(err error) error {
	if errors.Is(err, ErrUnauthenticated) {
		metrics.AccessDecisionsTotal.WithLabelValues("rejected").Inc()
		return ErrUnauthenticated
	}
	metrics.AccessDecisionsTotal.WithLabelValues("error").Inc()
	return err
}
