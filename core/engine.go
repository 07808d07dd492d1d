package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/backends"
	"github.com/ebogdum/filesmanager/locks"
	"github.com/ebogdum/filesmanager/metadata"
)

// DefaultPageSize is the number of records per listing page.
const DefaultPageSize = 20

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PasswordHasher produces the digest stored for a new identity.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Engine represents the core filesmanager engine that orchestrates operations
type Engine struct {
	metadataStore metadata.Store
	storage       backends.Storage
	backendType   string
	sessionStore  Pinger
	lockManager   locks.Manager
	hasher        PasswordHasher
	authorizer    auth.Authorizer
	logger        *zap.Logger
}

// NewEngine creates a new core engine instance
func NewEngine(
	metadataStore metadata.Store,
	storage backends.Storage,
	backendType string,
	sessionStore Pinger,
	lockManager locks.Manager,
	hasher PasswordHasher,
	authorizer auth.Authorizer,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		metadataStore: metadataStore,
		storage:       storage,
		backendType:   backendType,
		sessionStore:  sessionStore,
		lockManager:   lockManager,
		hasher:        hasher,
		authorizer:    authorizer,
		logger:        logger,
	}
}

// Status reports whether the session store and the metadata store respond.
type Status struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

func (e *Engine) Status(ctx context.Context) Status {
	status := Status{
		Redis: e.sessionStore.Ping(ctx) == nil,
		DB:    e.metadataStore.Ping(ctx) == nil,
	}
	if !status.Redis || !status.DB {
		e.logger.Warn("Dependency not alive", zap.Bool("redis", status.Redis), zap.Bool("db", status.DB))
	}
	return status
}

// Stats holds the record counts.
type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	users, err := e.metadataStore.CountUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	files, err := e.metadataStore.CountFiles(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Users: users, Files: files}, nil
}
