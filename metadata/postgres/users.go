package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures
const uniqueViolation = "23505"

// CreateUser inserts a new identity
func (s *PostgresStore) CreateUser(ctx context.Context, u *metadata.User) error {
	if u.ID == "" {
		u.ID = metadata.NewID()
	}

	err := s.db.QueryRowContext(ctx, _SQL_CREATE_USER,
		string(u.ID),
		u.Email,
		u.PasswordDigest,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return metadata.ErrAlreadyExists
		}
		return apperr.Infra("postgres.create_user", err)
	}
	return nil
}

// GetUserByID retrieves an identity by reference
func (s *PostgresStore) GetUserByID(ctx context.Context, id metadata.ID) (*metadata.User, error) {
	return s.getUser(ctx, "postgres.get_user_by_id", _SQL_GET_USER_BY_ID, string(id))
}

// GetUserByEmail retrieves an identity by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*metadata.User, error) {
	return s.getUser(ctx, "postgres.get_user_by_email", _SQL_GET_USER_BY_EMAIL, email)
}

func (s *PostgresStore) getUser(ctx context.Context, op, query, arg string) (*metadata.User, error) {
	var u metadata.User
	var id string

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&id,
		&u.Email,
		&u.PasswordDigest,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metadata.ErrNotFound
		}
		return nil, apperr.Infra(op, err)
	}

	u.ID = metadata.ID(id)
	return &u, nil
}

// CountUsers returns the number of identities
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, _SQL_COUNT_USERS).Scan(&n); err != nil {
		return 0, apperr.Infra("postgres.count_users", err)
	}
	return n, nil
}
