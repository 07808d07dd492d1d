package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
)

type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent and avoids writer contention
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_digest TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL CHECK (type IN ('folder', 'file', 'image')),
    is_public INTEGER NOT NULL DEFAULT 0,
    parent_id TEXT NOT NULL DEFAULT '0',
    blob_key TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_owner_parent ON files(user_id, parent_id);
`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *metadata.User) error {
	if u.ID == "" {
		u.ID = metadata.NewID()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_digest, created_at) VALUES (?, ?, ?, ?)`,
		string(u.ID), u.Email, u.PasswordDigest, u.CreatedAt.Format(timestampLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return metadata.ErrAlreadyExists
		}
		return apperr.Infra("sqlite.create_user", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id metadata.ID) (*metadata.User, error) {
	return s.getUser(ctx, "sqlite.get_user_by_id", `WHERE id = ?`, string(id))
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*metadata.User, error) {
	return s.getUser(ctx, "sqlite.get_user_by_email", `WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, op, where string, arg string) (*metadata.User, error) {
	var u metadata.User
	var id, createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_digest, created_at FROM users `+where, arg,
	).Scan(&id, &u.Email, &u.PasswordDigest, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metadata.ErrNotFound
		}
		return nil, apperr.Infra(op, err)
	}

	u.ID = metadata.ID(id)
	u.CreatedAt = parseTimestamp(createdAt)
	return &u, nil
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, "sqlite.count_users", `SELECT COUNT(*) FROM users`)
}

func (s *SQLiteStore) CountFiles(ctx context.Context) (int64, error) {
	return s.count(ctx, "sqlite.count_files", `SELECT COUNT(*) FROM files`)
}

func (s *SQLiteStore) count(ctx context.Context, op, query string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, apperr.Infra(op, err)
	}
	return n, nil
}

func (s *SQLiteStore) CreateFile(ctx context.Context, f *metadata.File) error {
	if f.ID == "" {
		f.ID = metadata.NewID()
	}
	if f.ParentID == "" {
		f.ParentID = metadata.RootID
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (
			id, user_id, name, type, is_public, parent_id, blob_key, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(f.ID),
		string(f.UserID),
		f.Name,
		string(f.Type),
		f.IsPublic,
		string(f.ParentID),
		f.BlobKey,
		f.CreatedAt.Format(timestampLayout),
		f.UpdatedAt.Format(timestampLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: files.id") {
			return metadata.ErrAlreadyExists
		}
		return apperr.Infra("sqlite.create_file", err)
	}
	return nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, id metadata.ID) (*metadata.File, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, is_public, parent_id, blob_key, created_at, updated_at
		FROM files
		WHERE id = ?`, string(id))

	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metadata.ErrNotFound
		}
		return nil, apperr.Infra("sqlite.get_file", err)
	}
	return f, nil
}

func (s *SQLiteStore) UpdateFile(ctx context.Context, f *metadata.File) error {
	f.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE files SET name = ?, is_public = ?, updated_at = ? WHERE id = ?`,
		f.Name, f.IsPublic, f.UpdatedAt.Format(timestampLayout), string(f.ID))
	if err != nil {
		return apperr.Infra("sqlite.update_file", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Infra("sqlite.update_file", err)
	}
	if affected == 0 {
		return metadata.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context, q metadata.ListFilesQuery) ([]*metadata.File, error) {
	parentID := q.ParentID
	if parentID == "" {
		parentID = metadata.RootID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, is_public, parent_id, blob_key, created_at, updated_at
		FROM files
		WHERE user_id = ? AND parent_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?`,
		string(q.UserID), string(parentID), q.PageSize, q.Offset())
	if err != nil {
		return nil, apperr.Infra("sqlite.list_files", err)
	}
	defer rows.Close()

	files := make([]*metadata.File, 0, q.PageSize)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, apperr.Infra("sqlite.list_files", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Infra("sqlite.list_files", err)
	}
	return files, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperr.Infra("sqlite.ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*metadata.File, error) {
	var f metadata.File
	var id, userID, fileType, parentID, createdAt, updatedAt string

	if err := row.Scan(
		&id,
		&userID,
		&f.Name,
		&fileType,
		&f.IsPublic,
		&parentID,
		&f.BlobKey,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	f.ID = metadata.ID(id)
	f.UserID = metadata.ID(userID)
	f.Type = metadata.FileType(fileType)
	f.ParentID = metadata.ID(parentID)
	f.CreatedAt = parseTimestamp(createdAt)
	f.UpdatedAt = parseTimestamp(updatedAt)
	return &f, nil
}

func parseTimestamp(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// timestampLayout is fixed-width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
