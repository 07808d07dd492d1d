package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
)

// CreateFile inserts a new file record
func (s *PostgresStore) CreateFile(ctx context.Context, f *metadata.File) error {
	if f.ID == "" {
		f.ID = metadata.NewID()
	}
	if f.ParentID == "" {
		f.ParentID = metadata.RootID
	}

	err := s.db.QueryRowContext(ctx, _SQL_CREATE_FILE,
		string(f.ID),
		string(f.UserID),
		f.Name,
		string(f.Type),
		f.IsPublic,
		string(f.ParentID),
		f.BlobKey,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return apperr.Infra("postgres.create_file", err)
	}
	return nil
}

// GetFile retrieves a file record by ID
func (s *PostgresStore) GetFile(ctx context.Context, id metadata.ID) (*metadata.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, _SQL_GET_FILE, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, metadata.ErrNotFound
		}
		return nil, apperr.Infra("postgres.get_file", err)
	}
	return f, nil
}

// UpdateFile persists the mutable fields of a file record
func (s *PostgresStore) UpdateFile(ctx context.Context, f *metadata.File) error {
	err := s.db.QueryRowContext(ctx, _SQL_UPDATE_FILE,
		f.Name,
		f.IsPublic,
		string(f.ID),
	).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return metadata.ErrNotFound
		}
		return apperr.Infra("postgres.update_file", err)
	}
	return nil
}

// ListFiles lists one page of an owner's files under a parent
func (s *PostgresStore) ListFiles(ctx context.Context, q metadata.ListFilesQuery) ([]*metadata.File, error) {
	parentID := q.ParentID
	if parentID == "" {
		parentID = metadata.RootID
	}

	rows, err := s.db.QueryContext(ctx, _SQL_LIST_FILES,
		string(q.UserID),
		string(parentID),
		q.PageSize,
		q.Offset(),
	)
	if err != nil {
		return nil, apperr.Infra("postgres.list_files", err)
	}
	defer rows.Close()

	var files []*metadata.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, apperr.Infra("postgres.list_files", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Infra("postgres.list_files", err)
	}
	return files, nil
}

// CountFiles returns the number of file records
func (s *PostgresStore) CountFiles(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, _SQL_COUNT_FILES).Scan(&n); err != nil {
		return 0, apperr.Infra("postgres.count_files", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*metadata.File, error) {
	var f metadata.File
	var id, userID, fileType, parentID string

	err := row.Scan(
		&id,
		&userID,
		&f.Name,
		&fileType,
		&f.IsPublic,
		&parentID,
		&f.BlobKey,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.ID = metadata.ID(id)
	f.UserID = metadata.ID(userID)
	f.Type = metadata.FileType(fileType)
	f.ParentID = metadata.ID(parentID)
	return &f, nil
}
