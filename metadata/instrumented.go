package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/ebogdum/filesmanager/metrics"
)

// instrumentedStore records query counts and latencies for any Store.
type instrumentedStore struct {
	next Store
}

// Instrument wraps s so that every call is recorded in the metadata metrics.
func Instrument(s Store) Store {
	return &instrumentedStore{next: s}
}

func observe(op string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists):
		status = "miss"
	default:
		status = "failure"
	}
	metrics.MetadataDBQueriesTotal.WithLabelValues(op, status).Inc()
	metrics.MetadataDBQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *instrumentedStore) CreateUser(ctx context.Context, u *User) (err error) {
	defer func(start time.Time) { observe("create_user", start, err) }(time.Now())
	return s.next.CreateUser(ctx, u)
}

func (s *instrumentedStore) GetUserByID(ctx context.Context, id ID) (u *User, err error) {
	defer func(start time.Time) { observe("get_user_by_id", start, err) }(time.Now())
	return s.next.GetUserByID(ctx, id)
}

func (s *instrumentedStore) GetUserByEmail(ctx context.Context, email string) (u *User, err error) {
	defer func(start time.Time) { observe("get_user_by_email", start, err) }(time.Now())
	return s.next.GetUserByEmail(ctx, email)
}

func (s *instrumentedStore) CountUsers(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("count_users", start, err) }(time.Now())
	return s.next.CountUsers(ctx)
}

func (s *instrumentedStore) CreateFile(ctx context.Context, f *File) (err error) {
	defer func(start time.Time) { observe("create_file", start, err) }(time.Now())
	return s.next.CreateFile(ctx, f)
}

func (s *instrumentedStore) GetFile(ctx context.Context, id ID) (f *File, err error) {
	defer func(start time.Time) { observe("get_file", start, err) }(time.Now())
	return s.next.GetFile(ctx, id)
}

func (s *instrumentedStore) UpdateFile(ctx context.Context, f *File) (err error) {
	defer func(start time.Time) { observe("update_file", start, err) }(time.Now())
	return s.next.UpdateFile(ctx, f)
}

func (s *instrumentedStore) ListFiles(ctx context.Context, q ListFilesQuery) (files []*File, err error) {
	defer func(start time.Time) { observe("list_files", start, err) }(time.Now())
	return s.next.ListFiles(ctx, q)
}

func (s *instrumentedStore) CountFiles(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { observe("count_files", start, err) }(time.Now())
	return s.next.CountFiles(ctx)
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
