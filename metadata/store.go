// Package metadata defines the identity and file records of the service and
// the Store interface every metadata backend implements.
package metadata

import (
	"context"
	"errors"
	"math"
	"time"
)

// Common metadata errors
var (
	ErrNotFound      = errors.New("metadata not found")
	ErrAlreadyExists = errors.New("metadata already exists")
)

// FileType tags a file record.
type FileType string

const (
	TypeFolder FileType = "folder"
	TypeFile   FileType = "file"
	TypeImage  FileType = "image"
)

// Valid reports whether t is one of the known file types.
func (t FileType) Valid() bool {
	switch t {
	case TypeFolder, TypeFile, TypeImage:
		return true
	}
	return false
}

// HasContent reports whether records of this type own a blob.
func (t FileType) HasContent() bool {
	return t == TypeFile || t == TypeImage
}

// User is a registered identity.
type User struct {
	ID             ID        `json:"id"`
	Email          string    `json:"email"`
	PasswordDigest string    `json:"password_digest"`
	CreatedAt      time.Time `json:"created_at"`
}

// File is the metadata record of an uploaded file or folder.
type File struct {
	ID        ID        `json:"id"`
	UserID    ID        `json:"user_id"`
	Name      string    `json:"name"`
	Type      FileType  `json:"type"`
	IsPublic  bool      `json:"is_public"`
	ParentID  ID        `json:"parent_id"` // RootID for top-level records
	BlobKey   string    `json:"blob_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilesQuery selects one page of an owner's files below a parent.
type ListFilesQuery struct {
	UserID   ID
	ParentID ID
	Page     int
	PageSize int
}

// Offset returns the number of records to skip for the query page. It
// saturates at math.MaxInt instead of overflowing.
func (q ListFilesQuery) Offset() int {
	if q.Page <= 0 || q.PageSize <= 0 {
		return 0
	}
	if q.Page > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return q.Page * q.PageSize
}

// Store defines the interface for metadata storage operations.
// Driver failures are returned as *apperr.InfrastructureError; missing
// records as ErrNotFound.
type Store interface {
	// CreateUser inserts u, assigning its ID. Returns ErrAlreadyExists when
	// the email is taken.
	CreateUser(ctx context.Context, u *User) error

	// GetUserByID retrieves an identity by reference
	GetUserByID(ctx context.Context, id ID) (*User, error)

	// GetUserByEmail retrieves an identity by its unique email
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CountUsers returns the number of registered identities
	CountUsers(ctx context.Context) (int64, error)

	// CreateFile inserts f, assigning its ID and timestamps
	CreateFile(ctx context.Context, f *File) error

	// GetFile retrieves a file record by ID
	GetFile(ctx context.Context, id ID) (*File, error)

	// UpdateFile persists the mutable fields (visibility, name) of f
	UpdateFile(ctx context.Context, f *File) error

	// ListFiles returns one page of an owner's files under a parent
	ListFiles(ctx context.Context, q ListFilesQuery) ([]*File, error)

	// CountFiles returns the number of file records
	CountFiles(ctx context.Context) (int64, error)

	// Ping reports whether the backing database is reachable
	Ping(ctx context.Context) error

	// Close closes the metadata store connection
	Close() error
}
