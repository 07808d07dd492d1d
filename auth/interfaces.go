// Package auth provides the authentication token lifecycle for filesmanager
// and the authorization decisions that depend on it.
// It covers credential verification, token issuance, resolution and
// revocation, the per-request access gate and owner-based authorization.
package auth

import (
	"context"
	"errors"

	"github.com/ebogdum/filesmanager/metadata"
)

// PermissionType represents different permission types for authorization
type PermissionType int

const (
	// ReadPerm allows reading a file record. Owner only.
	ReadPerm PermissionType = iota
	// ContentPerm allows reading file content. Owner, or anyone when public.
	ContentPerm
	// WritePerm allows changing a file record. Owner only.
	WritePerm
)

func (p PermissionType) String() string {
	switch p {
	case ReadPerm:
		return "read"
	case ContentPerm:
		return "content"
	case WritePerm:
		return "write"
	default:
		return "unknown"
	}
}

var (
	// ErrUnauthenticated is returned for every authentication failure. The
	// message is what clients see and never names the cause.
	ErrUnauthenticated  = errors.New("Unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
)

// SessionKeyPrefix prefixes every session entry key.
const SessionKeyPrefix = "auth_"

// UserLookup is the part of the metadata store that identity checks need.
type UserLookup interface {
	GetUserByID(ctx context.Context, id metadata.ID) (*metadata.User, error)
	GetUserByEmail(ctx context.Context, email string) (*metadata.User, error)
}

// FileLookup is the part of the metadata store the access gate needs.
type FileLookup interface {
	GetFile(ctx context.Context, id metadata.ID) (*metadata.File, error)
}

// Resolver maps a token to the identity it was issued for.
type Resolver interface {
	Resolve(ctx context.Context, token string) (metadata.ID, error)
}

// Authorizer defines the interface for authorization checks
type Authorizer interface {
	// Authorize checks if principal has the specified permission on f
	Authorize(ctx context.Context, principal Principal, f *metadata.File, perm PermissionType) error
}

// Principal is the caller a request was granted for. User is nil for the
// anonymous principal admitted by the public content exception.
type Principal struct {
	User *metadata.User
}

func (p Principal) Anonymous() bool {
	return p.User == nil
}

// UserID returns the identity reference, or "" for the anonymous principal.
func (p Principal) UserID() metadata.ID {
	if p.User == nil {
		return ""
	}
	return p.User.ID
}
