package auth

import (
	"context"

	"github.com/ebogdum/filesmanager/metadata"
)

// OwnerAuthorizer grants access to a file's owner, and content access to
// anyone once the file is public.
type OwnerAuthorizer struct{}

func NewOwnerAuthorizer() *OwnerAuthorizer {
	return &OwnerAuthorizer{}
}

// Authorize checks if principal has the specified permission on f
func (a *OwnerAuthorizer) Authorize(ctx context.Context, principal Principal, f *metadata.File, perm PermissionType) error {
	if f == nil {
		return ErrPermissionDenied
	}

	isOwner := !principal.Anonymous() && principal.UserID() == f.UserID

	switch perm {
	case ReadPerm, WritePerm:
		if isOwner {
			return nil
		}
	case ContentPerm:
		if f.IsPublic || isOwner {
			return nil
		}
	}
	return ErrPermissionDenied
}
