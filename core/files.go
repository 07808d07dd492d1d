package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"math"
	"mime"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/backends"
	"github.com/ebogdum/filesmanager/core/log"
	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/metrics"
)

// UploadRequest carries the fields of a new file or folder.
type UploadRequest struct {
	Name     string
	Type     string
	ParentID string // "", "0" or a record ID
	IsPublic bool
	Data     string // base64 content, ignored for folders
}

// Upload validates req and stores a new record, writing content for files
// and images to the blob backend first.
func (e *Engine) Upload(ctx context.Context, principal auth.Principal, req UploadRequest) (*metadata.File, error) {
	if principal.Anonymous() {
		return nil, auth.ErrUnauthenticated
	}

	if req.Name == "" {
		return nil, apperr.Invalid("name", "Missing name")
	}

	fileType := metadata.FileType(req.Type)
	if !fileType.Valid() {
		return nil, apperr.Invalid("type", "Missing or invalid type")
	}

	if fileType.HasContent() && req.Data == "" {
		return nil, apperr.Invalid("data", "Missing data")
	}

	parentID, err := metadata.ParseParentID(req.ParentID)
	if err != nil {
		return nil, apperr.Invalid("parentId", "Parent not found")
	}
	if !parentID.IsRoot() {
		parent, err := e.metadataStore.GetFile(ctx, parentID)
		if err != nil {
			if errors.Is(err, metadata.ErrNotFound) {
				return nil, apperr.Invalid("parentId", "Parent not found")
			}
			return nil, err
		}
		if parent.UserID != principal.UserID() {
			return nil, apperr.Invalid("parentId", "Parent not found")
		}
		if parent.Type != metadata.TypeFolder {
			return nil, apperr.Invalid("parentId", "Parent is not a folder")
		}
	}

	record := &metadata.File{
		UserID:   principal.UserID(),
		Name:     req.Name,
		Type:     fileType,
		IsPublic: req.IsPublic,
		ParentID: parentID,
	}

	if fileType.HasContent() {
		content, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return nil, apperr.Invalid("data", "Invalid data")
		}

		record.BlobKey = string(metadata.NewID())
		if err := e.storage.Create(ctx, record.BlobKey, bytes.NewReader(content), int64(len(content))); err != nil {
			metrics.ErrorsTotal.WithLabelValues("core", "blob_create").Inc()
			return nil, apperr.Infra("core.upload_blob", err)
		}
	}

	if err := e.metadataStore.CreateFile(ctx, record); err != nil {
		if record.BlobKey != "" {
			e.discardBlob(record.BlobKey)
		}
		return nil, err
	}

	metrics.FileOperationsTotal.WithLabelValues("upload", string(fileType)).Inc()
	e.logger.Debug("File uploaded",
		zap.String("user_id", log.SanitizeUserID(string(record.UserID))),
		zap.String("name", log.SanitizeFileName(record.Name)),
		zap.String("type", string(fileType)),
		zap.String("backend", e.backendType))

	return record, nil
}

// discardBlob removes content whose record could not be written.
func (e *Engine) discardBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.storage.Delete(ctx, key); err != nil {
		e.logger.Warn("Failed to discard orphaned blob", zap.String("blob_key", key), zap.Error(err))
	}
}

// GetFile returns the record rawID refers to when principal owns it.
// Records owned by someone else read as not found.
func (e *Engine) GetFile(ctx context.Context, principal auth.Principal, rawID string) (*metadata.File, error) {
	return e.authorizedFile(ctx, principal, rawID, auth.ReadPerm)
}

// ListFiles returns one page of principal's records under rawParentID.
// An unparseable page number selects the first page.
func (e *Engine) ListFiles(ctx context.Context, principal auth.Principal, rawParentID, rawPage string) ([]*metadata.File, error) {
	if principal.Anonymous() {
		return nil, auth.ErrUnauthenticated
	}

	parentID, err := metadata.ParseParentID(rawParentID)
	if err != nil {
		// no record can have an unparseable parent
		return []*metadata.File{}, nil
	}

	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 0 {
		page = 0
	}
	if page > math.MaxInt/DefaultPageSize {
		// past any reachable offset
		return []*metadata.File{}, nil
	}

	files, err := e.metadataStore.ListFiles(ctx, metadata.ListFilesQuery{
		UserID:   principal.UserID(),
		ParentID: parentID,
		Page:     page,
		PageSize: DefaultPageSize,
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Publish makes a record's content readable without a token.
func (e *Engine) Publish(ctx context.Context, principal auth.Principal, rawID string) (*metadata.File, error) {
	return e.setPublic(ctx, principal, rawID, true)
}

// Unpublish restricts a record's content to its owner.
func (e *Engine) Unpublish(ctx context.Context, principal auth.Principal, rawID string) (*metadata.File, error) {
	return e.setPublic(ctx, principal, rawID, false)
}

func (e *Engine) setPublic(ctx context.Context, principal auth.Principal, rawID string, public bool) (*metadata.File, error) {
	f, err := e.authorizedFile(ctx, principal, rawID, auth.WritePerm)
	if err != nil {
		return nil, err
	}

	f.IsPublic = public
	if err := e.metadataStore.UpdateFile(ctx, f); err != nil {
		return nil, err
	}

	op := "unpublish"
	if public {
		op = "publish"
	}
	metrics.FileOperationsTotal.WithLabelValues(op, string(f.Type)).Inc()
	return f, nil
}

// Content opens the blob of a file or image. The caller must close the
// returned blob.
func (e *Engine) Content(ctx context.Context, principal auth.Principal, rawID string) (*backends.Blob, *metadata.File, error) {
	f, err := e.authorizedFile(ctx, principal, rawID, auth.ContentPerm)
	if err != nil {
		return nil, nil, err
	}

	if !f.Type.HasContent() {
		return nil, nil, apperr.Invalid("type", "A folder doesn't have content")
	}

	blob, err := e.storage.Open(ctx, f.BlobKey)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			e.logger.Warn("Blob missing for record", zap.String("file_id", string(f.ID)))
			return nil, nil, metadata.ErrNotFound
		}
		metrics.ErrorsTotal.WithLabelValues("core", "blob_open").Inc()
		return nil, nil, apperr.Infra("core.open_blob", err)
	}

	metrics.FileOperationsTotal.WithLabelValues("read", string(f.Type)).Inc()
	return blob, f, nil
}

// ContentType derives a MIME type from a file name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (e *Engine) authorizedFile(ctx context.Context, principal auth.Principal, rawID string, perm auth.PermissionType) (*metadata.File, error) {
	id, err := metadata.ParseID(rawID)
	if err != nil {
		return nil, metadata.ErrNotFound
	}

	f, err := e.metadataStore.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := e.authorizer.Authorize(ctx, principal, f, perm); err != nil {
		if errors.Is(err, auth.ErrPermissionDenied) {
			return nil, metadata.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
