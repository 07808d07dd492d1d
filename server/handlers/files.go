package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/config"
	"github.com/ebogdum/filesmanager/core"
	"github.com/ebogdum/filesmanager/metadata"
)

// FileResponse is the public view of a file record
type FileResponse struct {
	ID       metadata.ID        `json:"id"`
	UserID   metadata.ID        `json:"userId"`
	Name     string             `json:"name"`
	Type     metadata.FileType  `json:"type"`
	IsPublic bool               `json:"isPublic"`
	ParentID metadata.ParentRef `json:"parentId"`
}

func newFileResponse(f *metadata.File) FileResponse {
	return FileResponse{
		ID:       f.ID,
		UserID:   f.UserID,
		Name:     f.Name,
		Type:     f.Type,
		IsPublic: f.IsPublic,
		ParentID: metadata.ParentRef(f.ParentID),
	}
}

type uploadRequest struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	ParentID json.RawMessage `json:"parentId"`
	IsPublic bool            `json:"isPublic"`
	Data     string          `json:"data"`
}

// parentIDText normalises the parentId field to the text form the engine
// parses. Values that are not a valid reference are passed through so the
// engine reports them as a missing parent.
func parentIDText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var ref metadata.ParentRef
	if err := ref.UnmarshalJSON(raw); err == nil {
		return string(ref)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

func principalFrom(r *http.Request) auth.Principal {
	principal, _ := auth.PrincipalFrom(r.Context())
	return principal
}

// V1PostFile handles POST /files
// @Summary Upload a file or create a folder
// @Tags files
// @Security XToken
// @Param body body uploadRequest true "File"
// @Success 201 {object} FileResponse
// @Failure 400 {object} ErrorResponse "Validation failure"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /files [post]
func V1PostFile(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadRequest
		if err := decodeJSON(w, r, cfg.MaxBodyBytes, &req); err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.FileOpTimeout)
		defer cancel()

		f, err := engine.Upload(ctx, principalFrom(r), core.UploadRequest{
			Name:     req.Name,
			Type:     req.Type,
			ParentID: parentIDText(req.ParentID),
			IsPublic: req.IsPublic,
			Data:     req.Data,
		})
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		SendJSONResponse(w, logger, http.StatusCreated, newFileResponse(f))
	}
}

// V1GetFile handles GET /files/{id}
// @Summary Show a file record
// @Tags files
// @Security XToken
// @Param id path string true "File ID"
// @Success 200 {object} FileResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /files/{id} [get]
func V1GetFile(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		f, err := engine.GetFile(ctx, principalFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		SendJSONResponse(w, logger, http.StatusOK, newFileResponse(f))
	}
}

// V1ListFiles handles GET /files
// @Summary List the caller's files under a parent
// @Tags files
// @Security XToken
// @Param parentId query string false "Parent folder ID, 0 for root"
// @Param page query int false "Zero-based page, 20 records per page"
// @Success 200 {array} FileResponse
// @Router /files [get]
func V1ListFiles(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		query := r.URL.Query()
		files, err := engine.ListFiles(ctx, principalFrom(r), query.Get("parentId"), query.Get("page"))
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		out := make([]FileResponse, 0, len(files))
		for _, f := range files {
			out = append(out, newFileResponse(f))
		}
		SendJSONResponse(w, logger, http.StatusOK, out)
	}
}

// V1PublishFile handles PUT /files/{id}/publish
// @Summary Make a file public
// @Tags files
// @Security XToken
// @Param id path string true "File ID"
// @Success 200 {object} FileResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /files/{id}/publish [put]
func V1PublishFile(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return setVisibility(engine.Publish, cfg, logger)
}

// V1UnpublishFile handles PUT /files/{id}/unpublish
// @Summary Make a file private
// @Tags files
// @Security XToken
// @Param id path string true "File ID"
// @Success 200 {object} FileResponse
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /files/{id}/unpublish [put]
func V1UnpublishFile(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return setVisibility(engine.Unpublish, cfg, logger)
}

type visibilityFunc func(ctx context.Context, principal auth.Principal, rawID string) (*metadata.File, error)

func setVisibility(apply visibilityFunc, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		f, err := apply(ctx, principalFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		SendJSONResponse(w, logger, http.StatusOK, newFileResponse(f))
	}
}

// V1GetFileData handles GET /files/{id}/data
// @Summary Download file content
// @Description Public files are served without a token
// @Tags files
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse "A folder doesn't have content"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /files/{id}/data [get]
func V1GetFileData(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.FileOpTimeout)
		defer cancel()

		blob, f, err := engine.Content(ctx, principalFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}
		defer blob.Close()

		w.Header().Set("Content-Type", core.ContentType(f.Name))
		if blob.Size >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
		}
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, blob); err != nil {
			// headers are already sent; the client sees a truncated body
			logger.Warn("Failed to stream file content", zap.String("file_id", string(f.ID)), zap.Error(err))
		}
	}
}
