package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/config"
	"github.com/ebogdum/filesmanager/core"
	"github.com/ebogdum/filesmanager/metadata"
)

// UserResponse is the public view of an identity
type UserResponse struct {
	ID    metadata.ID `json:"id"`
	Email string      `json:"email"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// V1PostUser handles POST /users
// @Summary Register a user
// @Tags users
// @Param body body registerRequest true "Credentials"
// @Success 201 {object} UserResponse
// @Failure 400 {object} ErrorResponse "Missing email, Missing password or Already exist"
// @Router /users [post]
func V1PostUser(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(w, r, cfg.MaxBodyBytes, &req); err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		user, err := engine.Register(ctx, req.Email, req.Password)
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		SendJSONResponse(w, logger, http.StatusCreated, UserResponse{ID: user.ID, Email: user.Email})
	}
}

// V1GetMe handles GET /users/me
// @Summary Current user
// @Tags users
// @Security XToken
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /users/me [get]
func V1GetMe(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok || principal.Anonymous() {
			SendErrorResponse(w, logger, auth.ErrUnauthenticated)
			return
		}

		SendJSONResponse(w, logger, http.StatusOK, UserResponse{ID: principal.User.ID, Email: principal.User.Email})
	}
}
