package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/config"
)

// TokenResponse carries a freshly issued token
type TokenResponse struct {
	Token string `json:"token"`
}

// V1Connect handles GET /connect
// @Summary Sign in
// @Description Verifies Basic credentials and issues a token valid for 24 hours
// @Tags auth
// @Param Authorization header string true "Basic base64(email:password)"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /connect [get]
func V1Connect(authService *auth.Service, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		token, err := authService.Login(ctx, r.Header.Get("Authorization"))
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		SendJSONResponse(w, logger, http.StatusOK, TokenResponse{Token: token})
	}
}

// V1Disconnect handles GET /disconnect
// @Summary Sign out
// @Description Revokes the token the request was made with
// @Tags auth
// @Security XToken
// @Success 204
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /disconnect [get]
func V1Disconnect(authService *auth.Service, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFrom(r.Context())
		if token == "" {
			SendErrorResponse(w, logger, auth.ErrUnauthenticated)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		if err := authService.RevokeToken(ctx, token); err != nil {
			SendErrorResponse(w, logger, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
