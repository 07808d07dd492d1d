package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/core/log"
	"github.com/ebogdum/filesmanager/server/handlers"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"

	// TokenHeader carries the session token.
	TokenHeader = "X-Token"
)

// Admitter decides whether a request may proceed.
type Admitter interface {
	Admit(ctx context.Context, req auth.AccessRequest) (auth.Principal, error)
}

// V1AccessGate requires a valid X-Token and stores the resolved principal
// in the request context.
func V1AccessGate(gate Admitter, timeout time.Duration, logger *zap.Logger) func(http.Handler) http.Handler {
	return accessGate(gate, timeout, "", logger)
}

// V1ContentAccessGate is V1AccessGate for content routes: a request for a
// public file named by the idParam URL parameter is admitted without a token.
func V1ContentAccessGate(gate Admitter, timeout time.Duration, idParam string, logger *zap.Logger) func(http.Handler) http.Handler {
	return accessGate(gate, timeout, idParam, logger)
}

func accessGate(gate Admitter, timeout time.Duration, idParam string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := auth.AccessRequest{Token: r.Header.Get(TokenHeader)}
			if idParam != "" {
				req.ContentFileID = chi.URLParam(r, idParam)
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			principal, err := gate.Admit(ctx, req)
			cancel()
			if err != nil {
				logger.Debug("Access denied",
					zap.String("path", r.URL.Path),
					zap.String("token", log.SanitizeToken(req.Token)),
					zap.Error(err))
				handlers.SendErrorResponse(w, logger, err)
				return
			}

			if !principal.Anonymous() {
				logger.Debug("User authenticated", zap.String("user_id", log.SanitizeUserID(string(principal.UserID()))))
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal, req.Token)))
		})
	}
}

// V1RequestIDMiddleware adds a unique request ID to each request context
func V1RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := generateRequestID()

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the request ID stored by V1RequestIDMiddleware.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
