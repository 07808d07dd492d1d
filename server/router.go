package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/config"
	"github.com/ebogdum/filesmanager/core"
	"github.com/ebogdum/filesmanager/metrics"
	"github.com/ebogdum/filesmanager/server/handlers"
	appMiddleware "github.com/ebogdum/filesmanager/server/middleware"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	engine *core.Engine,
	authService *auth.Service,
	gate appMiddleware.Admitter,
	serverConfig *config.ServerConfig,
	authConfig *config.AuthConfig,
	metricsConfig *config.MetricsConfig,
	logger *zap.Logger,
) chi.Router {
	metrics.RegisterMetrics()

	r := chi.NewRouter()

	r.Use(appMiddleware.V1RequestIDMiddleware())
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(serverConfig.WriteTimeout))
	r.Use(appMiddleware.V1SecurityHeaders())
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.SendJSONResponse(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metricsConfig.Enabled {
		r.Handle(metricsConfig.Path, promhttp.Handler())
	}

	requireToken := appMiddleware.V1AccessGate(gate, serverConfig.MetadataOpTimeout, logger)
	loginLimiter := appMiddleware.NewClientLimiter(authConfig.LoginRate, authConfig.LoginBurst)

	r.Get("/status", handlers.V1GetStatus(engine, serverConfig, logger))
	r.Get("/stats", handlers.V1GetStats(engine, serverConfig, logger))

	r.Post("/users", handlers.V1PostUser(engine, serverConfig, logger))
	r.With(requireToken).Get("/users/me", handlers.V1GetMe(logger))

	r.With(appMiddleware.V1RateLimitMiddleware(loginLimiter, logger)).
		Get("/connect", handlers.V1Connect(authService, serverConfig, logger))
	r.With(requireToken).Get("/disconnect", handlers.V1Disconnect(authService, serverConfig, logger))

	r.Route("/files", func(r chi.Router) {
		r.With(requireToken).Post("/", handlers.V1PostFile(engine, serverConfig, logger))
		r.With(requireToken).Get("/", handlers.V1ListFiles(engine, serverConfig, logger))
		r.With(requireToken).Get("/{id}", handlers.V1GetFile(engine, serverConfig, logger))
		r.With(requireToken).Put("/{id}/publish", handlers.V1PublishFile(engine, serverConfig, logger))
		r.With(requireToken).Put("/{id}/unpublish", handlers.V1UnpublishFile(engine, serverConfig, logger))

		// public files are readable without a token
		r.With(appMiddleware.V1ContentAccessGate(gate, serverConfig.MetadataOpTimeout, "id", logger)).
			Get("/{id}/data", handlers.V1GetFileData(engine, serverConfig, logger))
	})

	logger.Info("HTTP router configured successfully")

	return r
}

// requestLogger records request metrics by route pattern and logs each request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

			logger.Info("HTTP request",
				zap.String("request_id", appMiddleware.GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", duration),
				zap.String("user_agent", r.UserAgent()),
				zap.String("remote_addr", r.RemoteAddr))
		})
	}
}
