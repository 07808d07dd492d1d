package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/config"
	"github.com/ebogdum/filesmanager/core"
)

// V1GetStatus handles GET /status
// @Summary Dependency status
// @Description Reports whether the session store and the metadata store respond
// @Tags app
// @Success 200 {object} core.Status
// @Router /status [get]
func V1GetStatus(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		SendJSONResponse(w, logger, http.StatusOK, engine.Status(ctx))
	}
}

// V1GetStats handles GET /stats
// @Summary Record counts
// @Tags app
// @Success 200 {object} core.Stats
// @Failure 500 {object} ErrorResponse "Internal Server Error"
// @Router /stats [get]
func V1GetStats(engine *core.Engine, cfg *config.ServerConfig, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.MetadataOpTimeout)
		defer cancel()

		stats, err := engine.Stats(ctx)
		if err != nil {
			SendErrorResponse(w, logger, err)
			return
		}
		SendJSONResponse(w, logger, http.StatusOK, stats)
	}
}
