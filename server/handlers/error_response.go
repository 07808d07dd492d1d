package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/auth"
	"github.com/ebogdum/filesmanager/internal/apperr"
	"github.com/ebogdum/filesmanager/metadata"
	"github.com/ebogdum/filesmanager/metrics"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
}

var (
	errBodyTooLarge = errors.New("Request Entity Too Large")
	errInternal     = errors.New("Internal Server Error")
)

// StatusFor maps an error to its HTTP status and the message safe to show.
func StatusFor(err error) (int, string) {
	var ve *apperr.ValidationError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, auth.ErrUnauthenticated.Error()
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, metadata.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, errBodyTooLarge.Error()
	default:
		return http.StatusInternalServerError, errInternal.Error()
	}
}

// SendErrorResponse writes err as a JSON error response. Infrastructure
// detail is logged and replaced with a generic message.
func SendErrorResponse(w http.ResponseWriter, logger *zap.Logger, err error) {
	statusCode, message := StatusFor(err)

	if statusCode == http.StatusInternalServerError {
		component := "server"
		if apperr.IsInfrastructure(err) {
			component = "infrastructure"
		}
		metrics.ErrorsTotal.WithLabelValues(component, "internal").Inc()
		logger.Error("Request failed", zap.Error(err))
	} else {
		logger.Debug("Error response sent", zap.Int("status_code", statusCode), zap.Error(err))
	}

	SendJSONResponse(w, logger, statusCode, ErrorResponse{Error: message})
}

// SendJSONResponse sends a JSON response with any data structure
func SendJSONResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			// an empty body decodes as an empty object
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return apperr.Invalid("body", "Invalid JSON")
	}
	return nil
}
