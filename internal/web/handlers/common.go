package handlers

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"strings"

	"github.com/kozaktomas/facelens/internal/analyzer"
	"github.com/kozaktomas/facelens/internal/cache"
	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/faceerr"
	"github.com/kozaktomas/facelens/internal/imaging"
	"github.com/kozaktomas/facelens/internal/logging"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondPNG writes an encoded PNG image.
func respondPNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// statusFor maps an operation error to an HTTP status and a user-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, analyzer.ErrAlreadyRunning):
		return http.StatusConflict, "analysis is already running"
	case errors.Is(err, cache.ErrEmpty):
		return http.StatusNotFound, "no analysis has run yet"
	case errors.Is(err, controller.ErrNoFrameImage):
		return http.StatusNotFound, "last frame has no image"
	case errors.Is(err, controller.ErrHistoryDisabled):
		return http.StatusNotFound, "comparison history is disabled"
	case errors.Is(err, imaging.ErrEmpty), errors.Is(err, image.ErrFormat):
		return http.StatusBadRequest, "unsupported or corrupt image"
	}

	switch faceerr.KindOf(err) {
	case faceerr.KindSetup:
		return http.StatusServiceUnavailable, faceerr.UserMessage(err)
	case faceerr.KindPrecondition:
		if errors.Is(err, faceerr.ErrNoUpload) {
			return http.StatusBadRequest, faceerr.UserMessage(err)
		}
		return http.StatusUnprocessableEntity, faceerr.UserMessage(err)
	}
	return http.StatusInternalServerError, "internal error"
}

// respondFailure logs err with the request ID and writes the mapped error response.
func respondFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := statusFor(err)
	entry := logging.WithRequestID(r.Context()).WithFields(logging.Fields{
		"op":     op,
		"status": status,
		"error":  err,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	respondError(w, status, message)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
