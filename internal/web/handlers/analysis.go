package handlers

import (
	"net/http"

	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/logging"
)

// AnalysisHandler handles the live analysis lifecycle and its outputs
type AnalysisHandler struct {
	controller *controller.Controller
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(ctrl *controller.Controller) *AnalysisHandler {
	return &AnalysisHandler{controller: ctrl}
}

// Status returns the analyzer state, stats and configuration
func (h *AnalysisHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Status())
}

// Start begins live analysis
func (h *AnalysisHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Start(r.Context()); err != nil {
		respondFailure(w, r, "analysis.start", err)
		return
	}
	logging.WithRequestID(r.Context()).Info("live analysis started")
	respondJSON(w, http.StatusOK, h.controller.Status())
}

// Stop ends live analysis. Stopping an idle analyzer is not an error.
func (h *AnalysisHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if h.controller.Stop() {
		logging.WithRequestID(r.Context()).Info("live analysis stopped")
	}
	respondJSON(w, http.StatusOK, h.controller.Status())
}

// Last returns the most recent analysis frame
func (h *AnalysisHandler) Last(w http.ResponseWriter, r *http.Request) {
	frame, err := h.controller.LastFrame(r.Context())
	if err != nil {
		respondFailure(w, r, "analysis.last", err)
		return
	}
	respondJSON(w, http.StatusOK, newFrameEvent(frame))
}

// LastImage returns the most recent frame annotated as PNG
func (h *AnalysisHandler) LastImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.controller.LastFrameImage(r.Context())
	if err != nil {
		respondFailure(w, r, "analysis.last_image", err)
		return
	}
	respondPNG(w, img)
}

// Fixed returns the inline summary of the last analysis
func (h *AnalysisHandler) Fixed(w http.ResponseWriter, r *http.Request) {
	results, err := h.controller.FixedResults(r.Context())
	if err != nil {
		respondFailure(w, r, "analysis.fixed", err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// Events streams analysis frames as Server-Sent Events
func (h *AnalysisHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r, h.controller.Analyzer(), h.controller.Status())
}

// WebSocket streams analysis frames over a WebSocket connection
func (h *AnalysisHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	streamWebSocket(w, r, h.controller.Analyzer(), h.controller.Status())
}
