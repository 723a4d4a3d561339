package handlers

import (
	"net/http"

	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/controller"
)

// PhotosHandler handles analysis of uploaded photos
type PhotosHandler struct {
	controller *controller.Controller
}

// NewPhotosHandler creates a new photos handler
func NewPhotosHandler(ctrl *controller.Controller) *PhotosHandler {
	return &PhotosHandler{controller: ctrl}
}

// PhotoAnalysisResponse is the analysis of one upload with the annotated image inline.
type PhotoAnalysisResponse struct {
	*controller.PhotoAnalysis
	Image string `json:"image"`
}

// Analyze runs the full analysis on an uploaded photo
func (h *PhotosHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	uploads, ok := readUploads(w, r, constants.FieldPhoto)
	if !ok {
		return
	}

	analysis, err := h.controller.AnalyzePhoto(r.Context(), uploads[0])
	if err != nil {
		respondFailure(w, r, "photos.analyze", err)
		return
	}

	respondJSON(w, http.StatusOK, PhotoAnalysisResponse{
		PhotoAnalysis: analysis,
		Image:         pngDataURL(analysis.Image),
	})
}

// Annotate returns the uploaded photo with boxes and labels drawn as PNG.
// The mode query parameter selects live labels (default) or numbered compare labels.
func (h *PhotosHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	mode := controller.ModeLive
	switch r.URL.Query().Get("mode") {
	case "", string(controller.ModeLive):
	case string(controller.ModeCompare):
		mode = controller.ModeCompare
	default:
		respondError(w, http.StatusBadRequest, "mode must be live or compare")
		return
	}

	uploads, ok := readUploads(w, r, constants.FieldPhoto)
	if !ok {
		return
	}

	annotated, err := h.controller.Annotate(r.Context(), uploads[0], mode)
	if err != nil {
		respondFailure(w, r, "photos.annotate", err)
		return
	}
	respondPNG(w, annotated.Image)
}
