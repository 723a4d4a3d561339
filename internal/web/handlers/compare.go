package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/database"
	"github.com/kozaktomas/facelens/internal/logging"
)

// CompareHandler handles face comparison endpoints
type CompareHandler struct {
	controller *controller.Controller
	validate   *validator.Validate
}

// NewCompareHandler creates a new compare handler
func NewCompareHandler(ctrl *controller.Controller, validate *validator.Validate) *CompareHandler {
	return &CompareHandler{
		controller: ctrl,
		validate:   validate,
	}
}

// LiveComparisonResponse carries the annotated upload inline.
type LiveComparisonResponse struct {
	*controller.LiveComparison
	Image string `json:"image"`
}

// PhotoComparisonResponse carries both annotated photos inline.
type PhotoComparisonResponse struct {
	*controller.PhotoComparison
	Image1 string `json:"image1"`
	Image2 string `json:"image2"`
}

// HistoryQuery is the validated query of the history endpoint.
type HistoryQuery struct {
	Limit int `validate:"gte=1,lte=500"`
}

// HistoryResponse is a page of recent comparison records.
type HistoryResponse struct {
	Records []database.ComparisonRecord `json:"records"`
	Total   int                         `json:"total"`
}

// Live compares the primary face of the live feed with every face of an upload
func (h *CompareHandler) Live(w http.ResponseWriter, r *http.Request) {
	uploads, ok := readUploads(w, r, constants.FieldPhoto)
	if !ok {
		return
	}

	result, err := h.controller.CompareWithLive(r.Context(), uploads[0])
	if err != nil {
		respondFailure(w, r, "compare.live", err)
		return
	}

	logging.WithRequestID(r.Context()).WithFields(logging.Fields{
		"comparison_id": result.ComparisonID,
		"candidates":    len(result.Results),
	}).Info("live comparison finished")

	respondJSON(w, http.StatusOK, LiveComparisonResponse{
		LiveComparison: result,
		Image:          pngDataURL(result.Image),
	})
}

// Photos compares every face of photo1 with every face of photo2
func (h *CompareHandler) Photos(w http.ResponseWriter, r *http.Request) {
	uploads, ok := readUploads(w, r, constants.FieldPhoto1, constants.FieldPhoto2)
	if !ok {
		return
	}

	result, err := h.controller.ComparePhotos(r.Context(), uploads[0], uploads[1])
	if err != nil {
		respondFailure(w, r, "compare.photos", err)
		return
	}

	logging.WithRequestID(r.Context()).WithFields(logging.Fields{
		"comparison_id": result.ComparisonID,
		"pairs":         len(result.Results),
	}).Info("photo comparison finished")

	respondJSON(w, http.StatusOK, PhotoComparisonResponse{
		PhotoComparison: result,
		Image1:          pngDataURL(result.Image1),
		Image2:          pngDataURL(result.Image2),
	})
}

// History returns recent comparison records
func (h *CompareHandler) History(w http.ResponseWriter, r *http.Request) {
	query := HistoryQuery{Limit: constants.DefaultHistoryLimit}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = n
	}
	if err := h.validate.Struct(query); err != nil {
		respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	records, total, err := h.controller.History(r.Context(), query.Limit)
	if err != nil {
		respondFailure(w, r, "compare.history", err)
		return
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Records: records, Total: total})
}
