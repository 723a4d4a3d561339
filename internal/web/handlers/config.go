package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/face"
)

// ConfigHandler handles analysis configuration and model status endpoints
type ConfigHandler struct {
	controller *controller.Controller
	validate   *validator.Validate
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(ctrl *controller.Controller, validate *validator.Validate) *ConfigHandler {
	return &ConfigHandler{
		controller: ctrl,
		validate:   validate,
	}
}

// ConfigUpdateRequest carries toggle changes. At least one field must be set;
// the threshold is clamped into [0,1] rather than rejected.
type ConfigUpdateRequest struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold" validate:"required_without_all=Landmarks AgeGender Emotions"`
	Landmarks           *bool    `json:"landmarks"`
	AgeGender           *bool    `json:"age_gender"`
	Emotions            *bool    `json:"emotions"`
}

func (r ConfigUpdateRequest) update() face.ConfigUpdate {
	return face.ConfigUpdate{
		ConfidenceThreshold: r.ConfidenceThreshold,
		Landmarks:           r.Landmarks,
		AgeGender:           r.AgeGender,
		Emotions:            r.Emotions,
	}
}

// Get returns the current analysis configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Config())
}

// Update applies toggle changes. They take effect on the next analysis pass.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "no configuration fields provided")
		return
	}

	respondJSON(w, http.StatusOK, h.controller.Configure(req.update()))
}

// Models returns detector model readiness
func (h *ConfigHandler) Models(w http.ResponseWriter, r *http.Request) {
	status := h.controller.Models()
	code := http.StatusOK
	if !status.Ready && !status.Loading && status.Error != "" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}
