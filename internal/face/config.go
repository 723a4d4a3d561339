package face

import "math"

// DefaultConfidence is used when no valid confidence threshold was provided.
const DefaultConfidence = 0.5

// AnalysisConfig holds the user-adjustable analysis options.
type AnalysisConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	Landmarks           bool    `json:"landmarks" yaml:"landmarks"`
	AgeGender           bool    `json:"age_gender" yaml:"age_gender"`
	Emotions            bool    `json:"emotions" yaml:"emotions"`
}

// DefaultConfig returns the configuration used before any toggle is changed.
func DefaultConfig() AnalysisConfig {
	return AnalysisConfig{ConfidenceThreshold: DefaultConfidence}
}

// ClampConfidence clamps v into [0,1]. NaN falls back to DefaultConfidence.
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultConfidence
	}
	return min(max(v, 0), 1)
}

// Normalize returns a copy with the confidence threshold clamped.
func (c AnalysisConfig) Normalize() AnalysisConfig {
	c.ConfidenceThreshold = ClampConfidence(c.ConfidenceThreshold)
	return c
}

// Detailed reports whether any sub-analysis is enabled. With every flag off a
// pass runs detection only.
func (c AnalysisConfig) Detailed() bool {
	return c.Landmarks || c.AgeGender || c.Emotions
}

// ConfigUpdate carries partial toggle changes. Nil fields are left untouched.
type ConfigUpdate struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	Landmarks           *bool    `json:"landmarks"`
	AgeGender           *bool    `json:"age_gender"`
	Emotions            *bool    `json:"emotions"`
}

// Apply merges the update into c and returns the normalized result.
func (u ConfigUpdate) Apply(c AnalysisConfig) AnalysisConfig {
	if u.ConfidenceThreshold != nil {
		c.ConfidenceThreshold = *u.ConfidenceThreshold
	}
	if u.Landmarks != nil {
		c.Landmarks = *u.Landmarks
	}
	if u.AgeGender != nil {
		c.AgeGender = *u.AgeGender
	}
	if u.Emotions != nil {
		c.Emotions = *u.Emotions
	}
	return c.Normalize()
}
