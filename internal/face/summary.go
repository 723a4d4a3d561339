package face

import (
	"math"
	"strconv"
)

// NotAvailable is shown for attributes that were not computed.
const NotAvailable = "N/A"

// NoFaceSummary is reported when the last analysis found nothing.
const NoFaceSummary = "No face detected during last analysis."

// Summary is the single-face inline display of the last analysis.
type Summary struct {
	Gender  string `json:"gender"`
	Age     string `json:"age"`
	Emotion string `json:"emotion"`
}

// Lines returns the summary as display lines.
func (s Summary) Lines() []string {
	return []string{"Gender: " + s.Gender, "Age: " + s.Age, "Emotion: " + s.Emotion}
}

// Summarize describes the first result in detector order. It returns false for
// a nil or empty frame.
func Summarize(frame *AnalysisFrame) (Summary, bool) {
	if frame.Len() == 0 {
		return Summary{}, false
	}
	r := frame.Results[0]
	return Summary{
		Gender:  r.GenderText(),
		Age:     r.AgeText(),
		Emotion: r.EmotionText(),
	}, true
}

// GenderText returns the gender label or N/A.
func (r DetectionResult) GenderText() string {
	if g, ok := r.Gender.Get(); ok && g != "" {
		return g
	}
	return NotAvailable
}

// AgeText returns the age rounded to whole years or N/A.
func (r DetectionResult) AgeText() string {
	if a, ok := r.Age.Get(); ok && !math.IsNaN(a) {
		return strconv.Itoa(int(math.Round(a)))
	}
	return NotAvailable
}

// EmotionText returns the dominant expression or N/A.
func (r DetectionResult) EmotionText() string {
	if e, ok := r.Expressions.Get(); ok {
		if label, ok := e.Dominant(); ok {
			return label
		}
	}
	return NotAvailable
}

// Primary returns the index of the highest-scoring result, preferring the
// earliest on equal scores. It returns -1 for an empty slice.
func Primary(results []DetectionResult) int {
	best := -1
	for i, r := range results {
		if best == -1 || r.Score > results[best].Score {
			best = i
		}
	}
	return best
}
