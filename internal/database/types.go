package database

import (
	"time"

	"github.com/kozaktomas/facelens/internal/face"
)

// Comparison modes.
const (
	ModeLive   = "live"
	ModePhotos = "photos"
)

// ComparisonRecord is one probe/candidate pair of a stored comparison.
type ComparisonRecord struct {
	ID             int64     `json:"id"`
	ComparisonID   string    `json:"comparison_id"` // shared by every pair of one request
	Mode           string    `json:"mode"`
	ProbeIndex     int       `json:"probe_index"`
	CandidateIndex int       `json:"candidate_index"`
	Distance       float64   `json:"distance"`
	Match          bool      `json:"match"`
	CreatedAt      time.Time `json:"created_at"`

	ProbeDescriptor     []float32 `json:"-"`
	CandidateDescriptor []float32 `json:"-"`
}

// RecordsFromOutcomes converts comparator outcomes into records of one comparison.
func RecordsFromOutcomes(comparisonID, mode string, outcomes []face.ComparisonOutcome) []ComparisonRecord {
	records := make([]ComparisonRecord, 0, len(outcomes))
	for _, o := range outcomes {
		records = append(records, ComparisonRecord{
			ComparisonID:        comparisonID,
			Mode:                mode,
			ProbeIndex:          o.ProbeIndex,
			CandidateIndex:      o.CandidateIndex,
			Distance:            o.Distance,
			Match:               o.Match,
			ProbeDescriptor:     o.Probe,
			CandidateDescriptor: o.Candidate,
		})
	}
	return records
}
