// Package compare decides whether two face descriptors belong to the same person.
package compare

import (
	"fmt"
	"math"

	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/faceerr"
)

// SamePersonThreshold is the Euclidean distance below which two descriptors match.
// A distance of exactly 0.6 is a different person.
const SamePersonThreshold = 0.6

// Distance returns the Euclidean distance between a and b.
func Distance(a, b face.Descriptor) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, faceerr.Precondition("compare.distance", "empty descriptor", faceerr.ErrDescriptorMismatch)
	}
	if len(a) != len(b) {
		return 0, faceerr.Precondition("compare.distance",
			fmt.Sprintf("descriptor lengths differ (%d vs %d)", len(a), len(b)), faceerr.ErrDescriptorMismatch)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// IsMatch applies the fixed same-person threshold.
func IsMatch(distance float64) bool {
	return distance < SamePersonThreshold
}

// Compare computes the outcome for a single pair.
func Compare(a, b face.Descriptor) (face.ComparisonOutcome, error) {
	d, err := Distance(a, b)
	if err != nil {
		return face.ComparisonOutcome{}, err
	}
	return face.ComparisonOutcome{
		Distance:  d,
		Match:     IsMatch(d),
		Probe:     a,
		Candidate: b,
	}, nil
}

// CrossProduct compares every probe against every candidate and returns one
// outcome per pair, probe-major then candidate-minor. There is no early exit
// and no best-match selection.
func CrossProduct(probes, candidates []face.Descriptor) ([]face.ComparisonOutcome, error) {
	outcomes := make([]face.ComparisonOutcome, 0, len(probes)*len(candidates))
	for i, p := range probes {
		for j, c := range candidates {
			o, err := Compare(p, c)
			if err != nil {
				return nil, fmt.Errorf("comparing probe %d with candidate %d: %w", i, j, err)
			}
			o.ProbeIndex = i
			o.CandidateIndex = j
			outcomes = append(outcomes, o)
		}
	}
	return outcomes, nil
}

// Descriptors extracts the descriptor of every result. It fails when results is
// empty or when any result lacks a descriptor; label names the side in messages.
func Descriptors(results []face.DetectionResult, label string) ([]face.Descriptor, error) {
	if len(results) == 0 {
		return nil, faceerr.Precondition("compare.descriptors",
			fmt.Sprintf("No faces detected in %s.", label), faceerr.ErrNoFaces)
	}
	out := make([]face.Descriptor, 0, len(results))
	for _, r := range results {
		d, ok := r.Descriptor.Get()
		if !ok || len(d) == 0 {
			return nil, faceerr.Precondition("compare.descriptors",
				fmt.Sprintf("No valid descriptors in %s.", label), faceerr.ErrDescriptorMismatch)
		}
		out = append(out, d)
	}
	return out, nil
}

// Faces compares detection results from two inputs over their full cross product.
func Faces(probes, candidates []face.DetectionResult, probeLabel, candidateLabel string) ([]face.ComparisonOutcome, error) {
	p, err := Descriptors(probes, probeLabel)
	if err != nil {
		return nil, err
	}
	c, err := Descriptors(candidates, candidateLabel)
	if err != nil {
		return nil, err
	}
	return CrossProduct(p, c)
}
