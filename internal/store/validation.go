package store

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/tracelink/internal/models"
)

// ErrInconsistent is returned when stored results break the output invariants.
var ErrInconsistent = errors.New("inconsistent results")

// ValidationError describes one problem in a snapshot.
type ValidationError struct {
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
	Issue    string `json:"issue"` // "dangling", "duplicate", "out-of-range", "mismatch", "blank"
}

// String returns a human-readable description of the validation error.
func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s in %s", e.Issue, e.RecordID, e.Field)
}

// Validate checks a snapshot for:
// - recommended instances with both name and type blank
// - two recommended instances with the same case-insensitive name and type
// - links pointing at unknown recommended instances
// - probabilities and confidences outside [0, 1]
// - links whose confidence is not the noisy-OR of their evidence
func Validate(snap *Snapshot) []ValidationError {
	var issues []ValidationError

	ids := make(map[string]bool, len(snap.Recommendations))
	keys := make(map[string]string, len(snap.Recommendations))
	for _, r := range snap.Recommendations {
		ids[r.ID] = true
		if strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.Type) == "" {
			issues = append(issues, ValidationError{RecordID: r.ID, Field: "name", Issue: "blank"})
		}
		key := strings.ToLower(r.Name) + "\x00" + strings.ToLower(r.Type)
		if other, ok := keys[key]; ok {
			issues = append(issues, ValidationError{RecordID: r.ID, Field: "name/type of " + other, Issue: "duplicate"})
		}
		keys[key] = r.ID
		if r.Probability < 0 || r.Probability > 1 {
			issues = append(issues, ValidationError{RecordID: r.ID, Field: "probability", Issue: "out-of-range"})
		}
	}

	for _, l := range snap.Links {
		id := l.RecommendedID + "->" + l.InstanceID
		if !ids[l.RecommendedID] {
			issues = append(issues, ValidationError{RecordID: id, Field: "recommended_id", Issue: "dangling"})
		}
		if l.Confidence < 0 || l.Confidence > 1 {
			issues = append(issues, ValidationError{RecordID: id, Field: "confidence", Issue: "out-of-range"})
			continue
		}
		if want := models.NoisyOR(l.Evidence); math.Abs(want-l.Confidence) > 1e-9 {
			issues = append(issues, ValidationError{RecordID: id, Field: "confidence", Issue: "mismatch"})
		}
	}
	return issues
}
