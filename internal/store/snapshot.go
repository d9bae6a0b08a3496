// Package store persists the results of resolution runs: JSONL files for exchange
// and a SQLite database for run history.
package store

import (
	"time"

	"github.com/nvandessel/tracelink/internal/models"
)

// LinkRecord is a link flattened for output.
type LinkRecord struct {
	RecommendedID string            `json:"recommended_id"`
	Name          string            `json:"name"`
	Type          string            `json:"type,omitempty"`
	InstanceID    string            `json:"instance_id"`
	InstanceName  string            `json:"instance_name"`
	InstanceType  string            `json:"instance_type,omitempty"`
	Confidence    float64           `json:"confidence"`
	Evidence      []models.Evidence `json:"evidence"`
}

// Snapshot is the output of one run.
type Snapshot struct {
	RunID           string                              `json:"run_id,omitempty"`
	CreatedAt       time.Time                           `json:"created_at"`
	Document        string                              `json:"document,omitempty"`
	Recommendations []models.RecommendedInstanceSummary `json:"recommendations"`
	Links           []LinkRecord                        `json:"links"`
}

// NewSnapshot flattens recommended instances and links. Both keep their given order.
func NewSnapshot(runID string, createdAt time.Time, ris []*models.RecommendedInstance, links []models.Link) *Snapshot {
	snap := &Snapshot{
		RunID:           runID,
		CreatedAt:       createdAt.UTC(),
		Recommendations: make([]models.RecommendedInstanceSummary, 0, len(ris)),
		Links:           make([]LinkRecord, 0, len(links)),
	}
	for _, ri := range ris {
		snap.Recommendations = append(snap.Recommendations, ri.Summary())
	}
	for _, l := range links {
		snap.Links = append(snap.Links, LinkRecord{
			RecommendedID: l.Recommended.ID(),
			Name:          l.Recommended.Name(),
			Type:          l.Recommended.Type(),
			InstanceID:    l.Instance.ID,
			InstanceName:  l.Instance.Name,
			InstanceType:  l.Instance.Type,
			Confidence:    l.Confidence,
			Evidence:      append([]models.Evidence(nil), l.Evidence...),
		})
	}
	return snap
}
