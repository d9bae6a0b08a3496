// Package input reads the documents handed over by the text and model pipelines:
// the candidate mentions of one text and the instances of one model.
package input

import (
	"errors"
	"fmt"
	"os"

	"github.com/nvandessel/tracelink/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned for documents that parse but break the format rules.
var ErrInvalidDocument = errors.New("invalid document")

// MentionSpec is a mention as written in a document.
type MentionSpec struct {
	ID        string        `json:"id" yaml:"id"`
	Reference string        `json:"reference" yaml:"reference"`
	Kind      string        `json:"kind" yaml:"kind"`
	Words     []models.Word `json:"words,omitempty" yaml:"words,omitempty"`
}

// Document is the input of one run. YAML and JSON are both accepted.
type Document struct {
	Mentions  []MentionSpec          `json:"mentions" yaml:"mentions"`
	Instances []models.ModelInstance `json:"instances" yaml:"instances"`
}

// Load reads and validates a document file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes and validates a document. JSON is a subset of YAML, so one decoder
// handles both.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks ids and kinds. All problems are reported together.
func (d *Document) Validate() error {
	var errs []error

	mentionIDs := make(map[string]bool, len(d.Mentions))
	for i, m := range d.Mentions {
		switch {
		case m.ID == "":
			errs = append(errs, fmt.Errorf("mention %d: missing id", i))
		case mentionIDs[m.ID]:
			errs = append(errs, fmt.Errorf("mention %d: duplicate id %q", i, m.ID))
		}
		mentionIDs[m.ID] = true

		if !models.MappingKind(m.Kind).Valid() {
			errs = append(errs, fmt.Errorf("mention %q: kind %q must be %q or %q",
				m.ID, m.Kind, models.MappingKindName, models.MappingKindType))
		}
		if m.Reference == "" {
			errs = append(errs, fmt.Errorf("mention %q: missing reference", m.ID))
		}
	}

	instanceIDs := make(map[string]bool, len(d.Instances))
	for i, mi := range d.Instances {
		switch {
		case mi.ID == "":
			errs = append(errs, fmt.Errorf("instance %d: missing id", i))
		case instanceIDs[mi.ID]:
			errs = append(errs, fmt.Errorf("instance %d: duplicate id %q", i, mi.ID))
		}
		instanceIDs[mi.ID] = true

		if mi.Name == "" {
			errs = append(errs, fmt.Errorf("instance %q: missing name", mi.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}
	return nil
}

// Build turns the document into the shared mention and instance values of a run.
// Word tags are normalized with models.ParsePOS, so Treebank tags are accepted.
func (d *Document) Build() ([]*models.Mention, []*models.ModelInstance) {
	mentions := make([]*models.Mention, 0, len(d.Mentions))
	for _, m := range d.Mentions {
		words := make([]models.Word, len(m.Words))
		for i, w := range m.Words {
			w.POS = models.ParsePOS(string(w.POS))
			words[i] = w
		}
		mentions = append(mentions, models.NewMention(m.ID, m.Reference, models.MappingKind(m.Kind), words))
	}

	instances := make([]*models.ModelInstance, 0, len(d.Instances))
	for i := range d.Instances {
		mi := d.Instances[i]
		instances = append(instances, &mi)
	}
	return mentions, instances
}
