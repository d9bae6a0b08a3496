package similarity

import (
	"context"

	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/lexicon"
	"github.com/nvandessel/tracelink/internal/models"
)

// relatednessPairs are the tag pairs concept relatedness is defined for.
var relatednessPairs = []POSPair{
	{A: models.POSNoun, B: models.POSNoun},
	{A: models.POSVerb, B: models.POSVerb},
}

// ConceptRelatedness averages two Jaccard sub-scores between concepts: one over their
// stemmed content words, one over their gloss terms. Symmetric in x and y.
func ConceptRelatedness(x, y lexicon.Concept) float64 {
	words := Jaccard(x.WordTerms(), y.WordTerms())
	gloss := Jaccard(x.GlossTerms(), y.GlossTerms())
	return (words + gloss) / 2
}

// Relatedness compares the best-matching senses of two words in a concept lexicon.
// Only noun-noun and verb-verb comparisons are defined.
type Relatedness struct {
	lex       *lexicon.Lexicon
	threshold float64
}

// NewRelatedness creates the measure over a loaded lexicon.
func NewRelatedness(lex *lexicon.Lexicon, threshold float64) *Relatedness {
	return &Relatedness{lex: lex, threshold: threshold}
}

// Name implements Measure.
func (*Relatedness) Name() string { return constants.MeasureRelatedness }

// POSPairs implements Measure.
func (*Relatedness) POSPairs() []POSPair { return relatednessPairs }

// Compare implements Measure. Words with no sense in the lexicon are unknown.
func (m *Relatedness) Compare(_ context.Context, a, b Term) (Verdict, error) {
	sensesA := m.lex.Concepts(a.Text, a.POS)
	sensesB := m.lex.Concepts(b.Text, b.POS)
	if len(sensesA) == 0 || len(sensesB) == 0 {
		return unknown(), nil
	}

	best, found := 0.0, false
	for _, x := range sensesA {
		for _, y := range sensesB {
			if x.POS != y.POS || !relatedPOS(x.POS) {
				continue
			}
			if score := ConceptRelatedness(x, y); !found || score > best {
				best, found = score, true
			}
		}
	}
	if !found {
		return unknown(), nil
	}
	return threshold(best, m.threshold), nil
}

func relatedPOS(pos models.POS) bool {
	return pos == models.POSNoun || pos == models.POSVerb
}
