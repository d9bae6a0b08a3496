// Package lexicon holds the concept database behind the relatedness measure:
// word senses with their synonyms and a short gloss, looked up by lemma.
package lexicon

import (
	"fmt"
	"os"
	"sort"

	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/textnorm"
	"gopkg.in/yaml.v3"
)

// Concept is one word sense.
type Concept struct {
	ID    string     `json:"id" yaml:"id"`
	POS   models.POS `json:"pos" yaml:"pos"`
	Words []string   `json:"words" yaml:"words"`
	Gloss string     `json:"gloss,omitempty" yaml:"gloss,omitempty"`
}

// WordTerms returns the stop-word filtered stems of the concept's words.
func (c Concept) WordTerms() map[string]bool {
	return textnorm.Terms(c.Words...)
}

// GlossTerms returns the stop-word filtered stems of the gloss.
func (c Concept) GlossTerms() map[string]bool {
	return textnorm.Terms(c.Gloss)
}

// file is the on-disk YAML layout.
type file struct {
	Concepts []Concept `yaml:"concepts"`
}

// Lexicon indexes concepts by folded lemma. It is read-only after construction.
type Lexicon struct {
	concepts []Concept
	byLemma  map[string][]int
}

// New builds a lexicon. Concept ids must be unique and non-empty.
func New(concepts []Concept) (*Lexicon, error) {
	l := &Lexicon{byLemma: make(map[string][]int)}
	seen := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		if c.ID == "" {
			return nil, fmt.Errorf("concept with words %v has no id", c.Words)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate concept id %q", c.ID)
		}
		seen[c.ID] = true
		c.POS = models.ParsePOS(string(c.POS))

		idx := len(l.concepts)
		l.concepts = append(l.concepts, c)
		for _, w := range c.Words {
			lemma := textnorm.Fold(w)
			if lemma == "" {
				continue
			}
			if n := len(l.byLemma[lemma]); n > 0 && l.byLemma[lemma][n-1] == idx {
				continue
			}
			l.byLemma[lemma] = append(l.byLemma[lemma], idx)
		}
	}
	return l, nil
}

// Load reads a YAML concept file of the form {concepts: [{id, pos, words, gloss}]}.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	if len(f.Concepts) == 0 {
		return nil, fmt.Errorf("lexicon %s has no concepts", path)
	}
	return New(f.Concepts)
}

// Len returns the number of concepts.
func (l *Lexicon) Len() int { return len(l.concepts) }

// Concepts returns the senses of word. With POSUnknown every sense is returned;
// otherwise only senses with that POS. The lemma is tried as given, then stemmed.
func (l *Lexicon) Concepts(word string, pos models.POS) []Concept {
	idxs := l.byLemma[textnorm.Fold(word)]
	if len(idxs) == 0 {
		idxs = l.byStem(word)
	}

	var out []Concept
	for _, i := range idxs {
		c := l.concepts[i]
		if pos != models.POSUnknown && c.POS != pos {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (l *Lexicon) byStem(word string) []int {
	stem := textnorm.Stem(word)
	if stem == "" {
		return nil
	}
	var idxs []int
	for lemma, ids := range l.byLemma {
		if textnorm.Stem(lemma) == stem {
			idxs = append(idxs, ids...)
		}
	}
	sort.Ints(idxs)
	return dedupSorted(idxs)
}

func dedupSorted(xs []int) []int {
	if len(xs) < 2 {
		return xs
	}
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
