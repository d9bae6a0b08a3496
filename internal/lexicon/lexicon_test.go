package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/tracelink/internal/models"
)

const fixture = `
concepts:
  - id: cache.n.01
    pos: noun
    words: [cache, buffer store]
    gloss: a fast store of recently used data
  - id: buffer.n.01
    pos: NN
    words: [buffer]
    gloss: a temporary store of data waiting to be processed
  - id: cache.v.01
    pos: verb
    words: [cache, stash]
    gloss: keep data in a hidden place
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	lex, err := Load(writeFixture(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if lex.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lex.Len())
	}

	tests := []struct {
		name string
		word string
		pos  models.POS
		want []string
	}{
		{"any pos", "Cache", models.POSUnknown, []string{"cache.n.01", "cache.v.01"}},
		{"noun only", "cache", models.POSNoun, []string{"cache.n.01"}},
		{"treebank pos normalized", "buffer", models.POSNoun, []string{"buffer.n.01"}},
		{"stemmed fallback", "caches", models.POSVerb, []string{"cache.v.01"}},
		{"multi word lemma", "buffer store", models.POSUnknown, []string{"cache.n.01"}},
		{"unknown word", "server", models.POSUnknown, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lex.Concepts(tt.word, tt.pos)
			if len(got) != len(tt.want) {
				t.Fatalf("Concepts(%q) returned %d concepts, want %d", tt.word, len(got), len(tt.want))
			}
			for i, c := range got {
				if c.ID != tt.want[i] {
					t.Errorf("concept %d = %s, want %s", i, c.ID, tt.want[i])
				}
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New([]Concept{{Words: []string{"x"}}}); err == nil {
		t.Error("expected error for concept without id")
	}
	if _, err := New([]Concept{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestLoad_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	if err := os.WriteFile(path, []byte("concepts: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for empty lexicon")
	}
}

func TestConcept_Terms(t *testing.T) {
	c := Concept{Words: []string{"cache", "buffer store"}, Gloss: "a fast store of the data"}

	words := c.WordTerms()
	if !words["cach"] || !words["buffer"] || !words["store"] || len(words) != 3 {
		t.Errorf("WordTerms() = %v", words)
	}
	gloss := c.GlossTerms()
	if gloss["a"] || gloss["of"] || !gloss["fast"] || !gloss["data"] {
		t.Errorf("GlossTerms() = %v", gloss)
	}
}
