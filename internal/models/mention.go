package models

import (
	"encoding/json"
	"strings"
)

// POS is a coarse part-of-speech tag attached to a word by the text pipeline.
type POS string

const (
	POSUnknown   POS = ""
	POSNoun      POS = "noun"
	POSVerb      POS = "verb"
	POSAdjective POS = "adjective"
	POSOther     POS = "other"
)

// ParsePOS maps Penn Treebank tags (NN, NNS, VBZ, JJ, ...) and plain names onto POS.
// An empty string yields POSUnknown; anything unrecognized yields POSOther.
func ParsePOS(s string) POS {
	s = strings.TrimSpace(s)
	if s == "" {
		return POSUnknown
	}
	switch strings.ToLower(s) {
	case "noun", "n":
		return POSNoun
	case "verb", "v":
		return POSVerb
	case "adjective", "adj", "a":
		return POSAdjective
	case "other":
		return POSOther
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "NN"):
		return POSNoun
	case strings.HasPrefix(upper, "VB"):
		return POSVerb
	case strings.HasPrefix(upper, "JJ"):
		return POSAdjective
	}
	return POSOther
}

// Word is one token of the analyzed text.
type Word struct {
	Text     string `json:"text" yaml:"text"`
	POS      POS    `json:"pos,omitempty" yaml:"pos,omitempty"`
	Sentence int    `json:"sentence" yaml:"sentence"`
	Position int    `json:"position" yaml:"position"`
}

// MappingKind says whether a mention names an entity or its type.
type MappingKind string

const (
	MappingKindName MappingKind = "name"
	MappingKindType MappingKind = "type"
)

// Valid returns true if the kind is a recognized value.
func (k MappingKind) Valid() bool {
	switch k {
	case MappingKindName, MappingKindType:
		return true
	}
	return false
}

// Mention is a name or type phrase found in the text. Mentions are built once by the
// text pipeline and shared by pointer afterwards; the pointer is the mention's identity.
type Mention struct {
	id        string
	reference string
	kind      MappingKind
	words     []Word
}

// NewMention creates a mention. The words slice is copied.
func NewMention(id, reference string, kind MappingKind, words []Word) *Mention {
	w := make([]Word, len(words))
	copy(w, words)
	return &Mention{id: id, reference: reference, kind: kind, words: w}
}

// ID returns the identifier assigned by the text pipeline.
func (m *Mention) ID() string { return m.id }

// Reference returns the phrase the mention stands for, e.g. "Logic".
func (m *Mention) Reference() string { return m.reference }

// Kind returns whether the mention is a name or a type.
func (m *Mention) Kind() MappingKind { return m.kind }

// Words returns a copy of the source words.
func (m *Mention) Words() []Word {
	w := make([]Word, len(m.words))
	copy(w, m.words)
	return w
}

// Sentence returns the sentence of the first source word, or -1 when there are none.
func (m *Mention) Sentence() int {
	if len(m.words) == 0 {
		return -1
	}
	return m.words[0].Sentence
}

// Span returns the first and last word positions covered by the mention.
// ok is false when the mention has no source words.
func (m *Mention) Span() (first, last int, ok bool) {
	if len(m.words) == 0 {
		return 0, 0, false
	}
	first, last = m.words[0].Position, m.words[0].Position
	for _, w := range m.words[1:] {
		if w.Position < first {
			first = w.Position
		}
		if w.Position > last {
			last = w.Position
		}
	}
	return first, last, true
}

// POS returns the tag of the head word (the last source word), or POSUnknown.
func (m *Mention) POS() POS {
	if len(m.words) == 0 {
		return POSUnknown
	}
	return m.words[len(m.words)-1].POS
}

// MarshalJSON renders the mention as its id, reference and kind.
func (m *Mention) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string      `json:"id"`
		Reference string      `json:"reference"`
		Kind      MappingKind `json:"kind"`
	}{m.id, m.reference, m.kind})
}
