package models

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Claimant identifies the agent that proposed a recommended instance or link.
type Claimant string

// RecommendedInstance is an entity inferred from the text: a name, an optional type,
// and the mentions that support each. Mapping sets only grow; the type may be refined
// once from blank to a concrete value.
//
// Instances are mutated only by the recommendation store. Reads are safe from any goroutine.
type RecommendedInstance struct {
	mu sync.RWMutex

	id          string
	name        string
	typ         string
	claimant    Claimant
	probability float64

	nameMappings []*Mention
	typeMappings []*Mention
}

// instanceNamespace scopes recommended instance ids.
var instanceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tracelink:recommended-instance"))

// NewRecommendedInstance creates an instance whose id is derived from its name, type,
// and initial mappings, so the same document always yields the same ids. Duplicate
// mentions in the mapping slices are collapsed, keeping first occurrence order.
func NewRecommendedInstance(name, typ string, claimant Claimant, probability float64, nameMappings, typeMappings []*Mention) *RecommendedInstance {
	ri := &RecommendedInstance{
		name:        name,
		typ:         typ,
		claimant:    claimant,
		probability: probability,
	}
	ri.nameMappings = appendUnique(nil, nameMappings)
	ri.typeMappings = appendUnique(nil, typeMappings)
	ri.id = instanceID(name, typ, ri.nameMappings, ri.typeMappings)
	return ri
}

// instanceID hashes the fields that fix an instance's identity when it is created.
// The id does not follow later mapping growth or type refinement.
func instanceID(name, typ string, names, types []*Mention) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte(0)
	b.WriteString(typ)
	for _, group := range [][]*Mention{names, types} {
		b.WriteByte(0)
		for _, m := range group {
			b.WriteString(m.ID())
			b.WriteByte(',')
		}
	}
	return uuid.NewSHA1(instanceNamespace, []byte(b.String())).String()
}

// ID returns the instance id.
func (ri *RecommendedInstance) ID() string { return ri.id }

// Name returns the instance name.
func (ri *RecommendedInstance) Name() string { return ri.name }

// Claimant returns the agent that first proposed the instance.
func (ri *RecommendedInstance) Claimant() Claimant { return ri.claimant }

// Probability returns the probability the instance was created with.
func (ri *RecommendedInstance) Probability() float64 { return ri.probability }

// Type returns the instance type, which may be blank.
func (ri *RecommendedInstance) Type() string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return ri.typ
}

// NameMappings returns a copy of the name mentions in insertion order.
func (ri *RecommendedInstance) NameMappings() []*Mention {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return append([]*Mention(nil), ri.nameMappings...)
}

// TypeMappings returns a copy of the type mentions in insertion order.
func (ri *RecommendedInstance) TypeMappings() []*Mention {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return append([]*Mention(nil), ri.typeMappings...)
}

// HasTypeMappings reports whether any type mention supports the instance.
func (ri *RecommendedInstance) HasTypeMappings() bool {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.typeMappings) > 0
}

// HasNameMapping reports whether m is one of the name mentions.
func (ri *RecommendedInstance) HasNameMapping(m *Mention) bool {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return containsMention(ri.nameMappings, m)
}

// HasTypeMapping reports whether m is one of the type mentions.
func (ri *RecommendedInstance) HasTypeMapping(m *Mention) bool {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return containsMention(ri.typeMappings, m)
}

// AddMappings extends both mapping sets and returns how many mentions were new.
func (ri *RecommendedInstance) AddMappings(names, types []*Mention) int {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	before := len(ri.nameMappings) + len(ri.typeMappings)
	ri.nameMappings = appendUnique(ri.nameMappings, names)
	ri.typeMappings = appendUnique(ri.typeMappings, types)
	return len(ri.nameMappings) + len(ri.typeMappings) - before
}

// RefineType sets the type when it is currently blank and typ is not.
// It reports whether the type changed.
func (ri *RecommendedInstance) RefineType(typ string) bool {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	if strings.TrimSpace(ri.typ) != "" || strings.TrimSpace(typ) == "" {
		return false
	}
	ri.typ = typ
	return true
}

// SameAs reports structural identity: equal name, equal type, and equal mapping sets.
func (ri *RecommendedInstance) SameAs(other *RecommendedInstance) bool {
	if ri == other {
		return true
	}
	if other == nil {
		return false
	}
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	return ri.name == other.name &&
		ri.typ == other.typ &&
		sameMentionSet(ri.nameMappings, other.nameMappings) &&
		sameMentionSet(ri.typeMappings, other.typeMappings)
}

// RecommendedInstanceSummary is a plain snapshot of a recommended instance for output.
type RecommendedInstanceSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	Claimant     Claimant `json:"claimant"`
	Probability  float64  `json:"probability"`
	NameMappings []string `json:"name_mappings"`
	TypeMappings []string `json:"type_mappings,omitempty"`
}

// Summary returns a snapshot with mentions rendered as their ids.
func (ri *RecommendedInstance) Summary() RecommendedInstanceSummary {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return RecommendedInstanceSummary{
		ID:           ri.id,
		Name:         ri.name,
		Type:         ri.typ,
		Claimant:     ri.claimant,
		Probability:  ri.probability,
		NameMappings: mentionIDs(ri.nameMappings),
		TypeMappings: mentionIDs(ri.typeMappings),
	}
}

func appendUnique(dst []*Mention, src []*Mention) []*Mention {
	for _, m := range src {
		if m == nil || containsMention(dst, m) {
			continue
		}
		dst = append(dst, m)
	}
	return dst
}

func containsMention(set []*Mention, m *Mention) bool {
	for _, x := range set {
		if x == m {
			return true
		}
	}
	return false
}

func sameMentionSet(a, b []*Mention) bool {
	if len(a) != len(b) {
		return false
	}
	for _, m := range a {
		if !containsMention(b, m) {
			return false
		}
	}
	return true
}

func mentionIDs(ms []*Mention) []string {
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID())
	}
	return ids
}
