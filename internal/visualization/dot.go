// Package visualization renders the trace link graph of a run: recommended
// instances on one side, model instances on the other, links between them.
package visualization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/tracelink/internal/store"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat accepts "dot" and "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDOT, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown graph format %q (valid: dot, json)", s)
	}
}

// Node kinds.
const (
	KindRecommended = "recommended"
	KindModel       = "model"
)

// Node is a recommended or model instance.
type Node struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	Type  string  `json:"type,omitempty"`
	Score float64 `json:"score"` // probability for recommended instances, best link confidence for model instances
}

// Edge is a link from a recommended instance to a model instance.
type Edge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
	Evidence   int     `json:"evidence"`
}

// Graph is the renderable form of a snapshot.
type Graph struct {
	RunID string `json:"run_id,omitempty"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build converts a snapshot into a graph. Every recommended instance becomes a node,
// linked or not; model instances appear only when linked.
func Build(snap *store.Snapshot) Graph {
	g := Graph{RunID: snap.RunID, Nodes: []Node{}, Edges: []Edge{}}

	for _, ri := range snap.Recommendations {
		g.Nodes = append(g.Nodes, Node{
			ID:    recommendedID(ri.ID),
			Kind:  KindRecommended,
			Name:  ri.Name,
			Type:  ri.Type,
			Score: ri.Probability,
		})
	}

	models := make(map[string]*Node)
	for _, l := range snap.Links {
		target := modelID(l.InstanceID)
		if n, ok := models[target]; ok {
			n.Score = max(n.Score, l.Confidence)
		} else {
			models[target] = &Node{
				ID:    target,
				Kind:  KindModel,
				Name:  l.InstanceName,
				Type:  l.InstanceType,
				Score: l.Confidence,
			}
		}
		g.Edges = append(g.Edges, Edge{
			Source:     recommendedID(l.RecommendedID),
			Target:     target,
			Confidence: l.Confidence,
			Evidence:   len(l.Evidence),
		})
	}

	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		g.Nodes = append(g.Nodes, *models[id])
	}
	return g
}

// RenderDOT produces a Graphviz DOT representation of the graph.
// Edge width grows with link confidence.
func RenderDOT(g Graph) string {
	var b strings.Builder
	b.WriteString("digraph tracelink {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, n := range g.Nodes {
		color := "steelblue"
		if n.Kind == KindModel {
			color = "mediumseagreen"
		}
		label := truncate(n.Name, 40)
		if n.Type != "" {
			label += "\\n" + truncate(n.Type, 40)
		}
		fmt.Fprintf(&b, "  %q [label=\"%s\", fillcolor=%q, tooltip=\"%s %.2f\"];\n",
			n.ID, escapeLabel(label), color, n.Kind, n.Score)
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %q -> %q [label=\"%.2f\", penwidth=%.1f, tooltip=\"%d evidence\"];\n",
			e.Source, e.Target, e.Confidence, 1+2*e.Confidence, e.Evidence)
	}

	b.WriteString("}\n")
	return b.String()
}

func recommendedID(id string) string { return "ri:" + id }

func modelID(id string) string { return "mi:" + id }

// escapeLabel quotes a label for a DOT string while keeping \n line breaks.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
