package agents

import (
	"fmt"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/models"
)

// Stage is a named, ordered group of agents.
type Stage struct {
	Name   string
	Agents []Agent
}

// Registry maps stages to agents. Stages run in the order they were declared.
type Registry struct {
	stages []Stage
}

// NewRegistry declares the stages in execution order.
func NewRegistry(stages ...string) *Registry {
	r := &Registry{}
	for _, name := range stages {
		r.stages = append(r.stages, Stage{Name: name})
	}
	return r
}

// Register appends an agent to a stage. Agent names must be unique across stages.
func (r *Registry) Register(stage string, a Agent) error {
	for _, s := range r.stages {
		for _, existing := range s.Agents {
			if existing.Name() == a.Name() {
				return fmt.Errorf("agent %q already registered in stage %q", a.Name(), s.Name)
			}
		}
	}
	for i := range r.stages {
		if r.stages[i].Name == stage {
			r.stages[i].Agents = append(r.stages[i].Agents, a)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// Stages returns a copy of the stages.
func (r *Registry) Stages() []Stage {
	out := make([]Stage, len(r.stages))
	for i, s := range r.stages {
		out[i] = Stage{Name: s.Name, Agents: append([]Agent(nil), s.Agents...)}
	}
	return out
}

// Agents returns the registered agent names in execution order.
func (r *Registry) Agents() []models.Claimant {
	var out []models.Claimant
	for _, s := range r.stages {
		for _, a := range s.Agents {
			out = append(out, a.Name())
		}
	}
	return out
}

// FromConfig builds the registry of the built-in agents enabled in cfg.
func FromConfig(cfg config.AgentsConfig) *Registry {
	r := NewRegistry(constants.StageRecommendation, constants.StageConnection)

	// Names are unique by construction, so Register cannot fail here.
	if cfg.NameType.Enabled {
		_ = r.Register(constants.StageRecommendation, NewNameTypeAgent(cfg.NameType))
	}
	if cfg.ModelType.Enabled {
		_ = r.Register(constants.StageRecommendation, NewModelTypeAgent(cfg.ModelType))
	}
	if cfg.InstanceConnection.Enabled {
		_ = r.Register(constants.StageConnection, NewInstanceConnectionAgent(cfg.InstanceConnection))
	}
	return r
}
