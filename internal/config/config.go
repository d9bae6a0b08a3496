// Package config provides unified configuration loading for tracelink.
// It supports loading from YAML files, environment variables, and the plain
// key=value override surface used by surrounding pipelines.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/tracelink/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config contains all tracelink configuration settings.
type Config struct {
	// Similarity selects and tunes the word similarity measures.
	Similarity SimilarityConfig `json:"similarity" yaml:"similarity"`

	// Agents contains per-agent switches and base probabilities.
	Agents AgentsConfig `json:"agents" yaml:"agents"`

	// Runner controls how agents inside a stage are executed.
	Runner RunnerConfig `json:"runner" yaml:"runner"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimilarityConfig configures the similarity aggregator.
type SimilarityConfig struct {
	// Measures lists the enabled measures in priority order.
	// Valid names: equality, levenshtein, jaccard, wordsim, relatedness, embedding.
	Measures []string `json:"measures" yaml:"measures"`

	Levenshtein LevenshteinConfig `json:"levenshtein" yaml:"levenshtein"`
	Jaccard     JaccardConfig     `json:"jaccard" yaml:"jaccard"`
	WordSim     WordSimConfig     `json:"wordsim" yaml:"wordsim"`
	Relatedness RelatednessConfig `json:"relatedness" yaml:"relatedness"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding"`
}

// LevenshteinConfig tunes the edit-distance measure.
type LevenshteinConfig struct {
	// Threshold is the minimum normalized similarity, 1 - distance/maxLen.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// MinLength is the rune length below which only exact equality counts.
	MinLength int `json:"min_length" yaml:"min_length"`
}

// JaccardConfig tunes the identifier token-overlap measure.
type JaccardConfig struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// WordSimConfig points at a pairwise word-similarity table such as SEWordSim.
type WordSimConfig struct {
	// Path is the SQLite file or Badger directory holding the table.
	// Empty disables the measure. Supports ${VAR} syntax.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Backend is "sqlite" (default) or "badger".
	Backend string `json:"backend" yaml:"backend"`

	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// RelatednessConfig points at the concept lexicon used by the relatedness measure.
type RelatednessConfig struct {
	// LexiconPath is a YAML concept file. Empty disables the measure. Supports ${VAR} syntax.
	LexiconPath string `json:"lexicon_path,omitempty" yaml:"lexicon_path,omitempty"`

	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// EmbeddingConfig configures the local embedding model.
// The measure needs a binary built with -tags llamacpp.
type EmbeddingConfig struct {
	// ModelPath is a GGUF embedding model. Empty disables the measure.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`

	// LibPath is the directory containing yzma shared libraries.
	// Falls back to the YZMA_LIB env var at runtime.
	LibPath string `json:"lib_path,omitempty" yaml:"lib_path,omitempty"`

	// GPULayers is the number of model layers to offload to GPU (0 = CPU only).
	GPULayers int `json:"gpu_layers,omitempty" yaml:"gpu_layers,omitempty"`

	// ContextSize is the context window in tokens. Defaults to 512.
	ContextSize int `json:"context_size,omitempty" yaml:"context_size,omitempty"`

	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// AgentsConfig configures the built-in contribution agents.
type AgentsConfig struct {
	NameType           NameTypeConfig           `json:"name_type" yaml:"name_type"`
	ModelType          ModelTypeConfig          `json:"model_type" yaml:"model_type"`
	InstanceConnection InstanceConnectionConfig `json:"instance_connection" yaml:"instance_connection"`
}

// NameTypeConfig configures the agent that pairs name mentions with type mentions.
type NameTypeConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Probability is used for a name mention paired with a type.
	Probability float64 `json:"probability" yaml:"probability"`

	// ProbabilityWithoutType is used for a name mention with no type.
	ProbabilityWithoutType float64 `json:"probability_without_type" yaml:"probability_without_type"`
}

// ModelTypeConfig configures the agent that types name mentions after similar model instances.
type ModelTypeConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// InstanceConnectionConfig configures the forward and backward link strategies.
type InstanceConnectionConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Probability is used when the recommended instance has type evidence.
	Probability float64 `json:"probability" yaml:"probability"`

	// ProbabilityWithoutType is used when it has none.
	ProbabilityWithoutType float64 `json:"probability_without_type" yaml:"probability_without_type"`
}

// RunnerConfig configures stage execution.
type RunnerConfig struct {
	// Parallel runs the agents of one stage concurrently. Their submissions are applied
	// in registration order once the stage finishes.
	Parallel bool `json:"parallel" yaml:"parallel"`
}

// LoggingConfig configures tracelink's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "warn", "debug", or "trace".
	// "debug" enables decision logging to <decision_dir>/decisions.jsonl.
	// "trace" additionally logs every similarity verdict.
	Level string `json:"level" yaml:"level"`

	// DecisionDir is where decisions.jsonl is written. Defaults to .tracelink.
	DecisionDir string `json:"decision_dir,omitempty" yaml:"decision_dir,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			Measures: append([]string(nil), constants.DefaultMeasures...),
			Levenshtein: LevenshteinConfig{
				Threshold: constants.DefaultLevenshteinThreshold,
				MinLength: constants.DefaultLevenshteinMinLength,
			},
			Jaccard: JaccardConfig{Threshold: constants.DefaultJaccardThreshold},
			WordSim: WordSimConfig{
				Backend:   constants.WordSimBackendSQLite,
				Threshold: constants.DefaultWordSimThreshold,
			},
			Relatedness: RelatednessConfig{Threshold: constants.DefaultRelatednessThreshold},
			Embedding: EmbeddingConfig{
				ContextSize: constants.DefaultEmbeddingContextSize,
				Threshold:   constants.DefaultEmbeddingThreshold,
			},
		},
		Agents: AgentsConfig{
			NameType: NameTypeConfig{
				Enabled:                true,
				Probability:            constants.DefaultNameTypeProbability,
				ProbabilityWithoutType: constants.DefaultNameOnlyProbability,
			},
			ModelType: ModelTypeConfig{
				Enabled:     true,
				Probability: constants.DefaultModelTypeProbability,
			},
			InstanceConnection: InstanceConnectionConfig{
				Enabled:                true,
				Probability:            constants.DefaultConnectionProbability,
				ProbabilityWithoutType: constants.DefaultConnectionProbabilityWithoutType,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			DecisionDir: ".tracelink",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.tracelink/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".tracelink", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Keys missing from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Similarity.WordSim.Path = expandEnvVars(config.Similarity.WordSim.Path)
	config.Similarity.Relatedness.LexiconPath = expandEnvVars(config.Similarity.Relatedness.LexiconPath)
	config.Similarity.Embedding.ModelPath = expandEnvVars(config.Similarity.Embedding.ModelPath)
	config.Similarity.Embedding.LibPath = expandEnvVars(config.Similarity.Embedding.LibPath)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, m := range c.Similarity.Measures {
		if !constants.KnownMeasures[m] {
			return fmt.Errorf("invalid measure: %s (valid: equality, levenshtein, jaccard, wordsim, relatedness, embedding)", m)
		}
		if seen[m] {
			return fmt.Errorf("measure %s listed more than once", m)
		}
		seen[m] = true
	}

	thresholds := []struct {
		name  string
		value float64
	}{
		{"levenshtein.threshold", c.Similarity.Levenshtein.Threshold},
		{"jaccard.threshold", c.Similarity.Jaccard.Threshold},
		{"wordsim.threshold", c.Similarity.WordSim.Threshold},
		{"relatedness.threshold", c.Similarity.Relatedness.Threshold},
		{"embedding.threshold", c.Similarity.Embedding.Threshold},
		{"name_type.probability", c.Agents.NameType.Probability},
		{"name_type.probability_without_type", c.Agents.NameType.ProbabilityWithoutType},
		{"model_type.probability", c.Agents.ModelType.Probability},
		{"instance_connection.probability", c.Agents.InstanceConnection.Probability},
		{"instance_connection.probability_without_type", c.Agents.InstanceConnection.ProbabilityWithoutType},
	}
	for _, th := range thresholds {
		if th.value < 0 || th.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %f", th.name, th.value)
		}
	}

	if c.Similarity.Levenshtein.MinLength < 0 {
		return fmt.Errorf("levenshtein.min_length must be non-negative, got %d", c.Similarity.Levenshtein.MinLength)
	}

	if c.Similarity.Embedding.ContextSize < 0 {
		return fmt.Errorf("embedding.context_size must be non-negative, got %d", c.Similarity.Embedding.ContextSize)
	}

	validBackends := map[string]bool{"": true, constants.WordSimBackendSQLite: true, constants.WordSimBackendBadger: true}
	if !validBackends[c.Similarity.WordSim.Backend] {
		return fmt.Errorf("invalid wordsim backend: %s (valid: sqlite, badger)", c.Similarity.WordSim.Backend)
	}

	validLevels := map[string]bool{"info": true, "warn": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, warn, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TRACELINK_MEASURES"); v != "" {
		config.Similarity.Measures = splitList(v)
	}

	if v := os.Getenv("TRACELINK_WORDSIM_PATH"); v != "" {
		config.Similarity.WordSim.Path = v
	}
	if v := os.Getenv("TRACELINK_WORDSIM_BACKEND"); v != "" {
		config.Similarity.WordSim.Backend = v
	}

	if v := os.Getenv("TRACELINK_LEXICON_PATH"); v != "" {
		config.Similarity.Relatedness.LexiconPath = v
	}

	if v := os.Getenv("TRACELINK_EMBEDDING_MODEL_PATH"); v != "" {
		config.Similarity.Embedding.ModelPath = v
	}
	if v := os.Getenv("TRACELINK_EMBEDDING_GPU_LAYERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Similarity.Embedding.GPULayers = n
		}
	}

	if v := os.Getenv("TRACELINK_PARALLEL"); v != "" {
		config.Runner.Parallel = v == "true" || v == "1"
	}

	if v := os.Getenv("TRACELINK_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
