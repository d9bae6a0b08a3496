package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// setter applies one override value to a config.
type setter func(c *Config, value string) error

// overrideKeys maps every accepted override key to its setter. Agent settings use the
// "AgentName::attribute" form pipelines already emit; the rest mirror the YAML paths.
var overrideKeys = map[string]setter{
	"similarity.measures": func(c *Config, v string) error {
		c.Similarity.Measures = splitList(v)
		return nil
	},
	"similarity.levenshtein.threshold":    floatSetter(func(c *Config) *float64 { return &c.Similarity.Levenshtein.Threshold }),
	"similarity.levenshtein.min_length":   intSetter(func(c *Config) *int { return &c.Similarity.Levenshtein.MinLength }),
	"similarity.jaccard.threshold":        floatSetter(func(c *Config) *float64 { return &c.Similarity.Jaccard.Threshold }),
	"similarity.wordsim.path":             stringSetter(func(c *Config) *string { return &c.Similarity.WordSim.Path }),
	"similarity.wordsim.backend":          stringSetter(func(c *Config) *string { return &c.Similarity.WordSim.Backend }),
	"similarity.wordsim.threshold":        floatSetter(func(c *Config) *float64 { return &c.Similarity.WordSim.Threshold }),
	"similarity.relatedness.lexicon_path": stringSetter(func(c *Config) *string { return &c.Similarity.Relatedness.LexiconPath }),
	"similarity.relatedness.threshold":    floatSetter(func(c *Config) *float64 { return &c.Similarity.Relatedness.Threshold }),
	"similarity.embedding.model_path":     stringSetter(func(c *Config) *string { return &c.Similarity.Embedding.ModelPath }),
	"similarity.embedding.lib_path":       stringSetter(func(c *Config) *string { return &c.Similarity.Embedding.LibPath }),
	"similarity.embedding.threshold":      floatSetter(func(c *Config) *float64 { return &c.Similarity.Embedding.Threshold }),

	"NameTypeAgent::enabled":                boolSetter(func(c *Config) *bool { return &c.Agents.NameType.Enabled }),
	"NameTypeAgent::probability":            floatSetter(func(c *Config) *float64 { return &c.Agents.NameType.Probability }),
	"NameTypeAgent::probabilityWithoutType": floatSetter(func(c *Config) *float64 { return &c.Agents.NameType.ProbabilityWithoutType }),
	"ModelTypeAgent::enabled":               boolSetter(func(c *Config) *bool { return &c.Agents.ModelType.Enabled }),
	"ModelTypeAgent::probability":           floatSetter(func(c *Config) *float64 { return &c.Agents.ModelType.Probability }),
	"InstanceConnectionAgent::enabled":      boolSetter(func(c *Config) *bool { return &c.Agents.InstanceConnection.Enabled }),
	"InstanceConnectionAgent::probability":  floatSetter(func(c *Config) *float64 { return &c.Agents.InstanceConnection.Probability }),
	"InstanceConnectionAgent::probabilityWithoutType": floatSetter(func(c *Config) *float64 {
		return &c.Agents.InstanceConnection.ProbabilityWithoutType
	}),

	"runner.parallel": boolSetter(func(c *Config) *bool { return &c.Runner.Parallel }),
	"logging.level":   stringSetter(func(c *Config) *string { return &c.Logging.Level }),
}

// OverrideKeys returns the accepted override keys in sorted order.
func OverrideKeys() []string {
	keys := make([]string, 0, len(overrideKeys))
	for k := range overrideKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyOverrides applies plain key/value overrides, e.g.
// "InstanceConnectionAgent::probability" -> "1.0". Every key is attempted;
// unknown keys and malformed values are reported together.
func (c *Config) ApplyOverrides(overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		set, ok := overrideKeys[k]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown override key %q", k))
			continue
		}
		if err := set(c, overrides[k]); err != nil {
			errs = append(errs, fmt.Errorf("override %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

// LoadKeyValueFile reads KEY=VALUE lines. Blank lines and lines starting with # are
// skipped; the first '=' splits key from value.
func LoadKeyValueFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening overrides file: %w", err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE, got %q", lineNum, line)
		}
		out[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading overrides file: %w", err)
	}
	return out, nil
}

func floatSetter(field func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", v)
		}
		*field(c) = f
		return nil
	}
}

func intSetter(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*field(c) = n
		return nil
	}
}

func boolSetter(field func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*field(c) = b
		return nil
	}
}

func stringSetter(field func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = strings.TrimSpace(v)
		return nil
	}
}
