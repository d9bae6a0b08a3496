// Package constants provides named constants used throughout the tracelink codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Stage names, in execution order.
const (
	// StageRecommendation is the stage whose agents propose recommended instances.
	StageRecommendation = "recommendation"

	// StageConnection is the stage whose agents link recommended instances to model instances.
	StageConnection = "connection"
)

// Built-in agent names. These double as the claimant recorded on proposals.
const (
	AgentNameType           = "name-type"
	AgentModelType          = "model-type"
	AgentInstanceConnection = "instance-connection"
)

// Instance connection probabilities
const (
	// DefaultConnectionProbability is assigned to links whose recommended instance
	// carries type evidence from the text.
	DefaultConnectionProbability = 1.0

	// DefaultConnectionProbabilityWithoutType is assigned to links whose recommended
	// instance has no type evidence.
	DefaultConnectionProbabilityWithoutType = 0.8
)

// Recommendation agent probabilities
const (
	// DefaultNameTypeProbability is the probability of a name mention paired with a type mention.
	DefaultNameTypeProbability = 0.8

	// DefaultNameOnlyProbability is the probability of a name mention without a type.
	DefaultNameOnlyProbability = 0.6

	// DefaultModelTypeProbability is the probability of a name mention typed after a
	// model instance it resembles.
	DefaultModelTypeProbability = 0.6
)

// Similarity measure names, used in configuration and logs.
const (
	MeasureEquality    = "equality"
	MeasureLevenshtein = "levenshtein"
	MeasureJaccard     = "jaccard"
	MeasureWordSim     = "wordsim"
	MeasureRelatedness = "relatedness"
	MeasureEmbedding   = "embedding"
)

// Similarity thresholds
const (
	// DefaultLevenshteinThreshold is the minimum normalized edit similarity (1 - d/maxLen).
	DefaultLevenshteinThreshold = 0.85

	// DefaultLevenshteinMinLength is the rune length below which only exact equality counts.
	DefaultLevenshteinMinLength = 4

	// DefaultJaccardThreshold is the minimum identifier token overlap.
	DefaultJaccardThreshold = 0.5

	// DefaultWordSimThreshold is the minimum co-occurrence similarity from the word table.
	DefaultWordSimThreshold = 0.5

	// DefaultRelatednessThreshold is the minimum lexical relatedness between concepts.
	DefaultRelatednessThreshold = 0.5

	// DefaultEmbeddingThreshold is the minimum cosine similarity between embeddings.
	DefaultEmbeddingThreshold = 0.8
)

// ScoreEpsilon is the tolerance used when comparing similarity scores for equality.
const ScoreEpsilon = 1e-8

// Word table storage backends
const (
	WordSimBackendSQLite = "sqlite"
	WordSimBackendBadger = "badger"
)

// Embedding model defaults
const (
	// DefaultEmbeddingContextSize is the llama.cpp context size used for embedding calls.
	DefaultEmbeddingContextSize = 512
)

// DefaultMeasures is the measure priority order used when none is configured.
// Measures that need an external resource are skipped until that resource is configured.
var DefaultMeasures = []string{
	MeasureEquality,
	MeasureLevenshtein,
	MeasureWordSim,
	MeasureRelatedness,
	MeasureEmbedding,
}

// KnownMeasures is the set of measure names accepted in configuration.
var KnownMeasures = map[string]bool{
	MeasureEquality:    true,
	MeasureLevenshtein: true,
	MeasureJaccard:     true,
	MeasureWordSim:     true,
	MeasureRelatedness: true,
	MeasureEmbedding:   true,
}
