package similarity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/embedding"
	"github.com/nvandessel/tracelink/internal/lexicon"
	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/wordsim"
)

// Build constructs the measures named in cfg.Measures, in that order, opening their
// backing resources once. A measure whose resource is unconfigured or fails to open is
// left out and logged; the aggregator is usable with whatever remains.
// Close the aggregator to release the opened resources.
func Build(ctx context.Context, cfg config.SimilarityConfig, logger *slog.Logger) *Aggregator {
	logger = logging.OrDiscard(logger)

	var measures []Measure
	var closers []closerFunc
	skipped := make(map[string]string)

	skip := func(name, reason string, err error) {
		skipped[name] = reason
		if err != nil {
			logger.Error("similarity measure disabled", "measure", name, "reason", reason, "error", err)
			return
		}
		logger.Debug("similarity measure disabled", "measure", name, "reason", reason)
	}

	for _, name := range cfg.Measures {
		switch name {
		case constants.MeasureEquality:
			measures = append(measures, Equality{})

		case constants.MeasureLevenshtein:
			measures = append(measures, Levenshtein{
				Threshold: cfg.Levenshtein.Threshold,
				MinLength: cfg.Levenshtein.MinLength,
			})

		case constants.MeasureJaccard:
			measures = append(measures, TokenOverlap{Threshold: cfg.Jaccard.Threshold})

		case constants.MeasureWordSim:
			if cfg.WordSim.Path == "" {
				skip(name, "no word table configured", nil)
				continue
			}
			table, err := openWordTable(ctx, cfg.WordSim, logger)
			if err != nil {
				skip(name, "word table failed to open", err)
				continue
			}
			closers = append(closers, table.Close)
			measures = append(measures, NewWordSim(table, cfg.WordSim.Threshold))

		case constants.MeasureRelatedness:
			if cfg.Relatedness.LexiconPath == "" {
				skip(name, "no lexicon configured", nil)
				continue
			}
			lex, err := lexicon.Load(cfg.Relatedness.LexiconPath)
			if err != nil {
				skip(name, "lexicon failed to load", err)
				continue
			}
			measures = append(measures, NewRelatedness(lex, cfg.Relatedness.Threshold))

		case constants.MeasureEmbedding:
			if cfg.Embedding.ModelPath == "" {
				skip(name, "no embedding model configured", nil)
				continue
			}
			e := embedding.NewLocalEmbedder(embedding.LocalConfig{
				LibPath:     cfg.Embedding.LibPath,
				ModelPath:   cfg.Embedding.ModelPath,
				GPULayers:   cfg.Embedding.GPULayers,
				ContextSize: cfg.Embedding.ContextSize,
			})
			if !e.Available() {
				skip(name, "embedding model or library not available", fmt.Errorf("model %s", cfg.Embedding.ModelPath))
				continue
			}
			closers = append(closers, e.Close)
			measures = append(measures, NewEmbedding(e, cfg.Embedding.Threshold))

		default:
			skip(name, "unknown measure", fmt.Errorf("unknown measure %q", name))
		}
	}

	agg := NewAggregator(logger, measures...)
	agg.skipped = skipped
	for _, c := range closers {
		agg.closers = append(agg.closers, c)
	}
	logger.Debug("similarity measures ready", "measures", agg.Measures(), "skipped", len(skipped))
	return agg
}

// closerFunc adapts a Close method value to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openWordTable(ctx context.Context, cfg config.WordSimConfig, logger *slog.Logger) (wordsim.Table, error) {
	switch cfg.Backend {
	case constants.WordSimBackendBadger:
		return wordsim.OpenBadger(wordsim.BadgerOptions{Dir: cfg.Path, Logger: logger})
	case "", constants.WordSimBackendSQLite:
		return wordsim.OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown word table backend %q", cfg.Backend)
	}
}
