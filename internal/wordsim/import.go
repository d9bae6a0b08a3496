package wordsim

import (
	"context"
	"fmt"
)

// importBatchSize bounds the pairs held in memory during Import.
const importBatchSize = 1000

// Import copies every pair from src into dst and returns the number of pairs copied.
func Import(ctx context.Context, src PairSource, dst *BadgerTable) (int, error) {
	batch := make([]Pair, 0, importBatchSize)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := dst.Write(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := src.Pairs(ctx, func(p Pair) error {
		batch = append(batch, p)
		if len(batch) == importBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("failed to import word table: %w", err)
	}
	if err := flush(); err != nil {
		return total, fmt.Errorf("failed to import word table: %w", err)
	}
	return total, nil
}
