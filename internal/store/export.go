package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/tracelink/internal/models"
)

// File names used by ExportJSONL and ImportJSONL.
const (
	RecommendationsFile = "recommended.jsonl"
	LinksFile           = "links.jsonl"
)

// ExportJSONL writes one JSON object per line: recommended instances to
// recommended.jsonl and links to links.jsonl inside dir. Existing files are replaced.
func ExportJSONL(ctx context.Context, dir string, snap *Snapshot) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	if err := writeJSONL(ctx, filepath.Join(dir, RecommendationsFile), snap.Recommendations); err != nil {
		return fmt.Errorf("failed to export recommendations: %w", err)
	}
	if err := writeJSONL(ctx, filepath.Join(dir, LinksFile), snap.Links); err != nil {
		return fmt.Errorf("failed to export links: %w", err)
	}
	return nil
}

func writeJSONL[T any](ctx context.Context, path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	w := bufio.NewWriter(f)
	encoder := json.NewEncoder(w)
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			f.Close()
			return err
		}
		if err := encoder.Encode(r); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush file: %w", err)
	}
	return f.Close()
}

// ImportJSONL reads a directory written by ExportJSONL and validates it.
// Missing files read as empty.
func ImportJSONL(ctx context.Context, dir string) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error

	if snap.Recommendations, err = readJSONL[models.RecommendedInstanceSummary](ctx, filepath.Join(dir, RecommendationsFile)); err != nil {
		return nil, fmt.Errorf("failed to import recommendations: %w", err)
	}
	if snap.Links, err = readJSONL[LinkRecord](ctx, filepath.Join(dir, LinksFile)); err != nil {
		return nil, fmt.Errorf("failed to import links: %w", err)
	}

	if issues := Validate(snap); len(issues) > 0 {
		return snap, fmt.Errorf("%w: %d issues, first: %s", ErrInconsistent, len(issues), issues[0])
	}
	return snap, nil
}

func readJSONL[T any](ctx context.Context, path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No file is fine
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	var out []T
	lineNum := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		out = append(out, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return out, nil
}
