package wordsim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite"
)

const wsimSchema = `
CREATE TABLE IF NOT EXISTS wsim (
	term_1 TEXT NOT NULL,
	term_2 TEXT NOT NULL,
	similarity REAL NOT NULL,
	PRIMARY KEY (term_1, term_2)
);
`

// SQLiteTable reads a SEWordSim database file with a wsim(term_1, term_2, similarity) table.
type SQLiteTable struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// OpenSQLite opens an existing SEWordSim file read-only.
// It fails when the file is missing or has no wsim table.
func OpenSQLite(ctx context.Context, path string) (*SQLiteTable, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat word table: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open word table: %w", err)
	}
	db.SetMaxOpenConns(1)

	var n int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'wsim'`).Scan(&n)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read word table schema: %w", err)
	}
	if n == 0 {
		db.Close()
		return nil, fmt.Errorf("word table %s has no wsim table", path)
	}

	return &SQLiteTable{db: db, path: path}, nil
}

// WriteSQLite creates (or extends) a SEWordSim-style database at path.
// Existing pairs are replaced.
func WriteSQLite(ctx context.Context, path string, pairs []Pair) error {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("failed to open word table: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, wsimSchema); err != nil {
		return fmt.Errorf("failed to create wsim table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO wsim (term_1, term_2, similarity) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.ExecContext(ctx, p.First, p.Second, p.Similarity); err != nil {
			return fmt.Errorf("failed to insert pair %s/%s: %w", p.First, p.Second, err)
		}
	}

	return tx.Commit()
}

// Path returns the file the table was opened from.
func (t *SQLiteTable) Path() string { return t.path }

// Similarity implements Table.
func (t *SQLiteTable) Similarity(ctx context.Context, first, second string) (float64, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return 0, false, ErrClosed
	}

	var score float64
	err := t.db.QueryRowContext(ctx,
		`SELECT similarity FROM wsim WHERE term_1 = ? AND term_2 = ?`, first, second).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query similarity: %w", err)
	}
	return score, true, nil
}

// Contains implements Table.
func (t *SQLiteTable) Contains(ctx context.Context, stem string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false, ErrClosed
	}

	var one int
	err := t.db.QueryRowContext(ctx, `SELECT 1 FROM wsim WHERE term_1 = ? LIMIT 1`, stem).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query word: %w", err)
	}
	return true, nil
}

// Words implements Table.
func (t *SQLiteTable) Words(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return nil, ErrClosed
	}

	rows, err := t.db.QueryContext(ctx, `SELECT DISTINCT term_1 FROM wsim ORDER BY term_1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// Pairs implements PairSource.
func (t *SQLiteTable) Pairs(ctx context.Context, fn func(Pair) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}

	rows, err := t.db.QueryContext(ctx, `SELECT term_1, term_2, similarity FROM wsim ORDER BY term_1, term_2`)
	if err != nil {
		return fmt.Errorf("failed to query pairs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.First, &p.Second, &p.Similarity); err != nil {
			return fmt.Errorf("failed to scan pair: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close implements Table.
func (t *SQLiteTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.db.Close()
}
