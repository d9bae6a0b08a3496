package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/tracelink/internal/models"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by Snapshot for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunInfo summarizes one stored run.
type RunInfo struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Document        string    `json:"document,omitempty"`
	Recommendations int       `json:"recommendations"`
	Links           int       `json:"links"`
}

// ResultDB keeps the history of resolution runs in SQLite.
type ResultDB struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenResultDB opens or creates the database at path.
func OpenResultDB(ctx context.Context, path string) (*ResultDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &ResultDB{db: db}, nil
}

// Save stores a snapshot as a new run. The snapshot must have a run id.
func (r *ResultDB) Save(ctx context.Context, snap *Snapshot) error {
	if snap.RunID == "" {
		return errors.New("snapshot has no run id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, document) VALUES (?, ?, ?)`,
		snap.RunID, snap.CreatedAt.UTC().Format(time.RFC3339Nano), nullString(snap.Document)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, rec := range snap.Recommendations {
		names, _ := json.Marshal(rec.NameMappings)
		types, _ := json.Marshal(rec.TypeMappings)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO recommended_instances
				(run_id, id, seq, name, type, claimant, probability, name_mappings, type_mappings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, snap.RunID, rec.ID, i, rec.Name, rec.Type, string(rec.Claimant), rec.Probability,
			string(names), string(types)); err != nil {
			return fmt.Errorf("failed to insert recommended instance %s: %w", rec.ID, err)
		}
	}

	for i, l := range snap.Links {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO links
				(run_id, seq, recommended_id, instance_id, instance_name, instance_type, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, snap.RunID, i, l.RecommendedID, l.InstanceID, l.InstanceName, l.InstanceType, l.Confidence); err != nil {
			return fmt.Errorf("failed to insert link %s->%s: %w", l.RecommendedID, l.InstanceID, err)
		}
		for j, e := range l.Evidence {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO link_evidence (run_id, recommended_id, instance_id, seq, claimant, probability)
				VALUES (?, ?, ?, ?, ?, ?)
			`, snap.RunID, l.RecommendedID, l.InstanceID, j, string(e.Claimant), e.Probability); err != nil {
				return fmt.Errorf("failed to insert link evidence: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Runs lists stored runs, newest first.
func (r *ResultDB) Runs(ctx context.Context) ([]RunInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, r.document,
			(SELECT COUNT(*) FROM recommended_instances ri WHERE ri.run_id = r.id),
			(SELECT COUNT(*) FROM links l WHERE l.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info      RunInfo
			createdAt string
			document  sql.NullString
		)
		if err := rows.Scan(&info.ID, &createdAt, &document, &info.Recommendations, &info.Links); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		info.Document = document.String
		out = append(out, info)
	}
	return out, rows.Err()
}

// Snapshot loads a stored run.
func (r *ResultDB) Snapshot(ctx context.Context, runID string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &Snapshot{RunID: runID}
	var (
		createdAt string
		document  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT created_at, document FROM runs WHERE id = ?`, runID).
		Scan(&createdAt, &document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	snap.Document = document.String

	if snap.Recommendations, err = r.recommendations(ctx, runID); err != nil {
		return nil, err
	}
	if snap.Links, err = r.links(ctx, runID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *ResultDB) recommendations(ctx context.Context, runID string) ([]models.RecommendedInstanceSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, claimant, probability, name_mappings, type_mappings
		FROM recommended_instances WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommended instances: %w", err)
	}
	defer rows.Close()

	var out []models.RecommendedInstanceSummary
	for rows.Next() {
		var (
			rec          models.RecommendedInstanceSummary
			claimant     string
			names, types sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Type, &claimant, &rec.Probability, &names, &types); err != nil {
			return nil, fmt.Errorf("failed to scan recommended instance: %w", err)
		}
		rec.Claimant = models.Claimant(claimant)
		rec.NameMappings = parseStringArray(names)
		rec.TypeMappings = parseStringArray(types)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ResultDB) links(ctx context.Context, runID string) ([]LinkRecord, error) {
	// Close rows before the evidence queries; the pool has one connection.
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.recommended_id, ri.name, ri.type, l.instance_id, l.instance_name, l.instance_type, l.confidence
		FROM links l
		JOIN recommended_instances ri ON ri.run_id = l.run_id AND ri.id = l.recommended_id
		WHERE l.run_id = ? ORDER BY l.seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	var out []LinkRecord
	for rows.Next() {
		var l LinkRecord
		if err := rows.Scan(&l.RecommendedID, &l.Name, &l.Type, &l.InstanceID, &l.InstanceName, &l.InstanceType, &l.Confidence); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		out = append(out, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}

	for i := range out {
		evidence, err := r.evidence(ctx, runID, out[i].RecommendedID, out[i].InstanceID)
		if err != nil {
			return nil, err
		}
		out[i].Evidence = evidence
	}
	return out, nil
}

func (r *ResultDB) evidence(ctx context.Context, runID, recommendedID, instanceID string) ([]models.Evidence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT claimant, probability FROM link_evidence
		WHERE run_id = ? AND recommended_id = ? AND instance_id = ? ORDER BY seq
	`, runID, recommendedID, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query link evidence: %w", err)
	}
	defer rows.Close()

	var out []models.Evidence
	for rows.Next() {
		var (
			e        models.Evidence
			claimant string
		)
		if err := rows.Scan(&claimant, &e.Probability); err != nil {
			return nil, fmt.Errorf("failed to scan link evidence: %w", err)
		}
		e.Claimant = models.Claimant(claimant)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *ResultDB) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseStringArray(s sql.NullString) []string {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}
