// Package state persists build-node hashes between runs so one-shot builds
// stay incremental across process restarts.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is the persisted hash pair for one build node.
type Record struct {
	InputHash  string
	OutputHash string
}

// Store is a SQLite-backed node hash store.
// Use ":memory:" for an ephemeral store, or a file path for persistence.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and if needed initializes) the store at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		input_hash TEXT NOT NULL,
		output_hash TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the stored record for a node id.
func (s *Store) Get(ctx context.Context, id string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec Record
	err := s.db.QueryRowContext(ctx,
		"SELECT input_hash, output_hash FROM nodes WHERE id = ?", id,
	).Scan(&rec.InputHash, &rec.OutputHash)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query node: %w", err)
	}
	return rec, true, nil
}

// Put stores or replaces the record for a node id.
func (s *Store) Put(ctx context.Context, id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nodes (id, input_hash, output_hash, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET input_hash = excluded.input_hash,
		 output_hash = excluded.output_hash, updated_at = excluded.updated_at`,
		id, rec.InputHash, rec.OutputHash, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert node: %w", err)
	}
	return nil
}

// All returns every stored record keyed by node id.
func (s *Store) All(ctx context.Context) (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, input_hash, output_hash FROM nodes")
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Record)
	for rows.Next() {
		var id string
		var rec Record
		if err := rows.Scan(&id, &rec.InputHash, &rec.OutputHash); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out[id] = rec
	}
	return out, rows.Err()
}

// Prune removes every node id not in keep, returning how many were removed.
// Called after a successful build so deleted content does not linger.
func (s *Store) Prune(ctx context.Context, keep map[string]bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM nodes")
	if err != nil {
		return 0, fmt.Errorf("query nodes: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan node: %w", err)
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("delete node: %w", err)
		}
	}
	return len(stale), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
