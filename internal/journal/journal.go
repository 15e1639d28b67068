// Package journal is the local fallback for entries that could not be
// persisted: confirmed food is appended to a sqlite file and replayed
// to the store once it is reachable again.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/platewise/platewise/pkg/foodlog"
)

// Gateway persists replayed entries. Implemented by foodlog.Store.
type Gateway interface {
	SaveFood(ctx context.Context, e *foodlog.ConfirmedLogEntry) (string, error)
}

// Journal is an append-only sqlite log of unpersisted entries.
// Safe for concurrent use; database/sql serializes access.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pending_entries (
	id          TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	replayed_at INTEGER
);`

// Open creates or opens the journal file and ensures the schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database. Implements io.Closer.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records an entry that failed to persist. Appending the same
// id twice is a no-op.
func (j *Journal) Append(e *foodlog.ConfirmedLogEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = j.db.Exec(
		`INSERT OR IGNORE INTO pending_entries (id, payload, created_at) VALUES (?, ?, ?)`,
		e.ID, string(payload), e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append to journal: %w", err)
	}
	return nil
}

// Pending returns the entries not yet replayed, oldest first.
func (j *Journal) Pending() ([]*foodlog.ConfirmedLogEntry, error) {
	rows, err := j.db.Query(
		`SELECT payload FROM pending_entries WHERE replayed_at IS NULL ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	defer rows.Close()

	var entries []*foodlog.ConfirmedLogEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		var entry foodlog.ConfirmedLogEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Replay pushes pending entries to the gateway, oldest first, and
// marks each one replayed on success. The first failure stops the run
// so ordering is preserved; already-replayed entries stay marked.
func (j *Journal) Replay(ctx context.Context, gateway Gateway) (int, error) {
	pending, err := j.Pending()
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, entry := range pending {
		if _, err := gateway.SaveFood(ctx, entry); err != nil {
			return replayed, fmt.Errorf("replay stopped at %q: %w", entry.Name, err)
		}
		if _, err := j.db.Exec(
			`UPDATE pending_entries SET replayed_at = ? WHERE id = ?`,
			time.Now().UnixMilli(), entry.ID,
		); err != nil {
			return replayed, fmt.Errorf("failed to mark %q replayed: %w", entry.Name, err)
		}
		replayed++
	}
	return replayed, nil
}
