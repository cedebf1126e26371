/*
Package sqlite provides the SQLite-backed persistence gateway.

PURPOSE:
  Implements ledger.Gateway and ledger.CounterStore on SQLite. Documents
  are stored as JSON bodies keyed by (collection, id) with a version
  column driving optimistic concurrency; sequence counters live in their
  own table.

KEY TABLES:
  documents: one row per document; body is the canonical JSON form
  counters:  monotonic per-scope counters for document numbering

OPTIMISTIC CONCURRENCY:
  UpdateIfUnchanged compiles to a single UPDATE guarded by
  "AND version = ?". Zero affected rows means either the document vanished
  or a concurrent writer got there first; the two cases are told apart
  with a follow-up existence probe.

COUNTERS:
  IncrementAndGet is one upsert with RETURNING, serialized by SQLite's
  single-writer model (and the store mutex), so two concurrent
  allocations can never observe the same value. A brand-new counter for
  the invoice scope is seeded from the existing document count exactly
  once, during migration, while the store is still the sole writer.

WAL MODE:
  The database is opened with WAL for better concurrency: readers don't
  block, a single writer at a time, better crash recovery.

USAGE:
  gw, err := sqlite.New("./data/ledger.db")
  if err != nil { ... }
  defer gw.Close()
  engine := ledger.NewEngine(gw, gw, settings, log)

SEE ALSO:
  - ledger/gateway.go:      interface contracts
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/finbooks/ledger-engine/ledger"
)

// Store implements ledger.Gateway and ledger.CounterStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		version    INTEGER NOT NULL,
		body       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection
		ON documents(collection);

	CREATE TABLE IF NOT EXISTS counters (
		scope TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	-- One-time seed for the invoice numbering scope: count-based only at
	-- migration time, while this process is the sole writer. Allocation
	-- itself never counts documents.
	INSERT OR IGNORE INTO counters(scope, value)
		SELECT 'invoice', COUNT(*) FROM documents WHERE collection = 'invoices';
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// GATEWAY
// =============================================================================

func (s *Store) InsertAtomic(ctx context.Context, doc ledger.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, version, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(doc.DocumentCollection()), doc.DocumentID(), doc.DocumentVersion(), string(body), now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return &ledger.ConflictError{Reason: "duplicate_id", Detail: doc.DocumentID()}
		}
		return mapErr(err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, col ledger.Collection, id string) (ledger.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		string(col), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return decode(col, body)
}

func (s *Store) UpdateIfUnchanged(ctx context.Context, doc ledger.Document, expectedVersion int) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET version = ?, body = ?, updated_at = ?
		WHERE collection = ? AND id = ? AND version = ?`,
		doc.DocumentVersion(), string(body), now,
		string(doc.DocumentCollection()), doc.DocumentID(), expectedVersion)
	if err != nil {
		return mapErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing updated: absent document or a concurrent writer won.
	var stored int
	err = s.db.QueryRowContext(ctx,
		`SELECT version FROM documents WHERE collection = ? AND id = ?`,
		string(doc.DocumentCollection()), doc.DocumentID()).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	if err != nil {
		return mapErr(err)
	}
	return &ledger.ConflictError{
		Reason: "version_mismatch",
		Detail: fmt.Sprintf("expected version %d, stored version %d", expectedVersion, stored),
	}
}

func (s *Store) DeleteByID(ctx context.Context, col ledger.Collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		string(col), id)
	if err != nil {
		return mapErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapErr(err)
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, col ledger.Collection) ([]ledger.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? ORDER BY created_at, id`,
		string(col))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []ledger.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, mapErr(err)
		}
		doc, err := decode(col, body)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// CountMatching scans the collection and applies the predicate in Go.
// Collections here are back-office sized; a scan is acceptable and keeps
// predicates expressible without a query language.
func (s *Store) CountMatching(ctx context.Context, col ledger.Collection, match func(ledger.Document) bool) (int64, error) {
	docs, err := s.List(ctx, col)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range docs {
		if match(doc) {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// COUNTER STORE
// =============================================================================

// IncrementAndGet advances the scoped counter atomically. The store mutex
// plus SQLite's single-writer model serialize concurrent allocations.
func (s *Store) IncrementAndGet(ctx context.Context, scope string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (scope, value) VALUES (?, 1)
		ON CONFLICT(scope) DO UPDATE SET value = value + 1
		RETURNING value`, scope).Scan(&value)
	if err != nil {
		return 0, mapErr(err)
	}
	return value, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(col ledger.Collection, body string) (ledger.Document, error) {
	doc := ledger.NewDocumentFor(col)
	if doc == nil {
		return nil, fmt.Errorf("unknown collection %q", col)
	}
	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", col, err)
	}
	return doc, nil
}

// mapErr surfaces an expired deadline as ErrGatewayTimeout.
func mapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ledger.ErrGatewayTimeout, err)
	}
	return err
}
