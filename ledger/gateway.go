/*
gateway.go - Persistence gateway interface

PURPOSE:
  Defines the contract between the engine and the document store. The
  engine treats the store as an external collaborator with exactly these
  primitives: create-if-absent, read-by-id, conditional update, delete,
  count-matching, and an atomic per-scope counter.

OPTIMISTIC CONCURRENCY:
  UpdateIfUnchanged persists a document only if the stored version still
  equals expectedVersion. A mismatch fails with ConflictError; last write
  wins is explicitly NOT acceptable for financial documents.

SUSPENSION POINTS:
  Gateway calls are the ONLY points where a request may block. Every
  implementation must honor context deadlines and surface
  ErrGatewayTimeout when one expires, so that no caller hangs and no
  partial derivation state is ever persisted.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and development
  - store/sqlite/sqlite.go: production SQLite (WAL)
*/
package ledger

import "context"

// =============================================================================
// GATEWAY - document store primitives
// =============================================================================

// Gateway is the document store as seen by the engine.
type Gateway interface {
	// InsertAtomic persists a new document. Fails with ConflictError if a
	// document with the same id already exists in the collection.
	InsertAtomic(ctx context.Context, doc Document) error

	// FindByID returns the stored document or ErrNotFound.
	FindByID(ctx context.Context, col Collection, id string) (Document, error)

	// UpdateIfUnchanged replaces the stored document only if its version
	// still equals expectedVersion. Returns ConflictError on mismatch and
	// ErrNotFound if the document is absent.
	UpdateIfUnchanged(ctx context.Context, doc Document, expectedVersion int) error

	// DeleteByID removes the document or returns ErrNotFound.
	DeleteByID(ctx context.Context, col Collection, id string) error

	// List returns every document in the collection. Pass-through for the
	// surrounding CRUD layer; the engine itself only uses it indirectly.
	List(ctx context.Context, col Collection) ([]Document, error)

	// CountMatching counts documents satisfying the predicate. Used by the
	// consistency checker for uniqueness and bootstrap checks.
	CountMatching(ctx context.Context, col Collection, match func(Document) bool) (int64, error)
}

// =============================================================================
// COUNTER STORE - the one shared mutable resource
// =============================================================================

// CounterStore hands out strictly increasing values per scope. Increments
// must be atomic: two concurrent calls never observe the same value.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, scope string) (int64, error)
}
