// Package store provides an in-memory Gateway implementation for tests
// and development.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/finbooks/ledger-engine/ledger"
)

// =============================================================================
// MEMORY GATEWAY - in-memory document store (for testing/dev)
// =============================================================================

// Memory implements ledger.Gateway and ledger.CounterStore. Documents are
// deep-copied on every read and write so callers never alias stored state.
type Memory struct {
	mu       sync.RWMutex
	docs     map[ledger.Collection]map[string]ledger.Document
	counters map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[ledger.Collection]map[string]ledger.Document),
		counters: make(map[string]int64),
	}
}

// clone deep-copies a document through its JSON form. The round-trip keeps
// the store's copy independent from whatever the caller mutates next.
func clone(doc ledger.Document) (ledger.Document, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := ledger.NewDocumentFor(doc.DocumentCollection())
	if out == nil {
		return nil, fmt.Errorf("unknown collection %q", doc.DocumentCollection())
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Memory) collection(col ledger.Collection) map[string]ledger.Document {
	if m.docs[col] == nil {
		m.docs[col] = make(map[string]ledger.Document)
	}
	return m.docs[col]
}

func (m *Memory) InsertAtomic(ctx context.Context, doc ledger.Document) error {
	if err := ctx.Err(); err != nil {
		return mapCtxErr(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	col := m.collection(doc.DocumentCollection())
	if _, exists := col[doc.DocumentID()]; exists {
		return &ledger.ConflictError{Reason: "duplicate_id", Detail: doc.DocumentID()}
	}
	stored, err := clone(doc)
	if err != nil {
		return err
	}
	col[doc.DocumentID()] = stored
	return nil
}

func (m *Memory) FindByID(ctx context.Context, col ledger.Collection, id string) (ledger.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapCtxErr(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[col][id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return clone(doc)
}

func (m *Memory) UpdateIfUnchanged(ctx context.Context, doc ledger.Document, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return mapCtxErr(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	col := m.collection(doc.DocumentCollection())
	cur, ok := col[doc.DocumentID()]
	if !ok {
		return ledger.ErrNotFound
	}
	if cur.DocumentVersion() != expectedVersion {
		return &ledger.ConflictError{
			Reason: "version_mismatch",
			Detail: fmt.Sprintf("expected version %d, stored version %d", expectedVersion, cur.DocumentVersion()),
		}
	}
	stored, err := clone(doc)
	if err != nil {
		return err
	}
	col[doc.DocumentID()] = stored
	return nil
}

func (m *Memory) DeleteByID(ctx context.Context, col ledger.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return mapCtxErr(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[col][id]; !ok {
		return ledger.ErrNotFound
	}
	delete(m.docs[col], id)
	return nil
}

func (m *Memory) List(ctx context.Context, col ledger.Collection) ([]ledger.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapCtxErr(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Document, 0, len(m.docs[col]))
	for _, doc := range m.docs[col] {
		copied, err := clone(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, copied)
	}
	// Stable order for callers and tests.
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID() < out[j].DocumentID() })
	return out, nil
}

func (m *Memory) CountMatching(ctx context.Context, col ledger.Collection, match func(ledger.Document) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, mapCtxErr(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, doc := range m.docs[col] {
		if match(doc) {
			n++
		}
	}
	return n, nil
}

// IncrementAndGet atomically advances the scoped counter. The mutex is the
// critical section: two concurrent calls can never observe the same value.
func (m *Memory) IncrementAndGet(ctx context.Context, scope string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, mapCtxErr(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[scope]++
	return m.counters[scope], nil
}

// mapCtxErr surfaces an expired deadline as ErrGatewayTimeout. Plain
// cancellation passes through untouched.
func mapCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ledger.ErrGatewayTimeout, err)
	}
	return err
}
