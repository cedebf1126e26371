package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbooks/ledger-engine/ledger"
	"github.com/finbooks/ledger-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testAccount(id string, version int) *ledger.Account {
	a := &ledger.Account{
		Name:    "Bank",
		Type:    ledger.AccountAsset,
		Balance: ledger.MustMoney("5000.00"),
		Active:  true,
	}
	a.ID = id
	a.Version = version
	a.StampCreated("user-1", time.Now().UTC())
	return a
}

// =============================================================================
// DOCUMENT ROUND TRIP
// =============================================================================

func TestInsertAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAtomic(ctx, testAccount("acc-1", 1)))

	doc, err := s.FindByID(ctx, ledger.ColAccounts, "acc-1")
	require.NoError(t, err)

	got, ok := doc.(*ledger.Account)
	require.True(t, ok)
	assert.Equal(t, "acc-1", got.ID)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "Bank", got.Name)
	assert.Equal(t, "5000.00", got.Balance.String())
}

func TestFind_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindByID(context.Background(), ledger.ColAccounts, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestInsert_DuplicateIDConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAtomic(ctx, testAccount("acc-1", 1)))

	err := s.InsertAtomic(ctx, testAccount("acc-1", 1))
	assert.ErrorIs(t, err, ledger.ErrConflict)

	var ce *ledger.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "duplicate_id", ce.Reason)
}

func TestList_OrderedAndScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAtomic(ctx, testAccount("acc-1", 1)))
	require.NoError(t, s.InsertAtomic(ctx, testAccount("acc-2", 1)))

	c := &ledger.Client{Name: "Acme Traders", Email: "billing@acme.example", Active: true}
	c.ID = "cli-1"
	c.Version = 1
	require.NoError(t, s.InsertAtomic(ctx, c))

	accounts, err := s.List(ctx, ledger.ColAccounts)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	clients, err := s.List(ctx, ledger.ColClients)
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

// =============================================================================
// OPTIMISTIC CONCURRENCY
// =============================================================================

func TestUpdateIfUnchanged_HappyPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAtomic(ctx, testAccount("acc-1", 1)))

	upd := testAccount("acc-1", 2)
	upd.Name = "Bank Renamed"
	require.NoError(t, s.UpdateIfUnchanged(ctx, upd, 1))

	doc, err := s.FindByID(ctx, ledger.ColAccounts, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "Bank Renamed", doc.(*ledger.Account).Name)
	assert.Equal(t, 2, doc.DocumentVersion())
}

func TestUpdateIfUnchanged_StaleVersionConflicts(t *testing.T) {
	// GIVEN: the stored document is at version 2
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAtomic(ctx, testAccount("acc-1", 1)))
	require.NoError(t, s.UpdateIfUnchanged(ctx, testAccount("acc-1", 2), 1))

	// WHEN: a writer who read version 1 tries to update
	err := s.UpdateIfUnchanged(ctx, testAccount("acc-1", 2), 1)

	// THEN: the write is rejected as a version mismatch
	var ce *ledger.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "version_mismatch", ce.Reason)
}

func TestUpdateIfUnchanged_MissingDocument(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateIfUnchanged(context.Background(), testAccount("ghost", 2), 1)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAtomic(ctx, testAccount("acc-1", 1)))
	require.NoError(t, s.DeleteByID(ctx, ledger.ColAccounts, "acc-1"))

	_, err := s.FindByID(ctx, ledger.ColAccounts, "acc-1")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.ErrorIs(t, s.DeleteByID(ctx, ledger.ColAccounts, "acc-1"), ledger.ErrNotFound)
}

// =============================================================================
// COUNTERS
// =============================================================================

func TestIncrementAndGet_Monotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.IncrementAndGet(ctx, "invoice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestIncrementAndGet_ScopesAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.IncrementAndGet(ctx, "invoice")
	require.NoError(t, err)

	n, err := s.IncrementAndGet(ctx, "credit-note")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCountMatching(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := testAccount("acc-1", 1)
	inactive := testAccount("acc-2", 1)
	inactive.Active = false
	require.NoError(t, s.InsertAtomic(ctx, active))
	require.NoError(t, s.InsertAtomic(ctx, inactive))

	n, err := s.CountMatching(ctx, ledger.ColAccounts, func(d ledger.Document) bool {
		return d.(*ledger.Account).Active
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
