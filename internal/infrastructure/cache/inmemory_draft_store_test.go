package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoredDraft(t *testing.T) *settlement.VoucherDraft {
	t.Helper()

	counterpartyID := uuid.New()
	pool := settlement.InvoicePool{
		CounterpartyID: counterpartyID,
		Role:           settlement.RoleVendor,
		Invoices: []settlement.PoolInvoice{
			{
				InvoiceID:         uuid.New(),
				InvoiceNumber:     "INV-2026-001",
				AllocatableAmount: decimal.NewFromInt(500),
				IssuedDate:        time.Now(),
			},
		},
	}

	draft, err := settlement.NewVoucherDraft(
		uuid.NewString(), uuid.New(), settlement.KindPayment,
		counterpartyID, "Acme Traders", time.Now(), pool,
	)
	require.NoError(t, err)
	return draft
}

func TestInMemoryDraftStore_RoundTrip(t *testing.T) {
	store := NewInMemoryDraftStore(time.Hour)
	draft := newStoredDraft(t)

	require.NoError(t, store.Save(context.Background(), draft))

	loaded, err := store.Load(context.Background(), draft.SessionID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, draft.SessionID, loaded.SessionID)
	assert.Equal(t, draft.CounterpartyID, loaded.CounterpartyID)
	assert.Len(t, loaded.Pool.Invoices, 1)
	assert.True(t, loaded.Pool.Invoices[0].AllocatableAmount.Equal(decimal.NewFromInt(500)))
}

func TestInMemoryDraftStore_LoadUnknownSession(t *testing.T) {
	store := NewInMemoryDraftStore(time.Hour)

	loaded, err := store.Load(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestInMemoryDraftStore_Expiry(t *testing.T) {
	store := NewInMemoryDraftStore(time.Minute)
	draft := newStoredDraft(t)

	now := time.Now()
	store.nowFunc = func() time.Time { return now }
	require.NoError(t, store.Save(context.Background(), draft))

	// Still present just before the TTL elapses.
	store.nowFunc = func() time.Time { return now.Add(59 * time.Second) }
	loaded, err := store.Load(context.Background(), draft.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, loaded)

	store.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	loaded, err = store.Load(context.Background(), draft.SessionID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestInMemoryDraftStore_Clear(t *testing.T) {
	store := NewInMemoryDraftStore(time.Hour)
	draft := newStoredDraft(t)

	require.NoError(t, store.Save(context.Background(), draft))
	require.NoError(t, store.Clear(context.Background(), draft.SessionID))

	loaded, err := store.Load(context.Background(), draft.SessionID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing again is a no-op, not an error.
	assert.NoError(t, store.Clear(context.Background(), draft.SessionID))
	assert.Equal(t, 0, store.Len())
}

func TestInMemoryDraftStore_SaveReplacesSnapshot(t *testing.T) {
	store := NewInMemoryDraftStore(time.Hour)
	draft := newStoredDraft(t)
	require.NoError(t, store.Save(context.Background(), draft))

	invoiceID := draft.Pool.Invoices[0].InvoiceID
	require.NoError(t, draft.ToggleInvoice(invoiceID))
	require.NoError(t, store.Save(context.Background(), draft))

	loaded, err := store.Load(context.Background(), draft.SessionID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Allocations, 1)
	assert.Equal(t, 1, store.Len())
}
