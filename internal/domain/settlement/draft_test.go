package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

var (
	testInv1 = uuid.New()
	testInv2 = uuid.New()
)

func newTestPool(counterpartyID uuid.UUID) InvoicePool {
	return InvoicePool{
		CounterpartyID: counterpartyID,
		Role:           RoleVendor,
		Invoices: []PoolInvoice{
			{
				InvoiceID:         testInv1,
				InvoiceNumber:     "INV1",
				AllocatableAmount: decimal.NewFromInt(500),
				IssuedDate:        time.Now().AddDate(0, -1, 0),
			},
			{
				InvoiceID:         testInv2,
				InvoiceNumber:     "INV2",
				AllocatableAmount: decimal.NewFromInt(300),
				IssuedDate:        time.Now().AddDate(0, 0, -10),
			},
		},
	}
}

func newTestDraft(t *testing.T) *VoucherDraft {
	counterpartyID := uuid.New()
	draft, err := NewVoucherDraft(
		"session-1",
		uuid.New(),
		KindPayment,
		counterpartyID,
		"Acme Supplies",
		time.Now(),
		newTestPool(counterpartyID),
	)
	require.NoError(t, err)
	return draft
}

func allocFor(t *testing.T, d *VoucherDraft, invoiceID uuid.UUID) Allocation {
	i := d.Allocations.Find(invoiceID)
	require.GreaterOrEqual(t, i, 0, "expected allocation for invoice")
	return d.Allocations[i]
}

func TestNewVoucherDraft(t *testing.T) {
	t.Run("creates draft with empty allocation state", func(t *testing.T) {
		draft := newTestDraft(t)
		assert.Equal(t, KindPayment, draft.Kind)
		assert.Equal(t, RoleVendor, draft.Role)
		assert.Empty(t, draft.Allocations)
		assert.True(t, draft.TotalAllocated.IsZero())
		assert.Equal(t, MethodCash, draft.Method.Method)
	})

	t.Run("fails with empty session ID", func(t *testing.T) {
		id := uuid.New()
		_, err := NewVoucherDraft("", uuid.New(), KindPayment, id, "Acme", time.Now(), newTestPool(id))
		require.Error(t, err)
	})

	t.Run("fails with invalid kind", func(t *testing.T) {
		id := uuid.New()
		_, err := NewVoucherDraft("s", uuid.New(), VoucherKind("JOURNAL"), id, "Acme", time.Now(), newTestPool(id))
		require.Error(t, err)
	})

	t.Run("fails when pool belongs to another counterparty", func(t *testing.T) {
		_, err := NewVoucherDraft("s", uuid.New(), KindPayment, uuid.New(), "Acme", time.Now(), newTestPool(uuid.New()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different counterparty")
	})

	t.Run("receipt kind maps to customer role", func(t *testing.T) {
		id := uuid.New()
		pool := newTestPool(id)
		pool.Role = RoleCustomer
		draft, err := NewVoucherDraft("s", uuid.New(), KindReceipt, id, "Globex", time.Now(), pool)
		require.NoError(t, err)
		assert.Equal(t, RoleCustomer, draft.Role)
	})
}

func TestVoucherDraft_ToggleInvoice(t *testing.T) {
	t.Run("first toggle selects with full settlement default", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))

		a := allocFor(t, draft, testInv1)
		assert.True(t, a.Amount.Equal(decimal.NewFromInt(500)))
		assert.True(t, a.Balance.IsZero())
		assert.True(t, draft.TotalAllocated.Equal(decimal.NewFromInt(500)))
	})

	t.Run("second toggle removes the allocation entirely", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.ToggleInvoice(testInv1))

		assert.False(t, draft.Allocations.Contains(testInv1))
		assert.True(t, draft.TotalAllocated.IsZero())
	})

	t.Run("total sums across selected invoices", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.ToggleInvoice(testInv2))
		assert.True(t, draft.TotalAllocated.Equal(decimal.NewFromInt(800)))

		require.NoError(t, draft.ToggleInvoice(testInv2))
		assert.True(t, draft.TotalAllocated.Equal(decimal.NewFromInt(500)))
	})

	t.Run("rejects invoice not in the loaded pool", func(t *testing.T) {
		draft := newTestDraft(t)
		err := draft.ToggleInvoice(uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in the loaded pool")
		assert.Empty(t, draft.Allocations)
	})
}

func TestVoucherDraft_SetAllocationAmount(t *testing.T) {
	t.Run("partial amount recomputes balance and total", func(t *testing.T) {
		// Scenario A
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.ToggleInvoice(testInv2))
		require.True(t, draft.TotalAllocated.Equal(decimal.NewFromInt(800)))

		require.NoError(t, draft.SetAllocationAmount(testInv1, "200"))

		a := allocFor(t, draft, testInv1)
		assert.True(t, a.Amount.Equal(decimal.NewFromInt(200)))
		assert.True(t, a.Balance.Equal(decimal.NewFromInt(300)))
		assert.True(t, draft.TotalAllocated.Equal(decimal.NewFromInt(500)))
	})

	t.Run("amount above invoice total clamps to the total", func(t *testing.T) {
		// Scenario B
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv2))
		require.NoError(t, draft.SetAllocationAmount(testInv2, "999"))

		a := allocFor(t, draft, testInv2)
		assert.True(t, a.Amount.Equal(decimal.NewFromInt(300)))
		assert.True(t, a.Balance.IsZero())
	})

	t.Run("negative amount clamps to zero and keeps selection", func(t *testing.T) {
		// Scenario C
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.SetAllocationAmount(testInv1, "-50"))

		a := allocFor(t, draft, testInv1)
		assert.True(t, a.Amount.IsZero())
		assert.True(t, a.Balance.Equal(decimal.NewFromInt(500)))
		assert.True(t, draft.TotalAllocated.IsZero())
		assert.True(t, draft.Allocations.Contains(testInv1))
	})

	t.Run("non-numeric input parses as zero", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.SetAllocationAmount(testInv1, "12abc"))

		a := allocFor(t, draft, testInv1)
		assert.True(t, a.Amount.IsZero())
		assert.True(t, a.Balance.Equal(decimal.NewFromInt(500)))
	})

	t.Run("setting the same value twice is idempotent", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.SetAllocationAmount(testInv1, "120.50"))
		once := allocFor(t, draft, testInv1)
		onceTotal := draft.TotalAllocated

		require.NoError(t, draft.SetAllocationAmount(testInv1, "120.50"))
		twice := allocFor(t, draft, testInv1)

		assert.True(t, once.Amount.Equal(twice.Amount))
		assert.True(t, once.Balance.Equal(twice.Balance))
		assert.True(t, onceTotal.Equal(draft.TotalAllocated))
	})

	t.Run("rejects unselected invoice without auto-selecting", func(t *testing.T) {
		draft := newTestDraft(t)
		err := draft.SetAllocationAmount(testInv1, "100")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no allocation")
		assert.False(t, draft.Allocations.Contains(testInv1))
	})

	t.Run("rejects invoice not in the pool", func(t *testing.T) {
		draft := newTestDraft(t)
		err := draft.SetAllocationAmount(uuid.New(), "100")
		require.Error(t, err)
	})

	t.Run("total always equals recomputed allocation sum", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.ToggleInvoice(testInv2))
		require.NoError(t, draft.SetAllocationAmount(testInv1, "123.45"))
		require.NoError(t, draft.SetAllocationAmount(testInv2, "-7"))
		require.NoError(t, draft.ToggleInvoice(testInv1))

		assert.True(t, draft.TotalAllocated.Equal(SumAllocations(draft.Allocations)))
	})
}

func TestVoucherDraft_ResetAndCounterpartyChange(t *testing.T) {
	t.Run("reset clears allocations and zeroes the total", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.ToggleInvoice(testInv2))

		draft.ResetAllocations()

		assert.Empty(t, draft.Allocations)
		assert.True(t, draft.TotalAllocated.IsZero())
	})

	t.Run("changing counterparty resets state and installs new pool", func(t *testing.T) {
		// Scenario D
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.False(t, draft.TotalAllocated.IsZero())

		newID := uuid.New()
		newPool := InvoicePool{
			CounterpartyID: newID,
			Role:           RoleVendor,
			Invoices: []PoolInvoice{
				{InvoiceID: uuid.New(), InvoiceNumber: "INV9", AllocatableAmount: decimal.NewFromInt(42), IssuedDate: time.Now()},
			},
		}
		require.NoError(t, draft.ChangeCounterparty(newID, "New Vendor", newPool))

		assert.Empty(t, draft.Allocations)
		assert.True(t, draft.TotalAllocated.IsZero())
		assert.Equal(t, newID, draft.CounterpartyID)
		assert.Equal(t, "New Vendor", draft.CounterpartyName)
		assert.Len(t, draft.Pool.Invoices, 1)
	})

	t.Run("rejects mismatched pool on counterparty change", func(t *testing.T) {
		draft := newTestDraft(t)
		err := draft.ChangeCounterparty(uuid.New(), "X", newTestPool(uuid.New()))
		require.Error(t, err)
	})
}

func TestVoucherDraft_Validate(t *testing.T) {
	validDraft := func(t *testing.T) *VoucherDraft {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		return draft
	}

	t.Run("valid draft has no errors", func(t *testing.T) {
		errs := validDraft(t).Validate()
		assert.False(t, errs.HasErrors())
	})

	t.Run("missing counterparty", func(t *testing.T) {
		draft := validDraft(t)
		draft.CounterpartyID = uuid.Nil
		errs := draft.Validate()
		assert.Contains(t, errs, "counterparty_id")
	})

	t.Run("missing allocation", func(t *testing.T) {
		draft := newTestDraft(t)
		errs := draft.Validate()
		assert.Contains(t, errs, "allocations")
		assert.Contains(t, errs, "total_allocated")
	})

	t.Run("non positive total with selected invoice", func(t *testing.T) {
		draft := validDraft(t)
		require.NoError(t, draft.SetAllocationAmount(testInv1, "0"))
		errs := draft.Validate()
		assert.Contains(t, errs, "total_allocated")
		assert.NotContains(t, errs, "allocations")
	})

	t.Run("mode specific fields missing", func(t *testing.T) {
		cases := []struct {
			name   string
			method MethodDetails
			fields []string
		}{
			{"bank transfer", MethodDetails{Method: MethodBankTransfer}, []string{"method.bank.account_number", "method.bank.account_name"}},
			{"cheque", MethodDetails{Method: MethodCheque}, []string{"method.cheque.cheque_number", "method.cheque.cheque_date"}},
			{"online", MethodDetails{Method: MethodOnline}, []string{"method.online.transaction_id", "method.online.paid_at"}},
			{"unknown", MethodDetails{Method: PaymentMethod("CRYPTO")}, []string{"method"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				draft := validDraft(t)
				draft.SetMethod(tc.method)
				errs := draft.Validate()
				for _, f := range tc.fields {
					assert.Contains(t, errs, f)
				}
			})
		}
	})

	t.Run("validation does not mutate the draft", func(t *testing.T) {
		draft := newTestDraft(t)
		require.NoError(t, draft.ToggleInvoice(testInv1))
		require.NoError(t, draft.SetAllocationAmount(testInv1, "0"))

		_ = draft.Validate()

		assert.True(t, draft.Allocations.Contains(testInv1))
		assert.True(t, draft.TotalAllocated.IsZero())
	})
}
