package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockInvoiceRepository creates a GormInvoiceRepository with a mocked SQL connection
func newMockInvoiceRepository(t *testing.T) (*GormInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormInvoiceRepository(gormDB), mock, mockDB
}

func invoiceRows(id, tenantID, counterpartyID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "version", "invoice_number", "counterparty_id",
		"counterparty_name", "counterparty_role", "total_amount", "settled_amount",
		"outstanding_amount", "status", "issued_date", "transaction_ref",
	}).AddRow(
		id, tenantID, 1, "INV-2026-001", counterpartyID,
		"Acme Traders", "VENDOR", decimal.NewFromInt(500), decimal.Zero,
		decimal.NewFromInt(500), "APPROVED", time.Now(), "PO-1001",
	)
}

func TestGormInvoiceRepository_FindByID(t *testing.T) {
	t.Run("finds existing invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnRows(invoiceRows(invoiceID, uuid.New(), uuid.New()))

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, invoiceID, invoice.ID)
		assert.Equal(t, "INV-2026-001", invoice.InvoiceNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for missing invoice", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		invoice, err := repo.FindByID(context.Background(), invoiceID)

		require.NoError(t, err)
		assert.Nil(t, invoice)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_FindByIDForTenant(t *testing.T) {
	t.Run("scopes the lookup to the tenant", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		invoiceID := uuid.New()
		tenantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE \(id = \$1 AND tenant_id = \$2\) ORDER BY .* LIMIT .*`).
			WithArgs(invoiceID, tenantID, 1).
			WillReturnRows(invoiceRows(invoiceID, tenantID, uuid.New()))

		invoice, err := repo.FindByIDForTenant(context.Background(), tenantID, invoiceID)

		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, tenantID, invoice.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_FindOutstanding(t *testing.T) {
	t.Run("filters by counterparty and outstanding statuses", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		counterpartyID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE \(tenant_id = \$1 AND counterparty_id = \$2 AND counterparty_role = \$3\) AND status IN \(\$4,\$5\) ORDER BY issued_date ASC, invoice_number ASC`).
			WithArgs(tenantID, counterpartyID, settlement.RoleVendor, settlement.InvoiceStatusApproved, settlement.InvoiceStatusPartial).
			WillReturnRows(invoiceRows(uuid.New(), tenantID, counterpartyID))

		invoices, err := repo.FindOutstanding(context.Background(), tenantID, counterpartyID, settlement.RoleVendor)

		require.NoError(t, err)
		assert.Len(t, invoices, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice when nothing outstanding", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		tenantID := uuid.New()
		counterpartyID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "invoices"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		invoices, err := repo.FindOutstanding(context.Background(), tenantID, counterpartyID, settlement.RoleCustomer)

		require.NoError(t, err)
		assert.Empty(t, invoices)
	})
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	newPartialInvoice := func(t *testing.T) *settlement.Invoice {
		t.Helper()
		inv, err := settlement.NewInvoice(
			uuid.New(), "INV-2026-001", uuid.New(), "Acme Traders",
			settlement.RoleVendor, valueobject.NewMoneyINRFromFloat(500), time.Now(), "",
		)
		require.NoError(t, err)
		require.NoError(t, inv.ApplySettlement(valueobject.NewMoneyINRFromFloat(200)))
		return inv
	}

	t.Run("updates when version matches", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		inv := newPartialInvoice(t)
		mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), inv)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports conflict when version is stale", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		inv := newPartialInvoice(t)
		mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), inv)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}
