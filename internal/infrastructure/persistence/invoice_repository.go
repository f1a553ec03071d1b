package persistence

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Invoice, error) {
	var invoice settlement.Invoice
	if err := r.db.WithContext(ctx).
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForTenant finds an invoice by ID for a specific tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*settlement.Invoice, error) {
	var invoice settlement.Invoice
	if err := r.db.WithContext(ctx).
		First(&invoice, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindOutstanding finds all outstanding invoices for a counterparty, oldest
// issued first so pools render in a stable order
func (r *GormInvoiceRepository) FindOutstanding(ctx context.Context, tenantID, counterpartyID uuid.UUID, role settlement.CounterpartyRole) ([]settlement.Invoice, error) {
	var invoices []settlement.Invoice
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND counterparty_id = ? AND counterparty_role = ?", tenantID, counterpartyID, role).
		Where("status IN ?", []settlement.InvoiceStatus{settlement.InvoiceStatusApproved, settlement.InvoiceStatusPartial}).
		Order("issued_date ASC, invoice_number ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *settlement.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *settlement.Invoice) error {
	return updateInvoiceLocked(r.db.WithContext(ctx), invoice)
}

// updateInvoiceLocked updates an invoice row guarded by its version. The
// domain already incremented the in-memory version, so the predicate matches
// the stored row only if nobody else touched it in between.
func updateInvoiceLocked(db *gorm.DB, invoice *settlement.Invoice) error {
	result := db.
		Model(invoice).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(invoice)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormInvoiceRepository implements the interface
var _ settlement.InvoiceRepository = (*GormInvoiceRepository)(nil)
