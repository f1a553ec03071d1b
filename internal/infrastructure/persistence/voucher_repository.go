package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// GormVoucherRepository implements VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// FindByID finds a voucher by ID
func (r *GormVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Voucher, error) {
	var voucher settlement.Voucher
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&voucher, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// FindByIDForTenant finds a voucher by ID for a specific tenant
func (r *GormVoucherRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*settlement.Voucher, error) {
	var voucher settlement.Voucher
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&voucher, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// FindByVoucherNumber finds by voucher number for a tenant
func (r *GormVoucherRepository) FindByVoucherNumber(ctx context.Context, tenantID uuid.UUID, voucherNumber string) (*settlement.Voucher, error) {
	var voucher settlement.Voucher
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&voucher, "voucher_number = ? AND tenant_id = ?", voucherNumber, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// FindAllForTenant finds all vouchers for a tenant with filtering
func (r *GormVoucherRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter settlement.VoucherFilter) ([]settlement.Voucher, error) {
	var vouchers []settlement.Voucher
	query := applyVoucherFilter(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.
		Order("voucher_date DESC, voucher_number DESC").
		Preload("Allocations").
		Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

// CountForTenant counts vouchers for a tenant with optional filters
func (r *GormVoucherRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter settlement.VoucherFilter) (int64, error) {
	var count int64
	query := applyVoucherFilter(
		r.db.WithContext(ctx).Model(&settlement.Voucher{}).Where("tenant_id = ?", tenantID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByKindSince counts vouchers of a kind posted on or after a time,
// used for voucher number sequencing
func (r *GormVoucherRepository) CountByKindSince(ctx context.Context, tenantID uuid.UUID, kind settlement.VoucherKind, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&settlement.Voucher{}).
		Where("tenant_id = ? AND kind = ? AND voucher_date >= ?", tenantID, kind, since).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a voucher together with its allocations
func (r *GormVoucherRepository) Save(ctx context.Context, voucher *settlement.Voucher) error {
	return r.db.WithContext(ctx).Save(voucher).Error
}

// SaveWithLock saves with optimistic locking (version check). Allocations are
// immutable after posting, so only the voucher row is updated.
func (r *GormVoucherRepository) SaveWithLock(ctx context.Context, voucher *settlement.Voucher) error {
	return updateVoucherLocked(r.db.WithContext(ctx), voucher)
}

// SavePosted creates the voucher with its allocations and persists the settled
// invoices in one transaction. The voucher insert runs first so a number
// collision rolls back before any invoice row is touched.
func (r *GormVoucherRepository) SavePosted(ctx context.Context, voucher *settlement.Voucher, settled []*settlement.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(voucher).Error; err != nil {
			if isUniqueViolation(err) {
				return shared.ErrAlreadyExists
			}
			return err
		}
		for _, invoice := range settled {
			if err := updateInvoiceLocked(tx, invoice); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveCancelled persists the cancelled voucher and the reversed invoices in
// one transaction, all guarded by version checks
func (r *GormVoucherRepository) SaveCancelled(ctx context.Context, voucher *settlement.Voucher, reversed []*settlement.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, invoice := range reversed {
			if err := updateInvoiceLocked(tx, invoice); err != nil {
				return err
			}
		}
		return updateVoucherLocked(tx, voucher)
	})
}

// updateVoucherLocked updates the voucher row guarded by its version,
// leaving the immutable allocations alone
func updateVoucherLocked(db *gorm.DB, voucher *settlement.Voucher) error {
	result := db.
		Model(voucher).
		Omit("Allocations").
		Where("id = ? AND version = ?", voucher.ID, voucher.Version-1).
		Updates(voucher)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// applyVoucherFilter translates the filter's optional fields into WHERE clauses
func applyVoucherFilter(query *gorm.DB, filter settlement.VoucherFilter) *gorm.DB {
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.CounterpartyID != nil {
		query = query.Where("counterparty_id = ?", *filter.CounterpartyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.FromDate != nil {
		query = query.Where("voucher_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("voucher_date <= ?", *filter.ToDate)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}
	return query
}

// Ensure GormVoucherRepository implements the interface
var _ settlement.VoucherRepository = (*GormVoucherRepository)(nil)
