package settlement

import (
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherStatus represents the lifecycle of a persisted voucher
type VoucherStatus string

const (
	VoucherStatusPosted    VoucherStatus = "POSTED"    // submitted and settled
	VoucherStatusCancelled VoucherStatus = "CANCELLED" // reversed after posting
)

// CanCancel returns true if the voucher can still be cancelled
func (s VoucherStatus) CanCancel() bool {
	return s == VoucherStatusPosted
}

// VoucherAllocation is the frozen projection of a draft allocation,
// persisted alongside its voucher
type VoucherAllocation struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	VoucherID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceNumber string          `gorm:"type:varchar(50);not null"` // Denormalized for display
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Balance       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AllocatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VoucherAllocation) TableName() string {
	return "voucher_allocations"
}

// Voucher is a posted payment or receipt voucher aggregate root.
// It is created exclusively by freezing a validated draft.
type Voucher struct {
	shared.TenantAggregateRoot
	VoucherNumber    string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_voucher_tenant_number,priority:2"`
	Kind             VoucherKind         `gorm:"type:varchar(20);not null;index"`
	CounterpartyID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	CounterpartyName string              `gorm:"type:varchar(200);not null"`
	Role             CounterpartyRole    `gorm:"type:varchar(20);not null"`
	Amount           decimal.Decimal     `gorm:"type:decimal(18,4);not null"` // Mirrors the allocation sum
	Method           PaymentMethod       `gorm:"type:varchar(30);not null"`
	MethodReference  string              `gorm:"type:varchar(100)"` // Bank account, cheque or txn id
	Status           VoucherStatus       `gorm:"type:varchar(20);not null;default:'POSTED';index"`
	VoucherDate      time.Time           `gorm:"not null"`
	Allocations      []VoucherAllocation `gorm:"foreignKey:VoucherID;references:ID"`
	Narration        string              `gorm:"type:text"`
	CancelledAt      *time.Time
	CancelledBy      *uuid.UUID `gorm:"type:uuid"`
	CancelReason     string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Voucher) TableName() string {
	return "vouchers"
}

// NewVoucherFromDraft freezes a draft into a posted voucher. The draft must
// already have passed Validate; the allocation set is projected verbatim and
// the voucher amount mirrors the recomputed allocation sum.
func NewVoucherFromDraft(draft *VoucherDraft, voucherNumber string) (*Voucher, error) {
	if draft == nil {
		return nil, shared.NewDomainError("INVALID_DRAFT", "Draft cannot be nil")
	}
	if voucherNumber == "" {
		return nil, shared.NewDomainError("INVALID_VOUCHER_NUMBER", "Voucher number cannot be empty")
	}
	if len(voucherNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_VOUCHER_NUMBER", "Voucher number cannot exceed 50 characters")
	}
	if errs := draft.Validate(); errs.HasErrors() {
		return nil, errs
	}

	v := &Voucher{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(draft.TenantID),
		VoucherNumber:       voucherNumber,
		Kind:                draft.Kind,
		CounterpartyID:      draft.CounterpartyID,
		CounterpartyName:    draft.CounterpartyName,
		Role:                draft.Role,
		Amount:              SumAllocations(draft.Allocations),
		Method:              draft.Method.Method,
		MethodReference:     draft.Method.Reference(),
		Status:              VoucherStatusPosted,
		VoucherDate:         draft.VoucherDate,
		Narration:           draft.Narration,
		Allocations:         make([]VoucherAllocation, 0, len(draft.Allocations)),
	}

	now := time.Now()
	for _, a := range draft.Allocations {
		v.Allocations = append(v.Allocations, VoucherAllocation{
			ID:            uuid.New(),
			VoucherID:     v.ID,
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			Amount:        a.Amount,
			Balance:       a.Balance,
			AllocatedAt:   now,
		})
	}

	return v, nil
}

// Cancel reverses a posted voucher
func (v *Voucher) Cancel(cancelledBy uuid.UUID, reason string) error {
	if !v.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel voucher in %s status", v.Status))
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Cancelling user ID is required")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	v.Status = VoucherStatusCancelled
	v.CancelledAt = &now
	v.CancelledBy = &cancelledBy
	v.CancelReason = reason
	v.UpdatedAt = now
	v.IncrementVersion()

	return nil
}

// GetAmountMoney returns the voucher amount as a Money value object
func (v *Voucher) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyINR(v.Amount)
}

// IsPosted returns true if the voucher is posted
func (v *Voucher) IsPosted() bool {
	return v.Status == VoucherStatusPosted
}

// IsCancelled returns true if the voucher is cancelled
func (v *Voucher) IsCancelled() bool {
	return v.Status == VoucherStatusCancelled
}

// AllocationCount returns the number of frozen allocations
func (v *Voucher) AllocationCount() int {
	return len(v.Allocations)
}

// GetAllocationByInvoiceID returns the allocation for a specific invoice
func (v *Voucher) GetAllocationByInvoiceID(invoiceID uuid.UUID) *VoucherAllocation {
	for i := range v.Allocations {
		if v.Allocations[i].InvoiceID == invoiceID {
			return &v.Allocations[i]
		}
	}
	return nil
}
