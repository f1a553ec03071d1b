package settlement

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CounterpartyRole identifies which side of a voucher the counterparty is on
type CounterpartyRole string

const (
	RoleVendor   CounterpartyRole = "VENDOR"   // payment vouchers settle vendor invoices
	RoleCustomer CounterpartyRole = "CUSTOMER" // receipt vouchers settle customer invoices
)

// IsValid returns true if the role is a known value
func (r CounterpartyRole) IsValid() bool {
	return r == RoleVendor || r == RoleCustomer
}

// InvoiceStatus represents the settlement lifecycle of an invoice
type InvoiceStatus string

const (
	InvoiceStatusApproved InvoiceStatus = "APPROVED" // approved, nothing settled yet
	InvoiceStatusPartial  InvoiceStatus = "PARTIAL"  // partially settled
	InvoiceStatusPaid     InvoiceStatus = "PAID"     // fully settled
	InvoiceStatusVoid     InvoiceStatus = "VOID"     // cancelled upstream, never allocatable
)

// IsOutstanding returns true if the invoice can still receive allocations
func (s InvoiceStatus) IsOutstanding() bool {
	return s == InvoiceStatusApproved || s == InvoiceStatusPartial
}

// Invoice is an outstanding transaction record eligible for settlement.
// The allocation engine treats it as a read-only snapshot; settlement is
// applied only when a submitted voucher is persisted.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber     string           `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	CounterpartyID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	CounterpartyName  string           `gorm:"type:varchar(200);not null"`
	CounterpartyRole  CounterpartyRole `gorm:"type:varchar(20);not null;index"`
	TotalAmount       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	SettledAmount     decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	OutstandingAmount decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Status            InvoiceStatus    `gorm:"type:varchar(20);not null;default:'APPROVED';index"`
	IssuedDate        time.Time        `gorm:"not null"`
	TransactionRef    string           `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates an approved, fully outstanding invoice
func NewInvoice(
	tenantID uuid.UUID,
	invoiceNumber string,
	counterpartyID uuid.UUID,
	counterpartyName string,
	role CounterpartyRole,
	totalAmount valueobject.Money,
	issuedDate time.Time,
	transactionRef string,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if counterpartyName == "" {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY_NAME", "Counterparty name cannot be empty")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Counterparty role is not valid")
	}
	if totalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice total cannot be negative")
	}
	if issuedDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUED_DATE", "Issued date is required")
	}

	return &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		CounterpartyID:      counterpartyID,
		CounterpartyName:    counterpartyName,
		CounterpartyRole:    role,
		TotalAmount:         totalAmount.Amount(),
		SettledAmount:       decimal.Zero,
		OutstandingAmount:   totalAmount.Amount(),
		Status:              InvoiceStatusApproved,
		IssuedDate:          issuedDate,
		TransactionRef:      transactionRef,
	}, nil
}

// ApplySettlement records a settled amount against the invoice.
// The amount must be positive and must not exceed the outstanding balance.
func (inv *Invoice) ApplySettlement(amount valueobject.Money) error {
	if !inv.Status.IsOutstanding() {
		return shared.NewDomainError("INVALID_STATE", "Invoice is not outstanding")
	}
	if amount.IsNegative() || amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Settlement amount must be positive")
	}
	if amount.Amount().GreaterThan(inv.OutstandingAmount) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING", "Settlement amount exceeds outstanding balance")
	}

	inv.SettledAmount = inv.SettledAmount.Add(amount.Amount())
	inv.OutstandingAmount = inv.TotalAmount.Sub(inv.SettledAmount)

	if inv.OutstandingAmount.IsZero() {
		inv.Status = InvoiceStatusPaid
	} else {
		inv.Status = InvoiceStatusPartial
	}

	inv.Touch()
	inv.IncrementVersion()

	return nil
}

// ReverseSettlement backs a settled amount out of the invoice, used when a
// posted voucher is cancelled. The amount must not exceed what was settled.
func (inv *Invoice) ReverseSettlement(amount valueobject.Money) error {
	if inv.Status == InvoiceStatusVoid {
		return shared.NewDomainError("INVALID_STATE", "Invoice is void")
	}
	if amount.IsNegative() || amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Reversal amount must be positive")
	}
	if amount.Amount().GreaterThan(inv.SettledAmount) {
		return shared.NewDomainError("EXCEEDS_SETTLED", "Reversal amount exceeds settled balance")
	}

	inv.SettledAmount = inv.SettledAmount.Sub(amount.Amount())
	inv.OutstandingAmount = inv.TotalAmount.Sub(inv.SettledAmount)

	if inv.SettledAmount.IsZero() {
		inv.Status = InvoiceStatusApproved
	} else {
		inv.Status = InvoiceStatusPartial
	}

	inv.Touch()
	inv.IncrementVersion()

	return nil
}

// IsFullySettled returns true if nothing remains outstanding
func (inv *Invoice) IsFullySettled() bool {
	return inv.OutstandingAmount.IsZero()
}

// PoolInvoice is the read-only projection of an invoice inside a draft's pool.
// AllocatableAmount is the outstanding balance at load time and is the ceiling
// the allocation engine clamps against; for a never-settled invoice it equals
// the invoice total.
type PoolInvoice struct {
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	AllocatableAmount decimal.Decimal `json:"allocatable_amount"`
	IssuedDate        time.Time       `json:"issued_date"`
	TransactionRef    string          `json:"transaction_ref,omitempty"`
}

// InvoicePool is the snapshot of outstanding invoices for one counterparty.
// It is loaded fresh whenever the counterparty changes.
type InvoicePool struct {
	CounterpartyID uuid.UUID        `json:"counterparty_id"`
	Role           CounterpartyRole `json:"role"`
	Invoices       []PoolInvoice    `json:"invoices"`
}

// NewInvoicePool builds a pool snapshot from outstanding invoices
func NewInvoicePool(counterpartyID uuid.UUID, role CounterpartyRole, invoices []Invoice) InvoicePool {
	pool := InvoicePool{
		CounterpartyID: counterpartyID,
		Role:           role,
		Invoices:       make([]PoolInvoice, 0, len(invoices)),
	}
	for _, inv := range invoices {
		if !inv.Status.IsOutstanding() {
			continue
		}
		pool.Invoices = append(pool.Invoices, PoolInvoice{
			InvoiceID:         inv.ID,
			InvoiceNumber:     inv.InvoiceNumber,
			AllocatableAmount: inv.OutstandingAmount,
			IssuedDate:        inv.IssuedDate,
			TransactionRef:    inv.TransactionRef,
		})
	}
	return pool
}

// Find returns the pool entry for an invoice id, or nil if not in the pool
func (p InvoicePool) Find(invoiceID uuid.UUID) *PoolInvoice {
	for i := range p.Invoices {
		if p.Invoices[i].InvoiceID == invoiceID {
			return &p.Invoices[i]
		}
	}
	return nil
}

// Contains returns true if the invoice id is part of the pool
func (p InvoicePool) Contains(invoiceID uuid.UUID) bool {
	return p.Find(invoiceID) != nil
}
