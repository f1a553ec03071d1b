package settlement

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherKind distinguishes payment vouchers (vendor side) from receipt
// vouchers (customer side)
type VoucherKind string

const (
	KindPayment VoucherKind = "PAYMENT"
	KindReceipt VoucherKind = "RECEIPT"
)

// IsValid returns true if the kind is a known value
func (k VoucherKind) IsValid() bool {
	return k == KindPayment || k == KindReceipt
}

// RoleForKind returns the counterparty role a voucher kind settles against
func RoleForKind(kind VoucherKind) CounterpartyRole {
	if kind == KindPayment {
		return RoleVendor
	}
	return RoleCustomer
}

// ValidationErrors is a field-keyed error map collected at submission time.
// Keys are form field paths, values are human-readable messages.
type ValidationErrors map[string]string

// Add records an error for a field, keeping the first message per field
func (e ValidationErrors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// HasErrors returns true if any field failed validation
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Error implements the error interface
func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// VoucherDraft is the in-flight editing state of one voucher. It owns the
// allocation set exclusively for the duration of the editing session and is
// never persisted as a voucher until a successful submit.
type VoucherDraft struct {
	SessionID        string           `json:"session_id"`
	TenantID         uuid.UUID        `json:"tenant_id"`
	Kind             VoucherKind      `json:"kind"`
	CounterpartyID   uuid.UUID        `json:"counterparty_id"`
	CounterpartyName string           `json:"counterparty_name"`
	Role             CounterpartyRole `json:"role"`
	VoucherDate      time.Time        `json:"voucher_date"`
	Narration        string           `json:"narration"`
	Method           MethodDetails    `json:"method"`
	Pool             InvoicePool      `json:"pool"`
	Allocations      AllocationSet    `json:"allocations"`
	TotalAllocated   decimal.Decimal  `json:"total_allocated"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewVoucherDraft opens a draft editing session for a counterparty.
// The invoice pool snapshot must belong to the same counterparty.
func NewVoucherDraft(
	sessionID string,
	tenantID uuid.UUID,
	kind VoucherKind,
	counterpartyID uuid.UUID,
	counterpartyName string,
	voucherDate time.Time,
	pool InvoicePool,
) (*VoucherDraft, error) {
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Draft session ID cannot be empty")
	}
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Voucher kind is not valid")
	}
	if counterpartyID != uuid.Nil && pool.CounterpartyID != counterpartyID {
		return nil, shared.NewDomainError("POOL_MISMATCH", "Invoice pool belongs to a different counterparty")
	}
	if voucherDate.IsZero() {
		voucherDate = time.Now()
	}

	now := time.Now()
	return &VoucherDraft{
		SessionID:        sessionID,
		TenantID:         tenantID,
		Kind:             kind,
		CounterpartyID:   counterpartyID,
		CounterpartyName: counterpartyName,
		Role:             RoleForKind(kind),
		VoucherDate:      voucherDate,
		Method:           CashMethod(),
		Pool:             pool,
		Allocations:      make(AllocationSet, 0),
		TotalAllocated:   decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ToggleInvoice selects or deselects an invoice from the loaded pool.
//
// Selecting creates an allocation with full settlement as the default:
// amount = the invoice's allocatable total, balance = 0. Toggling a selected
// invoice removes its allocation entirely; partial deselection is not a
// supported transition. The derived total is recomputed after every mutation.
//
// Toggling an invoice id that is not in the pool is a precondition violation
// and returns INVOICE_NOT_IN_POOL.
func (d *VoucherDraft) ToggleInvoice(invoiceID uuid.UUID) error {
	entry := d.Pool.Find(invoiceID)
	if entry == nil {
		return shared.NewDomainError("INVOICE_NOT_IN_POOL", "Invoice is not in the loaded pool")
	}

	if i := d.Allocations.Find(invoiceID); i >= 0 {
		d.Allocations = append(d.Allocations[:i], d.Allocations[i+1:]...)
	} else {
		d.Allocations = append(d.Allocations, Allocation{
			InvoiceID:     entry.InvoiceID,
			InvoiceNumber: entry.InvoiceNumber,
			Amount:        entry.AllocatableAmount,
			Balance:       decimal.Zero,
		})
	}

	d.recomputeTotal()
	return nil
}

// SetAllocationAmount edits the settled amount of a selected invoice.
//
// rawAmount is untrusted text: malformed input parses as zero, and the result
// is clamped into [0, allocatable total] so the balance can never go negative
// and the voucher total can never exceed the sum of selected invoices.
// A clamped-to-zero amount keeps the invoice selected; only ToggleInvoice
// removes an allocation.
//
// Editing an unselected invoice returns INVOICE_NOT_SELECTED; it never
// auto-selects.
func (d *VoucherDraft) SetAllocationAmount(invoiceID uuid.UUID, rawAmount string) error {
	entry := d.Pool.Find(invoiceID)
	if entry == nil {
		return shared.NewDomainError("INVOICE_NOT_IN_POOL", "Invoice is not in the loaded pool")
	}
	i := d.Allocations.Find(invoiceID)
	if i < 0 {
		return shared.NewDomainError("INVOICE_NOT_SELECTED", "Invoice has no allocation to edit")
	}

	amount := ClampAmount(ParseRawAmount(rawAmount), entry.AllocatableAmount)
	d.Allocations[i].Amount = amount
	d.Allocations[i].Balance = entry.AllocatableAmount.Sub(amount)

	d.recomputeTotal()
	return nil
}

// ResetAllocations clears the allocation set and zeroes the derived total.
// Invoked when the counterparty changes or the draft is discarded.
func (d *VoucherDraft) ResetAllocations() {
	d.Allocations = make(AllocationSet, 0)
	d.recomputeTotal()
}

// ChangeCounterparty switches the draft to a new counterparty. All prior
// allocations reference invoices scoped to the old counterparty, so the set
// is reset and the new pool snapshot installed.
func (d *VoucherDraft) ChangeCounterparty(counterpartyID uuid.UUID, counterpartyName string, pool InvoicePool) error {
	if counterpartyID == uuid.Nil {
		return shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}
	if pool.CounterpartyID != counterpartyID {
		return shared.NewDomainError("POOL_MISMATCH", "Invoice pool belongs to a different counterparty")
	}

	d.CounterpartyID = counterpartyID
	d.CounterpartyName = counterpartyName
	d.Pool = pool
	d.ResetAllocations()
	return nil
}

// SetMethod replaces the payment method details
func (d *VoucherDraft) SetMethod(method MethodDetails) {
	d.Method = method
	d.UpdatedAt = time.Now()
}

// SetNarration replaces the narration text
func (d *VoucherDraft) SetNarration(narration string) {
	d.Narration = narration
	d.UpdatedAt = time.Now()
}

// SetVoucherDate replaces the voucher date
func (d *VoucherDraft) SetVoucherDate(date time.Time) {
	if !date.IsZero() {
		d.VoucherDate = date
	}
	d.UpdatedAt = time.Now()
}

// recomputeTotal mirrors the recomputed allocation sum into the draft's
// total-amount field so the two can never diverge
func (d *VoucherDraft) recomputeTotal() {
	d.TotalAllocated = SumAllocations(d.Allocations)
	d.UpdatedAt = time.Now()
}

// Validate performs submission-time validation and returns a field-keyed
// error map. It never mutates the draft; a failed validation leaves the
// allocation set editable.
func (d *VoucherDraft) Validate() ValidationErrors {
	errs := make(ValidationErrors)

	if d.CounterpartyID == uuid.Nil {
		errs.Add("counterparty_id", "A counterparty must be selected")
	}
	if len(d.Allocations) == 0 {
		errs.Add("allocations", "At least one invoice must be selected")
	}
	if d.TotalAllocated.LessThanOrEqual(decimal.Zero) {
		errs.Add("total_allocated", "Voucher total must be positive")
	}
	d.Method.Validate(errs)

	return errs
}
