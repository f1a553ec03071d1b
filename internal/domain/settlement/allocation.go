package settlement

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation is the portion of a voucher draft applied against one invoice.
// Invariants: 0 <= Amount <= ceiling, Balance = ceiling - Amount, where the
// ceiling is the pool invoice's allocatable amount.
type Allocation struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}

// AllocationSet is the ordered collection of allocations in one draft.
// Order is selection order; it carries no correctness meaning.
type AllocationSet []Allocation

// SumAllocations is the single total-recomputation function. The draft total
// is always recomputed from scratch through it, never adjusted incrementally.
func SumAllocations(allocations AllocationSet) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Find returns the index of the allocation for an invoice id, or -1
func (s AllocationSet) Find(invoiceID uuid.UUID) int {
	for i := range s {
		if s[i].InvoiceID == invoiceID {
			return i
		}
	}
	return -1
}

// Contains returns true if an allocation exists for the invoice id
func (s AllocationSet) Contains(invoiceID uuid.UUID) bool {
	return s.Find(invoiceID) >= 0
}

// ParseRawAmount turns untrusted user input into a decimal amount.
// Malformed or empty text parses as zero; clamping happens at the call site.
func ParseRawAmount(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ClampAmount constrains an amount into [0, ceiling]
func ClampAmount(amount, ceiling decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(ceiling) {
		return ceiling
	}
	return amount
}
