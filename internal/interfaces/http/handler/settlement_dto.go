package handler

import (
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StartDraftRequest opens a draft editing session
type StartDraftRequest struct {
	Kind             string    `json:"kind" binding:"required,voucherkind"`
	CounterpartyID   uuid.UUID `json:"counterparty_id" binding:"required"`
	CounterpartyName string    `json:"counterparty_name"`
	VoucherDate      time.Time `json:"voucher_date"`
}

// ToggleInvoiceRequest toggles one pool invoice in a draft
type ToggleInvoiceRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
}

// SetAmountRequest edits the settled amount of a selected invoice.
// Amount is raw form text; parsing and clamping happen in the domain.
type SetAmountRequest struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
	Amount    string    `json:"amount"`
}

// ChangeCounterpartyRequest switches the draft to a new counterparty
type ChangeCounterpartyRequest struct {
	CounterpartyID   uuid.UUID `json:"counterparty_id" binding:"required"`
	CounterpartyName string    `json:"counterparty_name"`
}

// UpdateDraftRequest edits draft details; absent fields are left unchanged
type UpdateDraftRequest struct {
	Method      *settlement.MethodDetails `json:"method,omitempty"`
	Narration   *string                   `json:"narration,omitempty"`
	VoucherDate *time.Time                `json:"voucher_date,omitempty"`
}

// CancelVoucherRequest cancels a posted voucher
type CancelVoucherRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// OutstandingInvoicesRequest queries the invoice pool for a counterparty
type OutstandingInvoicesRequest struct {
	CounterpartyID uuid.UUID `form:"counterparty_id" binding:"required"`
	Role           string    `form:"role" binding:"required,counterpartyrole"`
}

// ListVouchersRequest carries voucher list filters
type ListVouchersRequest struct {
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	Kind           string     `form:"kind" binding:"omitempty,voucherkind"`
	CounterpartyID *uuid.UUID `form:"counterparty_id"`
	Status         string     `form:"status" binding:"omitempty,oneof=POSTED CANCELLED"`
	Method         string     `form:"method" binding:"omitempty,paymentmethod"`
	FromDate       *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate         *time.Time `form:"to_date" time_format:"2006-01-02"`
}

// InvoiceResponse is the API projection of an outstanding invoice
type InvoiceResponse struct {
	ID                uuid.UUID       `json:"id"`
	InvoiceNumber     string          `json:"invoice_number"`
	CounterpartyID    uuid.UUID       `json:"counterparty_id"`
	CounterpartyName  string          `json:"counterparty_name"`
	Role              string          `json:"role"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	SettledAmount     decimal.Decimal `json:"settled_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Status            string          `json:"status"`
	IssuedDate        time.Time       `json:"issued_date"`
	TransactionRef    string          `json:"transaction_ref,omitempty"`
}

// ToInvoiceResponse maps an invoice aggregate to its API projection
func ToInvoiceResponse(inv settlement.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		CounterpartyID:    inv.CounterpartyID,
		CounterpartyName:  inv.CounterpartyName,
		Role:              string(inv.CounterpartyRole),
		TotalAmount:       inv.TotalAmount,
		SettledAmount:     inv.SettledAmount,
		OutstandingAmount: inv.OutstandingAmount,
		Status:            string(inv.Status),
		IssuedDate:        inv.IssuedDate,
		TransactionRef:    inv.TransactionRef,
	}
}

// ToInvoiceResponses maps a slice of invoices
func ToInvoiceResponses(invoices []settlement.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, ToInvoiceResponse(inv))
	}
	return out
}

// PoolInvoiceResponse is the API projection of one pool entry
type PoolInvoiceResponse struct {
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	AllocatableAmount decimal.Decimal `json:"allocatable_amount"`
	IssuedDate        time.Time       `json:"issued_date"`
	TransactionRef    string          `json:"transaction_ref,omitempty"`
}

// DraftPoolResponse is the API projection of the loaded invoice pool
type DraftPoolResponse struct {
	CounterpartyID uuid.UUID             `json:"counterparty_id"`
	Role           string                `json:"role"`
	Invoices       []PoolInvoiceResponse `json:"invoices"`
}

// DraftResponse is the API projection of a draft editing session. Internal
// bookkeeping fields (tenant scope, creation time) are not exposed.
type DraftResponse struct {
	SessionID        string                    `json:"session_id"`
	Kind             string                    `json:"kind"`
	CounterpartyID   uuid.UUID                 `json:"counterparty_id"`
	CounterpartyName string                    `json:"counterparty_name"`
	Role             string                    `json:"role"`
	VoucherDate      time.Time                 `json:"voucher_date"`
	Narration        string                    `json:"narration,omitempty"`
	Method           settlement.MethodDetails  `json:"method"`
	Pool             DraftPoolResponse         `json:"pool"`
	Allocations      []AllocationResponse      `json:"allocations"`
	TotalAllocated   decimal.Decimal           `json:"total_allocated"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// ToDraftResponse maps a draft to its API projection
func ToDraftResponse(d *settlement.VoucherDraft) DraftResponse {
	pool := DraftPoolResponse{
		CounterpartyID: d.Pool.CounterpartyID,
		Role:           string(d.Pool.Role),
		Invoices:       make([]PoolInvoiceResponse, 0, len(d.Pool.Invoices)),
	}
	for _, entry := range d.Pool.Invoices {
		pool.Invoices = append(pool.Invoices, PoolInvoiceResponse{
			InvoiceID:         entry.InvoiceID,
			InvoiceNumber:     entry.InvoiceNumber,
			AllocatableAmount: entry.AllocatableAmount,
			IssuedDate:        entry.IssuedDate,
			TransactionRef:    entry.TransactionRef,
		})
	}

	allocations := make([]AllocationResponse, 0, len(d.Allocations))
	for _, a := range d.Allocations {
		allocations = append(allocations, AllocationResponse{
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			Amount:        a.Amount,
			Balance:       a.Balance,
		})
	}

	return DraftResponse{
		SessionID:        d.SessionID,
		Kind:             string(d.Kind),
		CounterpartyID:   d.CounterpartyID,
		CounterpartyName: d.CounterpartyName,
		Role:             string(d.Role),
		VoucherDate:      d.VoucherDate,
		Narration:        d.Narration,
		Method:           d.Method,
		Pool:             pool,
		Allocations:      allocations,
		TotalAllocated:   d.TotalAllocated,
		UpdatedAt:        d.UpdatedAt,
	}
}

// AllocationResponse is the API projection of a frozen voucher allocation
type AllocationResponse struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}

// VoucherResponse is the API projection of a posted voucher
type VoucherResponse struct {
	ID               uuid.UUID            `json:"id"`
	VoucherNumber    string               `json:"voucher_number"`
	Kind             string               `json:"kind"`
	CounterpartyID   uuid.UUID            `json:"counterparty_id"`
	CounterpartyName string               `json:"counterparty_name"`
	Role             string               `json:"role"`
	Amount           decimal.Decimal      `json:"amount"`
	Method           string               `json:"method"`
	MethodReference  string               `json:"method_reference,omitempty"`
	Status           string               `json:"status"`
	VoucherDate      time.Time            `json:"voucher_date"`
	Narration        string               `json:"narration,omitempty"`
	Allocations      []AllocationResponse `json:"allocations"`
	CancelledAt      *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason     string               `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// ToVoucherResponse maps a voucher aggregate to its API projection
func ToVoucherResponse(v *settlement.Voucher) VoucherResponse {
	allocations := make([]AllocationResponse, 0, len(v.Allocations))
	for _, a := range v.Allocations {
		allocations = append(allocations, AllocationResponse{
			InvoiceID:     a.InvoiceID,
			InvoiceNumber: a.InvoiceNumber,
			Amount:        a.Amount,
			Balance:       a.Balance,
		})
	}

	return VoucherResponse{
		ID:               v.ID,
		VoucherNumber:    v.VoucherNumber,
		Kind:             string(v.Kind),
		CounterpartyID:   v.CounterpartyID,
		CounterpartyName: v.CounterpartyName,
		Role:             string(v.Role),
		Amount:           v.Amount,
		Method:           string(v.Method),
		MethodReference:  v.MethodReference,
		Status:           string(v.Status),
		VoucherDate:      v.VoucherDate,
		Narration:        v.Narration,
		Allocations:      allocations,
		CancelledAt:      v.CancelledAt,
		CancelReason:     v.CancelReason,
		CreatedAt:        v.CreatedAt,
	}
}

// ToVoucherResponses maps a slice of vouchers
func ToVoucherResponses(vouchers []settlement.Voucher) []VoucherResponse {
	out := make([]VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		out = append(out, ToVoucherResponse(&vouchers[i]))
	}
	return out
}
