package settlement

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherFilter defines filtering options for voucher queries
type VoucherFilter struct {
	shared.Filter
	Kind           *VoucherKind
	CounterpartyID *uuid.UUID
	Status         *VoucherStatus
	Method         *PaymentMethod
	FromDate       *time.Time
	ToDate         *time.Time
	MinAmount      *decimal.Decimal
	MaxAmount      *decimal.Decimal
}

// InvoiceRepository defines persistence for invoices
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForTenant finds an invoice by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindOutstanding finds all outstanding invoices for a counterparty,
	// oldest issued first
	FindOutstanding(ctx context.Context, tenantID, counterpartyID uuid.UUID, role CounterpartyRole) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// VoucherRepository defines persistence for posted vouchers
type VoucherRepository interface {
	// FindByID finds a voucher by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Voucher, error)

	// FindByIDForTenant finds a voucher by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Voucher, error)

	// FindByVoucherNumber finds by voucher number for a tenant
	FindByVoucherNumber(ctx context.Context, tenantID uuid.UUID, voucherNumber string) (*Voucher, error)

	// FindAllForTenant finds all vouchers for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter VoucherFilter) ([]Voucher, error)

	// CountForTenant counts vouchers for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter VoucherFilter) (int64, error)

	// CountByKindSince counts vouchers of a kind posted on or after a time,
	// used for voucher number sequencing
	CountByKindSince(ctx context.Context, tenantID uuid.UUID, kind VoucherKind, since time.Time) (int64, error)

	// Save creates or updates a voucher together with its allocations
	Save(ctx context.Context, voucher *Voucher) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, voucher *Voucher) error

	// SavePosted atomically creates the voucher with its allocations and
	// persists the settled invoices in one transaction. A voucher number
	// collision reports shared.ErrAlreadyExists; a stale invoice version
	// reports shared.ErrConcurrencyConflict. Either way nothing is written.
	SavePosted(ctx context.Context, voucher *Voucher, settled []*Invoice) error

	// SaveCancelled atomically persists the cancelled voucher and the
	// invoices whose settlement it reversed, both with version checks
	SaveCancelled(ctx context.Context, voucher *Voucher, reversed []*Invoice) error
}

// DraftStore is the injected session-draft key-value store. Drafts live only
// for the duration of one editing session; the engine never reaches into
// ambient mutable state directly.
type DraftStore interface {
	// Load returns the draft for a session, or nil if none is stored
	Load(ctx context.Context, sessionID string) (*VoucherDraft, error)

	// Save stores the draft snapshot for its session
	Save(ctx context.Context, draft *VoucherDraft) error

	// Clear removes the draft for a session; clearing an absent session is
	// not an error
	Clear(ctx context.Context, sessionID string) error
}
