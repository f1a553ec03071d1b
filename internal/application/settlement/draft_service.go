package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DraftService orchestrates one voucher-draft editing session: loading the
// invoice pool, driving the allocation engine, and freezing the draft into a
// posted voucher on submit. Draft snapshots round-trip through the injected
// DraftStore after every mutation.
type DraftService struct {
	invoiceRepo settlement.InvoiceRepository
	voucherRepo settlement.VoucherRepository
	draftStore  settlement.DraftStore
	logger      *zap.Logger
}

// NewDraftService creates a new DraftService
func NewDraftService(
	invoiceRepo settlement.InvoiceRepository,
	voucherRepo settlement.VoucherRepository,
	draftStore settlement.DraftStore,
	logger *zap.Logger,
) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		invoiceRepo: invoiceRepo,
		voucherRepo: voucherRepo,
		draftStore:  draftStore,
		logger:      logger,
	}
}

// StartDraftRequest carries the inputs for opening a draft session
type StartDraftRequest struct {
	TenantID         uuid.UUID
	Kind             settlement.VoucherKind
	CounterpartyID   uuid.UUID
	CounterpartyName string
	VoucherDate      time.Time
}

// StartDraft opens a new draft session for a counterparty. The outstanding
// invoice pool is fetched fresh and the allocation state starts empty.
func (s *DraftService) StartDraft(ctx context.Context, req StartDraftRequest) (*settlement.VoucherDraft, error) {
	if !req.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Voucher kind is not valid")
	}
	if req.CounterpartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COUNTERPARTY", "Counterparty ID cannot be empty")
	}

	pool, name, err := s.loadPool(ctx, req.TenantID, req.CounterpartyID, settlement.RoleForKind(req.Kind))
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = req.CounterpartyName
	}

	draft, err := settlement.NewVoucherDraft(
		uuid.NewString(),
		req.TenantID,
		req.Kind,
		req.CounterpartyID,
		name,
		req.VoucherDate,
		pool,
	)
	if err != nil {
		return nil, err
	}

	if err := s.draftStore.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	s.logger.Info("Draft session started",
		zap.String("session_id", draft.SessionID),
		zap.String("kind", string(draft.Kind)),
		zap.String("counterparty_id", draft.CounterpartyID.String()),
		zap.Int("pool_size", len(pool.Invoices)),
	)

	return draft, nil
}

// GetDraft reloads a draft session snapshot from the store
func (s *DraftService) GetDraft(ctx context.Context, sessionID string) (*settlement.VoucherDraft, error) {
	return s.loadDraft(ctx, sessionID)
}

// ToggleInvoice selects or deselects a pool invoice in the session's draft
func (s *DraftService) ToggleInvoice(ctx context.Context, sessionID string, invoiceID uuid.UUID) (*settlement.VoucherDraft, error) {
	draft, err := s.loadDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := draft.ToggleInvoice(invoiceID); err != nil {
		return nil, err
	}
	if err := s.draftStore.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

// SetAllocationAmount edits the settled amount for a selected invoice.
// rawAmount is passed through untrusted; parsing and clamping happen in the
// allocation engine.
func (s *DraftService) SetAllocationAmount(ctx context.Context, sessionID string, invoiceID uuid.UUID, rawAmount string) (*settlement.VoucherDraft, error) {
	draft, err := s.loadDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := draft.SetAllocationAmount(invoiceID, rawAmount); err != nil {
		return nil, err
	}
	if err := s.draftStore.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

// UpdateDraftRequest carries optional draft detail edits
type UpdateDraftRequest struct {
	Method      *settlement.MethodDetails
	Narration   *string
	VoucherDate *time.Time
}

// UpdateDetails edits narration, voucher date and payment method details
func (s *DraftService) UpdateDetails(ctx context.Context, sessionID string, req UpdateDraftRequest) (*settlement.VoucherDraft, error) {
	draft, err := s.loadDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if req.Method != nil {
		draft.SetMethod(*req.Method)
	}
	if req.Narration != nil {
		draft.SetNarration(*req.Narration)
	}
	if req.VoucherDate != nil {
		draft.SetVoucherDate(*req.VoucherDate)
	}
	if err := s.draftStore.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

// ChangeCounterparty switches the draft to a new counterparty, resetting all
// allocations and reloading the invoice pool
func (s *DraftService) ChangeCounterparty(ctx context.Context, sessionID string, counterpartyID uuid.UUID, counterpartyName string) (*settlement.VoucherDraft, error) {
	draft, err := s.loadDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pool, name, err := s.loadPool(ctx, draft.TenantID, counterpartyID, draft.Role)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = counterpartyName
	}

	if err := draft.ChangeCounterparty(counterpartyID, name, pool); err != nil {
		return nil, err
	}
	if err := s.draftStore.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	s.logger.Info("Draft counterparty changed",
		zap.String("session_id", sessionID),
		zap.String("counterparty_id", counterpartyID.String()),
	)

	return draft, nil
}

// DiscardDraft drops the session's draft. Nothing was persisted, so there is
// nothing else to clean up.
func (s *DraftService) DiscardDraft(ctx context.Context, sessionID string) error {
	if err := s.draftStore.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// maxSequenceAttempts bounds resequencing when concurrent submits collide on
// the same voucher number
const maxSequenceAttempts = 3

// SubmitDraft validates the draft, freezes it into a posted voucher, applies
// settlement to the referenced invoices and clears the session. Voucher and
// invoices are persisted in one transaction, so validation or persistence
// failures leave the draft stored and every invoice untouched, editable for
// correction and resubmission.
func (s *DraftService) SubmitDraft(ctx context.Context, sessionID string) (*settlement.Voucher, error) {
	draft, err := s.loadDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if errs := draft.Validate(); errs.HasErrors() {
		return nil, errs
	}

	settled := make([]*settlement.Invoice, 0, len(draft.Allocations))
	for _, alloc := range draft.Allocations {
		if alloc.Amount.IsZero() {
			continue
		}
		invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, draft.TenantID, alloc.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load invoice %s: %w", alloc.InvoiceNumber, err)
		}
		if invoice == nil {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", fmt.Sprintf("Invoice %s no longer exists", alloc.InvoiceNumber))
		}
		if err := invoice.ApplySettlement(valueobject.NewMoneyINR(alloc.Amount)); err != nil {
			return nil, err
		}
		settled = append(settled, invoice)
	}

	// A concurrent submit can claim the same sequence number between the
	// count and the insert; the unique index rejects the loser, who
	// resequences and tries again.
	var voucher *settlement.Voucher
	for attempt := 1; ; attempt++ {
		voucherNumber, err := s.nextVoucherNumber(ctx, draft.TenantID, draft.Kind, draft.VoucherDate)
		if err != nil {
			return nil, err
		}

		voucher, err = settlement.NewVoucherFromDraft(draft, voucherNumber)
		if err != nil {
			return nil, err
		}

		err = s.voucherRepo.SavePosted(ctx, voucher, settled)
		if err == nil {
			break
		}
		if errors.Is(err, shared.ErrAlreadyExists) && attempt < maxSequenceAttempts {
			s.logger.Warn("Voucher number collision, resequencing",
				zap.String("session_id", sessionID),
				zap.String("voucher_number", voucherNumber),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.ErrConcurrencyConflict
		}
		return nil, fmt.Errorf("failed to post voucher: %w", err)
	}

	if err := s.draftStore.Clear(ctx, sessionID); err != nil {
		// The voucher is posted; a stale draft is only a nuisance.
		s.logger.Warn("Failed to clear submitted draft",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	s.logger.Info("Voucher posted",
		zap.String("voucher_number", voucher.VoucherNumber),
		zap.String("kind", string(voucher.Kind)),
		zap.String("amount", voucher.Amount.String()),
		zap.Int("allocations", voucher.AllocationCount()),
	)

	return voucher, nil
}

// loadDraft fetches a session draft or reports DRAFT_NOT_FOUND
func (s *DraftService) loadDraft(ctx context.Context, sessionID string) (*settlement.VoucherDraft, error) {
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Draft session ID cannot be empty")
	}
	draft, err := s.draftStore.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft == nil {
		return nil, shared.NewDomainError("DRAFT_NOT_FOUND", "No draft exists for this session")
	}
	return draft, nil
}

// loadPool fetches the outstanding invoices for a counterparty and builds the
// pool snapshot. The counterparty display name is taken from the invoices.
func (s *DraftService) loadPool(ctx context.Context, tenantID, counterpartyID uuid.UUID, role settlement.CounterpartyRole) (settlement.InvoicePool, string, error) {
	invoices, err := s.invoiceRepo.FindOutstanding(ctx, tenantID, counterpartyID, role)
	if err != nil {
		return settlement.InvoicePool{}, "", fmt.Errorf("failed to load outstanding invoices: %w", err)
	}

	name := ""
	if len(invoices) > 0 {
		name = invoices[0].CounterpartyName
	}

	return settlement.NewInvoicePool(counterpartyID, role, invoices), name, nil
}

// nextVoucherNumber generates PV-/RV-YYYY-NNNNN sequenced per tenant and year
func (s *DraftService) nextVoucherNumber(ctx context.Context, tenantID uuid.UUID, kind settlement.VoucherKind, date time.Time) (string, error) {
	prefix := "PV"
	if kind == settlement.KindReceipt {
		prefix = "RV"
	}

	yearStart := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, date.Location())
	count, err := s.voucherRepo.CountByKindSince(ctx, tenantID, kind, yearStart)
	if err != nil {
		return "", fmt.Errorf("failed to sequence voucher number: %w", err)
	}

	return fmt.Sprintf("%s-%d-%05d", prefix, date.Year(), count+1), nil
}
