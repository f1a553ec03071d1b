package settlement

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VoucherService handles queries and lifecycle operations on posted vouchers
type VoucherService struct {
	voucherRepo settlement.VoucherRepository
	invoiceRepo settlement.InvoiceRepository
	logger      *zap.Logger
}

// NewVoucherService creates a new VoucherService
func NewVoucherService(
	voucherRepo settlement.VoucherRepository,
	invoiceRepo settlement.InvoiceRepository,
	logger *zap.Logger,
) *VoucherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoucherService{
		voucherRepo: voucherRepo,
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// ListVouchers returns vouchers for a tenant with filtering and the total count
func (s *VoucherService) ListVouchers(ctx context.Context, tenantID uuid.UUID, filter settlement.VoucherFilter) ([]settlement.Voucher, int64, error) {
	vouchers, err := s.voucherRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vouchers: %w", err)
	}
	total, err := s.voucherRepo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count vouchers: %w", err)
	}
	return vouchers, total, nil
}

// GetVoucher returns one voucher with its allocations
func (s *VoucherService) GetVoucher(ctx context.Context, tenantID, voucherID uuid.UUID) (*settlement.Voucher, error) {
	voucher, err := s.voucherRepo.FindByIDForTenant(ctx, tenantID, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}
	if voucher == nil {
		return nil, shared.ErrNotFound
	}
	return voucher, nil
}

// ListOutstandingInvoices returns the current outstanding invoice pool for a
// counterparty, for display before a draft session is opened
func (s *VoucherService) ListOutstandingInvoices(ctx context.Context, tenantID, counterpartyID uuid.UUID, role settlement.CounterpartyRole) ([]settlement.Invoice, error) {
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Counterparty role is not valid")
	}
	invoices, err := s.invoiceRepo.FindOutstanding(ctx, tenantID, counterpartyID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}
	return invoices, nil
}

// CancelVoucher cancels a posted voucher and reverses the settlement it
// applied to each referenced invoice
func (s *VoucherService) CancelVoucher(ctx context.Context, tenantID, voucherID, cancelledBy uuid.UUID, reason string) (*settlement.Voucher, error) {
	voucher, err := s.voucherRepo.FindByIDForTenant(ctx, tenantID, voucherID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}
	if voucher == nil {
		return nil, shared.ErrNotFound
	}

	if err := voucher.Cancel(cancelledBy, reason); err != nil {
		return nil, err
	}

	reversed := make([]*settlement.Invoice, 0, len(voucher.Allocations))
	for _, alloc := range voucher.Allocations {
		if alloc.Amount.IsZero() {
			continue
		}
		invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, alloc.InvoiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load invoice %s: %w", alloc.InvoiceNumber, err)
		}
		if invoice == nil {
			return nil, shared.NewDomainError("INVOICE_NOT_FOUND", fmt.Sprintf("Invoice %s no longer exists", alloc.InvoiceNumber))
		}
		if err := invoice.ReverseSettlement(valueobject.NewMoneyINR(alloc.Amount)); err != nil {
			return nil, err
		}
		reversed = append(reversed, invoice)
	}

	// One transaction: a failure on any row leaves the voucher posted and
	// every invoice's settlement intact.
	if err := s.voucherRepo.SaveCancelled(ctx, voucher, reversed); err != nil {
		return nil, fmt.Errorf("failed to save cancelled voucher: %w", err)
	}

	s.logger.Info("Voucher cancelled",
		zap.String("voucher_number", voucher.VoucherNumber),
		zap.String("reason", reason),
	)

	return voucher, nil
}
