package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aurora-ops/aurora-backend/internal/permission"
	"github.com/aurora-ops/aurora-backend/internal/repository"
	"github.com/shopspring/decimal"
)

// ============================================
// Invoice Service
// ============================================

type InvoiceService interface {
	Create(ctx context.Context, userID, orgID string, amount decimal.Decimal, currency string) (*repository.Invoice, error)
	Get(ctx context.Context, userID, orgID, invoiceID string) (*repository.Invoice, error)
	ListByOrganization(ctx context.Context, userID, orgID string) ([]*repository.Invoice, error)
	Issue(ctx context.Context, userID, orgID, invoiceID string) error
	MarkPaid(ctx context.Context, userID, orgID, invoiceID string) error
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	perms       PermissionService
}

func NewInvoiceService(invoiceRepo repository.InvoiceRepository, perms PermissionService) InvoiceService {
	return &invoiceService{invoiceRepo: invoiceRepo, perms: perms}
}

func (s *invoiceService) Create(ctx context.Context, userID, orgID string, amount decimal.Decimal, currency string) (*repository.Invoice, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationWrite); err != nil {
		return nil, err
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, ErrInvalidInput
	}
	if currency == "" {
		currency = "USD"
	}

	invoice := &repository.Invoice{
		OrganizationID: orgID,
		Number:         fmt.Sprintf("INV-%d", time.Now().UnixNano()),
		Amount:         amount,
		Currency:       currency,
		Status:         repository.InvoiceDraft,
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return invoice, nil
}

func (s *invoiceService) Get(ctx context.Context, userID, orgID, invoiceID string) (*repository.Invoice, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationRead); err != nil {
		return nil, err
	}
	return s.ownedInvoice(ctx, orgID, invoiceID)
}

func (s *invoiceService) ListByOrganization(ctx context.Context, userID, orgID string) ([]*repository.Invoice, error) {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationRead); err != nil {
		return nil, err
	}
	return s.invoiceRepo.FindByOrganization(ctx, orgID)
}

func (s *invoiceService) Issue(ctx context.Context, userID, orgID, invoiceID string) error {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationWrite); err != nil {
		return err
	}

	invoice, err := s.ownedInvoice(ctx, orgID, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status != repository.InvoiceDraft {
		return ErrConflict
	}
	return s.invoiceRepo.UpdateStatus(ctx, invoiceID, repository.InvoiceOpen)
}

func (s *invoiceService) MarkPaid(ctx context.Context, userID, orgID, invoiceID string) error {
	if err := s.perms.Require(ctx, userID, orgID, permission.OrganizationWrite); err != nil {
		return err
	}

	invoice, err := s.ownedInvoice(ctx, orgID, invoiceID)
	if err != nil {
		return err
	}
	if invoice.Status != repository.InvoiceOpen {
		return ErrConflict
	}
	return s.invoiceRepo.UpdateStatus(ctx, invoiceID, repository.InvoicePaid)
}

func (s *invoiceService) ownedInvoice(ctx context.Context, orgID, invoiceID string) (*repository.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil || invoice.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return invoice, nil
}
