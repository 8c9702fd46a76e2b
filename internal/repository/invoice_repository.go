package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Invoice status values
const (
	InvoiceDraft = "draft"
	InvoiceOpen  = "open"
	InvoicePaid  = "paid"
)

type Invoice struct {
	ID             string          `db:"id" json:"id"`
	OrganizationID string          `db:"organization_id" json:"organizationId"`
	Number         string          `db:"number" json:"number"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Currency       string          `db:"currency" json:"currency"`
	Status         string          `db:"status" json:"status"`
	IssuedAt       *time.Time      `db:"issued_at" json:"issuedAt,omitempty"`
	PaidAt         *time.Time      `db:"paid_at" json:"paidAt,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, id string) (*Invoice, error)
	FindByOrganization(ctx context.Context, orgID string) ([]*Invoice, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type sqlxInvoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) InvoiceRepository {
	return &sqlxInvoiceRepository{db: db}
}

func (r *sqlxInvoiceRepository) Create(ctx context.Context, invoice *Invoice) error {
	query := `
		INSERT INTO invoices (organization_id, number, amount, currency, status, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		invoice.OrganizationID, invoice.Number, invoice.Amount, invoice.Currency,
		invoice.Status, invoice.IssuedAt,
	).Scan(&invoice.ID, &invoice.CreatedAt)
}

func (r *sqlxInvoiceRepository) FindByID(ctx context.Context, id string) (*Invoice, error) {
	invoice := &Invoice{}
	err := r.db.GetContext(ctx, invoice, `SELECT * FROM invoices WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *sqlxInvoiceRepository) FindByOrganization(ctx context.Context, orgID string) ([]*Invoice, error) {
	var invoices []*Invoice
	err := r.db.SelectContext(ctx, &invoices,
		`SELECT * FROM invoices WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	return invoices, err
}

func (r *sqlxInvoiceRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE invoices
		SET status = $2,
		    issued_at = CASE WHEN $2 = 'open' THEN NOW() ELSE issued_at END,
		    paid_at = CASE WHEN $2 = 'paid' THEN NOW() ELSE paid_at END
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}
