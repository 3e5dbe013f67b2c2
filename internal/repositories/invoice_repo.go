package repositories

import (
	"context"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StatementLine is one customer's contribution to a reseller's commission
// period, used for the archived CSV statement.
type StatementLine struct {
	AccountID    uuid.UUID `json:"account_id"`
	AccountEmail string    `json:"account_email"`
	InvoiceCount int       `json:"invoice_count"`
	RevenueCents int64     `json:"revenue_cents"`
}

type InvoiceRepository interface {
	// InsertIdempotent inserts the invoice unless a row with the same
	// gateway invoice id exists. It reports whether a new row was written;
	// on a duplicate the stored row is returned untouched.
	InsertIdempotent(ctx context.Context, q Querier, invoice *models.Invoice) (bool, *models.Invoice, error)
	GetByGatewayID(ctx context.Context, gatewayInvoiceID string) (*models.Invoice, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	CountPaidByAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	SumPaidByCommissionPeriod(ctx context.Context, q Querier, periodID uuid.UUID) (int64, error)
	StatementLinesByCommissionPeriod(ctx context.Context, q Querier, periodID uuid.UUID) ([]StatementLine, error)
}

type invoiceRepo struct {
	db Database
}

func NewInvoiceRepo(db Database) InvoiceRepository {
	return &invoiceRepo{db: db}
}

const invoiceColumns = `id, account_id, gateway_invoice_id, amount_cents, status, period_start, period_end, paid_at, commission_period_id, created_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := row.Scan(&invoice.ID, &invoice.AccountID, &invoice.GatewayInvoiceID, &invoice.AmountCents, &invoice.Status, &invoice.PeriodStart, &invoice.PeriodEnd, &invoice.PaidAt, &invoice.CommissionPeriodID, &invoice.CreatedAt)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *invoiceRepo) InsertIdempotent(ctx context.Context, q Querier, invoice *models.Invoice) (bool, *models.Invoice, error) {
	if q == nil {
		q = r.db
	}
	query := `
		INSERT INTO invoices (id, account_id, gateway_invoice_id, amount_cents, status, period_start, period_end, paid_at, commission_period_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (gateway_invoice_id) DO NOTHING
	`
	tag, err := q.Exec(ctx, query, invoice.ID, invoice.AccountID, invoice.GatewayInvoiceID, invoice.AmountCents, invoice.Status, invoice.PeriodStart, invoice.PeriodEnd, invoice.PaidAt, invoice.CommissionPeriodID)
	if err != nil {
		return false, nil, err
	}
	if tag.RowsAffected() == 1 {
		return true, invoice, nil
	}
	existing, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE gateway_invoice_id = $1`, invoice.GatewayInvoiceID))
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (r *invoiceRepo) GetByGatewayID(ctx context.Context, gatewayInvoiceID string) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE gateway_invoice_id = $1`
	return scanInvoice(r.db.QueryRow(ctx, query, gatewayInvoiceID))
}

func (r *invoiceRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) CountPaidByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE account_id = $1 AND status = 'paid'`, accountID).Scan(&count)
	return count, err
}

// SumPaidByCommissionPeriod aggregates countable revenue for a period.
// Failed and pending invoices never contribute.
func (r *invoiceRepo) SumPaidByCommissionPeriod(ctx context.Context, q Querier, periodID uuid.UUID) (int64, error) {
	if q == nil {
		q = r.db
	}
	var sum int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM invoices WHERE commission_period_id = $1 AND status = 'paid'`
	err := q.QueryRow(ctx, query, periodID).Scan(&sum)
	return sum, err
}

func (r *invoiceRepo) StatementLinesByCommissionPeriod(ctx context.Context, q Querier, periodID uuid.UUID) ([]StatementLine, error) {
	if q == nil {
		q = r.db
	}
	query := `
		SELECT i.account_id, a.email, COUNT(*), SUM(i.amount_cents)
		FROM invoices i
		JOIN accounts a ON a.id = i.account_id
		WHERE i.commission_period_id = $1 AND i.status = 'paid'
		GROUP BY i.account_id, a.email
		ORDER BY a.email ASC
	`
	rows, err := q.Query(ctx, query, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []StatementLine
	for rows.Next() {
		var line StatementLine
		if err := rows.Scan(&line.AccountID, &line.AccountEmail, &line.InvoiceCount, &line.RevenueCents); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
