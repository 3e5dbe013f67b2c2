package repositories

import (
	"context"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CommissionPeriodRepository interface {
	// OpenPeriodForUpdate returns the reseller's open period for the given
	// key, creating it if absent, and holds a row lock on it until the
	// caller's transaction ends. Invoice recording and period close both go
	// through this lock, so a close can never race an invoice write for the
	// same reseller. The statement honors the transaction's lock_timeout.
	OpenPeriodForUpdate(ctx context.Context, tx pgx.Tx, resellerID uuid.UUID, key string, start, end time.Time) (*models.CommissionPeriod, error)
	GetPeriodForUpdate(ctx context.Context, tx pgx.Tx, resellerID uuid.UUID, key string) (*models.CommissionPeriod, error)
	GetPeriod(ctx context.Context, resellerID uuid.UUID, key string) (*models.CommissionPeriod, error)
	Close(ctx context.Context, tx pgx.Tx, periodID uuid.UUID, revenueCents, commissionCents int64, rate float64, closedAt time.Time) error
	SetStatementObject(ctx context.Context, periodID uuid.UUID, object string) error
	MarkPaid(ctx context.Context, periodID uuid.UUID, paidAt time.Time) (bool, error)
	ListByReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.CommissionPeriod, error)
}

type commissionPeriodRepo struct {
	db Database
}

func NewCommissionPeriodRepo(db Database) CommissionPeriodRepository {
	return &commissionPeriodRepo{db: db}
}

const commissionPeriodColumns = `id, reseller_id, period_key, period_start, period_end, status, revenue_cents, commission_cents, rate_applied, statement_object, closed_at, paid_at, created_at`

func scanCommissionPeriod(row pgx.Row) (*models.CommissionPeriod, error) {
	period := &models.CommissionPeriod{}
	err := row.Scan(&period.ID, &period.ResellerID, &period.PeriodKey, &period.PeriodStart, &period.PeriodEnd, &period.Status, &period.RevenueCents, &period.CommissionCents, &period.RateApplied, &period.StatementObject, &period.ClosedAt, &period.PaidAt, &period.CreatedAt)
	if err != nil {
		return nil, err
	}
	return period, nil
}

func (r *commissionPeriodRepo) OpenPeriodForUpdate(ctx context.Context, tx pgx.Tx, resellerID uuid.UUID, key string, start, end time.Time) (*models.CommissionPeriod, error) {
	insert := `
		INSERT INTO commission_periods (id, reseller_id, period_key, period_start, period_end, status, revenue_cents, commission_cents, rate_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, 'open', 0, 0, 0, NOW())
		ON CONFLICT (reseller_id, period_key) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insert, uuid.New(), resellerID, key, start, end); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + commissionPeriodColumns + `
		FROM commission_periods
		WHERE reseller_id = $1 AND period_key = $2
		FOR UPDATE
	`
	return scanCommissionPeriod(tx.QueryRow(ctx, query, resellerID, key))
}

func (r *commissionPeriodRepo) GetPeriodForUpdate(ctx context.Context, tx pgx.Tx, resellerID uuid.UUID, key string) (*models.CommissionPeriod, error) {
	query := `
		SELECT ` + commissionPeriodColumns + `
		FROM commission_periods
		WHERE reseller_id = $1 AND period_key = $2
		FOR UPDATE
	`
	return scanCommissionPeriod(tx.QueryRow(ctx, query, resellerID, key))
}

func (r *commissionPeriodRepo) GetPeriod(ctx context.Context, resellerID uuid.UUID, key string) (*models.CommissionPeriod, error) {
	query := `SELECT ` + commissionPeriodColumns + ` FROM commission_periods WHERE reseller_id = $1 AND period_key = $2`
	return scanCommissionPeriod(r.db.QueryRow(ctx, query, resellerID, key))
}

func (r *commissionPeriodRepo) Close(ctx context.Context, tx pgx.Tx, periodID uuid.UUID, revenueCents, commissionCents int64, rate float64, closedAt time.Time) error {
	query := `
		UPDATE commission_periods
		SET status = 'closed', revenue_cents = $1, commission_cents = $2, rate_applied = $3, closed_at = $4
		WHERE id = $5 AND status = 'open'
	`
	tag, err := tx.Exec(ctx, query, revenueCents, commissionCents, rate, closedAt, periodID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commissionPeriodRepo) SetStatementObject(ctx context.Context, periodID uuid.UUID, object string) error {
	_, err := r.db.Exec(ctx, `UPDATE commission_periods SET statement_object = $1 WHERE id = $2`, object, periodID)
	return err
}

func (r *commissionPeriodRepo) MarkPaid(ctx context.Context, periodID uuid.UUID, paidAt time.Time) (bool, error) {
	query := `UPDATE commission_periods SET status = 'paid', paid_at = $1 WHERE id = $2 AND status = 'closed'`
	tag, err := r.db.Exec(ctx, query, paidAt, periodID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *commissionPeriodRepo) ListByReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.CommissionPeriod, error) {
	query := `
		SELECT ` + commissionPeriodColumns + `
		FROM commission_periods
		WHERE reseller_id = $1
		ORDER BY period_key DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, resellerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []*models.CommissionPeriod
	for rows.Next() {
		period, err := scanCommissionPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}
