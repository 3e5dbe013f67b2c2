package repositories

import (
	"context"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	GetLiveByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*models.Subscription, error)
	Update(ctx context.Context, subscription *models.Subscription) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Subscription, error)
	ListDueForCancellation(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error)
}

type subscriptionRepo struct {
	db Database
}

func NewSubscriptionRepo(db Database) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, account_id, plan_id, gateway_subscription_id, status, current_period_start, current_period_end, cancel_at_period_end, cancellation_reason, created_at, updated_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(&sub.ID, &sub.AccountID, &sub.PlanID, &sub.GatewaySubscriptionID, &sub.Status, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.CancellationReason, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, subscription *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, account_id, plan_id, gateway_subscription_id, status, current_period_start, current_period_end, cancel_at_period_end, cancellation_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, subscription.ID, subscription.AccountID, subscription.PlanID, subscription.GatewaySubscriptionID, subscription.Status, subscription.CurrentPeriodStart, subscription.CurrentPeriodEnd, subscription.CancelAtPeriodEnd, subscription.CancellationReason)
	return err
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

// GetLiveByAccount returns the account's single live subscription row, or
// pgx.ErrNoRows. A partial unique index on (account_id) WHERE status IN the
// live set backs the one-live-row invariant at the store level.
func (r *subscriptionRepo) GetLiveByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE account_id = $1 AND status IN ('pending_payment', 'active', 'past_due', 'canceling')
	`
	return scanSubscription(r.db.QueryRow(ctx, query, accountID))
}

func (r *subscriptionRepo) GetByGatewayID(ctx context.Context, gatewayID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE gateway_subscription_id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, gatewayID))
}

func (r *subscriptionRepo) Update(ctx context.Context, subscription *models.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $1, current_period_start = $2, current_period_end = $3, cancel_at_period_end = $4, cancellation_reason = $5, updated_at = NOW()
		WHERE id = $6
	`
	_, err := r.db.Exec(ctx, query, subscription.Status, subscription.CurrentPeriodStart, subscription.CurrentPeriodEnd, subscription.CancelAtPeriodEnd, subscription.CancellationReason, subscription.ID)
	return err
}

func (r *subscriptionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListDueForCancellation feeds the reconciliation sweep: live rows flagged
// for cancellation whose period has already ended.
func (r *subscriptionRepo) ListDueForCancellation(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE cancel_at_period_end
		  AND status IN ('active', 'past_due', 'canceling')
		  AND current_period_end <= $1
		ORDER BY current_period_end ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
