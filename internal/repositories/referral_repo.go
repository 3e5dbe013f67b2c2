package repositories

import (
	"context"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReferralRepository interface {
	Create(ctx context.Context, referral *models.Referral) error
	GetByReferredID(ctx context.Context, referredID uuid.UUID) (*models.Referral, error)
	// CompleteIfPending flips pending -> completed in one statement and
	// reports whether this call performed the transition. Concurrent or
	// repeated notifications for the same account see false and stop.
	CompleteIfPending(ctx context.Context, id uuid.UUID, rewardCents int64, completedAt time.Time) (bool, error)
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	ListByReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*models.Referral, error)
	StatsByReferrer(ctx context.Context, referrerID uuid.UUID) (*models.ReferralStats, error)
}

type referralRepo struct {
	db Database
}

func NewReferralRepo(db Database) ReferralRepository {
	return &referralRepo{db: db}
}

const referralColumns = `id, referrer_id, referred_id, status, reward_cents, created_at, completed_at`

func scanReferral(row pgx.Row) (*models.Referral, error) {
	referral := &models.Referral{}
	err := row.Scan(&referral.ID, &referral.ReferrerID, &referral.ReferredID, &referral.Status, &referral.RewardCents, &referral.CreatedAt, &referral.CompletedAt)
	if err != nil {
		return nil, err
	}
	return referral, nil
}

func (r *referralRepo) Create(ctx context.Context, referral *models.Referral) error {
	query := `
		INSERT INTO referrals (id, referrer_id, referred_id, status, reward_cents, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), $6)
		ON CONFLICT (referred_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, referral.ID, referral.ReferrerID, referral.ReferredID, referral.Status, referral.RewardCents, referral.CompletedAt)
	return err
}

func (r *referralRepo) GetByReferredID(ctx context.Context, referredID uuid.UUID) (*models.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referred_id = $1`
	return scanReferral(r.db.QueryRow(ctx, query, referredID))
}

func (r *referralRepo) CompleteIfPending(ctx context.Context, id uuid.UUID, rewardCents int64, completedAt time.Time) (bool, error) {
	query := `
		UPDATE referrals
		SET status = 'completed', reward_cents = $1, completed_at = $2
		WHERE id = $3 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, rewardCents, completedAt, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireOlderThan sweeps stale pending referrals to expired. Expired
// referrals never issue rewards, even if a late payment arrives afterwards.
func (r *referralRepo) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE referrals SET status = 'expired' WHERE status = 'pending' AND created_at < $1`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *referralRepo) ListByReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*models.Referral, error) {
	query := `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, referrerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var referrals []*models.Referral
	for rows.Next() {
		referral, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, referral)
	}
	return referrals, rows.Err()
}

func (r *referralRepo) StatsByReferrer(ctx context.Context, referrerID uuid.UUID) (*models.ReferralStats, error) {
	stats := &models.ReferralStats{}
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(reward_cents) FILTER (WHERE status = 'completed'), 0)
		FROM referrals
		WHERE referrer_id = $1
	`
	err := r.db.QueryRow(ctx, query, referrerID).Scan(&stats.TotalReferred, &stats.Completed, &stats.Pending, &stats.TotalEarnedCents)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
