package repositories

import (
	"context"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
)

type CreditRepository interface {
	// InsertOncePerReferral writes the reward credit unless one already
	// exists for the referral; the unique referral_id column is the
	// issued-exactly-once guard.
	InsertOncePerReferral(ctx context.Context, credit *models.AccountCredit) (bool, error)
	SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type creditRepo struct {
	db Database
}

func NewCreditRepo(db Database) CreditRepository {
	return &creditRepo{db: db}
}

func (r *creditRepo) InsertOncePerReferral(ctx context.Context, credit *models.AccountCredit) (bool, error) {
	query := `
		INSERT INTO account_credits (id, account_id, referral_id, amount_cents, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (referral_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, credit.ID, credit.AccountID, credit.ReferralID, credit.AmountCents, credit.Reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *creditRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM account_credits WHERE account_id = $1`, accountID).Scan(&sum)
	return sum, err
}
