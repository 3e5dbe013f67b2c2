package repositories

import (
	"context"
	"errors"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateReferralCode is returned when an insert collides on the unique
// referral_code column; the caller regenerates the code and retries.
var ErrDuplicateReferralCode = errors.New("referral code already in use")

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByReferralCode(ctx context.Context, code string) (*models.Account, error)
	ListCustomersOfReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.Account, error)
	CountCustomersOfReseller(ctx context.Context, resellerID uuid.UUID) (int, error)
}

type accountRepo struct {
	db Database
}

func NewAccountRepo(db Database) AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, email, name, role, reseller_id, referral_code, referred_by, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.Email, &account.Name, &account.Role, &account.ResellerID, &account.ReferralCode, &account.ReferredBy, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepo) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, name, role, reseller_id, referral_code, referred_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, account.ID, account.Email, account.Name, account.Role, account.ResellerID, account.ReferralCode, account.ReferredBy)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "accounts_referral_code_key" {
		return ErrDuplicateReferralCode
	}
	return err
}

func (r *accountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

func (r *accountRepo) GetByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE referral_code = $1`
	return scanAccount(r.db.QueryRow(ctx, query, code))
}

// ListCustomersOfReseller is a flat filter: the reseller hierarchy is exactly
// one level deep, so no tree walk is needed.
func (r *accountRepo) ListCustomersOfReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE reseller_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, resellerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *accountRepo) CountCustomersOfReseller(ctx context.Context, resellerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE reseller_id = $1`, resellerID).Scan(&count)
	return count, err
}
