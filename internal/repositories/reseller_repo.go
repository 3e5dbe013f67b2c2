package repositories

import (
	"context"
	"errors"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateTierMinimum is returned when a tier insert collides with an
// existing tier at the same minimum revenue for the reseller.
var ErrDuplicateTierMinimum = errors.New("tier with this minimum revenue already exists")

type ResellerRepository interface {
	GetSettings(ctx context.Context, accountID uuid.UUID) (*models.ResellerSettings, error)
	UpsertSettings(ctx context.Context, settings *models.ResellerSettings) error
	CreateTier(ctx context.Context, tier *models.CommissionTier) error
	DeactivateTier(ctx context.Context, resellerID, tierID uuid.UUID) error
	ListActiveTiers(ctx context.Context, q Querier, resellerID uuid.UUID) ([]*models.CommissionTier, error)
}

type resellerRepo struct {
	db Database
}

func NewResellerRepo(db Database) ResellerRepository {
	return &resellerRepo{db: db}
}

func (r *resellerRepo) GetSettings(ctx context.Context, accountID uuid.UUID) (*models.ResellerSettings, error) {
	settings := &models.ResellerSettings{}
	query := `
		SELECT account_id, brand_name, support_email, max_customers, max_domains_per_customer, max_mailboxes_per_domain, created_at, updated_at
		FROM reseller_settings
		WHERE account_id = $1
	`
	err := r.db.QueryRow(ctx, query, accountID).Scan(&settings.AccountID, &settings.BrandName, &settings.SupportEmail, &settings.MaxCustomers, &settings.MaxDomainsPerCustomer, &settings.MaxMailboxesPerDomain, &settings.CreatedAt, &settings.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *resellerRepo) UpsertSettings(ctx context.Context, settings *models.ResellerSettings) error {
	query := `
		INSERT INTO reseller_settings (account_id, brand_name, support_email, max_customers, max_domains_per_customer, max_mailboxes_per_domain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			brand_name = EXCLUDED.brand_name,
			support_email = EXCLUDED.support_email,
			max_customers = EXCLUDED.max_customers,
			max_domains_per_customer = EXCLUDED.max_domains_per_customer,
			max_mailboxes_per_domain = EXCLUDED.max_mailboxes_per_domain,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, settings.AccountID, settings.BrandName, settings.SupportEmail, settings.MaxCustomers, settings.MaxDomainsPerCustomer, settings.MaxMailboxesPerDomain)
	return err
}

func (r *resellerRepo) CreateTier(ctx context.Context, tier *models.CommissionTier) error {
	query := `
		INSERT INTO commission_tiers (id, reseller_id, minimum_revenue_cents, commission_rate, active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, tier.ID, tier.ResellerID, tier.MinimumRevenueCents, tier.CommissionRate, tier.Active)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTierMinimum
	}
	return err
}

func (r *resellerRepo) DeactivateTier(ctx context.Context, resellerID, tierID uuid.UUID) error {
	query := `UPDATE commission_tiers SET active = false WHERE reseller_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, resellerID, tierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListActiveTiers returns the rate table sorted descending by minimum
// revenue, the order tier resolution scans in.
func (r *resellerRepo) ListActiveTiers(ctx context.Context, q Querier, resellerID uuid.UUID) ([]*models.CommissionTier, error) {
	if q == nil {
		q = r.db
	}
	query := `
		SELECT id, reseller_id, minimum_revenue_cents, commission_rate, active, created_at
		FROM commission_tiers
		WHERE reseller_id = $1 AND active
		ORDER BY minimum_revenue_cents DESC
	`
	rows, err := q.Query(ctx, query, resellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []*models.CommissionTier
	for rows.Next() {
		tier := &models.CommissionTier{}
		if err := rows.Scan(&tier.ID, &tier.ResellerID, &tier.MinimumRevenueCents, &tier.CommissionRate, &tier.Active, &tier.CreatedAt); err != nil {
			return nil, err
		}
		tiers = append(tiers, tier)
	}
	return tiers, rows.Err()
}
