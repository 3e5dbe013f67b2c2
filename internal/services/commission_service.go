package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/billing"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/caching"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const dashboardCacheTTL = 2 * time.Minute

// CommissionService computes reseller commissions from the tiered rate table
// and owns the open -> closed -> paid period lifecycle.
type CommissionService interface {
	AddTier(ctx context.Context, resellerID uuid.UUID, minimumRevenueCents int64, ratePercent float64) (*models.CommissionTier, error)
	RemoveTier(ctx context.Context, resellerID, tierID uuid.UUID) error
	ListTiers(ctx context.Context, resellerID uuid.UUID) ([]*models.CommissionTier, error)

	ClosePeriod(ctx context.Context, resellerID uuid.UUID, periodKey string) (*models.CommissionPeriod, error)
	MarkPaid(ctx context.Context, resellerID uuid.UUID, periodKey string) (*models.CommissionPeriod, error)
	Recompute(ctx context.Context, resellerID uuid.UUID, periodKey string) (*CommissionAudit, error)
	ListPeriods(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.CommissionPeriod, error)
	Dashboard(ctx context.Context, resellerID uuid.UUID) (*ResellerDashboard, error)
}

// CommissionAudit is the result of replaying a closed period's computation
// against the stored figures.
type CommissionAudit struct {
	PeriodKey                string  `json:"period_key"`
	StoredRevenueCents       int64   `json:"stored_revenue_cents"`
	RecomputedRevenueCents   int64   `json:"recomputed_revenue_cents"`
	StoredCommissionCents    int64   `json:"stored_commission_cents"`
	RecomputedCommissionCents int64  `json:"recomputed_commission_cents"`
	RateApplied              float64 `json:"rate_applied"`
	Match                    bool    `json:"match"`
}

// ResellerDashboard is the read-only projection for the reseller UI.
type ResellerDashboard struct {
	PeriodKey                 string  `json:"period_key"`
	RevenueCents              int64   `json:"revenue_cents"`
	EffectiveRatePercent      float64 `json:"effective_rate_percent"`
	ProjectedCommissionCents  int64   `json:"projected_commission_cents"`
	CustomerCount             int     `json:"customer_count"`
}

// CommissionPolicy bounds the close operation's lock wait; on timeout the
// close aborts without a partial snapshot and is safely retryable.
type CommissionPolicy struct {
	LockWait time.Duration
}

type commissionService struct {
	db           repositories.Database
	periodRepo   repositories.CommissionPeriodRepository
	invoiceRepo  repositories.InvoiceRepository
	resellerRepo repositories.ResellerRepository
	accountRepo  repositories.AccountRepository
	statements   StatementStore
	notifier     NotificationService
	cache        caching.CacheService
	policy       CommissionPolicy
}

func NewCommissionService(
	db repositories.Database,
	periodRepo repositories.CommissionPeriodRepository,
	invoiceRepo repositories.InvoiceRepository,
	resellerRepo repositories.ResellerRepository,
	accountRepo repositories.AccountRepository,
	statements StatementStore,
	notifier NotificationService,
	cache caching.CacheService,
	policy CommissionPolicy,
) CommissionService {
	if policy.LockWait <= 0 {
		policy.LockWait = 5 * time.Second
	}
	return &commissionService{
		db:           db,
		periodRepo:   periodRepo,
		invoiceRepo:  invoiceRepo,
		resellerRepo: resellerRepo,
		accountRepo:  accountRepo,
		statements:   statements,
		notifier:     notifier,
		cache:        cache,
		policy:       policy,
	}
}

// ResolveRate picks the effective commission rate for a revenue figure: the
// active tier with the greatest minimum revenue not exceeding it, boundary
// inclusive. Tiers arrive sorted descending by minimum, so the first match
// wins. No tier matching means a zero rate.
func ResolveRate(tiers []*models.CommissionTier, revenueCents int64) float64 {
	for _, tier := range tiers {
		if tier.MinimumRevenueCents <= revenueCents {
			return tier.CommissionRate
		}
	}
	return 0
}

// ComputeCommission is a pure function of the revenue figure and the rate
// table: identical inputs always reproduce the identical commission, which
// is what makes closed periods auditable by replay.
func ComputeCommission(revenueCents int64, tiers []*models.CommissionTier) (commissionCents int64, ratePercent float64) {
	ratePercent = ResolveRate(tiers, revenueCents)
	commissionCents = int64(billing.ApplyRate(billing.Cents(revenueCents), ratePercent))
	return commissionCents, ratePercent
}

func (s *commissionService) AddTier(ctx context.Context, resellerID uuid.UUID, minimumRevenueCents int64, ratePercent float64) (*models.CommissionTier, error) {
	if minimumRevenueCents < 0 {
		return nil, &ValidationError{Msg: "minimum revenue cannot be negative"}
	}
	if ratePercent < 0 || ratePercent > 100 {
		return nil, &ValidationError{Msg: "commission rate must be between 0 and 100"}
	}

	tier := &models.CommissionTier{
		ID:                  uuid.New(),
		ResellerID:          resellerID,
		MinimumRevenueCents: minimumRevenueCents,
		CommissionRate:      ratePercent,
		Active:              true,
	}
	err := s.resellerRepo.CreateTier(ctx, tier)
	if errors.Is(err, repositories.ErrDuplicateTierMinimum) {
		return nil, &ConflictError{Msg: "a tier with this minimum revenue already exists"}
	}
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, resellerID)
	return tier, nil
}

func (s *commissionService) RemoveTier(ctx context.Context, resellerID, tierID uuid.UUID) error {
	err := s.resellerRepo.DeactivateTier(ctx, resellerID, tierID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Resource: "commission tier"}
	}
	if err != nil {
		return err
	}
	s.invalidateDashboard(ctx, resellerID)
	return nil
}

func (s *commissionService) ListTiers(ctx context.Context, resellerID uuid.UUID) ([]*models.CommissionTier, error) {
	return s.resellerRepo.ListActiveTiers(ctx, nil, resellerID)
}

// ClosePeriod freezes the snapshot in one transaction: it takes the same row
// lock invoice recording takes, so no invoice for this reseller can be
// written mid-close. If the lock cannot be acquired within the bounded wait
// the transaction aborts and the caller retries.
func (s *commissionService) ClosePeriod(ctx context.Context, resellerID uuid.UUID, periodKey string) (*models.CommissionPeriod, error) {
	if _, ok := billing.PeriodForKey(periodKey); !ok {
		return nil, &ValidationError{Msg: "malformed period key: " + periodKey}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.policy.LockWait.Milliseconds())); err != nil {
		return nil, err
	}

	period, err := s.periodRepo.GetPeriodForUpdate(ctx, tx, resellerID, periodKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "commission period"}
	}
	if err != nil {
		return nil, err
	}
	if period.Status != models.CommissionPeriodOpen {
		return nil, ErrPeriodNotOpen
	}

	revenue, err := s.invoiceRepo.SumPaidByCommissionPeriod(ctx, tx, period.ID)
	if err != nil {
		return nil, err
	}
	tiers, err := s.resellerRepo.ListActiveTiers(ctx, tx, resellerID)
	if err != nil {
		return nil, err
	}
	commission, rate := ComputeCommission(revenue, tiers)

	lines, err := s.invoiceRepo.StatementLinesByCommissionPeriod(ctx, tx, period.ID)
	if err != nil {
		return nil, err
	}

	closedAt := time.Now().UTC()
	if err := s.periodRepo.Close(ctx, tx, period.ID, revenue, commission, rate, closedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	period.Status = models.CommissionPeriodClosed
	period.RevenueCents = revenue
	period.CommissionCents = commission
	period.RateApplied = rate
	period.ClosedAt = &closedAt

	s.archiveStatement(ctx, period, lines)
	s.invalidateDashboard(ctx, resellerID)
	notify(ctx, s.notifier, resellerID, TemplatePeriodClosed, map[string]string{
		"period":     periodKey,
		"revenue":    billing.Format(billing.Cents(revenue)),
		"commission": billing.Format(billing.Cents(commission)),
	})
	return period, nil
}

// archiveStatement writes the per-customer CSV snapshot to object storage.
// The snapshot is derived from data read inside the close transaction, so a
// replay of the same period reproduces it byte for byte. Archive failure is
// logged and does not undo the close; the object can be rebuilt via
// Recompute.
func (s *commissionService) archiveStatement(ctx context.Context, period *models.CommissionPeriod, lines []repositories.StatementLine) {
	if s.statements == nil {
		return
	}
	object := fmt.Sprintf("statements/%s/%s.csv", period.ResellerID, period.PeriodKey)
	if err := s.statements.Put(ctx, object, buildStatementCSV(period, lines)); err != nil {
		log.Printf("failed to archive commission statement %s: %v", object, err)
		return
	}
	if err := s.periodRepo.SetStatementObject(ctx, period.ID, object); err != nil {
		log.Printf("failed to record statement object for period %s: %v", period.ID, err)
	}
}

func buildStatementCSV(period *models.CommissionPeriod, lines []repositories.StatementLine) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"account_email", "invoice_count", "revenue"})
	for _, line := range lines {
		_ = w.Write([]string{line.AccountEmail, strconv.Itoa(line.InvoiceCount), billing.Format(billing.Cents(line.RevenueCents))})
	}
	_ = w.Write([]string{"TOTAL", "", billing.Format(billing.Cents(period.RevenueCents))})
	_ = w.Write([]string{"COMMISSION", strconv.FormatFloat(period.RateApplied, 'f', -1, 64) + "%", billing.Format(billing.Cents(period.CommissionCents))})
	w.Flush()
	return buf.Bytes()
}

func (s *commissionService) MarkPaid(ctx context.Context, resellerID uuid.UUID, periodKey string) (*models.CommissionPeriod, error) {
	period, err := s.periodRepo.GetPeriod(ctx, resellerID, periodKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "commission period"}
	}
	if err != nil {
		return nil, err
	}
	marked, err := s.periodRepo.MarkPaid(ctx, period.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !marked {
		return nil, ErrPeriodNotClosed
	}
	return s.periodRepo.GetPeriod(ctx, resellerID, periodKey)
}

// Recompute replays a frozen period's computation and reports any
// discrepancy against the stored figures. The stored rate is reapplied as-is
// because the tier table may legitimately have changed since the close.
func (s *commissionService) Recompute(ctx context.Context, resellerID uuid.UUID, periodKey string) (*CommissionAudit, error) {
	period, err := s.periodRepo.GetPeriod(ctx, resellerID, periodKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "commission period"}
	}
	if err != nil {
		return nil, err
	}
	if period.Status == models.CommissionPeriodOpen {
		return nil, &ConflictError{Msg: "cannot audit an open period"}
	}

	revenue, err := s.invoiceRepo.SumPaidByCommissionPeriod(ctx, nil, period.ID)
	if err != nil {
		return nil, err
	}
	commission := int64(billing.ApplyRate(billing.Cents(revenue), period.RateApplied))

	return &CommissionAudit{
		PeriodKey:                 periodKey,
		StoredRevenueCents:        period.RevenueCents,
		RecomputedRevenueCents:    revenue,
		StoredCommissionCents:     period.CommissionCents,
		RecomputedCommissionCents: commission,
		RateApplied:               period.RateApplied,
		Match:                     revenue == period.RevenueCents && commission == period.CommissionCents,
	}, nil
}

func (s *commissionService) ListPeriods(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.CommissionPeriod, error) {
	if limit <= 0 {
		limit = 24
	}
	if offset < 0 {
		offset = 0
	}
	return s.periodRepo.ListByReseller(ctx, resellerID, limit, offset)
}

func (s *commissionService) Dashboard(ctx context.Context, resellerID uuid.UUID) (*ResellerDashboard, error) {
	key := caching.DashboardKey(resellerID)
	cached := &ResellerDashboard{}
	if err := s.cache.GetJSON(ctx, key, cached); err == nil {
		return cached, nil
	}

	current := billing.MonthOf(time.Now())
	dashboard := &ResellerDashboard{PeriodKey: current.Key()}

	period, err := s.periodRepo.GetPeriod(ctx, resellerID, current.Key())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if period != nil {
		revenue, err := s.invoiceRepo.SumPaidByCommissionPeriod(ctx, nil, period.ID)
		if err != nil {
			return nil, err
		}
		dashboard.RevenueCents = revenue
	}

	tiers, err := s.resellerRepo.ListActiveTiers(ctx, nil, resellerID)
	if err != nil {
		return nil, err
	}
	dashboard.ProjectedCommissionCents, dashboard.EffectiveRatePercent = ComputeCommission(dashboard.RevenueCents, tiers)

	customers, err := s.accountRepo.CountCustomersOfReseller(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	dashboard.CustomerCount = customers

	if err := s.cache.SetJSON(ctx, key, dashboard, dashboardCacheTTL); err != nil {
		log.Printf("failed to cache reseller dashboard: %v", err)
	}
	return dashboard, nil
}

func (s *commissionService) invalidateDashboard(ctx context.Context, resellerID uuid.UUID) {
	if err := s.cache.Delete(ctx, caching.DashboardKey(resellerID)); err != nil {
		log.Printf("failed to invalidate reseller dashboard cache: %v", err)
	}
}
