package services

import (
	"context"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/caching"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// Mock repositories and collaborators shared by the service tests.

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, subscription *models.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetLiveByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*models.Subscription, error) {
	args := m.Called(ctx, gatewayID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, subscription *models.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Subscription, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) ListDueForCancellation(ctx context.Context, now time.Time, limit int) ([]*models.Subscription, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) ListCustomersOfReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.Account, error) {
	args := m.Called(ctx, resellerID, limit, offset)
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) CountCustomersOfReseller(ctx context.Context, resellerID uuid.UUID) (int, error) {
	args := m.Called(ctx, resellerID)
	return args.Int(0), args.Error(1)
}

type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) Create(ctx context.Context, referral *models.Referral) error {
	args := m.Called(ctx, referral)
	return args.Error(0)
}

func (m *MockReferralRepository) GetByReferredID(ctx context.Context, referredID uuid.UUID) (*models.Referral, error) {
	args := m.Called(ctx, referredID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Referral), args.Error(1)
}

func (m *MockReferralRepository) CompleteIfPending(ctx context.Context, id uuid.UUID, rewardCents int64, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, rewardCents, completedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReferralRepository) ListByReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*models.Referral, error) {
	args := m.Called(ctx, referrerID, limit, offset)
	return args.Get(0).([]*models.Referral), args.Error(1)
}

func (m *MockReferralRepository) StatsByReferrer(ctx context.Context, referrerID uuid.UUID) (*models.ReferralStats, error) {
	args := m.Called(ctx, referrerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralStats), args.Error(1)
}

type MockCreditRepository struct {
	mock.Mock
}

func (m *MockCreditRepository) InsertOncePerReferral(ctx context.Context, credit *models.AccountCredit) (bool, error) {
	args := m.Called(ctx, credit)
	return args.Bool(0), args.Error(1)
}

func (m *MockCreditRepository) SumByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

type MockResellerRepository struct {
	mock.Mock
}

func (m *MockResellerRepository) GetSettings(ctx context.Context, accountID uuid.UUID) (*models.ResellerSettings, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ResellerSettings), args.Error(1)
}

func (m *MockResellerRepository) UpsertSettings(ctx context.Context, settings *models.ResellerSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockResellerRepository) CreateTier(ctx context.Context, tier *models.CommissionTier) error {
	args := m.Called(ctx, tier)
	return args.Error(0)
}

func (m *MockResellerRepository) DeactivateTier(ctx context.Context, resellerID, tierID uuid.UUID) error {
	args := m.Called(ctx, resellerID, tierID)
	return args.Error(0)
}

func (m *MockResellerRepository) ListActiveTiers(ctx context.Context, q repositories.Querier, resellerID uuid.UUID) ([]*models.CommissionTier, error) {
	args := m.Called(ctx, q, resellerID)
	return args.Get(0).([]*models.CommissionTier), args.Error(1)
}

type MockCommissionPeriodRepository struct {
	mock.Mock
}

func (m *MockCommissionPeriodRepository) OpenPeriodForUpdate(ctx context.Context, tx pgx.Tx, resellerID uuid.UUID, key string, start, end time.Time) (*models.CommissionPeriod, error) {
	args := m.Called(ctx, tx, resellerID, key, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionPeriod), args.Error(1)
}

func (m *MockCommissionPeriodRepository) GetPeriodForUpdate(ctx context.Context, tx pgx.Tx, resellerID uuid.UUID, key string) (*models.CommissionPeriod, error) {
	args := m.Called(ctx, tx, resellerID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionPeriod), args.Error(1)
}

func (m *MockCommissionPeriodRepository) GetPeriod(ctx context.Context, resellerID uuid.UUID, key string) (*models.CommissionPeriod, error) {
	args := m.Called(ctx, resellerID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CommissionPeriod), args.Error(1)
}

func (m *MockCommissionPeriodRepository) Close(ctx context.Context, tx pgx.Tx, periodID uuid.UUID, revenueCents, commissionCents int64, rate float64, closedAt time.Time) error {
	args := m.Called(ctx, tx, periodID, revenueCents, commissionCents, rate, closedAt)
	return args.Error(0)
}

func (m *MockCommissionPeriodRepository) SetStatementObject(ctx context.Context, periodID uuid.UUID, object string) error {
	args := m.Called(ctx, periodID, object)
	return args.Error(0)
}

func (m *MockCommissionPeriodRepository) MarkPaid(ctx context.Context, periodID uuid.UUID, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, periodID, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommissionPeriodRepository) ListByReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.CommissionPeriod, error) {
	args := m.Called(ctx, resellerID, limit, offset)
	return args.Get(0).([]*models.CommissionPeriod), args.Error(1)
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) InsertIdempotent(ctx context.Context, q repositories.Querier, invoice *models.Invoice) (bool, *models.Invoice, error) {
	args := m.Called(ctx, q, invoice)
	if args.Get(1) == nil {
		return args.Bool(0), nil, args.Error(2)
	}
	return args.Bool(0), args.Get(1).(*models.Invoice), args.Error(2)
}

func (m *MockInvoiceRepository) GetByGatewayID(ctx context.Context, gatewayInvoiceID string) (*models.Invoice, error) {
	args := m.Called(ctx, gatewayInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, accountID, limit, offset)
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountPaidByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockInvoiceRepository) SumPaidByCommissionPeriod(ctx context.Context, q repositories.Querier, periodID uuid.UUID) (int64, error) {
	args := m.Called(ctx, q, periodID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) StatementLinesByCommissionPeriod(ctx context.Context, q repositories.Querier, periodID uuid.UUID) ([]repositories.StatementLine, error) {
	args := m.Called(ctx, q, periodID)
	return args.Get(0).([]repositories.StatementLine), args.Error(1)
}

type MockPlanService struct {
	mock.Mock
}

func (m *MockPlanService) ListActive(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *MockPlanService) GetActive(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanService) Create(ctx context.Context, req *CreatePlanRequest) (*models.Plan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *MockPlanService) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) RegisterSignup(ctx context.Context, referredID uuid.UUID, referredByCode string) error {
	args := m.Called(ctx, referredID, referredByCode)
	return args.Error(0)
}

func (m *MockReferralService) HandleFirstPaidInvoice(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockReferralService) DiscountPercentFor(ctx context.Context, accountID uuid.UUID) float64 {
	args := m.Called(ctx, accountID)
	return args.Get(0).(float64)
}

func (m *MockReferralService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReferralService) ListForReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*models.Referral, *models.ReferralStats, error) {
	args := m.Called(ctx, referrerID, limit, offset)
	return args.Get(0).([]*models.Referral), args.Get(1).(*models.ReferralStats), args.Error(2)
}

type MockGatewayService struct {
	mock.Mock
}

func (m *MockGatewayService) CreateIntent(ctx context.Context, accountID, planID uuid.UUID, amountCents int64, discountPercent float64) (*PaymentIntent, error) {
	args := m.Called(ctx, accountID, planID, amountCents, discountPercent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentIntent), args.Error(1)
}

func (m *MockGatewayService) CancelSubscription(ctx context.Context, gatewaySubscriptionID string) error {
	args := m.Called(ctx, gatewaySubscriptionID)
	return args.Error(0)
}

func (m *MockGatewayService) VerifyWebhookSignature(rawPayload []byte, signatureHeader string) (*WebhookEvent, error) {
	args := m.Called(rawPayload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WebhookEvent), args.Error(1)
}

// noopCache satisfies caching.CacheService with a permanent miss, which
// forces every read in a test through the mocked repositories.
type noopCache struct{}

func (noopCache) GetPlans(ctx context.Context) ([]*models.Plan, error) {
	return nil, caching.ErrCacheMiss
}

func (noopCache) SetPlans(ctx context.Context, plans []*models.Plan, ttl time.Duration) error {
	return nil
}

func (noopCache) InvalidatePlans(ctx context.Context) error { return nil }

func (noopCache) GetJSON(ctx context.Context, key string, dest any) error {
	return caching.ErrCacheMiss
}

func (noopCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

func (noopCache) Delete(ctx context.Context, key string) error { return nil }

func (noopCache) Ping(ctx context.Context) error { return nil }

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Send(ctx context.Context, accountID uuid.UUID, templateKey string, variables map[string]string) error {
	args := m.Called(ctx, accountID, templateKey, variables)
	return args.Error(0)
}
