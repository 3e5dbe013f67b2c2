package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/billing"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReferralService tracks referral state and issues the referrer's reward on
// the referred account's first paid invoice, exactly once.
type ReferralService interface {
	// RegisterSignup records a pending referral when the code resolves to a
	// referrer. An unknown code is a silent no-op; referral codes are not a
	// user-facing error surface.
	RegisterSignup(ctx context.Context, referredID uuid.UUID, referredByCode string) error
	// HandleFirstPaidInvoice is called by the invoice ledger for every
	// newly recorded paid invoice; only the chronologically first one for a
	// still-pending referral triggers the reward.
	HandleFirstPaidInvoice(ctx context.Context, accountID uuid.UUID) error
	// DiscountPercentFor reports the percentage discount a referred account
	// gets on its first invoice while its referral is pending.
	DiscountPercentFor(ctx context.Context, accountID uuid.UUID) float64
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	ListForReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*models.Referral, *models.ReferralStats, error)
}

// ReferralPolicy is the reward configuration. The referrer reward is a flat
// credit; the referee discount is a percentage. They are distinct effects
// triggered by the same event and configured independently.
type ReferralPolicy struct {
	RewardCents            int64
	RefereeDiscountPercent float64
	ExpiryWindow           time.Duration
}

type referralService struct {
	referralRepo repositories.ReferralRepository
	accountRepo  repositories.AccountRepository
	creditRepo   repositories.CreditRepository
	notifier     NotificationService
	policy       ReferralPolicy
}

func NewReferralService(
	referralRepo repositories.ReferralRepository,
	accountRepo repositories.AccountRepository,
	creditRepo repositories.CreditRepository,
	notifier NotificationService,
	policy ReferralPolicy,
) ReferralService {
	if policy.ExpiryWindow <= 0 {
		policy.ExpiryWindow = 90 * 24 * time.Hour
	}
	return &referralService{
		referralRepo: referralRepo,
		accountRepo:  accountRepo,
		creditRepo:   creditRepo,
		notifier:     notifier,
		policy:       policy,
	}
}

func (s *referralService) RegisterSignup(ctx context.Context, referredID uuid.UUID, referredByCode string) error {
	if referredByCode == "" {
		return nil
	}
	referrer, err := s.accountRepo.GetByReferralCode(ctx, referredByCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if referrer.ID == referredID {
		return nil
	}

	return s.referralRepo.Create(ctx, &models.Referral{
		ID:         uuid.New(),
		ReferrerID: referrer.ID,
		ReferredID: referredID,
		Status:     models.ReferralPending,
	})
}

func (s *referralService) HandleFirstPaidInvoice(ctx context.Context, accountID uuid.UUID) error {
	referral, err := s.referralRepo.GetByReferredID(ctx, accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if referral.Status != models.ReferralPending {
		return nil
	}

	// The conditional update is the single-trigger guard: duplicate invoice
	// notifications for the same account race here and exactly one wins.
	completed, err := s.referralRepo.CompleteIfPending(ctx, referral.ID, s.policy.RewardCents, time.Now().UTC())
	if err != nil {
		return err
	}
	if !completed {
		return nil
	}

	issued, err := s.creditRepo.InsertOncePerReferral(ctx, &models.AccountCredit{
		ID:          uuid.New(),
		AccountID:   referral.ReferrerID,
		ReferralID:  referral.ID,
		AmountCents: s.policy.RewardCents,
		Reason:      "referral_reward",
	})
	if err != nil {
		return err
	}
	if issued {
		notify(ctx, s.notifier, referral.ReferrerID, TemplateReferralReward, map[string]string{
			"reward": billing.Format(billing.Cents(s.policy.RewardCents)),
		})
	}
	return nil
}

func (s *referralService) DiscountPercentFor(ctx context.Context, accountID uuid.UUID) float64 {
	referral, err := s.referralRepo.GetByReferredID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("referral lookup for discount failed: %v", err)
		}
		return 0
	}
	if referral.Status != models.ReferralPending {
		return 0
	}
	return s.policy.RefereeDiscountPercent
}

func (s *referralService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	return s.referralRepo.ExpireOlderThan(ctx, now.Add(-s.policy.ExpiryWindow))
}

func (s *referralService) ListForReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*models.Referral, *models.ReferralStats, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	referrals, err := s.referralRepo.ListByReferrer(ctx, referrerID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.referralRepo.StatsByReferrer(ctx, referrerID)
	if err != nil {
		return nil, nil, err
	}
	return referrals, stats, nil
}
