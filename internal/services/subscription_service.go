package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SubscriptionService owns the lifecycle of one account's subscription:
// none -> pending_payment -> active <-> past_due -> canceling -> canceled.
// All webhook-driven entry points are idempotent and tolerate out-of-order
// delivery.
type SubscriptionService interface {
	SelectPlan(ctx context.Context, accountID, planID uuid.UUID) (*PaymentIntent, error)
	ConfirmPayment(ctx context.Context, gatewaySubscriptionID string, periodStart, periodEnd time.Time) (*models.Subscription, error)
	RequestCancellation(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	HandleChargeFailure(ctx context.Context, gatewaySubscriptionID string, periodEnd time.Time, attemptNumber int) error
	HandleCancellationConfirmed(ctx context.Context, gatewaySubscriptionID string) error
	CurrentForAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, *models.Plan, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// SubscriptionPolicy is the configurable part of the state machine.
type SubscriptionPolicy struct {
	// ChargeRetryBudget is the number of failed renewal attempts tolerated
	// before a past_due subscription is canceled.
	ChargeRetryBudget int
}

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
	planSvc          PlanService
	referralSvc      ReferralService
	gateway          GatewayService
	notifier         NotificationService
	policy           SubscriptionPolicy
}

func NewSubscriptionService(
	subscriptionRepo repositories.SubscriptionRepository,
	planSvc PlanService,
	referralSvc ReferralService,
	gateway GatewayService,
	notifier NotificationService,
	policy SubscriptionPolicy,
) SubscriptionService {
	if policy.ChargeRetryBudget <= 0 {
		policy.ChargeRetryBudget = 3
	}
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		planSvc:          planSvc,
		referralSvc:      referralSvc,
		gateway:          gateway,
		notifier:         notifier,
		policy:           policy,
	}
}

// SelectPlan validates the plan, checks the one-live-subscription invariant,
// creates the payment intent at the gateway, and only then writes the local
// pending_payment row. A gateway failure leaves no local state behind.
func (s *subscriptionService) SelectPlan(ctx context.Context, accountID, planID uuid.UUID) (*PaymentIntent, error) {
	plan, err := s.planSvc.GetActive(ctx, planID)
	if err != nil {
		return nil, err
	}

	existing, err := s.subscriptionRepo.GetLiveByAccount(ctx, accountID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubscribed
	}

	// A pending referral entitles the referred account to a percentage
	// discount on its first invoice, applied by the gateway. This is
	// independent from the referrer's flat reward.
	discount := 0.0
	if s.referralSvc != nil {
		discount = s.referralSvc.DiscountPercentFor(ctx, accountID)
	}

	intent, err := s.gateway.CreateIntent(ctx, accountID, planID, plan.PriceCents, discount)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	subscription := &models.Subscription{
		ID:                    uuid.New(),
		AccountID:             accountID,
		PlanID:                planID,
		GatewaySubscriptionID: &intent.GatewaySubscriptionID,
		Status:                models.SubscriptionPendingPayment,
		CurrentPeriodStart:    now,
		CurrentPeriodEnd:      now.AddDate(0, 1, 0),
	}
	if err := s.subscriptionRepo.Create(ctx, subscription); err != nil {
		return nil, err
	}
	return intent, nil
}

// ConfirmPayment is invoked only from a verified webhook. A duplicate
// delivery (already active with the same period end) and a superseded event
// (period end not later than the stored one) are both no-ops.
func (s *subscriptionService) ConfirmPayment(ctx context.Context, gatewaySubscriptionID string, periodStart, periodEnd time.Time) (*models.Subscription, error) {
	sub, err := s.subscriptionRepo.GetByGatewayID(ctx, gatewaySubscriptionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "subscription"}
	}
	if err != nil {
		return nil, err
	}

	if sub.Status == models.SubscriptionActive && !periodEnd.After(sub.CurrentPeriodEnd) {
		return sub, nil
	}

	switch sub.Status {
	case models.SubscriptionPendingPayment, models.SubscriptionPastDue, models.SubscriptionActive:
		sub.Status = models.SubscriptionActive
		sub.CurrentPeriodStart = periodStart
		sub.CurrentPeriodEnd = periodEnd
		if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
			return nil, err
		}
		notify(ctx, s.notifier, sub.AccountID, TemplatePaymentConfirmed, map[string]string{
			"period_end": periodEnd.Format(time.RFC3339),
		})
		return sub, nil
	default:
		// canceled or canceling: a late success never resurrects the row.
		return sub, nil
	}
}

// RequestCancellation schedules cancellation at period end. The subscription
// stays active until the reconciliation sweep or a processor event finalizes
// it; already-consumed period time is never clawed back.
func (s *subscriptionService) RequestCancellation(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subscriptionRepo.GetLiveByAccount(ctx, accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionPastDue {
		return nil, ErrNoActiveSubscription
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	if sub.GatewaySubscriptionID != nil {
		if err := s.gateway.CancelSubscription(ctx, *sub.GatewaySubscriptionID); err != nil {
			return nil, err
		}
	}

	sub.CancelAtPeriodEnd = true
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// HandleChargeFailure moves active -> past_due, and past the retry budget to
// canceled with a payment_failure reason. A failure notification arriving
// after the row is already canceled is ignored, and so is a stale failure
// whose billing period a later processed success has already covered: events
// carry the period they charged for, and an active row whose period end has
// caught up with the event's is not demoted.
func (s *subscriptionService) HandleChargeFailure(ctx context.Context, gatewaySubscriptionID string, periodEnd time.Time, attemptNumber int) error {
	sub, err := s.subscriptionRepo.GetByGatewayID(ctx, gatewaySubscriptionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Resource: "subscription"}
	}
	if err != nil {
		return err
	}

	switch sub.Status {
	case models.SubscriptionActive, models.SubscriptionPastDue, models.SubscriptionPendingPayment:
	default:
		return nil
	}

	if sub.Status == models.SubscriptionActive && !periodEnd.IsZero() && !periodEnd.After(sub.CurrentPeriodEnd) {
		return nil
	}

	if attemptNumber > s.policy.ChargeRetryBudget {
		reason := models.CancellationPaymentFailure
		sub.Status = models.SubscriptionCanceled
		sub.CancellationReason = &reason
	} else {
		sub.Status = models.SubscriptionPastDue
	}
	if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
		return err
	}
	notify(ctx, s.notifier, sub.AccountID, TemplateChargeFailed, map[string]string{
		"attempt": strconv.Itoa(attemptNumber),
	})
	return nil
}

// HandleCancellationConfirmed reacts to the processor's own cancellation
// event: the row moves to canceling and the sweep finalizes it once the paid
// period has run out, or straight to canceled if it already has.
func (s *subscriptionService) HandleCancellationConfirmed(ctx context.Context, gatewaySubscriptionID string) error {
	sub, err := s.subscriptionRepo.GetByGatewayID(ctx, gatewaySubscriptionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Resource: "subscription"}
	}
	if err != nil {
		return err
	}
	if !sub.Live() {
		return nil
	}

	sub.CancelAtPeriodEnd = true
	if time.Now().UTC().Before(sub.CurrentPeriodEnd) {
		sub.Status = models.SubscriptionCanceling
	} else {
		sub.Status = models.SubscriptionCanceled
	}
	return s.subscriptionRepo.Update(ctx, sub)
}

func (s *subscriptionService) CurrentForAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, *models.Plan, error) {
	sub, err := s.subscriptionRepo.GetLiveByAccount(ctx, accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.planSvc.GetActive(ctx, sub.PlanID)
	if errors.Is(err, ErrInvalidPlan) {
		// The plan may have been retired from the catalog after the
		// subscription started; the row is still authoritative.
		plan = nil
		err = nil
	}
	if err != nil {
		return nil, nil, err
	}
	return sub, plan, nil
}

// ExpireDue is the reconciliation sweep: live rows flagged for cancellation
// whose paid period has ended move to canceled.
func (s *subscriptionService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.subscriptionRepo.ListDueForCancellation(ctx, now, 500)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range due {
		sub.Status = models.SubscriptionCanceled
		if err := s.subscriptionRepo.Update(ctx, sub); err != nil {
			log.Printf("failed to expire subscription %s: %v", sub.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}
