package background

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler runs the reconciliation sweeps: finalizing subscriptions whose
// paid period has lapsed and expiring referrals that never converted. Both
// sweeps are idempotent, so an overlapping or repeated run is harmless.
type JobScheduler struct {
	scheduler       gocron.Scheduler
	subscriptionSvc services.SubscriptionService
	referralSvc     services.ReferralService
	jobs            map[string]gocron.Job
	mu              sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(subscriptionSvc services.SubscriptionService, referralSvc services.ReferralService) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:       scheduler,
		subscriptionSvc: subscriptionSvc,
		referralSvc:     referralSvc,
		jobs:            make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	js.mu.Lock()
	defer js.mu.Unlock()

	expiryJob, err := js.scheduler.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(js.expireLapsedSubscriptions, context.Background()),
		gocron.WithName("subscription-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create subscription expiry job: %v", err)
	} else {
		js.jobs["subscription-expiry"] = expiryJob
	}

	referralJob, err := js.scheduler.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(js.expireStaleReferrals, context.Background()),
		gocron.WithName("referral-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create referral expiry job: %v", err)
	} else {
		js.jobs["referral-expiry"] = referralJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

func (js *JobScheduler) expireLapsedSubscriptions(ctx context.Context) {
	n, err := js.subscriptionSvc.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("subscription expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("subscription expiry sweep finalized %d subscriptions", n)
	}
}

func (js *JobScheduler) expireStaleReferrals(ctx context.Context) {
	n, err := js.referralSvc.ExpireStale(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("referral expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("referral expiry sweep expired %d referrals", n)
	}
}
