package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/caching"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const planCacheTTL = 10 * time.Minute

// PlanService is the read-mostly plan catalog. Plans are immutable once
// referenced by a live subscription; pricing changes mean a new row.
type PlanService interface {
	ListActive(ctx context.Context) ([]*models.Plan, error)
	GetActive(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	Create(ctx context.Context, req *CreatePlanRequest) (*models.Plan, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type CreatePlanRequest struct {
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	MailboxLimit int    `json:"mailbox_limit"`
	DomainLimit  int    `json:"domain_limit"`
	StorageBytes int64  `json:"storage_bytes"`
}

type planService struct {
	planRepo repositories.PlanRepository
	cache    caching.CacheService
}

func NewPlanService(planRepo repositories.PlanRepository, cache caching.CacheService) PlanService {
	return &planService{planRepo: planRepo, cache: cache}
}

func (s *planService) ListActive(ctx context.Context) ([]*models.Plan, error) {
	if plans, err := s.cache.GetPlans(ctx); err == nil {
		return plans, nil
	}

	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetPlans(ctx, plans, planCacheTTL); err != nil {
		log.Printf("failed to cache plan catalog: %v", err)
	}
	return plans, nil
}

// GetActive resolves a plan and enforces the active flag; selecting an
// inactive plan is a validation failure, not a lookup miss.
func (s *planService) GetActive(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidPlan
	}
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, ErrInvalidPlan
	}
	return plan, nil
}

func (s *planService) Create(ctx context.Context, req *CreatePlanRequest) (*models.Plan, error) {
	if req.Name == "" {
		return nil, &ValidationError{Msg: "plan name is required"}
	}
	if req.PriceCents < 0 {
		return nil, &ValidationError{Msg: "plan price cannot be negative"}
	}

	plan := &models.Plan{
		ID:           uuid.New(),
		Name:         req.Name,
		PriceCents:   req.PriceCents,
		MailboxLimit: req.MailboxLimit,
		DomainLimit:  req.DomainLimit,
		StorageBytes: req.StorageBytes,
		Active:       true,
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	if err := s.cache.InvalidatePlans(ctx); err != nil {
		log.Printf("failed to invalidate plan cache: %v", err)
	}
	return plan, nil
}

func (s *planService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.planRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	if err := s.cache.InvalidatePlans(ctx); err != nil {
		log.Printf("failed to invalidate plan cache: %v", err)
	}
	return nil
}
