package services

import (
	"context"
	"errors"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResellerService manages reseller settings and exposes the hard tenant caps
// that provisioning collaborators enforce. Deprovisioning over-limit
// resources is their concern, not this engine's.
type ResellerService interface {
	GetSettings(ctx context.Context, resellerID uuid.UUID) (*models.ResellerSettings, error)
	UpdateSettings(ctx context.Context, settings *models.ResellerSettings) (*models.ResellerSettings, error)
	Limits(ctx context.Context, resellerID uuid.UUID) (*ResellerLimits, error)
}

// ResellerLimits is the read-only cap projection for provisioning checks.
type ResellerLimits struct {
	MaxCustomers          int `json:"max_customers"`
	CurrentCustomers      int `json:"current_customers"`
	MaxDomainsPerCustomer int `json:"max_domains_per_customer"`
	MaxMailboxesPerDomain int `json:"max_mailboxes_per_domain"`
}

type resellerService struct {
	resellerRepo repositories.ResellerRepository
	accountRepo  repositories.AccountRepository
}

func NewResellerService(resellerRepo repositories.ResellerRepository, accountRepo repositories.AccountRepository) ResellerService {
	return &resellerService{resellerRepo: resellerRepo, accountRepo: accountRepo}
}

func (s *resellerService) GetSettings(ctx context.Context, resellerID uuid.UUID) (*models.ResellerSettings, error) {
	settings, err := s.resellerRepo.GetSettings(ctx, resellerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "reseller settings"}
	}
	return settings, err
}

func (s *resellerService) UpdateSettings(ctx context.Context, settings *models.ResellerSettings) (*models.ResellerSettings, error) {
	account, err := s.accountRepo.GetByID(ctx, settings.AccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "account"}
	}
	if err != nil {
		return nil, err
	}
	if account.Role != models.RoleReseller {
		return nil, &ValidationError{Msg: "settings belong to reseller accounts only"}
	}
	if settings.MaxCustomers < 0 || settings.MaxDomainsPerCustomer < 0 || settings.MaxMailboxesPerDomain < 0 {
		return nil, &ValidationError{Msg: "limits cannot be negative"}
	}

	if err := s.resellerRepo.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}
	return s.resellerRepo.GetSettings(ctx, settings.AccountID)
}

func (s *resellerService) Limits(ctx context.Context, resellerID uuid.UUID) (*ResellerLimits, error) {
	settings, err := s.GetSettings(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	current, err := s.accountRepo.CountCustomersOfReseller(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	return &ResellerLimits{
		MaxCustomers:          settings.MaxCustomers,
		CurrentCustomers:      current,
		MaxDomainsPerCustomer: settings.MaxDomainsPerCustomer,
		MaxMailboxesPerDomain: settings.MaxMailboxesPerDomain,
	}, nil
}
