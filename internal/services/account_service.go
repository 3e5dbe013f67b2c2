package services

import (
	"context"
	"errors"
	"strings"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/gommon/random"
)

const referralCodeLength = 10

// AccountService creates and resolves accounts. Authentication and token
// issuance are external; this service owns the billing-relevant attributes:
// role, reseller membership, and the referral code pair.
type AccountService interface {
	Create(ctx context.Context, req *CreateAccountRequest) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ListCustomersOfReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.Account, error)
}

type CreateAccountRequest struct {
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	ResellerID *uuid.UUID `json:"reseller_id"`
	ReferredBy *string    `json:"referred_by"`
}

type accountService struct {
	accountRepo repositories.AccountRepository
	referralSvc ReferralService
}

func NewAccountService(accountRepo repositories.AccountRepository, referralSvc ReferralService) AccountService {
	return &accountService{accountRepo: accountRepo, referralSvc: referralSvc}
}

func (s *accountService) Create(ctx context.Context, req *CreateAccountRequest) (*models.Account, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, &ValidationError{Msg: "email is required"}
	}
	switch req.Role {
	case models.RoleCustomer, models.RoleAdmin, models.RoleReseller:
	default:
		return nil, &ValidationError{Msg: "role must be customer, admin or reseller"}
	}

	if req.ResellerID != nil {
		parent, err := s.accountRepo.GetByID(ctx, *req.ResellerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "reseller"}
		}
		if err != nil {
			return nil, err
		}
		if parent.Role != models.RoleReseller {
			return nil, &ValidationError{Msg: "reseller_id must reference a reseller account"}
		}
		// The hierarchy is one level deep: a reseller never belongs to
		// another reseller's tree.
		if req.Role == models.RoleReseller {
			return nil, &ValidationError{Msg: "a reseller cannot be a customer of another reseller"}
		}
	}

	account := &models.Account{
		ID:         uuid.New(),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Name:       strings.TrimSpace(req.Name),
		Role:       req.Role,
		ResellerID: req.ResellerID,
		ReferredBy: req.ReferredBy,
	}

	// Regenerate on the rare referral-code collision rather than failing
	// the signup.
	created := false
	for attempt := 0; attempt < 5 && !created; attempt++ {
		account.ReferralCode = random.String(referralCodeLength, random.Alphanumeric)
		err := s.accountRepo.Create(ctx, account)
		if errors.Is(err, repositories.ErrDuplicateReferralCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		created = true
	}
	if !created {
		return nil, &ConflictError{Msg: "could not generate a unique referral code"}
	}

	if req.ReferredBy != nil {
		if err := s.referralSvc.RegisterSignup(ctx, account.ID, *req.ReferredBy); err != nil {
			return nil, err
		}
	}
	return account, nil
}

func (s *accountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "account"}
	}
	return account, err
}

func (s *accountService) ListCustomersOfReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*models.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.accountRepo.ListCustomersOfReseller(ctx, resellerID, limit, offset)
}
