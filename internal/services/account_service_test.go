package services

import (
	"context"
	"testing"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type AccountServiceTestSuite struct {
	suite.Suite
	accountRepo *MockAccountRepository
	referralSvc *MockReferralService
	service     AccountService
	ctx         context.Context
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.accountRepo = new(MockAccountRepository)
	suite.referralSvc = new(MockReferralService)
	suite.service = NewAccountService(suite.accountRepo, suite.referralSvc)
	suite.ctx = context.Background()
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func (suite *AccountServiceTestSuite) TestCreate_CustomerWithReferralCode() {
	referrerCode := "FRIEND42"
	suite.accountRepo.On("Create", suite.ctx, mock.MatchedBy(func(a *models.Account) bool {
		return a.Email == "user@example.com" && a.Role == models.RoleCustomer && len(a.ReferralCode) == 10
	})).Return(nil)
	suite.referralSvc.On("RegisterSignup", suite.ctx, mock.Anything, referrerCode).Return(nil)

	account, err := suite.service.Create(suite.ctx, &CreateAccountRequest{
		Email:      "User@Example.com ",
		Name:       "A User",
		Role:       models.RoleCustomer,
		ReferredBy: &referrerCode,
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "user@example.com", account.Email)
	assert.NotEmpty(suite.T(), account.ReferralCode)
	suite.referralSvc.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestCreate_InvalidRole() {
	_, err := suite.service.Create(suite.ctx, &CreateAccountRequest{
		Email: "user@example.com",
		Role:  "superuser",
	})

	var verr *ValidationError
	assert.ErrorAs(suite.T(), err, &verr)
	suite.accountRepo.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *AccountServiceTestSuite) TestCreate_ResellerIDMustReferenceReseller() {
	parentID := uuid.New()
	suite.accountRepo.On("GetByID", suite.ctx, parentID).
		Return(&models.Account{ID: parentID, Role: models.RoleCustomer}, nil)

	_, err := suite.service.Create(suite.ctx, &CreateAccountRequest{
		Email:      "user@example.com",
		Role:       models.RoleCustomer,
		ResellerID: &parentID,
	})

	var verr *ValidationError
	assert.ErrorAs(suite.T(), err, &verr)
}

func (suite *AccountServiceTestSuite) TestCreate_ResellerOfResellerForbidden() {
	parentID := uuid.New()
	suite.accountRepo.On("GetByID", suite.ctx, parentID).
		Return(&models.Account{ID: parentID, Role: models.RoleReseller}, nil)

	_, err := suite.service.Create(suite.ctx, &CreateAccountRequest{
		Email:      "sub@example.com",
		Role:       models.RoleReseller,
		ResellerID: &parentID,
	})

	var verr *ValidationError
	assert.ErrorAs(suite.T(), err, &verr)
}

func (suite *AccountServiceTestSuite) TestCreate_UnknownReseller() {
	parentID := uuid.New()
	suite.accountRepo.On("GetByID", suite.ctx, parentID).Return(nil, pgx.ErrNoRows)

	_, err := suite.service.Create(suite.ctx, &CreateAccountRequest{
		Email:      "user@example.com",
		Role:       models.RoleCustomer,
		ResellerID: &parentID,
	})

	var nferr *NotFoundError
	assert.ErrorAs(suite.T(), err, &nferr)
}

func (suite *AccountServiceTestSuite) TestCreate_RetriesReferralCodeCollision() {
	suite.accountRepo.On("Create", suite.ctx, mock.Anything).
		Return(repositories.ErrDuplicateReferralCode).Once()
	suite.accountRepo.On("Create", suite.ctx, mock.Anything).Return(nil).Once()

	account, err := suite.service.Create(suite.ctx, &CreateAccountRequest{
		Email: "user@example.com",
		Role:  models.RoleCustomer,
	})

	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), account.ReferralCode)
	suite.accountRepo.AssertNumberOfCalls(suite.T(), "Create", 2)
}

func (suite *AccountServiceTestSuite) TestCreate_GivesUpAfterRepeatedCollisions() {
	suite.accountRepo.On("Create", suite.ctx, mock.Anything).
		Return(repositories.ErrDuplicateReferralCode)

	_, err := suite.service.Create(suite.ctx, &CreateAccountRequest{
		Email: "user@example.com",
		Role:  models.RoleCustomer,
	})

	var cerr *ConflictError
	assert.ErrorAs(suite.T(), err, &cerr)
	suite.accountRepo.AssertNumberOfCalls(suite.T(), "Create", 5)
}
