package services

import (
	"context"
	"testing"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	db          pgxmock.PgxPoolIface
	invoiceRepo *MockInvoiceRepository
	accountRepo *MockAccountRepository
	periodRepo  *MockCommissionPeriodRepository
	referralSvc *MockReferralService
	service     LedgerService
	accountID   uuid.UUID
	resellerID  uuid.UUID
	ctx         context.Context
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.db = db

	suite.invoiceRepo = new(MockInvoiceRepository)
	suite.accountRepo = new(MockAccountRepository)
	suite.periodRepo = new(MockCommissionPeriodRepository)
	suite.referralSvc = new(MockReferralService)
	suite.service = NewLedgerService(
		db,
		suite.invoiceRepo,
		suite.accountRepo,
		suite.periodRepo,
		suite.referralSvc,
		LedgerPolicy{LockWait: 5 * time.Second},
	)
	suite.accountID = uuid.New()
	suite.resellerID = uuid.New()
	suite.ctx = context.Background()
}

func (suite *LedgerServiceTestSuite) TearDownTest() {
	suite.db.Close()
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (suite *LedgerServiceTestSuite) request(status string) *RecordInvoiceRequest {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return &RecordInvoiceRequest{
		GatewayInvoiceID: "inv_001",
		AccountID:        suite.accountID,
		AmountCents:      2900,
		Status:           status,
		PeriodStart:      start,
		PeriodEnd:        start.AddDate(0, 1, 0),
	}
}

func (suite *LedgerServiceTestSuite) expectTx() {
	suite.db.ExpectBegin()
	suite.db.ExpectExec(`SET LOCAL lock_timeout = \d+`).
		WillReturnResult(pgxmock.NewResult("SET", 0))
	suite.db.ExpectCommit()
	suite.db.ExpectRollback()
}

func (suite *LedgerServiceTestSuite) TestRecord_DirectCustomerNoPeriodStamp() {
	account := &models.Account{ID: suite.accountID, Role: models.RoleCustomer}
	suite.accountRepo.On("GetByID", suite.ctx, suite.accountID).Return(account, nil)
	suite.expectTx()

	stored := &models.Invoice{
		ID:               uuid.New(),
		AccountID:        suite.accountID,
		GatewayInvoiceID: "inv_001",
		Status:           models.InvoicePaid,
	}
	suite.invoiceRepo.On("InsertIdempotent", suite.ctx, mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.CommissionPeriodID == nil && inv.GatewayInvoiceID == "inv_001"
	})).Return(true, stored, nil)
	suite.referralSvc.On("HandleFirstPaidInvoice", suite.ctx, suite.accountID).Return(nil)

	invoice, inserted, err := suite.service.Record(suite.ctx, suite.request(models.InvoicePaid))

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
	assert.Nil(suite.T(), invoice.CommissionPeriodID)
	suite.referralSvc.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestRecord_ResellerCustomerStampsOpenPeriod() {
	account := &models.Account{ID: suite.accountID, Role: models.RoleCustomer, ResellerID: &suite.resellerID}
	suite.accountRepo.On("GetByID", suite.ctx, suite.accountID).Return(account, nil)
	suite.expectTx()

	periodID := uuid.New()
	suite.periodRepo.On("OpenPeriodForUpdate", suite.ctx, mock.Anything, suite.resellerID, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.CommissionPeriod{ID: periodID, ResellerID: suite.resellerID, Status: models.CommissionPeriodOpen}, nil)

	stored := &models.Invoice{
		ID:                 uuid.New(),
		AccountID:          suite.accountID,
		GatewayInvoiceID:   "inv_001",
		Status:             models.InvoicePaid,
		CommissionPeriodID: &periodID,
	}
	suite.invoiceRepo.On("InsertIdempotent", suite.ctx, mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.CommissionPeriodID != nil && *inv.CommissionPeriodID == periodID
	})).Return(true, stored, nil)
	suite.referralSvc.On("HandleFirstPaidInvoice", suite.ctx, suite.accountID).Return(nil)

	invoice, inserted, err := suite.service.Record(suite.ctx, suite.request(models.InvoicePaid))

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
	assert.Equal(suite.T(), periodID, *invoice.CommissionPeriodID)
}

func (suite *LedgerServiceTestSuite) TestRecord_DuplicateDeliveryWritesNothingButRetriesFanOut() {
	account := &models.Account{ID: suite.accountID, Role: models.RoleCustomer}
	suite.accountRepo.On("GetByID", suite.ctx, suite.accountID).Return(account, nil)
	suite.expectTx()

	stored := &models.Invoice{
		ID:               uuid.New(),
		AccountID:        suite.accountID,
		GatewayInvoiceID: "inv_001",
		Status:           models.InvoicePaid,
	}
	suite.invoiceRepo.On("InsertIdempotent", suite.ctx, mock.Anything, mock.Anything).Return(false, stored, nil)
	// Redelivery happens when the first attempt committed but its fan-out
	// failed, so the duplicate must still reach the referral pipeline.
	suite.referralSvc.On("HandleFirstPaidInvoice", suite.ctx, suite.accountID).Return(nil)

	invoice, inserted, err := suite.service.Record(suite.ctx, suite.request(models.InvoicePaid))

	assert.NoError(suite.T(), err)
	assert.False(suite.T(), inserted)
	assert.Equal(suite.T(), stored.ID, invoice.ID)
	suite.referralSvc.AssertNumberOfCalls(suite.T(), "HandleFirstPaidInvoice", 1)
}

func (suite *LedgerServiceTestSuite) TestRecord_FailedInvoiceNoReferralFanOut() {
	account := &models.Account{ID: suite.accountID, Role: models.RoleCustomer}
	suite.accountRepo.On("GetByID", suite.ctx, suite.accountID).Return(account, nil)
	suite.expectTx()

	stored := &models.Invoice{
		ID:               uuid.New(),
		AccountID:        suite.accountID,
		GatewayInvoiceID: "inv_001",
		Status:           models.InvoiceFailed,
	}
	suite.invoiceRepo.On("InsertIdempotent", suite.ctx, mock.Anything, mock.Anything).Return(true, stored, nil)

	_, inserted, err := suite.service.Record(suite.ctx, suite.request(models.InvoiceFailed))

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), inserted)
	suite.referralSvc.AssertNotCalled(suite.T(), "HandleFirstPaidInvoice", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestRecord_RollsForwardPastClosedPeriod() {
	account := &models.Account{ID: suite.accountID, Role: models.RoleCustomer, ResellerID: &suite.resellerID}
	suite.accountRepo.On("GetByID", suite.ctx, suite.accountID).Return(account, nil)
	suite.expectTx()

	closedID := uuid.New()
	openID := uuid.New()
	suite.periodRepo.On("OpenPeriodForUpdate", suite.ctx, mock.Anything, suite.resellerID, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.CommissionPeriod{ID: closedID, Status: models.CommissionPeriodClosed}, nil).Once()
	suite.periodRepo.On("OpenPeriodForUpdate", suite.ctx, mock.Anything, suite.resellerID, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.CommissionPeriod{ID: openID, Status: models.CommissionPeriodOpen}, nil).Once()

	stored := &models.Invoice{
		ID:                 uuid.New(),
		AccountID:          suite.accountID,
		GatewayInvoiceID:   "inv_001",
		Status:             models.InvoicePaid,
		CommissionPeriodID: &openID,
	}
	suite.invoiceRepo.On("InsertIdempotent", suite.ctx, mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.CommissionPeriodID != nil && *inv.CommissionPeriodID == openID
	})).Return(true, stored, nil)
	suite.referralSvc.On("HandleFirstPaidInvoice", suite.ctx, suite.accountID).Return(nil)

	invoice, _, err := suite.service.Record(suite.ctx, suite.request(models.InvoicePaid))

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), openID, *invoice.CommissionPeriodID)
}

func (suite *LedgerServiceTestSuite) TestRecord_UnknownStatusRejected() {
	_, _, err := suite.service.Record(suite.ctx, suite.request("refunded"))

	var verr *ValidationError
	assert.ErrorAs(suite.T(), err, &verr)
	suite.accountRepo.AssertNotCalled(suite.T(), "GetByID", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestRecord_MissingGatewayInvoiceID() {
	req := suite.request(models.InvoicePaid)
	req.GatewayInvoiceID = ""

	_, _, err := suite.service.Record(suite.ctx, req)

	var verr *ValidationError
	assert.ErrorAs(suite.T(), err, &verr)
}

func (suite *LedgerServiceTestSuite) TestRecord_UnknownAccount() {
	suite.accountRepo.On("GetByID", suite.ctx, suite.accountID).Return(nil, pgx.ErrNoRows)

	_, _, err := suite.service.Record(suite.ctx, suite.request(models.InvoicePaid))

	var nferr *NotFoundError
	assert.ErrorAs(suite.T(), err, &nferr)
}
