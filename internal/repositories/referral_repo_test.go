package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ReferralRepoTestSuite struct {
	suite.Suite
	mock       pgxmock.PgxPoolIface
	repo       ReferralRepository
	referrerID uuid.UUID
	referredID uuid.UUID
	referralID uuid.UUID
	context    context.Context
}

func (suite *ReferralRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewReferralRepo(mock)
	suite.referrerID = uuid.New()
	suite.referredID = uuid.New()
	suite.referralID = uuid.New()
	suite.context = context.Background()
}

func (suite *ReferralRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestReferralRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ReferralRepoTestSuite))
}

func (suite *ReferralRepoTestSuite) TestCreate_DuplicateReferredIDIsNoOp() {
	referral := &models.Referral{
		ID:         suite.referralID,
		ReferrerID: suite.referrerID,
		ReferredID: suite.referredID,
		Status:     models.ReferralPending,
	}

	suite.mock.ExpectExec(`INSERT INTO referrals .+ ON CONFLICT \(referred_id\) DO NOTHING`).
		WithArgs(referral.ID, referral.ReferrerID, referral.ReferredID, referral.Status, referral.RewardCents, referral.CompletedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := suite.repo.Create(suite.context, referral)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *ReferralRepoTestSuite) TestCompleteIfPending_Transitions() {
	completedAt := time.Now()

	suite.mock.ExpectExec(`UPDATE referrals\s+SET status = 'completed', reward_cents = \$1, completed_at = \$2\s+WHERE id = \$3 AND status = 'pending'`).
		WithArgs(int64(1000), completedAt, suite.referralID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	transitioned, err := suite.repo.CompleteIfPending(suite.context, suite.referralID, 1000, completedAt)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), transitioned)
}

func (suite *ReferralRepoTestSuite) TestCompleteIfPending_AlreadyCompleted() {
	completedAt := time.Now()

	suite.mock.ExpectExec(`UPDATE referrals\s+SET status = 'completed'`).
		WithArgs(int64(1000), completedAt, suite.referralID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	transitioned, err := suite.repo.CompleteIfPending(suite.context, suite.referralID, 1000, completedAt)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), transitioned)
}

func (suite *ReferralRepoTestSuite) TestGetByReferredID_NotFound() {
	suite.mock.ExpectQuery(`SELECT .+ FROM referrals WHERE referred_id = \$1`).
		WithArgs(suite.referredID).
		WillReturnError(pgx.ErrNoRows)

	referral, err := suite.repo.GetByReferredID(suite.context, suite.referredID)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
	assert.Nil(suite.T(), referral)
}

func (suite *ReferralRepoTestSuite) TestExpireOlderThan_ReportsSweptCount() {
	cutoff := time.Now().Add(-90 * 24 * time.Hour)

	suite.mock.ExpectExec(`UPDATE referrals SET status = 'expired' WHERE status = 'pending' AND created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	swept, err := suite.repo.ExpireOlderThan(suite.context, cutoff)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), swept)
}

func (suite *ReferralRepoTestSuite) TestStatsByReferrer() {
	suite.mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WithArgs(suite.referrerID).
		WillReturnRows(pgxmock.NewRows([]string{"total", "completed", "pending", "earned"}).
			AddRow(5, 3, 1, int64(3000)))

	stats, err := suite.repo.StatsByReferrer(suite.context, suite.referrerID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 5, stats.TotalReferred)
	assert.Equal(suite.T(), int64(3000), stats.TotalEarnedCents)
}
