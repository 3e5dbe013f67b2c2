package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/billing"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"
	"github.com/liamcarterppt/MailControlHub-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerService is the append-only invoice ledger reconciled from webhooks.
// Recording is idempotent on the gateway invoice id: a duplicate delivery
// never writes a second row, and the referral fan-out it re-triggers is
// single-shot on its own.
type LedgerService interface {
	Record(ctx context.Context, req *RecordInvoiceRequest) (*models.Invoice, bool, error)
	History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
}

type RecordInvoiceRequest struct {
	GatewayInvoiceID string
	AccountID        uuid.UUID
	AmountCents      int64
	Status           string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	PaidAt           *time.Time
}

// LedgerPolicy bounds how long an invoice write may wait on a reseller's
// period lock before aborting; the webhook is then redelivered.
type LedgerPolicy struct {
	LockWait time.Duration
}

type ledgerService struct {
	db           repositories.Database
	invoiceRepo  repositories.InvoiceRepository
	accountRepo  repositories.AccountRepository
	periodRepo   repositories.CommissionPeriodRepository
	referralSvc  ReferralService
	policy       LedgerPolicy
}

func NewLedgerService(
	db repositories.Database,
	invoiceRepo repositories.InvoiceRepository,
	accountRepo repositories.AccountRepository,
	periodRepo repositories.CommissionPeriodRepository,
	referralSvc ReferralService,
	policy LedgerPolicy,
) LedgerService {
	if policy.LockWait <= 0 {
		policy.LockWait = 5 * time.Second
	}
	return &ledgerService{
		db:          db,
		invoiceRepo: invoiceRepo,
		accountRepo: accountRepo,
		periodRepo:  periodRepo,
		referralSvc: referralSvc,
		policy:      policy,
	}
}

// Record inserts the invoice, stamping it with the owning reseller's open
// commission period under the same row lock the close operation takes. The
// bool result reports whether a new row was written. Every paid delivery,
// duplicate or not, reaches the referral pipeline, whose first-invoice
// transition deduplicates on its own.
func (s *ledgerService) Record(ctx context.Context, req *RecordInvoiceRequest) (*models.Invoice, bool, error) {
	switch req.Status {
	case models.InvoicePending, models.InvoicePaid, models.InvoiceFailed, models.InvoiceCanceled:
	default:
		return nil, false, &ValidationError{Msg: "unknown invoice status: " + req.Status}
	}
	if req.GatewayInvoiceID == "" {
		return nil, false, &ValidationError{Msg: "gateway invoice id is required"}
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, &NotFoundError{Resource: "account"}
	}
	if err != nil {
		return nil, false, err
	}

	invoice := &models.Invoice{
		ID:               uuid.New(),
		AccountID:        req.AccountID,
		GatewayInvoiceID: req.GatewayInvoiceID,
		AmountCents:      req.AmountCents,
		Status:           req.Status,
		PeriodStart:      req.PeriodStart,
		PeriodEnd:        req.PeriodEnd,
		PaidAt:           req.PaidAt,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", s.policy.LockWait.Milliseconds())); err != nil {
		return nil, false, err
	}

	if account.ResellerID != nil {
		period, err := s.openPeriodFor(ctx, tx, *account.ResellerID)
		if err != nil {
			return nil, false, err
		}
		invoice.CommissionPeriodID = &period.ID
	}

	inserted, stored, err := s.invoiceRepo.InsertIdempotent(ctx, tx, invoice)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}

	if stored.Status == models.InvoicePaid {
		// Runs on duplicate deliveries too: if the fan-out failed after the
		// first commit, the webhook answered non-2xx and the processor
		// redelivers, so the retry must reach this point again. The referral
		// transition is itself single-shot, so replays cannot double-issue.
		if err := s.referralSvc.HandleFirstPaidInvoice(ctx, stored.AccountID); err != nil {
			return stored, inserted, fmt.Errorf("referral fan-out for invoice %s: %w", stored.GatewayInvoiceID, err)
		}
	}
	return stored, inserted, nil
}

// openPeriodFor locks the reseller's open period for the current month,
// rolling forward past already-closed periods so a late invoice lands in the
// next open one rather than disappearing.
func (s *ledgerService) openPeriodFor(ctx context.Context, tx pgx.Tx, resellerID uuid.UUID) (*models.CommissionPeriod, error) {
	period := billing.MonthOf(time.Now())
	for i := 0; i < 12; i++ {
		row, err := s.periodRepo.OpenPeriodForUpdate(ctx, tx, resellerID, period.Key(), period.Start, period.End)
		if err != nil {
			return nil, err
		}
		if row.Status == models.CommissionPeriodOpen {
			return row, nil
		}
		period = billing.Period{Start: period.End, End: period.End.AddDate(0, 1, 0)}
	}
	return nil, &ConflictError{Msg: "no open commission period available for reseller " + resellerID.String()}
}

func (s *ledgerService) History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.invoiceRepo.ListByAccount(ctx, accountID, limit, offset)
}
