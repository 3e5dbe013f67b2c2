package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// WebhookHandlers receives payment-processor notifications. Every event type
// is processed idempotently: a redelivered event answers success without
// side effects, a processing failure answers 5xx so the processor redelivers.
type WebhookHandlers struct {
	gatewayService      services.GatewayService
	subscriptionService services.SubscriptionService
	ledgerService       services.LedgerService
}

// NewWebhookHandlers creates a new webhook handlers instance
func NewWebhookHandlers(
	gatewayService services.GatewayService,
	subscriptionService services.SubscriptionService,
	ledgerService services.LedgerService,
) *WebhookHandlers {
	return &WebhookHandlers{
		gatewayService:      gatewayService,
		subscriptionService: subscriptionService,
		ledgerService:       ledgerService,
	}
}

// PaymentWebhook handles POST /webhooks/payment
func (h *WebhookHandlers) PaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get("X-Gateway-Signature")
	if signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing gateway signature")
	}

	event, err := h.gatewayService.VerifyWebhookSignature(body, signature)
	if err != nil {
		if errors.Is(err, services.ErrSignatureInvalid) {
			log.Printf("webhook rejected: %v", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.processEvent(c, event); err != nil {
		log.Printf("webhook event %s (%s) failed: %v", event.ID, event.Type, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Event processing failed")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
		"event":  event.Type,
	})
}

func (h *WebhookHandlers) processEvent(c echo.Context, event *services.WebhookEvent) error {
	ctx := c.Request().Context()

	switch event.Type {
	case services.EventInvoicePaid:
		return h.handleInvoicePaid(c, event)
	case services.EventInvoiceFailed:
		return h.handleInvoiceFailed(c, event)
	case services.EventSubscriptionCanceled:
		return h.subscriptionService.HandleCancellationConfirmed(ctx, event.GatewaySubscriptionID)
	default:
		// Unknown event types are acknowledged so the processor stops
		// redelivering them.
		log.Printf("ignoring unhandled webhook event type %s", event.Type)
		return nil
	}
}

func (h *WebhookHandlers) handleInvoicePaid(c echo.Context, event *services.WebhookEvent) error {
	ctx := c.Request().Context()

	accountID, err := uuid.Parse(event.AccountID)
	if err != nil {
		return fmt.Errorf("invalid account_id in event %s: %w", event.ID, err)
	}

	periodStart := time.Unix(event.PeriodStart, 0).UTC()
	periodEnd := time.Unix(event.PeriodEnd, 0).UTC()
	paidAt := time.Unix(event.CreatedAt, 0).UTC()

	_, _, err = h.ledgerService.Record(ctx, &services.RecordInvoiceRequest{
		GatewayInvoiceID: event.GatewayInvoiceID,
		AccountID:        accountID,
		AmountCents:      event.AmountCents,
		Status:           "paid",
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		PaidAt:           &paidAt,
	})
	if err != nil {
		return err
	}

	_, err = h.subscriptionService.ConfirmPayment(ctx, event.GatewaySubscriptionID, periodStart, periodEnd)
	return err
}

func (h *WebhookHandlers) handleInvoiceFailed(c echo.Context, event *services.WebhookEvent) error {
	ctx := c.Request().Context()

	accountID, err := uuid.Parse(event.AccountID)
	if err != nil {
		return fmt.Errorf("invalid account_id in event %s: %w", event.ID, err)
	}

	periodEnd := time.Unix(event.PeriodEnd, 0).UTC()
	_, _, err = h.ledgerService.Record(ctx, &services.RecordInvoiceRequest{
		GatewayInvoiceID: event.GatewayInvoiceID,
		AccountID:        accountID,
		AmountCents:      event.AmountCents,
		Status:           "failed",
		PeriodStart:      time.Unix(event.PeriodStart, 0).UTC(),
		PeriodEnd:        periodEnd,
	})
	if err != nil {
		return err
	}

	return h.subscriptionService.HandleChargeFailure(ctx, event.GatewaySubscriptionID, periodEnd, event.AttemptNumber)
}
