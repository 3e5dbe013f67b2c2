package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Notification template keys used by the billing engine.
const (
	TemplatePaymentConfirmed = "payment_confirmed"
	TemplateChargeFailed     = "charge_failed"
	TemplateReferralReward   = "referral_reward"
	TemplatePeriodClosed     = "commission_period_closed"
)

// NotificationService is the outbound mail boundary. Delivery is
// fire-and-forget: a failure is logged and never blocks a financial state
// transition.
type NotificationService interface {
	Send(ctx context.Context, accountID uuid.UUID, templateKey string, variables map[string]string) error
}

type notificationService struct {
	senderURL string
	http      *http.Client
}

// NewNotificationService posts to the configured notification sender. With an
// empty URL it degrades to logging only, which keeps development environments
// free of a mail dependency.
func NewNotificationService(senderURL string) NotificationService {
	return &notificationService{
		senderURL: senderURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	AccountID string            `json:"account_id"`
	Template  string            `json:"template"`
	Variables map[string]string `json:"variables,omitempty"`
}

func (s *notificationService) Send(ctx context.Context, accountID uuid.UUID, templateKey string, variables map[string]string) error {
	if s.senderURL == "" {
		log.Printf("notification (no sender configured): account=%s template=%s", accountID, templateKey)
		return nil
	}

	payload, err := json.Marshal(sendRequest{
		AccountID: accountID.String(),
		Template:  templateKey,
		Variables: variables,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.senderURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification sender returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// notify delivers without propagating failures; billing flows call this
// instead of Send directly.
func notify(ctx context.Context, svc NotificationService, accountID uuid.UUID, templateKey string, variables map[string]string) {
	if svc == nil {
		return
	}
	if err := svc.Send(ctx, accountID, templateKey, variables); err != nil {
		log.Printf("notification delivery failed: account=%s template=%s: %v", accountID, templateKey, err)
	}
}
