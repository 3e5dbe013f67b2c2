package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Webhook event types delivered by the payment processor.
const (
	EventInvoicePaid          = "invoice.paid"
	EventInvoiceFailed        = "invoice.payment_failed"
	EventSubscriptionCanceled = "subscription.canceled"
)

// GatewayService is the boundary to the external payment processor. Network
// failures are retried with backoff up to the configured budget; business
// rejections (4xx) are not.
type GatewayService interface {
	CreateIntent(ctx context.Context, accountID, planID uuid.UUID, amountCents int64, discountPercent float64) (*PaymentIntent, error)
	CancelSubscription(ctx context.Context, gatewaySubscriptionID string) error
	VerifyWebhookSignature(rawPayload []byte, signatureHeader string) (*WebhookEvent, error)
}

// PaymentIntent is the client-facing half of intent creation; the token goes
// back to the browser, the subscription id is stored locally.
type PaymentIntent struct {
	ClientToken           string `json:"client_token"`
	GatewaySubscriptionID string `json:"gateway_subscription_id"`
}

// WebhookEvent is one verified processor notification. Period bounds arrive
// as unix seconds; AttemptNumber is set on charge-failure events.
type WebhookEvent struct {
	ID                    string `json:"id"`
	Type                  string `json:"type"`
	CreatedAt             int64  `json:"created_at"`
	GatewaySubscriptionID string `json:"subscription_id"`
	GatewayInvoiceID      string `json:"invoice_id"`
	AccountID             string `json:"account_id"`
	AmountCents           int64  `json:"amount_cents"`
	PeriodStart           int64  `json:"period_start"`
	PeriodEnd             int64  `json:"period_end"`
	AttemptNumber         int    `json:"attempt_number"`
}

// GatewayConfig carries processor credentials and retry policy; constructed
// once in main and injected, never mutated at runtime.
type GatewayConfig struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	WebhookSecret string
	Timeout       time.Duration
	MaxRetries    int
}

type gatewayService struct {
	cfg  GatewayConfig
	http *http.Client
}

func NewGatewayService(cfg GatewayConfig) GatewayService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &gatewayService{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type createIntentRequest struct {
	AccountID       string  `json:"account_id"`
	PlanID          string  `json:"plan_id"`
	AmountCents     int64   `json:"amount_cents"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
}

func (s *gatewayService) CreateIntent(ctx context.Context, accountID, planID uuid.UUID, amountCents int64, discountPercent float64) (*PaymentIntent, error) {
	req := createIntentRequest{
		AccountID:       accountID.String(),
		PlanID:          planID.String(),
		AmountCents:     amountCents,
		DiscountPercent: discountPercent,
	}
	body, err := s.makeRequest(ctx, http.MethodPost, "/v1/subscriptions", req)
	if err != nil {
		return nil, &GatewayError{Op: "create intent", Err: err}
	}
	intent := &PaymentIntent{}
	if err := json.Unmarshal(body, intent); err != nil {
		return nil, &GatewayError{Op: "create intent", Err: err}
	}
	return intent, nil
}

func (s *gatewayService) CancelSubscription(ctx context.Context, gatewaySubscriptionID string) error {
	path := fmt.Sprintf("/v1/subscriptions/%s/cancel", gatewaySubscriptionID)
	if _, err := s.makeRequest(ctx, http.MethodPost, path, map[string]bool{"at_period_end": true}); err != nil {
		return &GatewayError{Op: "cancel subscription", Err: err}
	}
	return nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 hex signature over the raw
// payload in constant time before parsing anything.
func (s *gatewayService) VerifyWebhookSignature(rawPayload []byte, signatureHeader string) (*WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write(rawPayload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signatureHeader), []byte(expected)) {
		return nil, ErrSignatureInvalid
	}

	event := &WebhookEvent{}
	if err := json.Unmarshal(rawPayload, event); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	return event, nil
}

// businessError marks a 4xx rejection from the processor, which must not be
// retried.
type businessError struct {
	status int
	body   string
}

func (e *businessError) Error() string {
	return fmt.Sprintf("gateway rejected request (HTTP %d): %s", e.status, e.body)
}

func (s *gatewayService) makeRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * 500 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := s.doRequest(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		var rejected *businessError
		if errors.As(err, &rejected) {
			return nil, err
		}
		lastErr = err
		log.Printf("gateway %s %s attempt %d/%d failed: %v", method, path, attempt, s.cfg.MaxRetries, err)
	}
	return nil, lastErr
}

func (s *gatewayService) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.APIKey, s.cfg.APISecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &businessError{status: resp.StatusCode, body: string(body)}
	default:
		return nil, fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)
	}
}
