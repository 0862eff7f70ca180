package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/pkg/queue"
)

// WebhookAlerter logs every emergency and POSTs it as JSON to url when one is configured.
type WebhookAlerter struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookAlerter creates an alerter. An empty url only logs.
func NewWebhookAlerter(url string, logger *zap.Logger) *WebhookAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookAlerter{url: url, client: &http.Client{Timeout: 10 * time.Second}, logger: logger}
}

// alertMessage is the body posted to the alert webhook. Text suits chat incoming-webhooks.
type alertMessage struct {
	Text  string                      `json:"text"`
	Alert queue.EmergencyAlertPayload `json:"alert"`
}

// Alert delivers one emergency. Non-2xx responses are errors so the job is retried.
func (a *WebhookAlerter) Alert(ctx context.Context, alert queue.EmergencyAlertPayload) error {
	a.logger.Error("EMERGENCY: payment needs manual reconciliation",
		zap.String("link_status", alert.LinkStatus),
		zap.String("message", alert.Message),
		zap.Stringp("event_id", alert.EventID),
		zap.Stringp("phone", alert.Phone),
		zap.Stringp("claimed_registration_id", alert.RegistrationID),
		zap.Bool("recognized", alert.Recognized),
		zap.String("body_hash", alert.BodyHash),
	)
	if a.url == "" {
		return nil
	}

	body, err := json.Marshal(alertMessage{Text: summary(alert), Alert: alert})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("alert webhook status: %d", resp.StatusCode)
	}
	return nil
}

func summary(a queue.EmergencyAlertPayload) string {
	s := fmt.Sprintf("Payment emergency (%s): %s", a.LinkStatus, a.Message)
	if a.EventID != nil {
		s += " event=" + *a.EventID
	}
	if a.Phone != nil {
		s += " phone=" + *a.Phone
	}
	return s
}
