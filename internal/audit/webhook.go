package audit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sysconfd/internal/config"
	"sysconfd/internal/retry"
	"sysconfd/internal/types"
	"sysconfd/internal/version"

	"go.uber.org/zap"
)

// WebhookPayload is the body posted for every report
type WebhookPayload struct {
	EventType string                   `json:"event_type"`
	EventID   string                   `json:"event_id"`
	Timestamp time.Time                `json:"timestamp"`
	Data      *types.TransactionReport `json:"data"`
}

// WebhookPublisher posts reports to an HTTP endpoint
type WebhookPublisher struct {
	config *config.WebhookConfig
	client *http.Client
	logger *zap.Logger
}

// NewWebhookPublisher creates a webhook sink
func NewWebhookPublisher(cfg *config.WebhookConfig, logger *zap.Logger) *WebhookPublisher {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}

	return &WebhookPublisher{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Publish posts the report. Server errors are retryable; other failures
// are permanent.
func (p *WebhookPublisher) Publish(ctx context.Context, report *types.TransactionReport) error {
	payload := WebhookPayload{
		EventType: "transaction." + string(report.Status),
		EventID:   report.ID,
		Timestamp: report.FinishedAt,
		Data:      report,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.URL, bytes.NewReader(data))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent("webhook"))
	req.Header.Set("X-Sysconfd-Event", payload.EventType)
	req.Header.Set("X-Sysconfd-Delivery", payload.EventID)
	if p.config.Secret != "" {
		req.Header.Set("X-Sysconfd-Signature", calculateSignature(data, []byte(p.config.Secret)))
	}
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func(body io.ReadCloser) {
		_, _ = io.Copy(io.Discard, body)
		if err := body.Close(); err != nil {
			p.logger.Debug("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return retry.Permanent(fmt.Errorf("webhook request rejected with status %d", resp.StatusCode))
	}

	p.logger.Debug("Report posted to webhook",
		zap.String("transaction_id", report.ID),
		zap.Int("status", resp.StatusCode))
	return nil
}

// Close releases idle connections
func (p *WebhookPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// calculateSignature returns the hex HMAC-SHA256 of payload
func calculateSignature(payload []byte, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
