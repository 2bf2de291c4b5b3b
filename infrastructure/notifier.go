package infrastructure

import (
	"context"
	"fmt"
	"time"

	"ats-evaluator/domain"

	"github.com/go-resty/resty/v2"
)

// Notifier receives an event after each successfully stored evaluation.
type Notifier interface {
	Notify(ctx context.Context, event domain.EvaluationEvent) error
}

// WebhookNotifier posts events as JSON to an automation webhook (Zapier and friends).
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &WebhookNotifier{client: client, url: url}
}

func (w *WebhookNotifier) Notify(ctx context.Context, event domain.EvaluationEvent) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(event).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
