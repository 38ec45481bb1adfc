package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/livestock/internal/config"
)

// Client posts operational summaries (backfill repairs, import batches)
// to a configured endpoint as raw JSON.
type Client interface {
	Notify(ctx context.Context, event string, payload any) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client from configuration.
func NewClient(cfg config.WebhookConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		url:        cfg.URL,
	}
}

// Notify delivers one event. Delivery is best effort; callers log and move on.
func (c *APIClient) Notify(ctx context.Context, event string, payload any) error {
	body := map[string]any{
		"event":   event,
		"payload": payload,
		"sent_at": time.Now().UTC(),
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post webhook event %s: %w", event, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook endpoint rejected event %s: status=%d", event, resp.StatusCode())
	}

	return nil
}
