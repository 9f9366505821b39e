// Package webhook posts operational alerts (replication failures,
// low-stock sweeps) to a configured HTTP endpoint.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Notifier delivers alert payloads to the ops channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Alert is the JSON payload delivered to the webhook.
type Alert struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Alert kinds emitted by the core.
const (
	KindReplicationFailure = "replication_failure"
	KindLowStock           = "low_stock"
)

// Client is a resty-backed Notifier.
type Client struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook notifier for the given endpoint URL.
func NewClient(url string) *Client {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &Client{httpClient: restyClient, url: url}
}

// Notify posts the alert. Any non-2xx response is reported as an error;
// callers treat delivery as best effort.
func (c *Client) Notify(ctx context.Context, alert Alert) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post alert webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// Nop is a Notifier that drops every alert. Used when no webhook URL is
// configured.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(ctx context.Context, alert Alert) error { return nil }
