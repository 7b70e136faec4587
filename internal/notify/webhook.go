// Package notify forwards final region selections to a build webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ppiankov/regioncost/internal/store"
)

const (
	DefaultRetries = 3
	DefaultTimeout = 10 * time.Second
)

// Options configures a Webhook.
type Options struct {
	// Retries is the number of extra attempts. Zero selects DefaultRetries;
	// negative disables retries.
	Retries int
	Timeout time.Duration
	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// Webhook posts selections as JSON to a fixed URL.
type Webhook struct {
	url    string
	client *retryablehttp.Client
}

// NewWebhook validates the URL and builds a retrying client.
func NewWebhook(rawURL string, opts Options) (*Webhook, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid webhook URL %q", rawURL)
	}

	client := retryablehttp.NewClient()
	switch {
	case opts.Retries > 0:
		client.RetryMax = opts.Retries
	case opts.Retries < 0:
		client.RetryMax = 0
	default:
		client.RetryMax = DefaultRetries
	}
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = slog.Default()
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.HTTPClient != nil {
		client.HTTPClient = opts.HTTPClient
	}
	client.HTTPClient.Timeout = DefaultTimeout
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}

	return &Webhook{url: rawURL, client: client}, nil
}

// URL returns the webhook endpoint.
func (w *Webhook) URL() string { return w.url }

// Notify posts the selection. 200 and 202 count as delivered.
func (w *Webhook) Notify(ctx context.Context, sel store.SelectionRecord) error {
	body, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		slog.Info("Selection delivered", "id", sel.ID, "region", sel.SelectedRegion, "status", resp.StatusCode)
		return nil
	default:
		return &StatusError{StatusCode: resp.StatusCode}
	}
}

// StatusError is returned when the webhook answers with a status other than
// 200 or 202.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned HTTP %d", e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
