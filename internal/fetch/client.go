package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout   = 25 * time.Second
	defaultBodyLimit = 4 * 1024 * 1024
	maxRetries       = 3

	userAgent = "SportwireCrawler/1.0 (+https://horse.fit/sportwire)"
)

// FetchError describes a failed page fetch.
type FetchError struct {
	URL       string
	Status    int
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches portal pages with bounded retries on transient failures.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a crawler HTTP client.
func NewClient() *Client {
	return &Client{httpClient: &http.Client{Timeout: defaultTimeout}}
}

// NewClientWithHTTP is used by tests.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient}
}

// Get downloads one page. Network errors, 429, and 5xx responses are
// retried with exponential backoff up to three attempts; 4xx responses
// fail permanently.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(&FetchError{URL: url, Err: err})
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.5")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &FetchError{URL: url, Transient: true, Err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &FetchError{URL: url, Status: resp.StatusCode, Transient: true}
		default:
			return backoff.Permanent(&FetchError{URL: url, Status: resp.StatusCode})
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, defaultBodyLimit))
		if err != nil {
			return &FetchError{URL: url, Transient: true, Err: err}
		}
		body = data
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}
