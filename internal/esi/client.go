package esi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public ESI endpoint.
const DefaultBaseURL = "https://esi.evetech.net/latest"

const userAgent = "lp-analyzer/1.0 (github.com)"

// Timeouts bounds each class of ESI request. Zero means "no per-call limit".
type Timeouts struct {
	Offers  time.Duration
	History time.Duration
	Orders  time.Duration
	Names   time.Duration
}

// Client is a small ESI HTTP client. One request per call, no retries.
type Client struct {
	http     *http.Client
	baseURL  string
	timeouts Timeouts
	sem      chan struct{}
	orders   singleflight.Group
}

// NewClient creates an ESI client for baseURL ("" selects DefaultBaseURL).
// At most 20 requests are in flight at once.
func NewClient(baseURL string, timeouts Timeouts) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeouts: timeouts,
		sem:      make(chan struct{}, 20),
	}
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthCheck pings ESI to verify connectivity.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := withTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := newESIRequest(ctx, http.MethodGet, c.baseURL+"/status/?datasource=tranquility", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// GetJSON fetches a URL and decodes JSON into dst.
func (c *Client) GetJSON(ctx context.Context, url string, dst interface{}) error {
	_, err := c.do(ctx, http.MethodGet, url, nil, dst)
	return err
}

// PostJSON sends body as JSON and decodes the JSON response into dst.
func (c *Client) PostJSON(ctx context.Context, url string, body interface{}, dst interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, url, payload, dst)
	return err
}

// do performs one request and returns the response headers.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, dst interface{}) (http.Header, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := newESIRequest(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.Header, fmt.Errorf("ESI %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.Header, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.Header, nil
}

// newESIRequest creates an ESI request with the common headers.
func newESIRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
