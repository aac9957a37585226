// Package shopify is a small Shopify Admin REST client covering the calls the bridge makes:
// order metafields, orders, fulfillment orders and fulfillments.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
)

const (
	DefaultAPIVersion = "2024-01"
	DefaultTimeout    = 10 * time.Second

	maxResponseSize = 2 << 20
	errorBodySize   = 500
)

var ErrNotFound = errors.New("shopify: not found")

// APIError is a non-2xx answer from the Admin API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

type Config struct {
	// Store is the myshopify handle ("my-store") or full domain.
	Store       string
	APIVersion  string
	AccessToken string
	Timeout     time.Duration
	// RequestsPerSecond is the client-side budget; the REST bucket leaks at 2/s on standard plans.
	RequestsPerSecond float64
	Burst             int
	// BaseURL overrides the URL derived from Store.
	BaseURL string
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("shopify: access token is not configured")
	}

	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Store == "" {
			return nil, errors.New("shopify: store is not configured")
		}
		host := cfg.Store
		if !strings.Contains(host, ".") {
			host += ".myshopify.com"
		}
		baseURL = "https://" + host
	}
	baseURL = strings.TrimRight(baseURL, "/") + "/admin/api/" + cfg.APIVersion

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.AccessToken,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("shopify: rate limit wait: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("shopify: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("shopify: create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shopify %s %s: %w", method, path, apperr.Timeout(err))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("shopify %s %s: read response: %w", method, path, apperr.Timeout(err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := raw
		if len(preview) > errorBodySize {
			preview = preview[:errorBodySize]
		}
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: string(preview)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("shopify %s %s: decode response: %w", method, path, err)
	}

	return nil
}
