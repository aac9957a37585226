package wooacry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

const (
	DefaultBaseURL = "https://api-new.wooacry.com"
	DefaultTimeout = 15 * time.Second

	maxResponseSize = 1 << 20
	bodyPreviewSize = 800
	rawErrorSize    = 500
)

var meter = otel.Meter("wooacry")

type Config struct {
	BaseURL      string
	ResellerFlag string
	Secret       string
	Version      string
	Timeout      time.Duration
}

// Client talks to the Wooacry reseller open API. Every call is signed.
type Client struct {
	baseURL    string
	timeout    time.Duration
	signer     *Signer
	httpClient *http.Client
	now        func() time.Time
	duration   metric.Float64Histogram
}

// NewClient fails when the reseller flag or secret is missing. A nil httpClient gets an
// otelhttp-instrumented default.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	signer, err := NewSigner(cfg.ResellerFlag, cfg.Secret, cfg.Version)
	if err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	duration, err := meter.Float64Histogram("bridge.partner.call.duration",
		metric.WithDescription("Duration of Wooacry API calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create partner duration histogram: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		signer:     signer,
		httpClient: httpClient,
		now:        time.Now,
		duration:   duration,
	}, nil
}

// Timeout is the per-call deadline applied by the client.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) Preorder(ctx context.Context, req PreorderRequest) (*PreorderResult, error) {
	resp, err := c.call(ctx, pathPreorder, req)
	if err != nil {
		return nil, err
	}

	var result PreorderResult
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, &apperr.UpstreamBusinessError{
				Endpoint:   pathPreorder,
				HTTPStatus: resp.HTTPStatus,
				Code:       resp.Code,
				Message:    "unreadable shipping_methods: " + err.Error(),
				Raw:        truncate(resp.Body, rawErrorSize),
			}
		}
	}

	if len(result.ShippingMethods) == 0 {
		return nil, apperr.ErrNoQuotes
	}

	return &result, nil
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	resp, err := c.call(ctx, pathCreateOrder, req)
	if err != nil {
		return nil, err
	}

	var data struct {
		OrderSN domain.FlexString `json:"order_sn"`
	}
	if len(resp.Data) > 0 {
		_ = json.Unmarshal(resp.Data, &data)
	}

	if data.OrderSN.String() == "" {
		return nil, &apperr.UpstreamBusinessError{
			Endpoint:   pathCreateOrder,
			HTTPStatus: resp.HTTPStatus,
			Code:       resp.Code,
			Message:    "response has no order_sn",
			Raw:        truncate(resp.Body, rawErrorSize),
		}
	}

	return &CreateOrderResult{
		OrderSN:  data.OrderSN.String(),
		Response: resp.Body,
	}, nil
}

// The lookups below return the partner envelope whatever its code; only transport and
// non-JSON responses are errors.

func (c *Client) OrderInfo(ctx context.Context, thirdPartyOrderSN string) (*Response, error) {
	return c.do(ctx, pathOrderInfo, OrderRefRequest{ThirdPartyOrderSN: thirdPartyOrderSN})
}

func (c *Client) CancelOrder(ctx context.Context, thirdPartyOrderSN string) (*Response, error) {
	return c.do(ctx, pathOrderCancel, OrderRefRequest{ThirdPartyOrderSN: thirdPartyOrderSN})
}

func (c *Client) ChangeAddress(ctx context.Context, req AddressChangeRequest) (*Response, error) {
	return c.do(ctx, pathAddressChange, req)
}

func (c *Client) CustomizeInfo(ctx context.Context, customizeNo string) (*Response, error) {
	return c.do(ctx, pathCustomizeInfo, CustomizeInfoRequest{CustomizeNo: customizeNo})
}

// call is do plus the code check.
func (c *Client) call(ctx context.Context, path string, payload any) (*Response, error) {
	resp, err := c.do(ctx, path, payload)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		return nil, &apperr.UpstreamBusinessError{
			Endpoint:   path,
			HTTPStatus: resp.HTTPStatus,
			Code:       resp.Code,
			Message:    resp.Message,
			Raw:        truncate(resp.Body, rawErrorSize),
		}
	}

	return resp, nil
}

func (c *Client) do(ctx context.Context, path string, payload any) (resp *Response, err error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wooacry: marshal %s request: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		c.duration.Record(context.WithoutCancel(ctx), time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String("endpoint", path),
				attribute.String("outcome", outcome(err)),
			),
		)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wooacry: create request: %w", err)
	}
	req.Header = c.signer.Headers(body, c.now())

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wooacry %s: %w", path, apperr.Timeout(err))
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("wooacry %s: read response: %w", path, apperr.Timeout(err))
	}

	if !json.Valid(raw) {
		return nil, &apperr.UpstreamProtocolError{
			Endpoint:    path,
			HTTPStatus:  httpResp.StatusCode,
			BodyPreview: truncate(raw, bodyPreviewSize),
		}
	}

	// valid JSON that is not an object leaves env empty, which reads as a missing code
	var env envelope
	_ = json.Unmarshal(raw, &env)

	message := env.Message.String()
	if message == "" {
		message = env.Msg.String()
	}

	return &Response{
		HTTPStatus: httpResp.StatusCode,
		Code:       parseCode(env.Code),
		Message:    message,
		Data:       env.Data,
		Body:       raw,
	}, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Kind(err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
