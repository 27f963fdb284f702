package gateway

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

	"github.com/Zhima-Mochi/paygate-checkout/internal/observability"
	"github.com/Zhima-Mochi/paygate-checkout/internal/observability/logctx"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	componentGateway = "gateway_client"
	peerCheckout     = "checkout-api"
	peerDashboard    = "dashboard-api"
	headerRequestID  = "X-Request-ID"
	maxBodyBytes     = 1 << 20
	defaultTimeout   = 10 * time.Second
)

var (
	// ErrInvalidResponse marks a 2xx response whose body could not be used.
	ErrInvalidResponse = errors.New("gateway: invalid response")
	ErrTransport       = errors.New("gateway: transport failure")
)

type Config struct {
	// CheckoutBaseURL serves orders, payments and the test merchant.
	CheckoutBaseURL string
	// DashboardBaseURL serves merchant authentication.
	DashboardBaseURL string
	Timeout          time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the payment gateway's public and merchant endpoints.
// Every response is normalized into domain values here and nowhere else.
type Client struct {
	checkoutBase  string
	dashboardBase string
	http          *http.Client
	prop          propagation.TextMapPropagator
	log           observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func New(cfg Config, tel observability.Observability) *Client {
	tel = observability.OrNop(tel)

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		checkoutBase:  strings.TrimRight(cfg.CheckoutBaseURL, "/"),
		dashboardBase: strings.TrimRight(cfg.DashboardBaseURL, "/"),
		http:          hc,
		prop:          otel.GetTextMapPropagator(),
		log:           tel.Logger().With(observability.F("component", componentGateway)),
		extCounter:    tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram:  tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

type call struct {
	peer     string
	endpoint string // low-cardinality route template
	method   string
	url      string
	token    string
	body     any
	out      any
}

// do issues one request. Non-2xx responses become *APIError; transport
// failures wrap ErrTransport; undecodable 2xx bodies wrap ErrInvalidResponse.
func (c *Client) do(ctx context.Context, k call) (err error) {
	start := time.Now()
	outcome := "success"
	status := 0
	logger := logctx.FromOr(ctx, c.log)

	defer func() {
		if err != nil && outcome == "success" {
			outcome = "error"
		}
		c.extCounter.Add(1,
			observability.L("peer", k.peer),
			observability.L("endpoint", k.endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", k.peer),
			observability.L("endpoint", k.endpoint),
		)

		fields := []observability.Field{
			observability.F("peer", k.peer),
			observability.F("endpoint", k.endpoint),
			observability.F("status", status),
			observability.F("outcome", outcome),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		}
		if err != nil {
			logger.Warn("gateway_call_failed", append(fields, observability.F("error", err.Error()))...)
			return
		}
		logger.Debug("gateway_call_done", fields...)
	}()

	var body io.Reader
	if k.body != nil {
		buf, merr := json.Marshal(k.body)
		if merr != nil {
			return fmt.Errorf("gateway: encode request: %w", merr)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, k.method, k.url, body)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerRequestID, uuid.NewString())
	if k.token != "" {
		req.Header.Set("Authorization", "Bearer "+k.token)
	}
	c.prop.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			outcome = "canceled"
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if k.out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, k.out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}
