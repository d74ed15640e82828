package paycrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/httpclient"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/metrics"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/ratelimit"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// Client wraps low-level HTTP communication with the settlement
// provider's aggregator API. Configuration (base URL, API key/secret)
// is supplied per-request via ClientConfig so that a single Client
// instance can serve multiple merchants.
type Client struct {
	logger *zap.Logger
	exec   *httpclient.Executor
}

// NewClient constructs a new provider HTTP client instance.
func NewClient(logger *zap.Logger, rateMgr *ratelimit.Manager) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 2, "paycrest", func(status int, body []byte) error {
		var errResp ErrorResponse
		_ = json.Unmarshal(body, &errResp)

		logger.Warn("paycrest.client_error",
			zap.Int("status", status),
			zap.String("message", errResp.Message),
			zap.String("body", string(body)))

		errMsg := errResp.Message
		if errMsg == "" {
			errMsg = string(body)
		}
		if status == http.StatusNotFound {
			return fmt.Errorf("%w: %s", model.ErrOrderNotFound, errMsg)
		}
		return fmt.Errorf("paycrest returned %d: %s", status, errMsg)
	})
	return &Client{
		logger: logger,
		exec:   exec,
	}
}

// GetRate fetches the current token→fiat exchange rate.
// GET /rates/{token}/{amount}/{currency}?network=
// The provider returns the rate as a numeric string in data.
func (c *Client) GetRate(ctx context.Context, cfg *ClientConfig, token, amount, fiat string) (string, error) {
	path := fmt.Sprintf("/rates/%s/%s/%s",
		url.PathEscape(token), url.PathEscape(amount), url.PathEscape(fiat))
	if cfg.Network != "" {
		path += "?network=" + url.QueryEscape(cfg.Network)
	}

	var resp Envelope[string]
	if err := c.getJSON(ctx, cfg, path, &resp); err != nil {
		return "", err
	}
	return resp.Data, nil
}

// ListCurrencies fetches the fiat currencies the provider supports.
// GET /currencies
func (c *Client) ListCurrencies(ctx context.Context, cfg *ClientConfig) ([]CurrencyData, error) {
	var resp Envelope[[]CurrencyData]
	if err := c.getJSON(ctx, cfg, "/currencies", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListInstitutions fetches the payout institutions for a fiat currency.
// GET /institutions/{currency}
func (c *Client) ListInstitutions(ctx context.Context, cfg *ClientConfig, currency string) ([]InstitutionData, error) {
	var resp Envelope[[]InstitutionData]
	if err := c.getJSON(ctx, cfg, "/institutions/"+url.PathEscape(currency), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateOrder submits a new payment order.
// POST /orders
func (c *Client) CreateOrder(ctx context.Context, cfg *ClientConfig, payload *OrderPayload) (*OrderData, error) {
	var resp Envelope[OrderData]
	if err := c.postJSON(ctx, cfg, "/orders", payload, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetOrder retrieves an order's current status by ID.
// GET /orders/{id}
func (c *Client) GetOrder(ctx context.Context, cfg *ClientConfig, orderID string) (*OrderData, error) {
	var resp Envelope[OrderData]
	if err := c.getJSON(ctx, cfg, "/orders/"+url.PathEscape(orderID), &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// VerifyAccount resolves the account-holder name for a payout account.
// POST /verify-account
func (c *Client) VerifyAccount(ctx context.Context, cfg *ClientConfig, detail *VerifyAccountPayload) (string, error) {
	var resp Envelope[string]
	if err := c.postJSON(ctx, cfg, "/verify-account", detail, &resp); err != nil {
		return "", err
	}
	return resp.Data, nil
}

// getJSON performs an authenticated GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, cfg *ClientConfig, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	setHeaders(req, cfg)

	start := time.Now()
	status, err := c.exec.DoJSON(ctx, req, cfg.rateLimitKey(), out)
	metrics.ObserveDuration(metrics.ProviderRequestDuration, start, path, http.MethodGet)
	metrics.IncProviderRequest(path, http.MethodGet, resultLabel(status, err))
	return err
}

// postJSON performs an authenticated POST request with a JSON body.
func (c *Client) postJSON(ctx context.Context, cfg *ClientConfig, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	setHeaders(req, cfg)

	start := time.Now()
	status, err := c.exec.DoJSON(ctx, req, cfg.rateLimitKey(), out)
	metrics.ObserveDuration(metrics.ProviderRequestDuration, start, path, http.MethodPost)
	metrics.IncProviderRequest(path, http.MethodPost, resultLabel(status, err))
	return err
}

// setHeaders sets the required headers for provider API requests.
func setHeaders(req *http.Request, cfg *ClientConfig) {
	req.Header.Set("API-Key", cfg.APIKey)
	if cfg.APISecret != "" {
		req.Header.Set("API-Secret", cfg.APISecret)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func resultLabel(status int, err error) string {
	if err != nil {
		return "error"
	}
	return fmt.Sprintf("%d", status)
}
