package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/ratelimit"
)

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// Executor handles rate-limited, retrying HTTP execution with JSON decoding.
// Only transport errors and 5xx responses are retried; 4xx responses go
// straight to the error handler.
type Executor struct {
	logger       *zap.Logger
	rateMgr      *ratelimit.Manager
	http         *http.Client
	retryMax     int
	providerTag  string
	errorHandler func(status int, body []byte) error
}

// New creates an Executor. errorHandler is called on 4xx failure responses to
// produce a provider-specific error. If nil, a default error is returned.
func New(
	logger *zap.Logger,
	rateMgr *ratelimit.Manager,
	httpClient *http.Client,
	retryMax int,
	providerTag string,
	errorHandler func(status int, body []byte) error,
) *Executor {
	return &Executor{
		logger:       logger,
		rateMgr:      rateMgr,
		http:         httpClient,
		retryMax:     retryMax,
		providerTag:  providerTag,
		errorHandler: errorHandler,
	}
}

// DoJSON executes req with rate limiting and retries, then JSON-decodes the
// response into out. rateLimitKey scopes the rate limiter per merchant.
func (e *Executor) DoJSON(ctx context.Context, req *http.Request, rateLimitKey string, out any) (int, error) {
	if e.rateMgr != nil {
		if err := e.rateMgr.Wait(ctx, rateLimitKey); err != nil {
			return 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= e.retryMax; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			// Rewind the body so retries re-send the full payload.
			body, err := req.GetBody()
			if err != nil {
				return 0, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}

		start := time.Now()
		resp, err := e.http.Do(req)
		if err != nil {
			lastErr = err
			e.logger.Warn(e.providerTag+".http_failed",
				zap.String("url", req.URL.String()),
				zap.Error(err),
				zap.Int("attempt", attempt))
			time.Sleep(Backoff(attempt))
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		elapsed := time.Since(start)

		if resp.StatusCode >= 500 {
			e.logger.Warn(e.providerTag+".server_error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", req.URL.String()),
				zap.Duration("latency", elapsed))
			lastErr = fmt.Errorf("%s server error: %d", e.providerTag, resp.StatusCode)
			time.Sleep(Backoff(attempt))
			continue
		}

		if resp.StatusCode >= 400 {
			if e.errorHandler != nil {
				return resp.StatusCode, e.errorHandler(resp.StatusCode, body)
			}
			return resp.StatusCode, fmt.Errorf("%s returned %d", e.providerTag, resp.StatusCode)
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				e.logger.Warn(e.providerTag+".decode_failed",
					zap.Error(err),
					zap.String("url", req.URL.String()),
					zap.String("body", string(body)))
				return resp.StatusCode, fmt.Errorf("decode failed: %w", err)
			}
		}

		e.logger.Debug(e.providerTag+".http_success",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed))

		return resp.StatusCode, nil
	}

	return 0, fmt.Errorf("%s request failed after %d attempts: %w", e.providerTag, e.retryMax+1, lastErr)
}
