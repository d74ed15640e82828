package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/metrics"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// RateSource fetches a fresh quote for a corridor.
type RateSource interface {
	GetRate(ctx context.Context, merchantID, token string, amount decimal.Decimal, fiat string) (*model.RateQuote, error)
}

// RatePublisher emits refreshed quotes, typically onto NATS.
type RatePublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Corridor identifies a token/fiat pair refreshed on behalf of a
// merchant.
type Corridor struct {
	MerchantID string
	Token      string
	Fiat       string
	Amount     decimal.Decimal
}

// RateRefresher keeps quotes for configured corridors warm. Each cycle
// retries transient failures up to retryMax extra attempts with a fixed
// delay before giving up until the next cycle. Ticks that fire while a
// corridor's refresh is still outstanding are skipped, so at most one
// fetch runs per corridor at any time and a slow fetch can never race a
// fresher one into the quote cache.
type RateRefresher struct {
	logger     *zap.Logger
	source     RateSource
	publisher  RatePublisher
	corridors  []Corridor
	interval   time.Duration
	retryMax   int
	retryDelay time.Duration
	stopCh     chan struct{}

	inFlight []atomic.Bool // indexed parallel to corridors
}

// NewRateRefresher constructs a rate refresher for the given corridors.
func NewRateRefresher(
	logger *zap.Logger,
	source RateSource,
	pub RatePublisher,
	corridors []Corridor,
	interval time.Duration,
	retryMax int,
	retryDelay time.Duration,
) *RateRefresher {
	return &RateRefresher{
		logger:     logger,
		source:     source,
		publisher:  pub,
		corridors:  corridors,
		interval:   interval,
		retryMax:   retryMax,
		retryDelay: retryDelay,
		stopCh:     make(chan struct{}),
		inFlight:   make([]atomic.Bool, len(corridors)),
	}
}

// Start begins periodic refreshing and blocks until the context is
// cancelled or Stop is called. An immediate refresh runs at startup.
func (r *RateRefresher) Start(ctx context.Context) {
	r.logger.Info("rates.refresher_started",
		zap.Int("corridors", len(r.corridors)),
		zap.Duration("interval", r.interval))

	r.refreshAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refreshAll(ctx)
		case <-ctx.Done():
			r.logger.Info("rates.refresher_stopped (context cancelled)")
			return
		case <-r.stopCh:
			r.logger.Info("rates.refresher_stopped (manual stop)")
			return
		}
	}
}

// Stop signals the refresher to stop gracefully.
func (r *RateRefresher) Stop() {
	close(r.stopCh)
}

// refreshAll dispatches one refresh per corridor, skipping corridors
// whose previous refresh has not finished yet.
func (r *RateRefresher) refreshAll(ctx context.Context) {
	for i := range r.corridors {
		c := r.corridors[i]
		guard := &r.inFlight[i]
		if !guard.CompareAndSwap(false, true) {
			r.logger.Debug("rates.refresh_tick_coalesced",
				zap.String("merchant", c.MerchantID),
				zap.String("token", c.Token),
				zap.String("fiat", c.Fiat))
			continue
		}
		go func() {
			defer guard.Store(false)
			r.refreshOnce(ctx, c)
		}()
	}
}

// refreshOnce fetches one corridor's quote, retrying transient failures.
func (r *RateRefresher) refreshOnce(ctx context.Context, c Corridor) {
	var lastErr error

	for attempt := 0; attempt <= r.retryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.retryDelay):
			}
		}

		quote, err := r.source.GetRate(ctx, c.MerchantID, c.Token, c.Amount, c.Fiat)
		if err == nil {
			metrics.SetLastPoll("rate_refresher", time.Now().UTC())
			r.publishQuote(ctx, c, quote)
			return
		}
		lastErr = err

		r.logger.Debug("rates.refresh_retry",
			zap.String("merchant", c.MerchantID),
			zap.String("token", c.Token),
			zap.String("fiat", c.Fiat),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	metrics.IncError("rate_refresher", "refresh_failed")
	r.logger.Warn("rates.refresh_failed",
		zap.String("merchant", c.MerchantID),
		zap.String("token", c.Token),
		zap.String("fiat", c.Fiat),
		zap.Int("attempts", r.retryMax+1),
		zap.Error(lastErr))
}

func (r *RateRefresher) publishQuote(ctx context.Context, c Corridor, quote *model.RateQuote) {
	if r.publisher == nil {
		return
	}
	subject := "evt.rate.updated.v1.PAYCREST"
	if err := r.publisher.Publish(ctx, subject, map[string]any{
		"merchant_id": c.MerchantID,
		"token":       quote.Token,
		"fiat":        quote.FiatCurrency,
		"rate":        quote.Rate.String(),
		"fetched_at":  quote.FetchedAt,
	}); err != nil {
		r.logger.Debug("nats.publish_failed",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
