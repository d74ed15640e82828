package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/paycrest"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// RateClient is the provider surface the quote service needs.
type RateClient interface {
	GetRate(ctx context.Context, cfg *paycrest.ClientConfig, token, amount, fiat string) (string, error)
	ListCurrencies(ctx context.Context, cfg *paycrest.ClientConfig) ([]paycrest.CurrencyData, error)
	ListInstitutions(ctx context.Context, cfg *paycrest.ClientConfig, currency string) ([]paycrest.InstitutionData, error)
}

// CredentialResolver resolves provider credentials for a merchant.
type CredentialResolver interface {
	Resolve(ctx context.Context, merchantID string) (*paycrest.ClientConfig, error)
}

// QuoteCache caches serializable values under string keys with a TTL.
type QuoteCache interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
}

// Service fetches token→fiat exchange rates and derives fee-adjusted
// totals. It performs no retries itself; retry-by-reschedule belongs to
// the poller.
type Service struct {
	logger   *zap.Logger
	client   RateClient
	resolver CredentialResolver
	schedule FeeSchedule
	cache    QuoteCache // optional
	quoteTTL time.Duration
}

// NewService constructs a quote service. cache may be nil.
func NewService(
	logger *zap.Logger,
	client RateClient,
	resolver CredentialResolver,
	schedule FeeSchedule,
	cache QuoteCache,
	quoteTTL time.Duration,
) *Service {
	return &Service{
		logger:   logger,
		client:   client,
		resolver: resolver,
		schedule: schedule,
		cache:    cache,
		quoteTTL: quoteTTL,
	}
}

// GetRate fetches a fresh quote for converting amount of token into fiat.
// Input constraints are checked before any network call.
func (s *Service) GetRate(ctx context.Context, merchantID, token string, amount decimal.Decimal, fiat string) (*model.RateQuote, error) {
	if err := validateRateInput(token, amount, fiat); err != nil {
		return nil, err
	}

	cfg, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant credentials for %q: %w", merchantID, err)
	}

	raw, err := s.client.GetRate(ctx, cfg, strings.ToUpper(token), amount.String(), strings.ToUpper(fiat))
	if err != nil {
		s.logger.Warn("quote.rate_fetch_failed",
			zap.String("merchant", merchantID),
			zap.String("token", token),
			zap.String("fiat", fiat),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrRateUnavailable, err)
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Warn("quote.rate_not_numeric",
			zap.String("merchant", merchantID),
			zap.String("raw", raw))
		return nil, fmt.Errorf("%w: non-numeric rate %q", model.ErrRateUnavailable, raw)
	}

	q := s.buildQuote(token, fiat, amount, rate)

	if s.cache != nil {
		key := quoteCacheKey(merchantID, q.Token, q.FiatCurrency)
		if err := s.cache.SetJSON(ctx, key, q, s.quoteTTL); err != nil {
			s.logger.Debug("quote.cache_write_failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	s.logger.Info("quote.rate_fetched",
		zap.String("merchant", merchantID),
		zap.String("token", q.Token),
		zap.String("fiat", q.FiatCurrency),
		zap.String("rate", q.Rate.String()))

	return q, nil
}

// CalculateFees exposes the pure fee derivation for a given amount.
func (s *Service) CalculateFees(amount decimal.Decimal, token, fiat string) (model.FeeBreakdown, error) {
	if err := validateRateInput(token, amount, fiat); err != nil {
		return model.FeeBreakdown{}, err
	}
	return s.schedule.CalculateFees(amount, token, fiat), nil
}

// Currencies returns the provider's supported fiat currencies.
func (s *Service) Currencies(ctx context.Context, merchantID string) ([]model.Currency, error) {
	cfg, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant credentials for %q: %w", merchantID, err)
	}

	data, err := s.client.ListCurrencies(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRateUnavailable, err)
	}

	out := make([]model.Currency, 0, len(data))
	for _, c := range data {
		out = append(out, model.Currency{
			Code:       c.Code,
			Name:       c.Name,
			ShortName:  c.ShortName,
			Symbol:     c.Symbol,
			MarketRate: c.MarketRate,
		})
	}
	return out, nil
}

// Institutions returns the payout institutions for a fiat currency.
func (s *Service) Institutions(ctx context.Context, merchantID, currency string) ([]model.Institution, error) {
	if strings.TrimSpace(currency) == "" {
		return nil, model.Invalidf("currency is required")
	}

	cfg, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant credentials for %q: %w", merchantID, err)
	}

	data, err := s.client.ListInstitutions(ctx, cfg, strings.ToUpper(currency))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRateUnavailable, err)
	}

	out := make([]model.Institution, 0, len(data))
	for _, i := range data {
		out = append(out, model.Institution{Name: i.Name, Code: i.Code, Type: i.Type})
	}
	return out, nil
}

// buildQuote assembles an immutable RateQuote from the live rate and the
// fee schedule. Fees are charged on top: the receive leg is amount*rate.
func (s *Service) buildQuote(token, fiat string, amount, rate decimal.Decimal) *model.RateQuote {
	fees := s.schedule.CalculateFees(amount, token, fiat)
	return &model.RateQuote{
		Token:          strings.ToUpper(token),
		FiatCurrency:   strings.ToUpper(fiat),
		SourceAmount:   amount,
		Rate:           rate,
		SenderFee:      fees.SenderFee,
		TransactionFee: fees.TransactionFee,
		TotalAmount:    fees.TotalAmount,
		ReceiveAmount:  amount.Mul(rate),
		FetchedAt:      time.Now().UTC(),
	}
}

func validateRateInput(token string, amount decimal.Decimal, fiat string) error {
	if strings.TrimSpace(token) == "" {
		return model.Invalidf("token is required")
	}
	if strings.TrimSpace(fiat) == "" {
		return model.Invalidf("fiatCurrency is required")
	}
	if !amount.IsPositive() {
		return model.Invalidf("amount must be greater than 0")
	}
	return nil
}

func quoteCacheKey(merchantID, token, fiat string) string {
	return fmt.Sprintf("quote:%s:%s:%s", merchantID, token, fiat)
}
