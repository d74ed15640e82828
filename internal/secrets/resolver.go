package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/metrics"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/paycrest"
	pkgsecrets "github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/secrets"
)

// AWSResolver resolves per-merchant provider credentials from AWS
// Secrets Manager, caching results locally to reduce API calls.
//
// Secret naming convention: {env}/{merchantID}/paycrest
// Secret payload: {"api_key": "...", "api_secret": "...", "base_url": "...", "network": "..."}
type AWSResolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[paycrest.ClientConfig]
	fallback *paycrest.ClientConfig // env-based credentials for local dev; may be nil
}

// NewAWSResolver constructs a multi-merchant credential resolver.
// fallback, when non-nil, is returned for merchants with no secret
// configured (and for all merchants when AWS is unreachable in dev).
func NewAWSResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[paycrest.ClientConfig],
	fallback *paycrest.ClientConfig,
) *AWSResolver {
	return &AWSResolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
		fallback: fallback,
	}
}

// cacheKey builds the in-memory cache key for a merchant.
func (r *AWSResolver) cacheKey(merchantID string) string {
	return strings.ToLower(merchantID + "|paycrest")
}

// secretName builds the AWS Secrets Manager key for a merchant.
func (r *AWSResolver) secretName(merchantID string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/paycrest", r.env, merchantID))
}

// Resolve fetches or caches provider credentials for a merchant ID.
func (r *AWSResolver) Resolve(ctx context.Context, merchantID string) (*paycrest.ClientConfig, error) {
	key := r.cacheKey(merchantID)

	if cfg, ok := r.cache.Get(key); ok {
		metrics.IncCacheHit("hit")
		return &cfg, nil
	}
	metrics.IncCacheHit("miss")

	if r.provider == nil {
		return r.resolveFallback(merchantID, nil)
	}

	secretMap, err := r.provider.GetSecret(ctx, r.secretName(merchantID))
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", r.secretName(merchantID)),
			zap.Error(err))
		return r.resolveFallback(merchantID, err)
	}

	cfg, err := parseCredentials(secretMap)
	if err != nil {
		return nil, fmt.Errorf("parse secret %q: %w", r.secretName(merchantID), err)
	}

	r.cache.Put(key, cfg)

	r.logger.Info("aws.merchant_credentials_resolved",
		zap.String("merchant", merchantID))
	return &cfg, nil
}

// resolveFallback serves the env-based credentials when no per-merchant
// secret is available.
func (r *AWSResolver) resolveFallback(merchantID string, cause error) (*paycrest.ClientConfig, error) {
	if r.fallback == nil || r.fallback.APIKey == "" {
		if cause != nil {
			return nil, fmt.Errorf("resolve merchant credentials for %q: %w", merchantID, cause)
		}
		return nil, fmt.Errorf("no credentials configured for merchant %q", merchantID)
	}
	cfg := *r.fallback
	return &cfg, nil
}

// DiscoverMerchants lists all merchant IDs that have provider secrets
// configured. It searches for secrets matching "{env}/" and ending with
// "/paycrest", then extracts merchant IDs from the middle segment.
func (r *AWSResolver) DiscoverMerchants(ctx context.Context) ([]string, error) {
	if r.provider == nil {
		return nil, nil
	}

	prefix := strings.ToLower(r.env + "/")
	const suffix = "/paycrest"

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover merchants: %w", err)
	}

	var merchants []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasSuffix(lower, suffix) {
			continue
		}
		trimmed := strings.TrimPrefix(lower, prefix)
		trimmed = strings.TrimSuffix(trimmed, suffix)
		if trimmed != "" && !strings.Contains(trimmed, "/") {
			merchants = append(merchants, trimmed)
		}
	}

	r.logger.Info("aws.merchants_discovered",
		zap.Int("count", len(merchants)))
	return merchants, nil
}

// parseCredentials extracts a ClientConfig from the raw secret map,
// validating that the required fields are present.
func parseCredentials(m map[string]string) (paycrest.ClientConfig, error) {
	cfg := paycrest.ClientConfig{
		BaseURL:   m["base_url"],
		APIKey:    m["api_key"],
		APISecret: m["api_secret"],
		Network:   m["network"],
	}
	if cfg.BaseURL == "" {
		return paycrest.ClientConfig{}, fmt.Errorf("secret missing base_url")
	}
	if cfg.APIKey == "" {
		return paycrest.ClientConfig{}, fmt.Errorf("secret missing api_key")
	}
	return cfg, nil
}
