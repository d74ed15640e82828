package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/api"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/jobs"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/order"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/paycrest"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/poller"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/publisher"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/quote"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/ratelimit"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/reference"
	internalsecrets "github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/secrets"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/store"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/config"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/logger"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/secrets"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [settlement-adapter]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- AWS Secrets Manager provider ---
	awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		logg.Warnw("failed to create AWS Secrets Manager provider; using env credentials only", "error", err)
		awsProvider = nil
	}

	// --- Per-merchant credential resolver (secrets cached in-memory) ---
	credCache := secrets.NewCache[paycrest.ClientConfig](cfg.CacheTTL)
	stopCleaner := make(chan struct{})
	go credCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	var fallback *paycrest.ClientConfig
	if cfg.ProviderAPIKey != "" {
		fallback = &paycrest.ClientConfig{
			BaseURL:   cfg.ProviderBaseURL,
			APIKey:    cfg.ProviderAPIKey,
			APISecret: cfg.ProviderAPISecret,
			Network:   cfg.ProviderNetwork,
		}
		logg.Infow("env provider credentials loaded", "key", utils.MaskKey(cfg.ProviderAPIKey))
	}

	resolver := internalsecrets.NewAWSResolver(
		logg.Desugar(),
		cfg.Env,
		awsProvider,
		credCache,
		fallback,
	)

	// --- Discover configured merchants ---
	merchants, err := resolver.DiscoverMerchants(ctx)
	if err != nil {
		logg.Warnw("failed to discover merchants from AWS Secrets Manager", "error", err)
	} else {
		logg.Infow("discovered merchants", "count", len(merchants))
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.OutboundSubject, "PAYCREST_EVENTS")
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter ---
	rateMgr := ratelimit.NewManager(ratelimit.Config{
		RequestsPerSecond: 10,
		Burst:             20,
		Cooldown:          1 * time.Second,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Provider HTTP client (credentials supplied per-request) ---
	client := paycrest.NewClient(logg.Desugar(), rateMgr)

	// --- Reference generator ---
	refs, err := reference.New(cfg.ReferencePrefix)
	if err != nil {
		logg.Fatalw("failed to init reference generator", "error", err)
	}

	// --- Quote service ---
	quoteSvc := quote.NewService(
		logg.Desugar(),
		client,
		resolver,
		quote.DefaultFeeSchedule(),
		st,
		cfg.QuoteTTL,
	)

	// --- Order lifecycle service ---
	orderSvc := order.NewService(
		logg.Desugar(),
		client,
		resolver,
		st,
		refs,
	)

	// --- Order status poller ---
	orderPoller := poller.NewOrderPoller(
		logg.Desugar(),
		orderSvc,
		pub,
		cfg.OrderPollInterval,
		cfg.OrderPollTimeout,
	)

	// --- Rate refresher (warm quote cache for configured corridors) ---
	rateRefresher := poller.NewRateRefresher(
		logg.Desugar(),
		quoteSvc,
		pub,
		parseCorridors(cfg),
		cfg.RateRefreshEvery,
		cfg.RateRetryMax,
		cfg.RateRetryDelay,
	)
	go rateRefresher.Start(ctx)

	// --- Merchant settlement summary job ---
	var summary *jobs.SummaryRefresher
	if hs, ok := st.(*store.HybridStore); ok && hs.PG != nil {
		summary = jobs.NewSummaryRefresher(logg.Desugar(), hs.PG, pub, cfg.SummaryRefreshEvery)
		go summary.Start(ctx)
	}

	// --- Fiber HTTP server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	handler := api.NewHandler(
		ctx,
		logg.Desugar(),
		quoteSvc,
		orderSvc,
		orderPoller,
		st,
		cfg.DefaultMerchant,
	)
	api.RegisterRoutes(app, nc, st, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[settlement-adapter] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"poll_interval", cfg.OrderPollInterval,
		"rate_refresh", cfg.RateRefreshEvery,
		"discovered_merchants", len(merchants))

	<-ctx.Done()
	logg.Info("shutting down [settlement-adapter]...")

	close(stopCleaner)
	orderPoller.Stop()
	rateRefresher.Stop()
	if summary != nil {
		summary.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}

// parseCorridors expands RATE_CORRIDORS ("USDC:TZS,USDT:KES") into
// refresher corridors for the default merchant.
func parseCorridors(cfg *config.Config) []poller.Corridor {
	amount, err := decimal.NewFromString(cfg.RateSampleAmount)
	if err != nil {
		amount = decimal.NewFromInt(100)
	}

	var corridors []poller.Corridor
	for _, pair := range strings.Split(cfg.RateCorridors, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		corridors = append(corridors, poller.Corridor{
			MerchantID: cfg.DefaultMerchant,
			Token:      strings.ToUpper(parts[0]),
			Fiat:       strings.ToUpper(parts[1]),
			Amount:     amount,
		})
	}
	return corridors
}
