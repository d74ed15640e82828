package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// Store defines the contract for caching quotes/order snapshots and
// persisting merchant transaction rows.
type Store interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	SaveOrderSnapshot(ctx context.Context, handle model.OrderHandle) error
	GetOrderSnapshot(ctx context.Context, orderID string) (*model.OrderHandle, error)
	RecordTransaction(ctx context.Context, tx model.Transaction) error
	UpsertPaymentRequest(ctx context.Context, pr model.PaymentRequest) error
	ListMerchantTransactions(ctx context.Context, merchantID string, from, to time.Time) ([]model.Transaction, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore is Redis-first for hot order/quote state, Postgres-backed
// for durable merchant rows. Postgres is optional: with a nil pool the
// persistence methods degrade to no-ops so local dev works on Redis alone.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store.
func NewHybrid(redisAddr, redisPass string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPass,
		DB:       redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

func orderKey(orderID string) string {
	return "order:" + orderID
}

// SaveOrderSnapshot caches the latest known order state in Redis.
// Terminal snapshots are kept for 24h so repeated polls after a
// terminal state can be served locally.
func (s *HybridStore) SaveOrderSnapshot(ctx context.Context, handle model.OrderHandle) error {
	ttl := time.Hour
	if handle.Status.IsTerminal() {
		ttl = 24 * time.Hour
	}
	return s.SetJSON(ctx, orderKey(handle.OrderID), handle, ttl)
}

// GetOrderSnapshot returns the cached order state, or nil if absent.
func (s *HybridStore) GetOrderSnapshot(ctx context.Context, orderID string) (*model.OrderHandle, error) {
	data, err := s.redis.Get(ctx, orderKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var handle model.OrderHandle
	if err := json.Unmarshal(data, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

// RecordTransaction inserts a terminal order outcome into app.transactions.
func (s *HybridStore) RecordTransaction(ctx context.Context, tx model.Transaction) error {
	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO app.transactions (
			order_id, reference, merchant_id, token,
			amount, fiat_currency, status, tx_hash, settled_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			tx_hash = EXCLUDED.tx_hash,
			settled_at = EXCLUDED.settled_at;
	`, tx.OrderID, tx.Reference, tx.MerchantID, tx.Token,
		tx.Amount, tx.FiatCurrency, string(tx.Status), tx.TxHash, tx.SettledAt)
	if err != nil {
		s.logger.Error("store.pg.insert_transaction_failed", zap.Error(err))
	}
	return err
}

// UpsertPaymentRequest writes the merchant-facing payment_requests row.
func (s *HybridStore) UpsertPaymentRequest(ctx context.Context, pr model.PaymentRequest) error {
	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO app.payment_requests (
			reference, order_id, merchant_id, token,
			amount, fiat_currency, institution, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (reference) DO UPDATE SET
			order_id = EXCLUDED.order_id,
			status = EXCLUDED.status,
			updated_at = NOW();
	`, pr.Reference, pr.OrderID, pr.MerchantID, pr.Token,
		pr.Amount, pr.FiatCurrency, pr.Institution, string(pr.Status), pr.CreatedAt)
	if err != nil {
		s.logger.Error("store.pg.upsert_payment_request_failed", zap.Error(err))
	}
	return err
}

// ListMerchantTransactions returns a merchant's terminal transactions in
// [from, to], newest first.
func (s *HybridStore) ListMerchantTransactions(ctx context.Context, merchantID string, from, to time.Time) ([]model.Transaction, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	rows, err := s.PG.Query(ctx, `
		SELECT order_id, reference, merchant_id, token, amount, fiat_currency, status, tx_hash, settled_at
		FROM app.transactions
		WHERE merchant_id = $1 AND settled_at BETWEEN $2 AND $3
		ORDER BY settled_at DESC;
	`, merchantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		var status string
		if err := rows.Scan(&tx.OrderID, &tx.Reference, &tx.MerchantID, &tx.Token,
			&tx.Amount, &tx.FiatCurrency, &status, &tx.TxHash, &tx.SettledAt); err != nil {
			return nil, err
		}
		tx.Status = model.OrderStatus(status)
		results = append(results, tx)
	}
	return results, rows.Err()
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
