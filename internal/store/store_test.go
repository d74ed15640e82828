package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// newTestStore spins up a miniredis-backed HybridStore without Postgres.
func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &HybridStore{redis: rdb}, mr
}

func TestNewHybrid_RedisAuth(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	mr.RequireAuth("s3cret")

	_, err = NewHybrid(mr.Addr(), "wrong", 0, "", PGPoolConfig{}, nil)
	assert.Error(t, err, "ping must fail without the right password")

	st, err := NewHybrid(mr.Addr(), "s3cret", 0, "", PGPoolConfig{}, nil)
	require.NoError(t, err)
	defer st.Close()
}

func TestSetGetJSON_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	in := map[string]string{"token": "USDC", "fiat": "NGN"}
	require.NoError(t, store.SetJSON(context.Background(), "quote:m-1:USDC:NGN", in, time.Minute))

	var out map[string]string
	require.NoError(t, store.GetJSON(context.Background(), "quote:m-1:USDC:NGN", &out))
	assert.Equal(t, in, out)
}

func TestGetJSON_Missing(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	var out map[string]string
	err := store.GetJSON(context.Background(), "nope", &out)
	assert.Error(t, err)
}

func TestOrderSnapshot_RoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	handle := model.OrderHandle{
		OrderID:      "ord-1",
		Reference:    "NP-abc-xyz",
		Status:       model.StatusProcessing,
		Token:        "USDC",
		Amount:       decimal.NewFromInt(100),
		FiatCurrency: "NGN",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveOrderSnapshot(context.Background(), handle))

	got, err := store.GetOrderSnapshot(context.Background(), "ord-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, handle.Reference, got.Reference)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.True(t, handle.Amount.Equal(got.Amount))
}

func TestOrderSnapshot_Missing(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	got, err := store.GetOrderSnapshot(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderSnapshot_TerminalKeptLonger(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SaveOrderSnapshot(context.Background(), model.OrderHandle{
		OrderID: "ord-open", Status: model.StatusPending,
	}))
	require.NoError(t, store.SaveOrderSnapshot(context.Background(), model.OrderHandle{
		OrderID: "ord-done", Status: model.StatusCompleted,
	}))

	openTTL := mr.TTL(orderKey("ord-open"))
	doneTTL := mr.TTL(orderKey("ord-done"))
	assert.Greater(t, doneTTL, openTTL, "terminal snapshots should outlive open ones")
}

func TestHealthCheck_Success(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestHealthCheck_RedisNil(t *testing.T) {
	store := &HybridStore{redis: nil}
	err := store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis not initialized")
}

func TestHealthCheck_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := &HybridStore{redis: rdb}

	// Close miniredis to simulate failure
	mr.Close()

	err = store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestClose_NilComponents(t *testing.T) {
	store := &HybridStore{}
	require.NoError(t, store.Close())
}

// Persistence methods degrade to no-ops without Postgres.

func TestRecordTransaction_NilPG(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	err := store.RecordTransaction(context.Background(), model.Transaction{
		OrderID:    "ord-1",
		MerchantID: "m-1",
		Status:     model.StatusCompleted,
	})
	require.NoError(t, err)
}

func TestUpsertPaymentRequest_NilPG(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	err := store.UpsertPaymentRequest(context.Background(), model.PaymentRequest{
		Reference:  "NP-abc-xyz",
		MerchantID: "m-1",
		Status:     model.StatusPending,
	})
	require.NoError(t, err)
}
