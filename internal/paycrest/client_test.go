package paycrest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// testClientConfig returns a ClientConfig pointing at the given server URL.
func testClientConfig(serverURL string) *ClientConfig {
	return &ClientConfig{
		BaseURL: serverURL,
		APIKey:  "test-api-key",
		Network: "base",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server, *ClientConfig) {
	server := httptest.NewServer(handler)
	logger := zap.NewNop()
	client := NewClient(logger, nil)
	return client, server, testClientConfig(server.URL)
}

func TestClient_GetRate(t *testing.T) {
	client, server, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rates/USDC/1/NGN", r.URL.Path)
		assert.Equal(t, "base", r.URL.Query().Get("network"))
		assert.Equal(t, "test-api-key", r.Header.Get("API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"OK","data":"1500.25"}`))
	})
	defer server.Close()

	rate, err := client.GetRate(context.Background(), cfg, "USDC", "1", "NGN")

	require.NoError(t, err)
	assert.Equal(t, "1500.25", rate)
}

func TestClient_ListInstitutions(t *testing.T) {
	client, server, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/institutions/NGN", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"message": "OK",
			"data": [
				{"name": "Guaranty Trust Bank", "code": "GTBINGLA", "type": "bank"},
				{"name": "OPay", "code": "OPAYNGPC", "type": "mobile_money"}
			]
		}`))
	})
	defer server.Close()

	institutions, err := client.ListInstitutions(context.Background(), cfg, "NGN")

	require.NoError(t, err)
	require.Len(t, institutions, 2)
	assert.Equal(t, "GTBINGLA", institutions[0].Code)
	assert.Equal(t, "mobile_money", institutions[1].Type)
}

func TestClient_ListCurrencies(t *testing.T) {
	client, server, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/currencies", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"message": "OK",
			"data": [{"code": "NGN", "name": "Nigerian Naira", "shortName": "Naira", "symbol": "₦", "marketRate": "1500.00"}]
		}`))
	})
	defer server.Close()

	currencies, err := client.ListCurrencies(context.Background(), cfg)

	require.NoError(t, err)
	require.Len(t, currencies, 1)
	assert.Equal(t, "NGN", currencies[0].Code)
}

func TestClient_CreateOrder(t *testing.T) {
	client, server, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("API-Key"))

		var payload OrderPayload
		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "USDC", payload.Token)
		assert.Equal(t, "100", payload.Amount)
		assert.Equal(t, "GTBINGLA", payload.Recipient.Institution)
		assert.NotEmpty(t, payload.Reference)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"status": "success",
			"message": "order initiated",
			"data": {
				"id": "ord-789",
				"amount": "100",
				"token": "USDC",
				"reference": "` + payload.Reference + `",
				"status": "initiated",
				"receiveAddress": "0xabc123"
			}
		}`))
	})
	defer server.Close()

	order, err := client.CreateOrder(context.Background(), cfg, &OrderPayload{
		Amount:  "100",
		Token:   "USDC",
		Network: "base",
		Recipient: RecipientData{
			Institution:       "GTBINGLA",
			AccountIdentifier: "0123456789",
			AccountName:       "Ada Obi",
		},
		Reference: "NP-123-abcdef",
	})

	require.NoError(t, err)
	assert.Equal(t, "ord-789", order.ID)
	assert.Equal(t, "initiated", order.Status)
	assert.Equal(t, "0xabc123", order.ReceiveAddress)
}

func TestClient_GetOrder(t *testing.T) {
	client, server, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/ord-789", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"message": "OK",
			"data": {"id": "ord-789", "reference": "NP-123-abcdef", "status": "settled", "txHash": "0xdeadbeef"}
		}`))
	})
	defer server.Close()

	order, err := client.GetOrder(context.Background(), cfg, "ord-789")

	require.NoError(t, err)
	assert.Equal(t, "settled", order.Status)
	assert.Equal(t, "0xdeadbeef", order.TxHash)
}

func TestClient_GetOrder_NotFound(t *testing.T) {
	client, server, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error","message":"order not found"}`))
	})
	defer server.Close()

	_, err := client.GetOrder(context.Background(), cfg, "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrOrderNotFound))
}

func TestClient_VerifyAccount(t *testing.T) {
	client, server, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/verify-account", r.URL.Path)

		var payload VerifyAccountPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "GTBINGLA", payload.Institution)
		assert.Equal(t, "0123456789", payload.AccountIdentifier)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"OK","data":"ADA OBI"}`))
	})
	defer server.Close()

	name, err := client.VerifyAccount(context.Background(), cfg, &VerifyAccountPayload{
		Institution:       "GTBINGLA",
		AccountIdentifier: "0123456789",
	})

	require.NoError(t, err)
	assert.Equal(t, "ADA OBI", name)
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want model.OrderStatus
	}{
		{"initiated", model.StatusPending},
		{"pending", model.StatusPending},
		{"PENDING", model.StatusPending},
		{"processing", model.StatusProcessing},
		{"fulfilling", model.StatusProcessing},
		{"settled", model.StatusCompleted},
		{"fulfilled", model.StatusCompleted},
		{"failed", model.StatusFailed},
		{"refunded", model.StatusFailed},
		{"expired", model.StatusExpired},
		{"something-new", model.StatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus("settled"))
	assert.True(t, IsTerminalStatus("failed"))
	assert.True(t, IsTerminalStatus("expired"))
	assert.False(t, IsTerminalStatus("initiated"))
	assert.False(t, IsTerminalStatus("processing"))
}
