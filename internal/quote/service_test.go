package quote

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/paycrest"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

type fakeRateClient struct {
	rate  string
	err   error
	calls atomic.Int32

	currencies   []paycrest.CurrencyData
	institutions []paycrest.InstitutionData
}

func (f *fakeRateClient) GetRate(_ context.Context, _ *paycrest.ClientConfig, _, _, _ string) (string, error) {
	f.calls.Add(1)
	return f.rate, f.err
}

func (f *fakeRateClient) ListCurrencies(_ context.Context, _ *paycrest.ClientConfig) ([]paycrest.CurrencyData, error) {
	return f.currencies, f.err
}

func (f *fakeRateClient) ListInstitutions(_ context.Context, _ *paycrest.ClientConfig, _ string) ([]paycrest.InstitutionData, error) {
	return f.institutions, f.err
}

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, _ string) (*paycrest.ClientConfig, error) {
	return &paycrest.ClientConfig{BaseURL: "http://unused", APIKey: "k"}, nil
}

func newTestService(client *fakeRateClient) *Service {
	return NewService(zap.NewNop(), client, staticResolver{}, DefaultFeeSchedule(), nil, time.Minute)
}

func TestGetRate_Success(t *testing.T) {
	client := &fakeRateClient{rate: "1500.25"}
	svc := newTestService(client)

	q, err := svc.GetRate(context.Background(), "m-1", "USDC", decimal.NewFromInt(1), "NGN")

	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("1500.25")), "rate = %s", q.Rate)
	assert.Equal(t, "USDC", q.Token)
	assert.Equal(t, "NGN", q.FiatCurrency)
	assert.False(t, q.FetchedAt.IsZero())
}

func TestGetRate_FeeInvariants(t *testing.T) {
	client := &fakeRateClient{rate: "2500"}
	svc := newTestService(client)
	amount := decimal.RequireFromString("100")

	q, err := svc.GetRate(context.Background(), "m-1", "USDC", amount, "TZS")
	require.NoError(t, err)

	// Fees are additive: receive leg is amount*rate, untouched by fees.
	assert.True(t, q.ReceiveAmount.Equal(amount.Mul(q.Rate)),
		"receive %s != %s * %s", q.ReceiveAmount, amount, q.Rate)
	assert.True(t, q.TotalAmount.Equal(amount.Add(q.SenderFee).Add(q.TransactionFee)))
}

func TestGetRate_InvalidInput_NoNetworkCall(t *testing.T) {
	client := &fakeRateClient{rate: "1500.25"}
	svc := newTestService(client)

	tests := []struct {
		name   string
		token  string
		amount decimal.Decimal
		fiat   string
	}{
		{"zero amount", "USDC", decimal.Zero, "NGN"},
		{"negative amount", "USDC", decimal.NewFromInt(-5), "NGN"},
		{"empty token", "", decimal.NewFromInt(1), "NGN"},
		{"empty fiat", "USDC", decimal.NewFromInt(1), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetRate(context.Background(), "m-1", tt.token, tt.amount, tt.fiat)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidInput), "got %v", err)
		})
	}

	assert.EqualValues(t, 0, client.calls.Load(), "invalid input must never reach the network")
}

func TestGetRate_UpstreamFailure(t *testing.T) {
	client := &fakeRateClient{err: errors.New("connection refused")}
	svc := newTestService(client)

	_, err := svc.GetRate(context.Background(), "m-1", "USDC", decimal.NewFromInt(1), "NGN")

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRateUnavailable))
}

func TestGetRate_NonNumericRate(t *testing.T) {
	client := &fakeRateClient{rate: "not-a-number"}
	svc := newTestService(client)

	_, err := svc.GetRate(context.Background(), "m-1", "USDC", decimal.NewFromInt(1), "NGN")

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRateUnavailable))
}

func TestInstitutions(t *testing.T) {
	client := &fakeRateClient{institutions: []paycrest.InstitutionData{
		{Name: "CRDB Bank", Code: "CORUTZTZ", Type: "bank"},
	}}
	svc := newTestService(client)

	got, err := svc.Institutions(context.Background(), "m-1", "tzs")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CORUTZTZ", got[0].Code)

	_, err = svc.Institutions(context.Background(), "m-1", "  ")
	assert.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestCurrencies(t *testing.T) {
	client := &fakeRateClient{currencies: []paycrest.CurrencyData{
		{Code: "NGN", Name: "Nigerian Naira", Symbol: "₦"},
	}}
	svc := newTestService(client)

	got, err := svc.Currencies(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "NGN", got[0].Code)
}
