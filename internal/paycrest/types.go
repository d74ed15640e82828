package paycrest

import (
	"strings"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// ClientConfig carries the per-merchant connection settings for the
// provider API. Resolved from AWS Secrets Manager (or env fallback)
// so a single Client instance can serve multiple merchants.
type ClientConfig struct {
	BaseURL   string `json:"base_url"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Network   string `json:"network"` // default token network, e.g. "base"
}

// rateLimitKey scopes the rate limiter per merchant credentials.
func (c *ClientConfig) rateLimitKey() string {
	return "paycrest:" + c.APIKey
}

// Envelope is the provider's uniform response wrapper.
type Envelope[T any] struct {
	Status  string `json:"status"` // "success" | "error"
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// ErrorResponse is the provider's failure payload.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// InstitutionData is one payout institution as returned by
// GET /institutions/{currency}.
type InstitutionData struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Type string `json:"type"`
}

// CurrencyData is one supported fiat currency as returned by GET /currencies.
type CurrencyData struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ShortName  string `json:"shortName"`
	Symbol     string `json:"symbol"`
	MarketRate string `json:"marketRate"`
}

// RecipientData is the payout leg of an order payload.
type RecipientData struct {
	Institution       string `json:"institution"`
	AccountIdentifier string `json:"accountIdentifier"`
	AccountName       string `json:"accountName,omitempty"`
	Memo              string `json:"memo,omitempty"`
}

// OrderPayload is the body of POST /orders.
type OrderPayload struct {
	Amount        string        `json:"amount"`
	Token         string        `json:"token"`
	Rate          string        `json:"rate,omitempty"`
	Network       string        `json:"network"`
	Recipient     RecipientData `json:"recipient"`
	Reference     string        `json:"reference"`
	ReturnAddress string        `json:"returnAddress,omitempty"`
}

// OrderData is the order confirmation / status payload returned by
// POST /orders and GET /orders/{id}.
type OrderData struct {
	ID             string        `json:"id"`
	Amount         string        `json:"amount"`
	AmountPaid     string        `json:"amountPaid,omitempty"`
	Token          string        `json:"token"`
	Network        string        `json:"network"`
	Reference      string        `json:"reference"`
	Status         string        `json:"status"`
	ReceiveAddress string        `json:"receiveAddress,omitempty"`
	ValidUntil     string        `json:"validUntil,omitempty"`
	TxHash         string        `json:"txHash,omitempty"`
	Recipient      RecipientData `json:"recipient,omitempty"`
	CreatedAt      string        `json:"createdAt,omitempty"`
	UpdatedAt      string        `json:"updatedAt,omitempty"`
}

// VerifyAccountPayload is the body of POST /verify-account.
type VerifyAccountPayload struct {
	Institution       string `json:"institution"`
	AccountIdentifier string `json:"accountIdentifier"`
}

// NormalizeStatus maps a raw provider order status onto the canonical
// lifecycle enum. Unknown strings are treated as PROCESSING so an
// unexpected intermediate state never stops a polling loop early.
func NormalizeStatus(raw string) model.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "initiated", "pending", "created":
		return model.StatusPending
	case "processing", "fulfilling", "validated":
		return model.StatusProcessing
	case "settled", "fulfilled", "completed", "success":
		return model.StatusCompleted
	case "failed", "refunded", "reverted", "cancelled":
		return model.StatusFailed
	case "expired":
		return model.StatusExpired
	default:
		return model.StatusProcessing
	}
}

// IsTerminalStatus reports whether the raw provider status normalizes
// to a terminal state.
func IsTerminalStatus(raw string) bool {
	return NormalizeStatus(raw).IsTerminal()
}
