package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the canonical lifecycle state of a payment order.
// The settlement provider is the source of truth; provider-specific
// strings are normalized into this enum at the client boundary.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusFailed     OrderStatus = "FAILED"
	StatusExpired    OrderStatus = "EXPIRED"
)

// IsTerminal reports whether the status admits no further transition.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// OrderRequest is a merchant's request to convert stablecoin and deliver
// fiat to a payout institution/account. Reference is generated when empty.
type OrderRequest struct {
	Reference         string          `json:"reference"`
	MerchantID        string          `json:"merchant_id"`
	Token             string          `json:"token"`
	Amount            decimal.Decimal `json:"amount"`
	FiatCurrency      string          `json:"fiat_currency"`
	Institution       string          `json:"institution"`
	AccountIdentifier string          `json:"account_identifier"`
	AccountName       string          `json:"account_name,omitempty"`
	Network           string          `json:"network,omitempty"`
	RecipientMemo     string          `json:"recipient_memo,omitempty"`
	ReturnAddress     string          `json:"return_address,omitempty"`
}

// OrderHandle is the caller-owned view of a submitted order.
type OrderHandle struct {
	OrderID        string          `json:"order_id"`
	Reference      string          `json:"reference"`
	Status         OrderStatus     `json:"status"`
	Token          string          `json:"token"`
	Amount         decimal.Decimal `json:"amount"`
	FiatCurrency   string          `json:"fiat_currency"`
	ReceiveAddress string          `json:"receive_address,omitempty"`
	TxHash         string          `json:"tx_hash,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Institution is a payout destination recognized by the provider
// for a given fiat currency.
type Institution struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Type string `json:"type"` // "bank" | "mobile_money"
}

// Currency is a fiat currency supported by the provider.
type Currency struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ShortName  string `json:"short_name"`
	Symbol     string `json:"symbol"`
	MarketRate string `json:"market_rate,omitempty"`
}

// AccountDetail identifies a payout account for holder-name verification.
type AccountDetail struct {
	Institution       string `json:"institution"`
	AccountIdentifier string `json:"account_identifier"`
}
