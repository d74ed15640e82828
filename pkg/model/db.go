package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the persisted record of a settled (or failed) order,
// written to app.transactions when a tracked order reaches a terminal
// state.
type Transaction struct {
	OrderID      string          `json:"order_id"`
	Reference    string          `json:"reference"`
	MerchantID   string          `json:"merchant_id"`
	Token        string          `json:"token"`
	Amount       decimal.Decimal `json:"amount"`
	FiatCurrency string          `json:"fiat_currency"`
	Status       OrderStatus     `json:"status"`
	TxHash       string          `json:"tx_hash,omitempty"`
	SettledAt    time.Time       `json:"settled_at"`
}

// PaymentRequest is the merchant-facing row in app.payment_requests,
// created when an order is submitted and updated on every status change.
type PaymentRequest struct {
	Reference    string          `json:"reference"`
	OrderID      string          `json:"order_id"`
	MerchantID   string          `json:"merchant_id"`
	Token        string          `json:"token"`
	Amount       decimal.Decimal `json:"amount"`
	FiatCurrency string          `json:"fiat_currency"`
	Institution  string          `json:"institution"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
