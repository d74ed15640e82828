package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateQuote is a point-in-time exchange rate plus derived fee breakdown
// for a prospective token→fiat conversion. Immutable once constructed;
// a refresh produces a new value rather than mutating the old one.
//
// Invariants (fees are charged on top, not deducted from the receive leg):
//
//	TotalAmount   = SourceAmount + SenderFee + TransactionFee
//	ReceiveAmount = SourceAmount * Rate
type RateQuote struct {
	Token          string          `json:"token"`
	FiatCurrency   string          `json:"fiat_currency"`
	SourceAmount   decimal.Decimal `json:"source_amount"`
	Rate           decimal.Decimal `json:"rate"`
	SenderFee      decimal.Decimal `json:"sender_fee"`
	TransactionFee decimal.Decimal `json:"transaction_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ReceiveAmount  decimal.Decimal `json:"receive_amount"`
	FetchedAt      time.Time       `json:"fetched_at"`
}

// FeeBreakdown is the pure arithmetic part of a quote, derived from the
// fee schedule independently of the live rate.
type FeeBreakdown struct {
	SenderFee      decimal.Decimal `json:"sender_fee"`
	TransactionFee decimal.Decimal `json:"transaction_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}
