package quote

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// FeeRule defines the fee parameters for one token/fiat corridor.
// SenderFeePercent is applied to the source amount; both flat values
// are denominated in the source token.
type FeeRule struct {
	SenderFeePercent decimal.Decimal `json:"sender_fee_percent"`
	SenderFeeFlat    decimal.Decimal `json:"sender_fee_flat"`
	TransactionFee   decimal.Decimal `json:"transaction_fee"`
}

// FeeSchedule maps "TOKEN/FIAT" corridors to fee rules, with a default
// rule for corridors that have no explicit entry. Supplied as static
// configuration; the provider publishes updates out of band.
type FeeSchedule struct {
	Rules   map[string]FeeRule `json:"rules"`
	Default FeeRule            `json:"default"`
}

// DefaultFeeSchedule returns the provider's published fee schedule:
// 0.1% sender fee and a flat 0.05 token transaction fee on all corridors.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		Rules: map[string]FeeRule{},
		Default: FeeRule{
			SenderFeePercent: decimal.NewFromFloat(0.1),
			SenderFeeFlat:    decimal.Zero,
			TransactionFee:   decimal.NewFromFloat(0.05),
		},
	}
}

// rule returns the fee rule for a corridor, falling back to the default.
func (s FeeSchedule) rule(token, fiat string) FeeRule {
	key := strings.ToUpper(token) + "/" + strings.ToUpper(fiat)
	if r, ok := s.Rules[key]; ok {
		return r
	}
	return s.Default
}

// CalculateFees derives the fee breakdown for a prospective conversion.
// Pure and deterministic: same inputs always produce the same breakdown.
// The total is computed as an exact decimal sum, so
// total == amount + senderFee + transactionFee holds without drift.
func (s FeeSchedule) CalculateFees(amount decimal.Decimal, token, fiat string) model.FeeBreakdown {
	r := s.rule(token, fiat)

	senderFee := amount.Mul(r.SenderFeePercent).Div(decimal.NewFromInt(100)).Add(r.SenderFeeFlat)
	transactionFee := r.TransactionFee

	return model.FeeBreakdown{
		SenderFee:      senderFee,
		TransactionFee: transactionFee,
		TotalAmount:    amount.Add(senderFee).Add(transactionFee),
	}
}
