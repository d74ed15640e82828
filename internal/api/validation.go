package api

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validate checks that the amount, when present, parses as a decimal.
// Field completeness and positivity are left to the order service,
// which reports every violation at once.
func (r OrderCreateRequest) Validate() error {
	if strings.TrimSpace(r.Amount) == "" {
		return nil
	}
	if _, err := decimal.NewFromString(r.Amount); err != nil {
		return fmt.Errorf("amount must be a decimal number")
	}
	return nil
}

func (r VerifyAccountRequest) Validate() error {
	if strings.TrimSpace(r.Institution) == "" {
		return fmt.Errorf("institution is required")
	}
	if strings.TrimSpace(r.AccountIdentifier) == "" {
		return fmt.Errorf("accountIdentifier is required")
	}
	return nil
}
