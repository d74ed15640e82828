package model

import (
	"errors"
	"fmt"
)

// Error kinds for the quote/order flow. Components never fail silently:
// every failure path wraps one of these sentinels so callers can branch
// with errors.Is and HTTP layers can map to a status class.
var (
	// ErrInvalidInput marks a caller error, surfaced immediately and
	// never retried. No network call is made once it is raised.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateUnavailable marks a transient upstream failure on the rate
	// path; eligible for caller-driven retry by reschedule.
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrOrderStatusUnavailable marks a transient upstream failure on
	// the status path; the poller may retry.
	ErrOrderStatusUnavailable = errors.New("order status unavailable")

	// ErrOrderCreationFailed marks an upstream rejection of an order.
	// Not retried automatically: resubmission could double-charge.
	ErrOrderCreationFailed = errors.New("order creation failed")

	// ErrOrderNotFound marks an order the provider has no record of.
	ErrOrderNotFound = errors.New("order not found")
)

// Invalidf wraps ErrInvalidInput with a formatted detail message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}
