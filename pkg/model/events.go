package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical event envelope. All messages published to
// NATS follow this format.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	MerchantID    string          `json:"merchant_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderStatusEvent is the payload emitted whenever a tracked order
// changes status, and again (with Final=true) on the terminal state.
type OrderStatusEvent struct {
	MerchantID string      `json:"merchant_id"`
	OrderID    string      `json:"order_id"`
	Reference  string      `json:"reference"`
	Status     OrderStatus `json:"status"`
	RawStatus  string      `json:"raw_status,omitempty"`
	Final      bool        `json:"final"`
	Timestamp  time.Time   `json:"timestamp"`
}
