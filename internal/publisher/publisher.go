package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/metrics"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/logger"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// Publisher wraps a NATS connection and provides helpers for publishing
// canonical order events.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	service string
}

// New creates a new Publisher with JetStream enabled if available.
func New(nc *nats.Conn, subject, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		subject: subject,
		service: service,
	}, nil
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	if subject == "" {
		subject = p.subject
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"merchant_id":    []string{env.MerchantID},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"merchant_id", env.MerchantID,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishOrderStatus emits canonical order status events. Final terminal
// events carry event type "order.<status>", intermediate changes
// "order.status_changed".
func (p *Publisher) PublishOrderStatus(ctx context.Context, evt model.OrderStatusEvent) error {
	eventType := "order.status_changed"
	subject := p.subject
	if evt.Final {
		eventType = "order." + string(evt.Status)
		subject = "evt.order." + string(evt.Status) + ".v1.PAYCREST"
	}

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		MerchantID:    evt.MerchantID,
		Topic:         subject,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
	}

	data, _ := json.Marshal(evt)
	env.Payload = data

	return p.PublishEnvelope(ctx, subject, env)
}

// Publish publishes raw JSON payloads (for non-canonical internal events).
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"source": []string{p.service}},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
