package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/metrics"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// StatusService is the order surface the poller drives.
type StatusService interface {
	GetOrderStatus(ctx context.Context, merchantID, orderID string) (*model.OrderHandle, error)
	MarkExpired(ctx context.Context, merchantID, orderID string) (*model.OrderHandle, error)
}

// EventSink receives order status change events.
type EventSink interface {
	PublishOrderStatus(ctx context.Context, evt model.OrderStatusEvent) error
}

// OrderPoller tracks open orders until they reach a terminal state,
// emitting an event on every status transition. Each tracked order gets
// its own watch loop with a hard deadline; orders still open at the
// deadline are marked EXPIRED locally.
type OrderPoller struct {
	logger       *zap.Logger
	service      StatusService
	events       EventSink
	pollInterval time.Duration
	pollTimeout  time.Duration
	stopCh       chan struct{}

	activeOrders sync.Map // order_id -> cancel function
}

// NewOrderPoller constructs an order status poller.
func NewOrderPoller(
	logger *zap.Logger,
	service StatusService,
	events EventSink,
	interval, timeout time.Duration,
) *OrderPoller {
	return &OrderPoller{
		logger:       logger,
		service:      service,
		events:       events,
		pollInterval: interval,
		pollTimeout:  timeout,
		stopCh:       make(chan struct{}),
	}
}

// Stop signals all watch loops to stop gracefully.
func (p *OrderPoller) Stop() {
	close(p.stopCh)
}

// Track begins polling an order until it reaches a terminal state.
// Duplicate calls for an order already being tracked are ignored.
func (p *OrderPoller) Track(parentCtx context.Context, merchantID, orderID string) {
	if _, exists := p.activeOrders.Load(orderID); exists {
		p.logger.Debug("order.poll_already_active",
			zap.String("order_id", orderID),
			zap.String("merchant", merchantID))
		return
	}

	ctx, cancel := context.WithCancel(parentCtx)
	p.activeOrders.Store(orderID, cancel)
	metrics.ActiveOrderPolls.Inc()

	go func() {
		defer func() {
			p.activeOrders.Delete(orderID)
			metrics.ActiveOrderPolls.Dec()
			cancel()
		}()
		p.watch(ctx, merchantID, orderID)
	}()
}

// CancelTracking cancels active polling for an order, e.g. when a
// webhook already delivered the final status.
func (p *OrderPoller) CancelTracking(orderID string) {
	if cancel, ok := p.activeOrders.Load(orderID); ok {
		p.logger.Info("order.polling_cancelled",
			zap.String("order_id", orderID))
		cancel.(context.CancelFunc)()
		p.activeOrders.Delete(orderID)
	}
}

// IsTracking returns true if the order is currently being polled.
func (p *OrderPoller) IsTracking(orderID string) bool {
	_, exists := p.activeOrders.Load(orderID)
	return exists
}

// pollResult carries one status fetch back into the watch loop. seq
// orders results so a slow fetch that completes late can never
// overwrite state derived from a fresher one.
type pollResult struct {
	seq    uint64
	handle *model.OrderHandle
	err    error
}

// watchState holds per-order loop state. inFlight coalesces ticks:
// while a fetch is outstanding, subsequent ticks are skipped rather
// than stacking requests against a slow provider.
type watchState struct {
	inFlight   atomic.Bool
	seq        atomic.Uint64
	applied    uint64
	lastStatus model.OrderStatus
}

func (w *watchState) begin() bool  { return w.inFlight.CompareAndSwap(false, true) }
func (w *watchState) end()         { w.inFlight.Store(false) }
func (w *watchState) next() uint64 { return w.seq.Add(1) }

func (p *OrderPoller) watch(ctx context.Context, merchantID, orderID string) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(p.pollTimeout)
	defer deadline.Stop()

	state := &watchState{}
	results := make(chan pollResult, 1)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("order.poll_stopped",
				zap.String("order_id", orderID),
				zap.String("merchant", merchantID),
				zap.String("last_status", string(state.lastStatus)))
			return

		case <-p.stopCh:
			p.logger.Info("order.poll_stopped",
				zap.String("order_id", orderID),
				zap.String("reason", "poller_shutdown"))
			return

		case <-deadline.C:
			p.expire(ctx, merchantID, orderID)
			return

		case <-ticker.C:
			if !state.begin() {
				p.logger.Debug("order.poll_tick_coalesced",
					zap.String("order_id", orderID))
				continue
			}
			seq := state.next()
			go func(seq uint64) {
				handle, err := p.service.GetOrderStatus(ctx, merchantID, orderID)
				state.end()
				select {
				case results <- pollResult{seq: seq, handle: handle, err: err}:
				case <-ctx.Done():
				}
			}(seq)

		case res := <-results:
			if p.apply(ctx, state, merchantID, orderID, res) {
				return
			}
		}
	}
}

// apply folds one fetch result into the watch state. Returns true when
// the order reached a terminal state and the loop should exit. Results
// issued before the last applied one are discarded.
func (p *OrderPoller) apply(ctx context.Context, state *watchState, merchantID, orderID string, res pollResult) bool {
	if res.seq <= state.applied {
		p.logger.Debug("order.poll_result_stale",
			zap.String("order_id", orderID),
			zap.Uint64("seq", res.seq),
			zap.Uint64("applied", state.applied))
		return false
	}
	state.applied = res.seq

	if res.err != nil {
		if errors.Is(res.err, model.ErrOrderNotFound) {
			p.logger.Warn("order.poll_order_missing",
				zap.String("order_id", orderID),
				zap.String("merchant", merchantID))
			return true
		}
		p.logger.Warn("order.poll_error",
			zap.String("order_id", orderID),
			zap.String("merchant", merchantID),
			zap.Error(res.err))
		metrics.IncError("order_poller", "fetch_failed")
		return false
	}

	metrics.SetLastPoll("order_poller", time.Now().UTC())

	status := res.handle.Status
	if status != state.lastStatus {
		state.lastStatus = status
		p.publishChange(ctx, merchantID, res.handle)
		p.logger.Info("order.status_changed",
			zap.String("order_id", orderID),
			zap.String("merchant", merchantID),
			zap.String("status", string(status)))
	}

	if status.IsTerminal() {
		p.logger.Info("order.poll_complete",
			zap.String("order_id", orderID),
			zap.String("merchant", merchantID),
			zap.String("final_status", string(status)))
		return true
	}
	return false
}

// expire marks an order still open at the poll deadline as EXPIRED and
// emits the final event.
func (p *OrderPoller) expire(ctx context.Context, merchantID, orderID string) {
	handle, err := p.service.MarkExpired(ctx, merchantID, orderID)
	if err != nil {
		p.logger.Warn("order.expire_failed",
			zap.String("order_id", orderID),
			zap.String("merchant", merchantID),
			zap.Error(err))
		return
	}

	p.publishChange(ctx, merchantID, handle)
	p.logger.Info("order.poll_deadline_reached",
		zap.String("order_id", orderID),
		zap.String("merchant", merchantID),
		zap.String("final_status", string(handle.Status)))
}

func (p *OrderPoller) publishChange(ctx context.Context, merchantID string, handle *model.OrderHandle) {
	if p.events == nil {
		return
	}
	evt := model.OrderStatusEvent{
		MerchantID: merchantID,
		OrderID:    handle.OrderID,
		Reference:  handle.Reference,
		Status:     handle.Status,
		RawStatus:  string(handle.Status),
		Final:      handle.Status.IsTerminal(),
		Timestamp:  time.Now().UTC(),
	}
	if err := p.events.PublishOrderStatus(ctx, evt); err != nil {
		p.logger.Debug("nats.publish_failed",
			zap.String("order_id", handle.OrderID),
			zap.Error(err))
	}
}
