package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/order"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// QuoteService defines the quote operations needed by the handler.
type QuoteService interface {
	GetRate(ctx context.Context, merchantID, token string, amount decimal.Decimal, fiat string) (*model.RateQuote, error)
	Currencies(ctx context.Context, merchantID string) ([]model.Currency, error)
	Institutions(ctx context.Context, merchantID, currency string) ([]model.Institution, error)
}

// OrderService defines the order lifecycle operations needed by the
// handler.
type OrderService interface {
	Validate(req model.OrderRequest) order.ValidationResult
	CreateOrder(ctx context.Context, req model.OrderRequest) (*model.OrderHandle, error)
	GetOrderStatus(ctx context.Context, merchantID, orderID string) (*model.OrderHandle, error)
	VerifyAccount(ctx context.Context, merchantID string, detail model.AccountDetail) (string, error)
}

// OrderTracker starts background status polling for created orders.
type OrderTracker interface {
	Track(ctx context.Context, merchantID, orderID string)
}

// TransactionLister reads a merchant's settled transactions.
type TransactionLister interface {
	ListMerchantTransactions(ctx context.Context, merchantID string, from, to time.Time) ([]model.Transaction, error)
}

// Handler handles HTTP API requests for quotes and orders.
type Handler struct {
	logger          *zap.Logger
	quotes          QuoteService
	orders          OrderService
	tracker         OrderTracker
	transactions    TransactionLister
	defaultMerchant string

	// trackCtx outlives individual requests so background polling is
	// not cancelled when the creating request completes.
	trackCtx context.Context
}

// NewHandler creates a new Handler. tracker and transactions are
// optional; without a tracker, created orders are not polled.
func NewHandler(
	trackCtx context.Context,
	logger *zap.Logger,
	quotes QuoteService,
	orders OrderService,
	tracker OrderTracker,
	transactions TransactionLister,
	defaultMerchant string,
) *Handler {
	return &Handler{
		logger:          logger,
		quotes:          quotes,
		orders:          orders,
		tracker:         tracker,
		transactions:    transactions,
		defaultMerchant: defaultMerchant,
		trackCtx:        trackCtx,
	}
}

// merchantID resolves the acting merchant from the X-Merchant-ID
// header, the merchantId query param, or the configured default.
func (h *Handler) merchantID(c *fiber.Ctx, bodyID string) string {
	if id := strings.TrimSpace(c.Get("X-Merchant-ID")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.Query("merchantId")); id != "" {
		return id
	}
	if id := strings.TrimSpace(bodyID); id != "" {
		return id
	}
	return h.defaultMerchant
}

// GetRateHandler handles quote requests for a token/amount/fiat triple.
func (h *Handler) GetRateHandler(c *fiber.Ctx) error {
	amount, err := decimal.NewFromString(c.Params("amount"))
	if err != nil {
		return fail(c, model.Invalidf("amount must be a decimal number"))
	}

	merchant := h.merchantID(c, "")
	quote, err := h.quotes.GetRate(c.Context(), merchant, c.Params("token"), amount, c.Params("fiat"))
	if err != nil {
		h.logger.Warn("api.get_rate.failed",
			zap.String("merchant", merchant),
			zap.String("token", c.Params("token")),
			zap.String("fiat", c.Params("fiat")),
			zap.Error(err))
		return fail(c, err)
	}

	return ok(c, fiber.StatusOK, quote)
}

// CurrenciesHandler lists fiat currencies supported by the provider.
func (h *Handler) CurrenciesHandler(c *fiber.Ctx) error {
	currencies, err := h.quotes.Currencies(c.Context(), h.merchantID(c, ""))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, currencies)
}

// InstitutionsHandler lists payout institutions for a fiat currency.
func (h *Handler) InstitutionsHandler(c *fiber.Ctx) error {
	institutions, err := h.quotes.Institutions(c.Context(), h.merchantID(c, ""), c.Params("currency"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, institutions)
}

// CreateOrderHandler handles order creation requests.
func (h *Handler) CreateOrderHandler(c *fiber.Ctx) error {
	var req OrderCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, model.Invalidf("%s", err.Error()))
	}
	if err := req.Validate(); err != nil {
		return fail(c, model.Invalidf("%s", err.Error()))
	}

	amount, _ := decimal.NewFromString(req.Amount)
	merchant := h.merchantID(c, req.MerchantID)

	orderReq := model.OrderRequest{
		Reference:         req.Reference,
		MerchantID:        merchant,
		Token:             req.Token,
		Amount:            amount,
		FiatCurrency:      req.FiatCurrency,
		Institution:       req.Institution,
		AccountIdentifier: req.AccountIdentifier,
		AccountName:       req.AccountName,
		Network:           req.Network,
		RecipientMemo:     req.Memo,
		ReturnAddress:     req.ReturnAddress,
	}

	if result := h.orders.Validate(orderReq); !result.Valid {
		return failValidation(c, result.Errors)
	}

	handle, err := h.orders.CreateOrder(c.Context(), orderReq)
	if err != nil {
		h.logger.Error("api.create_order.failed",
			zap.String("merchant", merchant),
			zap.String("reference", req.Reference),
			zap.Error(err))
		return fail(c, err)
	}

	if h.tracker != nil {
		h.tracker.Track(h.trackCtx, merchant, handle.OrderID)
	}

	return ok(c, fiber.StatusCreated, handle)
}

// GetOrderHandler returns the latest known state of an order.
func (h *Handler) GetOrderHandler(c *fiber.Ctx) error {
	orderID := c.Params("id")
	merchant := h.merchantID(c, "")

	handle, err := h.orders.GetOrderStatus(c.Context(), merchant, orderID)
	if err != nil {
		h.logger.Warn("api.get_order.failed",
			zap.String("merchant", merchant),
			zap.String("order_id", orderID),
			zap.Error(err))
		return fail(c, err)
	}

	return ok(c, fiber.StatusOK, handle)
}

// VerifyAccountHandler resolves the account-holder name for a payout
// account.
func (h *Handler) VerifyAccountHandler(c *fiber.Ctx) error {
	var req VerifyAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, model.Invalidf("%s", err.Error()))
	}
	if err := req.Validate(); err != nil {
		return fail(c, model.Invalidf("%s", err.Error()))
	}

	merchant := h.merchantID(c, req.MerchantID)
	name, err := h.orders.VerifyAccount(c.Context(), merchant, model.AccountDetail{
		Institution:       req.Institution,
		AccountIdentifier: req.AccountIdentifier,
	})
	if err != nil {
		return fail(c, err)
	}

	return ok(c, fiber.StatusOK, fiber.Map{"accountName": name})
}

// ListTransactionsHandler returns a merchant's settled transactions for
// an optional from/to date range (RFC 3339 or YYYY-MM-DD).
func (h *Handler) ListTransactionsHandler(c *fiber.Ctx) error {
	if h.transactions == nil {
		return fail(c, model.Invalidf("transaction history is not enabled"))
	}

	from, err := parseDateQuery(c.Query("from"), time.Time{})
	if err != nil {
		return fail(c, model.Invalidf("from must be an RFC 3339 timestamp or YYYY-MM-DD date"))
	}
	to, err := parseDateQuery(c.Query("to"), time.Now().UTC())
	if err != nil {
		return fail(c, model.Invalidf("to must be an RFC 3339 timestamp or YYYY-MM-DD date"))
	}

	merchant := h.merchantID(c, "")
	txs, err := h.transactions.ListMerchantTransactions(c.Context(), merchant, from, to)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, fiber.StatusOK, txs)
}

func parseDateQuery(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
