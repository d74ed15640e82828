package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mxsafiri/nedapay-baseminiapp-sub001/internal/paycrest"
	"github.com/mxsafiri/nedapay-baseminiapp-sub001/pkg/model"
)

// ProviderClient is the provider surface the order service needs.
type ProviderClient interface {
	CreateOrder(ctx context.Context, cfg *paycrest.ClientConfig, payload *paycrest.OrderPayload) (*paycrest.OrderData, error)
	GetOrder(ctx context.Context, cfg *paycrest.ClientConfig, orderID string) (*paycrest.OrderData, error)
	VerifyAccount(ctx context.Context, cfg *paycrest.ClientConfig, detail *paycrest.VerifyAccountPayload) (string, error)
}

// CredentialResolver resolves provider credentials for a merchant.
type CredentialResolver interface {
	Resolve(ctx context.Context, merchantID string) (*paycrest.ClientConfig, error)
}

// Store is the persistence surface the order service needs.
type Store interface {
	SaveOrderSnapshot(ctx context.Context, handle model.OrderHandle) error
	GetOrderSnapshot(ctx context.Context, orderID string) (*model.OrderHandle, error)
	RecordTransaction(ctx context.Context, tx model.Transaction) error
	UpsertPaymentRequest(ctx context.Context, pr model.PaymentRequest) error
}

// ReferenceGenerator produces unique payment references.
type ReferenceGenerator interface {
	Generate() string
}

// ValidationResult carries the full list of violations so a UI can show
// every problem at once instead of the first only.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Service validates, creates, and polls status for payment orders
// against the settlement provider.
type Service struct {
	logger   *zap.Logger
	client   ProviderClient
	resolver CredentialResolver
	store    Store
	refs     ReferenceGenerator
}

// NewService constructs an order lifecycle service. store may be nil in
// tests; snapshots and persistence are skipped without one.
func NewService(
	logger *zap.Logger,
	client ProviderClient,
	resolver CredentialResolver,
	store Store,
	refs ReferenceGenerator,
) *Service {
	return &Service{
		logger:   logger,
		client:   client,
		resolver: resolver,
		store:    store,
		refs:     refs,
	}
}

// Validate checks required fields on an order request and reports all
// violations, not just the first.
func (s *Service) Validate(req model.OrderRequest) ValidationResult {
	var errs []string

	if strings.TrimSpace(req.Token) == "" {
		errs = append(errs, "token is required")
	}
	if !req.Amount.IsPositive() {
		errs = append(errs, "amount must be greater than 0")
	}
	if strings.TrimSpace(req.FiatCurrency) == "" {
		errs = append(errs, "fiatCurrency is required")
	}
	if strings.TrimSpace(req.Institution) == "" {
		errs = append(errs, "institution is required")
	}
	if strings.TrimSpace(req.AccountIdentifier) == "" {
		errs = append(errs, "accountIdentifier is required")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// CreateOrder validates and submits an order to the provider. A payment
// reference is generated when the caller did not supply one. Validation
// failures never reach the network.
func (s *Service) CreateOrder(ctx context.Context, req model.OrderRequest) (*model.OrderHandle, error) {
	if result := s.Validate(req); !result.Valid {
		return nil, model.Invalidf("%s", strings.Join(result.Errors, "; "))
	}

	cfg, err := s.resolver.Resolve(ctx, req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant credentials for %q: %w", req.MerchantID, err)
	}

	if req.Reference == "" {
		req.Reference = s.refs.Generate()
	}

	// Resolve the account-holder name when the caller did not supply
	// one; a verification failure is not fatal to order creation.
	if req.AccountName == "" {
		name, err := s.client.VerifyAccount(ctx, cfg, &paycrest.VerifyAccountPayload{
			Institution:       req.Institution,
			AccountIdentifier: req.AccountIdentifier,
		})
		if err != nil {
			s.logger.Warn("order.account_verification_failed",
				zap.String("merchant", req.MerchantID),
				zap.String("institution", req.Institution),
				zap.Error(err))
		} else {
			req.AccountName = name
		}
	}

	network := req.Network
	if network == "" {
		network = cfg.Network
	}

	payload := &paycrest.OrderPayload{
		Amount:  req.Amount.String(),
		Token:   strings.ToUpper(req.Token),
		Network: network,
		Recipient: paycrest.RecipientData{
			Institution:       req.Institution,
			AccountIdentifier: req.AccountIdentifier,
			AccountName:       req.AccountName,
			Memo:              req.RecipientMemo,
		},
		Reference:     req.Reference,
		ReturnAddress: req.ReturnAddress,
	}

	s.logger.Info("order.create.start",
		zap.String("merchant", req.MerchantID),
		zap.String("reference", req.Reference),
		zap.String("token", payload.Token),
		zap.String("fiat", req.FiatCurrency),
		zap.String("amount", payload.Amount))

	data, err := s.client.CreateOrder(ctx, cfg, payload)
	if err != nil {
		s.logger.Error("order.create.failed",
			zap.String("merchant", req.MerchantID),
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrOrderCreationFailed, err)
	}

	handle := handleFromOrderData(data, req)

	if s.store != nil {
		if err := s.store.SaveOrderSnapshot(ctx, *handle); err != nil {
			s.logger.Warn("order.snapshot_save_failed",
				zap.String("order_id", handle.OrderID),
				zap.Error(err))
		}
		if err := s.store.UpsertPaymentRequest(ctx, model.PaymentRequest{
			Reference:    handle.Reference,
			OrderID:      handle.OrderID,
			MerchantID:   req.MerchantID,
			Token:        handle.Token,
			Amount:       handle.Amount,
			FiatCurrency: handle.FiatCurrency,
			Institution:  req.Institution,
			Status:       handle.Status,
			CreatedAt:    handle.CreatedAt,
		}); err != nil {
			s.logger.Warn("order.payment_request_save_failed",
				zap.String("reference", handle.Reference),
				zap.Error(err))
		}
	}

	s.logger.Info("order.created",
		zap.String("merchant", req.MerchantID),
		zap.String("order_id", handle.OrderID),
		zap.String("reference", handle.Reference),
		zap.String("status", string(handle.Status)))

	return handle, nil
}

// GetOrderStatus retrieves the latest order state. Once a snapshot has
// reached a terminal status, that snapshot is returned without touching
// the provider: terminal states never transition further.
func (s *Service) GetOrderStatus(ctx context.Context, merchantID, orderID string) (*model.OrderHandle, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, model.Invalidf("orderId is required")
	}

	if s.store != nil {
		snapshot, err := s.store.GetOrderSnapshot(ctx, orderID)
		if err == nil && snapshot != nil && snapshot.Status.IsTerminal() {
			return snapshot, nil
		}
	}

	cfg, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant credentials for %q: %w", merchantID, err)
	}

	data, err := s.client.GetOrder(ctx, cfg, orderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return nil, err
		}
		s.logger.Warn("order.status_fetch_failed",
			zap.String("merchant", merchantID),
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrOrderStatusUnavailable, err)
	}

	handle := handleFromOrderData(data, model.OrderRequest{MerchantID: merchantID})
	handle.UpdatedAt = time.Now().UTC()

	if s.store != nil {
		if err := s.store.SaveOrderSnapshot(ctx, *handle); err != nil {
			s.logger.Warn("order.snapshot_save_failed",
				zap.String("order_id", handle.OrderID),
				zap.Error(err))
		}
		if handle.Status.IsTerminal() {
			s.recordTerminal(ctx, merchantID, handle)
		}
	}

	return handle, nil
}

// MarkExpired locally transitions a non-terminal tracked order to
// EXPIRED after the poll deadline. The provider record is left alone;
// only the local snapshot and merchant rows are updated.
func (s *Service) MarkExpired(ctx context.Context, merchantID, orderID string) (*model.OrderHandle, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no store configured")
	}

	snapshot, err := s.store.GetOrderSnapshot(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	if snapshot.Status.IsTerminal() {
		return snapshot, nil
	}

	snapshot.Status = model.StatusExpired
	snapshot.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveOrderSnapshot(ctx, *snapshot); err != nil {
		return nil, err
	}
	s.recordTerminal(ctx, merchantID, snapshot)

	s.logger.Info("order.expired",
		zap.String("merchant", merchantID),
		zap.String("order_id", orderID))

	return snapshot, nil
}

// recordTerminal writes the durable transaction row and final
// payment_requests update for a terminal order.
func (s *Service) recordTerminal(ctx context.Context, merchantID string, handle *model.OrderHandle) {
	if err := s.store.RecordTransaction(ctx, model.Transaction{
		OrderID:      handle.OrderID,
		Reference:    handle.Reference,
		MerchantID:   merchantID,
		Token:        handle.Token,
		Amount:       handle.Amount,
		FiatCurrency: handle.FiatCurrency,
		Status:       handle.Status,
		TxHash:       handle.TxHash,
		SettledAt:    handle.UpdatedAt,
	}); err != nil {
		s.logger.Warn("order.transaction_record_failed",
			zap.String("order_id", handle.OrderID),
			zap.Error(err))
	}

	if err := s.store.UpsertPaymentRequest(ctx, model.PaymentRequest{
		Reference:    handle.Reference,
		OrderID:      handle.OrderID,
		MerchantID:   merchantID,
		Token:        handle.Token,
		Amount:       handle.Amount,
		FiatCurrency: handle.FiatCurrency,
		Status:       handle.Status,
		CreatedAt:    handle.CreatedAt,
	}); err != nil {
		s.logger.Warn("order.payment_request_save_failed",
			zap.String("reference", handle.Reference),
			zap.Error(err))
	}
}

// VerifyAccount resolves the account-holder name for a payout account.
func (s *Service) VerifyAccount(ctx context.Context, merchantID string, detail model.AccountDetail) (string, error) {
	if strings.TrimSpace(detail.Institution) == "" {
		return "", model.Invalidf("institution is required")
	}
	if strings.TrimSpace(detail.AccountIdentifier) == "" {
		return "", model.Invalidf("accountIdentifier is required")
	}

	cfg, err := s.resolver.Resolve(ctx, merchantID)
	if err != nil {
		return "", fmt.Errorf("resolve merchant credentials for %q: %w", merchantID, err)
	}

	return s.client.VerifyAccount(ctx, cfg, &paycrest.VerifyAccountPayload{
		Institution:       detail.Institution,
		AccountIdentifier: detail.AccountIdentifier,
	})
}

// handleFromOrderData converts a provider order payload to a canonical
// handle, normalizing the status string.
func handleFromOrderData(data *paycrest.OrderData, req model.OrderRequest) *model.OrderHandle {
	handle := &model.OrderHandle{
		OrderID:        data.ID,
		Reference:      data.Reference,
		Status:         paycrest.NormalizeStatus(data.Status),
		Token:          data.Token,
		Amount:         req.Amount,
		FiatCurrency:   req.FiatCurrency,
		ReceiveAddress: data.ReceiveAddress,
		TxHash:         data.TxHash,
	}

	if handle.Token == "" {
		handle.Token = strings.ToUpper(req.Token)
	}
	if handle.Reference == "" {
		handle.Reference = req.Reference
	}
	if amt, err := decimal.NewFromString(data.Amount); err == nil {
		handle.Amount = amt
	}
	if created, err := time.Parse(time.RFC3339, data.CreatedAt); err == nil {
		handle.CreatedAt = created
	} else {
		handle.CreatedAt = time.Now().UTC()
	}
	if updated, err := time.Parse(time.RFC3339, data.UpdatedAt); err == nil {
		handle.UpdatedAt = updated
	} else {
		handle.UpdatedAt = handle.CreatedAt
	}

	return handle
}
