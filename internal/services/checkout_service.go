package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"paygate/internal/gateways"
	"paygate/internal/models/db_models"
	"paygate/internal/models/request_models"
	"paygate/internal/models/response_models"
	"paygate/internal/repositories"
	"paygate/pkg/utils"
)

// GatewayProvider is the slice of the gateway factory the orchestrator uses.
type GatewayProvider interface {
	Create(gatewayType db_models.GatewayType) (gateways.PaymentGateway, error)
	AvailableGateways() []db_models.GatewayType
	IsAvailable(gatewayType db_models.GatewayType) bool
}

type CheckoutService interface {
	Purchase(ctx context.Context, req request_models.PurchaseRequest) (*gateways.PaymentIntentResponse, error)
	GetTransaction(ctx context.Context, id string) (*response_models.TransactionResponse, error)
	ListUserTransactions(ctx context.Context, userEmail string) ([]response_models.TransactionResponse, error)
	TransactionStats(ctx context.Context) (map[db_models.TransactionStatus]int64, error)
	RefundTransaction(ctx context.Context, id string, reason string) (*gateways.RefundResult, error)
	HandleWebhook(ctx context.Context, gateway string, payload []byte, signature string) gateways.WebhookResult
	AvailableGateways() []db_models.GatewayType
	ListPackages(ctx context.Context) ([]response_models.PackageResponse, error)
}

type checkoutService struct {
	provider       GatewayProvider
	txns           repositories.TransactionRepository
	packages       repositories.PackageRepository
	gatewayTimeout time.Duration
	log            *logrus.Logger
}

func NewCheckoutService(
	provider GatewayProvider,
	txns repositories.TransactionRepository,
	packages repositories.PackageRepository,
	gatewayTimeout time.Duration,
	log *logrus.Logger,
) CheckoutService {
	return &checkoutService{
		provider:       provider,
		txns:           txns,
		packages:       packages,
		gatewayTimeout: gatewayTimeout,
		log:            log,
	}
}

func (s *checkoutService) Purchase(ctx context.Context, req request_models.PurchaseRequest) (*gateways.PaymentIntentResponse, error) {
	gatewayType, err := db_models.ParseGatewayType(req.Gateway)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrUnsupportedGateway, req.Gateway)
	}
	// Rejected before any transaction is created.
	if !s.provider.IsAvailable(gatewayType) {
		return nil, fmt.Errorf("%w: %s is not configured", utils.ErrUnsupportedGateway, gatewayType)
	}

	adapter, err := s.provider.Create(gatewayType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	resp, err := adapter.CreatePaymentIntent(ctx, gateways.PaymentIntentRequest{
		Amount:    req.Amount,
		Currency:  req.Currency,
		UserEmail: req.UserEmail,
		PackageID: req.PackageID,
		Metadata:  req.Metadata,
	})
	if err != nil {
		s.log.WithError(err).
			WithField("gateway", gatewayType).
			WithField("user", req.UserEmail).
			Error("create payment intent failed")
		return nil, err
	}

	s.log.WithField("transaction_id", resp.TransactionID).
		WithField("gateway", gatewayType).
		Info("payment intent created")
	return resp, nil
}

func (s *checkoutService) GetTransaction(ctx context.Context, id string) (*response_models.TransactionResponse, error) {
	txn, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := response_models.NewTransactionResponse(txn)
	return &resp, nil
}

func (s *checkoutService) ListUserTransactions(ctx context.Context, userEmail string) ([]response_models.TransactionResponse, error) {
	txns, err := s.txns.FindByUser(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	out := make([]response_models.TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, response_models.NewTransactionResponse(&txns[i]))
	}
	return out, nil
}

func (s *checkoutService) TransactionStats(ctx context.Context) (map[db_models.TransactionStatus]int64, error) {
	counts, err := s.txns.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return counts, nil
}

func (s *checkoutService) RefundTransaction(ctx context.Context, id string, reason string) (*gateways.RefundResult, error) {
	txn, err := s.findTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if txn.Status != db_models.TxnStatusCompleted {
		return nil, fmt.Errorf("%w: cannot refund a %s transaction", utils.ErrInvalidStatusChange, txn.Status)
	}
	if txn.GatewayTransactionID == nil {
		return nil, fmt.Errorf("%w: transaction has no gateway id", utils.ErrInvalidStatusChange)
	}

	adapter, err := s.provider.Create(txn.Gateway)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	result := adapter.Refund(ctx, gateways.RefundRequest{
		GatewayTransactionID: *txn.GatewayTransactionID,
		Amount:               txn.Amount,
		Reason:               reason,
	})

	if result.Success {
		if _, err := s.txns.MarkRefunded(ctx, txn.ID, result.RefundID); err != nil {
			s.log.WithError(err).
				WithField("transaction_id", txn.ID.String()).
				Error("provider refund succeeded but status update failed")
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		s.log.WithField("transaction_id", txn.ID.String()).
			WithField("refund_id", result.RefundID).
			Info("transaction refunded")
	}

	return &result, nil
}

func (s *checkoutService) HandleWebhook(ctx context.Context, gateway string, payload []byte, signature string) gateways.WebhookResult {
	gatewayType, err := db_models.ParseGatewayType(gateway)
	if err != nil {
		return gateways.WebhookResult{
			Status:  gateways.WebhookFailed,
			Message: fmt.Sprintf("unknown gateway %q", gateway),
		}
	}

	adapter, err := s.provider.Create(gatewayType)
	if err != nil {
		return gateways.WebhookResult{
			Status:  gateways.WebhookFailed,
			Message: fmt.Sprintf("gateway %s is not configured", gatewayType),
		}
	}

	// Processing may call back out to the provider (payment lookups), so the
	// same bound applies as on the purchase path.
	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	return adapter.HandleWebhook(ctx, payload, signature)
}

func (s *checkoutService) AvailableGateways() []db_models.GatewayType {
	return s.provider.AvailableGateways()
}

func (s *checkoutService) ListPackages(ctx context.Context) ([]response_models.PackageResponse, error) {
	pkgs, err := s.packages.FindActivePackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	out := make([]response_models.PackageResponse, 0, len(pkgs))
	for _, pkg := range pkgs {
		out = append(out, response_models.PackageResponse{
			PackageID:     pkg.PackageID,
			Name:          pkg.Name,
			Description:   pkg.Description,
			Price:         pkg.Price,
			Currency:      pkg.Currency,
			GrantsCredits: pkg.GrantsCredits,
		})
	}
	return out, nil
}

func (s *checkoutService) findTransaction(ctx context.Context, id string) (*db_models.Transaction, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid transaction id %q", utils.ErrValidation, id)
	}

	txn, err := s.txns.FindByID(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if txn == nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrTransactionNotFound, id)
	}
	return txn, nil
}
