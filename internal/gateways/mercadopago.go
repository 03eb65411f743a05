package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/sirupsen/logrus"

	"paygate/internal/models/db_models"
	"paygate/internal/repositories"
	"paygate/pkg/utils"
)

// Checkout preferences expire after the same window the staleness sweep uses
// as its default.
const mpPreferenceLifetime = 30 * time.Minute

type mpPreferencesAPI interface {
	Create(ctx context.Context, req preference.Request) (*preference.Response, error)
}

type mpPaymentsAPI interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

type MercadoPagoAdapter struct {
	preferences mpPreferencesAPI
	payments    mpPaymentsAPI

	frontendURL string
	apiBaseURL  string

	packages repositories.PackageRepository
	settle   *Settlement
	log      *logrus.Logger
}

func NewMercadoPagoAdapter(
	accessToken, frontendURL, apiBaseURL string,
	packages repositories.PackageRepository,
	settle *Settlement,
	log *logrus.Logger,
) (*MercadoPagoAdapter, error) {
	cfg, err := mpconfig.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago client init: %w", err)
	}
	return &MercadoPagoAdapter{
		preferences: preference.NewClient(cfg),
		payments:    payment.NewClient(cfg),
		frontendURL: frontendURL,
		apiBaseURL:  apiBaseURL,
		packages:    packages,
		settle:      settle,
		log:         log,
	}, nil
}

func (a *MercadoPagoAdapter) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResponse, error) {
	pkg, err := a.packages.FindActivePackage(ctx, req.PackageID)
	if err != nil {
		return nil, fmt.Errorf("lookup package %s: %w", req.PackageID, err)
	}
	if pkg == nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrPackageNotFound, req.PackageID)
	}

	txn := &db_models.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        req.UserEmail,
		PackageID:     req.PackageID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		Gateway:       db_models.GatewayMercadoPago,
		Status:        db_models.TxnStatusPending,
		GrantsCredits: pkg.GrantsCredits.Clone(),
		Metadata:      jsonRaw(req.Metadata),
	}
	if err := a.settle.Transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	description := pkg.Description
	if description == "" {
		description = fmt.Sprintf("Purchase of %s", pkg.Name)
	}

	expiresFrom := time.Now()
	expiresTo := expiresFrom.Add(mpPreferenceLifetime)

	prefReq := preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:          req.PackageID,
				Title:       pkg.Name,
				Description: description,
				Quantity:    1,
				UnitPrice:   req.Amount,
				CurrencyID:  txn.Currency,
			},
		},
		Payer: &preference.PayerRequest{
			Email: req.UserEmail,
		},
		BackURLs: &preference.BackURLsRequest{
			Success: a.frontendURL + "/payment/success",
			Failure: a.frontendURL + "/payment/failure",
			Pending: a.frontendURL + "/payment/pending",
		},
		AutoReturn: "approved",
		// The webhook matches payments back by this reference.
		ExternalReference:  txn.ID.String(),
		NotificationURL:    a.apiBaseURL + "/webhooks/mercadopago",
		Expires:            true,
		ExpirationDateFrom: &expiresFrom,
		ExpirationDateTo:   &expiresTo,
		Metadata: map[string]interface{}{
			"internal_transaction_id": txn.ID.String(),
			"user_email":              req.UserEmail,
			"package_id":              req.PackageID,
		},
	}

	pref, err := a.preferences.Create(ctx, prefReq)
	if err != nil {
		return nil, fmt.Errorf("%w: mercadopago create preference: %v", utils.ErrPaymentGateway, err)
	}
	if pref.ID == "" || pref.InitPoint == "" {
		return nil, fmt.Errorf("%w: mercadopago preference missing id or init point", utils.ErrPaymentGateway)
	}

	if err := a.settle.Transactions.SetGatewayTransactionID(ctx, txn.ID, pref.ID); err != nil {
		return nil, fmt.Errorf("persist gateway transaction id: %w", err)
	}

	return &PaymentIntentResponse{
		CheckoutURL:          pref.InitPoint,
		TransactionID:        txn.ID.String(),
		GatewayTransactionID: pref.ID,
	}, nil
}

// mpWebhookEvent is the decoded shape of a MercadoPago notification.
type mpWebhookEvent struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

func (a *MercadoPagoAdapter) HandleWebhook(ctx context.Context, payload []byte, _ string) WebhookResult {
	var event mpWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return WebhookResult{
			Status:  WebhookFailed,
			Message: fmt.Sprintf("invalid webhook payload: %v", err),
		}
	}

	a.log.WithField("type", event.Type).WithField("action", event.Action).
		Info("received mercadopago webhook")

	switch event.Type {
	case "payment":
		return a.handlePaymentNotification(ctx, event)
	case "merchant_order":
		// Order-level notifications carry nothing the payment notification
		// doesn't; acknowledge so the provider stops resending.
		return WebhookResult{
			Status:  WebhookSuccess,
			Message: "Merchant order notification acknowledged",
		}
	default:
		return WebhookResult{
			Status:  WebhookSuccess,
			Message: fmt.Sprintf("Unhandled webhook type: %s", event.Type),
		}
	}
}

func (a *MercadoPagoAdapter) handlePaymentNotification(ctx context.Context, event mpWebhookEvent) WebhookResult {
	paymentID, err := strconv.Atoi(event.Data.ID.String())
	if err != nil {
		return WebhookResult{
			Status:  WebhookFailed,
			Message: "No payment ID found in webhook",
		}
	}

	pay, err := a.payments.Get(ctx, paymentID)
	if err != nil {
		return WebhookResult{
			Status:    WebhookFailed,
			Message:   fmt.Sprintf("fetch payment %d: %v", paymentID, err),
			Retryable: true,
		}
	}

	txnID, err := uuid.Parse(pay.ExternalReference)
	if err != nil {
		return WebhookResult{
			Status:  WebhookFailed,
			Message: fmt.Sprintf("payment %d has no usable external reference", paymentID),
		}
	}

	txn, err := a.settle.Transactions.FindByID(ctx, txnID)
	if err != nil {
		return WebhookResult{
			Status:    WebhookFailed,
			Message:   fmt.Sprintf("lookup transaction %s: %v", txnID, err),
			Retryable: true,
		}
	}
	if txn == nil {
		a.log.WithField("transaction_id", txnID.String()).
			Warn("mercadopago webhook for unknown transaction")
		return WebhookResult{
			Status:  WebhookFailed,
			Message: fmt.Sprintf("Transaction %s not found", txnID),
		}
	}

	raw := jsonRaw(pay)

	switch pay.Status {
	case "approved":
		return a.settle.CompleteAndGrant(ctx, txn, raw)
	case "rejected":
		reason := pay.StatusDetail
		if reason == "" {
			reason = "Payment rejected"
		}
		return a.settle.Fail(ctx, txn, reason, raw)
	case "cancelled":
		return a.settle.Cancel(ctx, txn, raw)
	default:
		// in_process, pending, authorized: nothing to apply yet.
		return WebhookResult{
			Status:        WebhookSuccess,
			Message:       fmt.Sprintf("Payment %d still %s", paymentID, pay.Status),
			TransactionID: txn.ID.String(),
		}
	}
}

func (a *MercadoPagoAdapter) Refund(_ context.Context, req RefundRequest) RefundResult {
	// The stored gateway id is a checkout preference, not a payment, so there
	// is nothing the refund API can act on directly.
	a.log.WithField("gateway_transaction_id", req.GatewayTransactionID).
		Info("mercadopago refund requested")
	return RefundResult{
		Success: false,
		Message: "MercadoPago refunds require manual processing",
	}
}

func (a *MercadoPagoAdapter) VerifyPaymentStatus(_ context.Context, gatewayTransactionID string) (*PaymentStatus, error) {
	// A preference id cannot be resolved to a payment without an order
	// lookup; stale pending transactions on this gateway fall through to the
	// sweep's failure path.
	return &PaymentStatus{Status: "unknown"}, nil
}
