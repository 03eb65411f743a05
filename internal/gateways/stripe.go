package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"paygate/internal/models/db_models"
	"paygate/internal/repositories"
	"paygate/pkg/utils"
)

const stripeMetadataTxnKey = "internal_transaction_id"

// Narrow views over the stripe client so tests can stand in for the API.
type stripeIntentsAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundsAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type StripeAdapter struct {
	intents       stripeIntentsAPI
	refunds       stripeRefundsAPI
	webhookSecret string

	packages repositories.PackageRepository
	settle   *Settlement
	log      *logrus.Logger
}

func NewStripeAdapter(
	apiKey, webhookSecret string,
	packages repositories.PackageRepository,
	settle *Settlement,
	log *logrus.Logger,
) *StripeAdapter {
	sc := client.New(apiKey, nil)
	return &StripeAdapter{
		intents:       sc.PaymentIntents,
		refunds:       sc.Refunds,
		webhookSecret: webhookSecret,
		packages:      packages,
		settle:        settle,
		log:           log,
	}
}

func (a *StripeAdapter) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResponse, error) {
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
		Gateway:       db_models.GatewayStripe,
		Status:        db_models.TxnStatusPending,
		GrantsCredits: pkg.GrantsCredits.Clone(),
		Metadata:      jsonRaw(req.Metadata),
	}
	if err := a.settle.Transactions.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(int64(math.Round(req.Amount * 100))), // cents
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(fmt.Sprintf("Purchase of %s by %s", pkg.Name, req.UserEmail)),
	}
	params.Context = ctx
	params.AddMetadata(stripeMetadataTxnKey, txn.ID.String())
	params.AddMetadata("package_id", req.PackageID)
	params.AddMetadata("user_email", req.UserEmail)

	pi, err := a.intents.New(params)
	if err != nil {
		// The pending transaction stays behind for the staleness sweep.
		return nil, fmt.Errorf("%w: stripe create intent: %v", utils.ErrPaymentGateway, err)
	}

	if err := a.settle.Transactions.SetGatewayTransactionID(ctx, txn.ID, pi.ID); err != nil {
		// Orphaned pending transaction without a gateway id; the sweep
		// resolves it rather than retrying here.
		return nil, fmt.Errorf("persist gateway transaction id: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret:         pi.ClientSecret,
		TransactionID:        txn.ID.String(),
		GatewayTransactionID: pi.ID,
	}, nil
}

func (a *StripeAdapter) HandleWebhook(ctx context.Context, payload []byte, signature string) WebhookResult {
	event, err := webhook.ConstructEvent(payload, signature, a.webhookSecret)
	if err != nil {
		return WebhookResult{
			Status:  WebhookFailed,
			Message: fmt.Sprintf("webhook signature verification failed: %v", err),
		}
	}

	a.log.WithField("event_type", event.Type).Info("received stripe webhook")

	switch event.Type {
	case "payment_intent.succeeded":
		return a.handlePaymentSucceeded(ctx, event)
	case "payment_intent.payment_failed":
		return a.handlePaymentFailed(ctx, event)
	case "payment_intent.canceled":
		return a.handlePaymentCanceled(ctx, event)
	default:
		return WebhookResult{
			Status:  WebhookSuccess,
			Message: fmt.Sprintf("Unhandled event type: %s", event.Type),
		}
	}
}

func (a *StripeAdapter) handlePaymentSucceeded(ctx context.Context, event stripe.Event) WebhookResult {
	txn, result := a.resolveTransaction(ctx, event)
	if txn == nil {
		return result
	}
	return a.settle.CompleteAndGrant(ctx, txn, event.Data.Raw)
}

func (a *StripeAdapter) handlePaymentFailed(ctx context.Context, event stripe.Event) WebhookResult {
	txn, result := a.resolveTransaction(ctx, event)
	if txn == nil {
		return result
	}

	var pi stripe.PaymentIntent
	reason := "Payment failed"
	if err := json.Unmarshal(event.Data.Raw, &pi); err == nil &&
		pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		reason = pi.LastPaymentError.Msg
	}
	return a.settle.Fail(ctx, txn, reason, event.Data.Raw)
}

func (a *StripeAdapter) handlePaymentCanceled(ctx context.Context, event stripe.Event) WebhookResult {
	txn, result := a.resolveTransaction(ctx, event)
	if txn == nil {
		return result
	}
	return a.settle.Cancel(ctx, txn, event.Data.Raw)
}

// resolveTransaction decodes the event's payment intent and looks up the
// transaction by the correlation id planted in the intent's metadata. A nil
// transaction means the returned WebhookResult is final.
func (a *StripeAdapter) resolveTransaction(ctx context.Context, event stripe.Event) (*db_models.Transaction, WebhookResult) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, WebhookResult{
			Status:  WebhookFailed,
			Message: fmt.Sprintf("malformed payment intent payload: %v", err),
		}
	}

	rawID := pi.Metadata[stripeMetadataTxnKey]
	if rawID == "" {
		return nil, WebhookResult{
			Status:  WebhookFailed,
			Message: "No internal transaction ID found in metadata",
		}
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, WebhookResult{
			Status:  WebhookFailed,
			Message: fmt.Sprintf("invalid internal transaction ID %q", rawID),
		}
	}

	txn, err := a.settle.Transactions.FindByID(ctx, id)
	if err != nil {
		return nil, WebhookResult{
			Status:    WebhookFailed,
			Message:   fmt.Sprintf("lookup transaction %s: %v", id, err),
			Retryable: true,
		}
	}
	if txn == nil {
		a.log.WithField("transaction_id", rawID).Warn("stripe webhook for unknown transaction")
		return nil, WebhookResult{
			Status:  WebhookFailed,
			Message: fmt.Sprintf("Transaction %s not found", rawID),
		}
	}
	return txn, WebhookResult{}
}

func (a *StripeAdapter) Refund(ctx context.Context, req RefundRequest) RefundResult {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.GatewayTransactionID),
		Amount:        stripe.Int64(int64(math.Round(req.Amount * 100))),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	reason := req.Reason
	if reason == "" {
		reason = "Manual refund"
	}
	params.AddMetadata("reason", reason)

	ref, err := a.refunds.New(params)
	if err != nil {
		return RefundResult{
			Success: false,
			Message: fmt.Sprintf("Refund failed: %v", err),
		}
	}
	return RefundResult{
		Success:  true,
		RefundID: ref.ID,
		Message:  "Refund processed successfully",
	}
}

func (a *StripeAdapter) VerifyPaymentStatus(ctx context.Context, gatewayTransactionID string) (*PaymentStatus, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := a.intents.Get(gatewayTransactionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: stripe retrieve intent: %v", utils.ErrPaymentGateway, err)
	}
	return &PaymentStatus{
		Status:   string(pi.Status),
		Amount:   float64(pi.Amount) / 100,
		Currency: strings.ToUpper(string(pi.Currency)),
	}, nil
}

func jsonRaw(v interface{}) []byte {
	if v == nil {
		return nil
	}
	b, _ := json.Marshal(v)
	return b
}
