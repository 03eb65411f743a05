package gateways

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"paygate/internal/models/db_models"
	"paygate/internal/repositories"
)

type PaymentIntentRequest struct {
	Amount    float64
	Currency  string
	UserEmail string
	PackageID string
	Metadata  map[string]interface{}
}

type PaymentIntentResponse struct {
	// Exactly one of ClientSecret (in-page confirmation) or CheckoutURL
	// (redirect) is set, depending on the provider. Callers stay agnostic.
	ClientSecret         string `json:"clientSecret,omitempty"`
	CheckoutURL          string `json:"checkoutUrl,omitempty"`
	TransactionID        string `json:"transactionId"`
	GatewayTransactionID string `json:"gatewayTransactionId,omitempty"`
}

type RefundRequest struct {
	GatewayTransactionID string
	Amount               float64
	Reason               string
}

type RefundResult struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refundId,omitempty"`
	Message  string `json:"message,omitempty"`
}

type WebhookStatus string

const (
	WebhookSuccess WebhookStatus = "success"
	WebhookFailed  WebhookStatus = "failed"
)

// WebhookResult is how all webhook outcomes reach the transport layer;
// processing never raises. Retryable marks failures a provider redelivery
// could fix (store hiccups), as opposed to ones it cannot (orphan events,
// bad signatures).
type WebhookResult struct {
	Status        WebhookStatus
	Message       string
	TransactionID string
	Retryable     bool
}

type PaymentStatus struct {
	Status   string
	Amount   float64
	Currency string
}

// PaymentGateway is the uniform contract every provider adapter implements.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) WebhookResult
	Refund(ctx context.Context, req RefundRequest) RefundResult
	VerifyPaymentStatus(ctx context.Context, gatewayTransactionID string) (*PaymentStatus, error)
}

// CreditLedger is the slice of the credit service the settlement path needs.
type CreditLedger interface {
	AddCredits(ctx context.Context, userEmail string, delta db_models.CreditMap) (db_models.CreditMap, error)
}

// Settlement applies terminal payment outcomes to a transaction. Webhook
// delivery is at-least-once, so CompleteAndGrant gates the credit grant on
// the repository's conditional pending->completed update: however many times
// the same event arrives, the transition and the grant happen at most once.
type Settlement struct {
	Transactions repositories.TransactionRepository
	Ledger       CreditLedger
	Log          *logrus.Logger
}

func NewSettlement(txns repositories.TransactionRepository, ledger CreditLedger, log *logrus.Logger) *Settlement {
	return &Settlement{Transactions: txns, Ledger: ledger, Log: log}
}

func (s *Settlement) CompleteAndGrant(ctx context.Context, txn *db_models.Transaction, rawResponse []byte) WebhookResult {
	changed, err := s.Transactions.MarkCompleted(ctx, txn.ID, rawResponse)
	if err != nil {
		return WebhookResult{
			Status:    WebhookFailed,
			Message:   fmt.Sprintf("failed to complete transaction %s: %v", txn.ID, err),
			Retryable: true,
		}
	}
	if !changed {
		// Redelivery of an already-settled payment: acknowledge, grant nothing.
		return WebhookResult{
			Status:        WebhookSuccess,
			Message:       fmt.Sprintf("transaction %s already settled", txn.ID),
			TransactionID: txn.ID.String(),
		}
	}

	if len(txn.GrantsCredits) > 0 {
		if _, err := s.Ledger.AddCredits(ctx, txn.UserID, txn.GrantsCredits); err != nil {
			// The transition is committed but the grant is not. Surface loudly
			// for manual reconciliation; a provider retry can no longer help
			// because the conditional update will now report no change.
			s.Log.WithError(err).
				WithField("transaction_id", txn.ID.String()).
				WithField("user", txn.UserID).
				Error("credit grant failed after completed transition")
			return WebhookResult{
				Status:        WebhookFailed,
				Message:       fmt.Sprintf("transaction %s completed but credit grant failed: %v", txn.ID, err),
				TransactionID: txn.ID.String(),
			}
		}
	}

	return WebhookResult{
		Status:        WebhookSuccess,
		Message:       "Payment processed and credits added",
		TransactionID: txn.ID.String(),
	}
}

func (s *Settlement) Fail(ctx context.Context, txn *db_models.Transaction, reason string, rawResponse []byte) WebhookResult {
	if _, err := s.Transactions.MarkFailed(ctx, txn.ID, reason, rawResponse); err != nil {
		return WebhookResult{
			Status:    WebhookFailed,
			Message:   fmt.Sprintf("failed to mark transaction %s failed: %v", txn.ID, err),
			Retryable: true,
		}
	}
	return WebhookResult{
		Status:        WebhookSuccess,
		Message:       "Transaction marked as failed",
		TransactionID: txn.ID.String(),
	}
}

func (s *Settlement) Cancel(ctx context.Context, txn *db_models.Transaction, rawResponse []byte) WebhookResult {
	if _, err := s.Transactions.MarkCancelled(ctx, txn.ID, rawResponse); err != nil {
		return WebhookResult{
			Status:    WebhookFailed,
			Message:   fmt.Sprintf("failed to mark transaction %s cancelled: %v", txn.ID, err),
			Retryable: true,
		}
	}
	return WebhookResult{
		Status:        WebhookSuccess,
		Message:       "Transaction marked as cancelled",
		TransactionID: txn.ID.String(),
	}
}
