package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"paygate/internal/models/db_models"
	"paygate/internal/repositories"
)

const staleFailureReason = "stale pending transaction"

// ReconcileService is the staleness sweep: pending transactions older than
// the configured window are re-checked against their provider, and whatever
// cannot be resolved is marked failed. It runs outside the hot webhook path.
type ReconcileService struct {
	txns     repositories.TransactionRepository
	provider GatewayProvider
	ledger   CreditService

	window   time.Duration
	interval time.Duration
	timeout  time.Duration

	log  *logrus.Logger
	stop chan struct{}
	done chan struct{}
}

func NewReconcileService(
	txns repositories.TransactionRepository,
	provider GatewayProvider,
	ledger CreditService,
	window, interval, timeout time.Duration,
	log *logrus.Logger,
) *ReconcileService {
	return &ReconcileService{
		txns:     txns,
		provider: provider,
		ledger:   ledger,
		window:   window,
		interval: interval,
		timeout:  timeout,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *ReconcileService) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				resolved, err := s.SweepOnce(context.Background())
				if err != nil {
					s.log.WithError(err).Error("stale transaction sweep failed")
				} else if resolved > 0 {
					s.log.WithField("resolved", resolved).Info("stale transaction sweep finished")
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *ReconcileService) Stop() {
	close(s.stop)
	<-s.done
}

// SweepOnce resolves every stale pending transaction it can and returns how
// many it moved to a terminal state.
func (s *ReconcileService) SweepOnce(ctx context.Context) (int, error) {
	stale, err := s.txns.FindStalePending(ctx, s.window)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range stale {
		if s.reconcile(ctx, &stale[i]) {
			resolved++
		}
	}
	return resolved, nil
}

func (s *ReconcileService) reconcile(ctx context.Context, txn *db_models.Transaction) bool {
	log := s.log.WithField("transaction_id", txn.ID.String()).
		WithField("gateway", txn.Gateway)

	// Intent creation never finished; nothing to ask the provider about.
	if txn.GatewayTransactionID == nil {
		return s.fail(ctx, txn, staleFailureReason+" (no gateway id)", log)
	}

	adapter, err := s.provider.Create(txn.Gateway)
	if err != nil {
		return s.fail(ctx, txn, staleFailureReason+" (gateway no longer configured)", log)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	status, err := adapter.VerifyPaymentStatus(verifyCtx, *txn.GatewayTransactionID)
	cancel()
	if err != nil {
		// Transient provider trouble: leave the row for the next sweep.
		log.WithError(err).Warn("provider status check failed, will retry")
		return false
	}

	switch status.Status {
	case "succeeded", "approved":
		result := gatewaySettle(ctx, s.txns, s.ledger, txn, s.log)
		return result
	case "canceled", "cancelled":
		changed, err := s.txns.MarkCancelled(ctx, txn.ID, nil)
		if err != nil {
			log.WithError(err).Error("mark cancelled failed")
			return false
		}
		return changed
	default:
		// Still in flight at the provider past the window, or unknowable
		// (preference-only gateways): give up on it.
		return s.fail(ctx, txn, staleFailureReason, log)
	}
}

func (s *ReconcileService) fail(ctx context.Context, txn *db_models.Transaction, reason string, log *logrus.Entry) bool {
	changed, err := s.txns.MarkFailed(ctx, txn.ID, reason, nil)
	if err != nil {
		log.WithError(err).Error("mark failed errored")
		return false
	}
	if changed {
		log.WithField("reason", reason).Info("stale pending transaction failed")
	}
	return changed
}

// gatewaySettle mirrors the webhook completion path: conditional transition
// first, credit grant only when this sweep won the transition.
func gatewaySettle(
	ctx context.Context,
	txns repositories.TransactionRepository,
	ledger CreditService,
	txn *db_models.Transaction,
	log *logrus.Logger,
) bool {
	changed, err := txns.MarkCompleted(ctx, txn.ID, nil)
	if err != nil {
		log.WithError(err).
			WithField("transaction_id", txn.ID.String()).
			Error("mark completed failed during sweep")
		return false
	}
	if !changed {
		return false
	}

	if len(txn.GrantsCredits) > 0 {
		if _, err := ledger.AddCredits(ctx, txn.UserID, txn.GrantsCredits); err != nil {
			log.WithError(err).
				WithField("transaction_id", txn.ID.String()).
				WithField("user", txn.UserID).
				Error("credit grant failed after sweep completion")
		}
	}
	return true
}
