package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"paygate/internal/models/db_models"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *db_models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error)
	FindByGatewayTransactionID(ctx context.Context, gatewayTxnID string) (*db_models.Transaction, error)
	FindByUser(ctx context.Context, userID string) ([]db_models.Transaction, error)
	FindByStatus(ctx context.Context, status db_models.TransactionStatus) ([]db_models.Transaction, error)
	FindStalePending(ctx context.Context, olderThan time.Duration) ([]db_models.Transaction, error)
	CountByStatus(ctx context.Context) (map[db_models.TransactionStatus]int64, error)

	SetGatewayTransactionID(ctx context.Context, id uuid.UUID, gatewayTxnID string) error

	// The Mark* methods are conditional transitions: each updates the row only
	// when it still holds the expected prior status and reports whether a row
	// changed. A false return with a nil error means the transaction had
	// already moved on, which is how webhook redeliveries are made harmless.
	MarkCompleted(ctx context.Context, id uuid.UUID, gatewayResponse []byte) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, gatewayResponse []byte) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, gatewayResponse []byte) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, refundID string) (bool, error)
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Create(ctx context.Context, txn *db_models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *transactionRepository) FindByTransactionID(ctx context.Context, transactionID string) (*db_models.Transaction, error) {
	return r.findOne(ctx, "transaction_id = ?", transactionID)
}

func (r *transactionRepository) FindByGatewayTransactionID(ctx context.Context, gatewayTxnID string) (*db_models.Transaction, error) {
	return r.findOne(ctx, "gateway_transaction_id = ?", gatewayTxnID)
}

func (r *transactionRepository) findOne(ctx context.Context, query string, arg interface{}) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := r.db.WithContext(ctx).First(&txn, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepository) FindByUser(ctx context.Context, userID string) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

func (r *transactionRepository) FindByStatus(ctx context.Context, status db_models.TransactionStatus) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

func (r *transactionRepository) FindStalePending(ctx context.Context, olderThan time.Duration) ([]db_models.Transaction, error) {
	cutoff := time.Now().Add(-olderThan).Unix()

	var txns []db_models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", db_models.TxnStatusPending, cutoff).
		Find(&txns).Error
	return txns, err
}

func (r *transactionRepository) CountByStatus(ctx context.Context) (map[db_models.TransactionStatus]int64, error) {
	var rows []struct {
		Status db_models.TransactionStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[db_models.TransactionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *transactionRepository) SetGatewayTransactionID(ctx context.Context, id uuid.UUID, gatewayTxnID string) error {
	return r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("id = ?", id).
		Update("gateway_transaction_id", gatewayTxnID).Error
}

func (r *transactionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, gatewayResponse []byte) (bool, error) {
	updates := map[string]interface{}{
		"status":       db_models.TxnStatusCompleted,
		"completed_at": time.Now().Unix(),
	}
	if len(gatewayResponse) > 0 {
		updates["gateway_response"] = datatypes.JSON(gatewayResponse)
	}
	return r.transition(ctx, id, db_models.TxnStatusPending, updates)
}

func (r *transactionRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, gatewayResponse []byte) (bool, error) {
	updates := map[string]interface{}{
		"status":         db_models.TxnStatusFailed,
		"failure_reason": reason,
	}
	if len(gatewayResponse) > 0 {
		updates["gateway_response"] = datatypes.JSON(gatewayResponse)
	}
	return r.transition(ctx, id, db_models.TxnStatusPending, updates)
}

func (r *transactionRepository) MarkCancelled(ctx context.Context, id uuid.UUID, gatewayResponse []byte) (bool, error) {
	updates := map[string]interface{}{
		"status": db_models.TxnStatusCancelled,
	}
	if len(gatewayResponse) > 0 {
		updates["gateway_response"] = datatypes.JSON(gatewayResponse)
	}
	return r.transition(ctx, id, db_models.TxnStatusPending, updates)
}

func (r *transactionRepository) MarkRefunded(ctx context.Context, id uuid.UUID, refundID string) (bool, error) {
	updates := map[string]interface{}{
		"status": db_models.TxnStatusRefunded,
	}
	if refundID != "" {
		updates["metadata"] = gorm.Expr(
			"COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('refund_id', ?::text)", refundID)
	}
	return r.transition(ctx, id, db_models.TxnStatusCompleted, updates)
}

// transition performs the compare-and-set that gates every status change.
func (r *transactionRepository) transition(
	ctx context.Context,
	id uuid.UUID,
	expected db_models.TransactionStatus,
	updates map[string]interface{},
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
