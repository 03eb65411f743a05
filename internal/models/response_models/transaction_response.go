package response_models

import (
	"paygate/internal/models/db_models"
)

type TransactionResponse struct {
	ID                   string              `json:"id"`
	TransactionID        string              `json:"transactionId"`
	UserID               string              `json:"userId"`
	PackageID            string              `json:"packageId"`
	Status               string              `json:"status"`
	Amount               float64             `json:"amount"`
	Currency             string              `json:"currency"`
	Gateway              string              `json:"gateway"`
	GatewayTransactionID string              `json:"gatewayTransactionId,omitempty"`
	GrantsCredits        db_models.CreditMap `json:"grantsCredits,omitempty"`
	CreatedAt            int64               `json:"createdAt"`
	CompletedAt          *int64              `json:"completedAt,omitempty"`
	FailureReason        string              `json:"failureReason,omitempty"`
}

func NewTransactionResponse(txn *db_models.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            txn.ID.String(),
		TransactionID: txn.TransactionID,
		UserID:        txn.UserID,
		PackageID:     txn.PackageID,
		Status:        string(txn.Status),
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Gateway:       string(txn.Gateway),
		GrantsCredits: txn.GrantsCredits,
		CreatedAt:     txn.CreatedAt,
		CompletedAt:   txn.CompletedAt,
		FailureReason: txn.FailureReason,
	}
	if txn.GatewayTransactionID != nil {
		resp.GatewayTransactionID = *txn.GatewayTransactionID
	}
	return resp
}
