package db_models

import (
	"fmt"

	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TxnStatusPending   TransactionStatus = "pending"
	TxnStatusCompleted TransactionStatus = "completed"
	TxnStatusFailed    TransactionStatus = "failed"
	TxnStatusCancelled TransactionStatus = "cancelled"
	TxnStatusRefunded  TransactionStatus = "refunded"
)

// IsTerminal reports whether no webhook may move the transaction further.
// Only completed transactions can still transition, and only to refunded.
func (s TransactionStatus) IsTerminal() bool {
	return s != TxnStatusPending
}

type GatewayType string

const (
	GatewayStripe      GatewayType = "stripe"
	GatewayMercadoPago GatewayType = "mercadopago"
)

func ParseGatewayType(s string) (GatewayType, error) {
	switch GatewayType(s) {
	case GatewayStripe:
		return GatewayStripe, nil
	case GatewayMercadoPago:
		return GatewayMercadoPago, nil
	default:
		return "", fmt.Errorf("unknown payment gateway %q", s)
	}
}

// Transaction is one purchase attempt. Created pending, mutated only by
// webhook processing, the staleness sweep or an explicit refund. Never deleted.
type Transaction struct {
	BaseModel
	// TransactionID is the client-facing correlation id, generated once at
	// creation. The provider carries the row's primary ID in its metadata.
	TransactionID string      `gorm:"uniqueIndex;size:64"`
	UserID        string      `gorm:"index;size:255"` // user email
	PackageID     string      `gorm:"index;size:64"`
	Amount        float64     // major units, e.g. 10.00 USD
	Currency      string      `gorm:"size:3"` // ISO 4217
	Gateway       GatewayType `gorm:"index;size:20"`

	// Set once the provider acknowledges intent creation; identifies at most
	// one transaction when present.
	GatewayTransactionID *string `gorm:"uniqueIndex"`

	Status TransactionStatus `gorm:"index;size:20"`

	// Snapshot of the package's grant at purchase time, decoupled from later
	// catalog changes.
	GrantsCredits CreditMap `gorm:"type:jsonb;default:'{}'"`

	CompletedAt   *int64
	FailureReason string

	// Raw provider payloads kept for audit.
	GatewayResponse datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
	Metadata        datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
