package db_models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultCreditType is the credit bucket every user starts with.
const DefaultCreditType = "invoices"

// CreditMap maps a credit type name to its balance or delta.
// Stored as a jsonb column.
type CreditMap map[string]int64

func (m CreditMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *CreditMap) Scan(value interface{}) error {
	if value == nil {
		*m = CreditMap{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CreditMap", value)
	}

	if len(raw) == 0 {
		*m = CreditMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

func (m CreditMap) Clone() CreditMap {
	out := make(CreditMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var ErrNegativeCredits = errors.New("credit balance cannot be negative")
