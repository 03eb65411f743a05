package db_models

import "gorm.io/datatypes"

// CreditPackage is a purchasable bundle of credits. Read-mostly reference data.
type CreditPackage struct {
	PackageID     string `gorm:"primaryKey;size:64"`
	Name          string `gorm:"size:255"`
	Description   string
	Price         float64
	Currency      string         `gorm:"size:3"`
	GrantsCredits CreditMap      `gorm:"type:jsonb;default:'{}'"`
	IsActive      bool           `gorm:"default:true"`
	CreatedAt     int64          `gorm:"autoCreateTime"`
	UpdatedAt     int64          `gorm:"autoUpdateTime"`
	Metadata      datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}

func (CreditPackage) TableName() string {
	return "packages"
}
