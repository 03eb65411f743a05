package db_models

// User owns a per-email credit balance. Created lazily on first grant,
// never deleted (soft-deactivated via IsActive).
type User struct {
	Email     string    `gorm:"primaryKey;size:255"`
	Credits   CreditMap `gorm:"type:jsonb;default:'{}'"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt int64     `gorm:"autoCreateTime"`
	UpdatedAt int64     `gorm:"autoUpdateTime"`
}
