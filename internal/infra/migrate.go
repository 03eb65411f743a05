package infra

import (
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paygate/internal/models/db_models"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&db_models.Transaction{},
		&db_models.User{},
		&db_models.CreditPackage{},
	); err != nil {
		return err
	}
	return seedPackages(db)
}

// seedPackages inserts the starter catalog, skipping packages that exist.
func seedPackages(db *gorm.DB) error {
	packages := []db_models.CreditPackage{
		{
			PackageID:     "inv_pack_100",
			Name:          "Paquete de 100 Facturas",
			Description:   "Paquete basico para procesar 100 facturas",
			Price:         10.00,
			Currency:      "USD",
			GrantsCredits: db_models.CreditMap{"invoices": 100},
			IsActive:      true,
		},
		{
			PackageID:     "inv_pack_500",
			Name:          "Paquete de 500 Facturas",
			Description:   "Paquete intermedio para procesar 500 facturas",
			Price:         40.00,
			Currency:      "USD",
			GrantsCredits: db_models.CreditMap{"invoices": 500},
			IsActive:      true,
		},
		{
			PackageID:     "inv_pack_1000",
			Name:          "Paquete de 1000 Facturas",
			Description:   "Paquete empresarial para procesar 1000 facturas",
			Price:         70.00,
			Currency:      "USD",
			GrantsCredits: db_models.CreditMap{"invoices": 1000},
			IsActive:      true,
		},
		{
			PackageID:     "inv_pack_5000",
			Name:          "Paquete de 5000 Facturas",
			Description:   "Paquete premium para procesar 5000 facturas",
			Price:         300.00,
			Currency:      "USD",
			GrantsCredits: db_models.CreditMap{"invoices": 5000},
			IsActive:      true,
		},
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&packages)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Seeded %d credit packages", result.RowsAffected)
	}
	return nil
}
