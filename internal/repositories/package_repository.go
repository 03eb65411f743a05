package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"paygate/internal/models/db_models"
)

type PackageRepository interface {
	FindActivePackage(ctx context.Context, packageID string) (*db_models.CreditPackage, error)
	FindActivePackages(ctx context.Context) ([]db_models.CreditPackage, error)
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

type packageRepository struct {
	db *gorm.DB
}

func (r *packageRepository) FindActivePackage(ctx context.Context, packageID string) (*db_models.CreditPackage, error) {
	var pkg db_models.CreditPackage
	err := r.db.WithContext(ctx).
		First(&pkg, "package_id = ? AND is_active = TRUE", packageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepository) FindActivePackages(ctx context.Context) ([]db_models.CreditPackage, error) {
	var pkgs []db_models.CreditPackage
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Order("price ASC").
		Find(&pkgs).Error
	return pkgs, err
}
