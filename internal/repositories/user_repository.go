package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"paygate/internal/models/db_models"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*db_models.User, error)
	Create(ctx context.Context, user *db_models.User) error

	// UpdateCredits runs apply against the user's current balance under a row
	// lock and persists whatever apply returns. The user row is created with a
	// zero balance when absent. An error from apply rolls the whole thing
	// back, so a rejected consumption leaves the balance untouched.
	UpdateCredits(ctx context.Context, email string, apply func(current db_models.CreditMap) (db_models.CreditMap, error)) (db_models.CreditMap, error)
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*db_models.User, error) {
	var user db_models.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *db_models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) UpdateCredits(
	ctx context.Context,
	email string,
	apply func(current db_models.CreditMap) (db_models.CreditMap, error),
) (db_models.CreditMap, error) {
	var updated db_models.CreditMap

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user db_models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "email = ?", email).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Two first-time callers can race past the locked read. The upsert
			// lets the loser fall through to the re-read instead of aborting
			// the transaction on the primary key.
			seed := db_models.User{
				Email:    email,
				Credits:  db_models.CreditMap{db_models.DefaultCreditType: 0},
				IsActive: true,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
				return err
			}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&user, "email = ?", email).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		next, err := apply(user.Credits.Clone())
		if err != nil {
			return err
		}

		if err := tx.Model(&db_models.User{}).
			Where("email = ?", email).
			Update("credits", next).Error; err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
