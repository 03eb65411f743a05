package response_models

import "paygate/internal/models/db_models"

type BalanceResponse struct {
	Credits db_models.CreditMap `json:"credits"`
}

type ConsumeCreditsResponse struct {
	Success          bool                `json:"success"`
	Message          string              `json:"message,omitempty"`
	RemainingCredits db_models.CreditMap `json:"remainingCredits,omitempty"`
}

type UserResponse struct {
	Email     string              `json:"email"`
	Credits   db_models.CreditMap `json:"credits"`
	IsActive  bool                `json:"isActive"`
	CreatedAt int64               `json:"createdAt"`
}

func NewUserResponse(user *db_models.User) UserResponse {
	return UserResponse{
		Email:     user.Email,
		Credits:   user.Credits,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

type PackageResponse struct {
	PackageID     string              `json:"packageId"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Price         float64             `json:"price"`
	Currency      string              `json:"currency"`
	GrantsCredits db_models.CreditMap `json:"grantsCredits"`
}
