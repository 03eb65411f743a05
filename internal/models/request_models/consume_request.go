package request_models

type ConsumeCreditsRequest struct {
	Credits map[string]int64 `json:"credits" binding:"required"`
}

type RegisterUserRequest struct {
	Email string `json:"email" binding:"required,email"`
}
