package utils

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrPackageNotFound     = errors.New("package not found or inactive")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrUnsupportedGateway  = errors.New("unsupported payment gateway")
	ErrPaymentGateway      = errors.New("payment gateway error")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidStatusChange = errors.New("invalid transaction status change")
	ErrDatabaseError       = errors.New("database error")
)
