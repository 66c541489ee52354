package common

import (
	"errors"
	"fmt"
)

var (

	// repository specific errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// confirmation flow
	ErrAlreadyVerified = errors.New("account already verified")
	ErrInvalidKey      = errors.New("invalid verification key")
	ErrRateLimited     = errors.New("rate limited")
	ErrDeliveryFailed  = errors.New("email delivery failed")

	// session tokens
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrTokenReplay  = errors.New("refresh token replay")
)
