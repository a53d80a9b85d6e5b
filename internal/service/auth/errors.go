package auth

import "errors"

// Access token failures.
var (
	ErrMissingToken     = errors.New("authentication token is missing")
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
)

// Refresh token failures. ErrWrongTokenType is also returned when a refresh
// token is presented as an access token.
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token has expired")
	ErrWrongTokenType      = errors.New("wrong token type")
)
