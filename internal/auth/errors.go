package auth

import "errors"

var (
	ErrNotAuthenticated = errors.New("Not authenticated")
	ErrUnknownRole      = errors.New("Unknown staff role")
)
