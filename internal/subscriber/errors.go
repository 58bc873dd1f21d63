package subscriber

import "errors"

// Sentinel errors for the subscriber service layer.
var (
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrDuplicateEmail = errors.New("email already subscribed")
	ErrInvalidToken   = errors.New("invalid confirmation token")
	ErrTokenExpired   = errors.New("confirmation token expired")
	ErrNotFound       = errors.New("subscriber not found")
)
