package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrUsernameTaken       = errors.New("username_taken")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrNegativeCash        = errors.New("negative_cash")
	ErrNonPositiveQuantity = errors.New("non_positive_quantity")
	ErrSymbolNotFound      = errors.New("symbol_not_found")
	ErrQuoteUnavailable    = errors.New("quote_unavailable")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
