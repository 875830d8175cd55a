package domain

import (
	"errors"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "passwords do not match"}
	if err.Error() != "passwords do not match" {
		t.Errorf("Error() = %q, want %q", err.Error(), "passwords do not match")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrAccountNotFound,
		ErrUsernameTaken,
		ErrInvalidCredentials,
		ErrSessionNotFound,
		ErrNegativeCash,
		ErrNonPositiveQuantity,
		ErrSymbolNotFound,
		ErrQuoteUnavailable,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}
