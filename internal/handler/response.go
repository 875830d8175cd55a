package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// errBadJSON is what ParseJSON reports for any unusable body.
var errBadJSON = errors.New("Request body must be valid JSON with Content-Type: application/json")

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v. Unknown fields, a
// missing or wrong Content-Type, trailing data and malformed JSON are all
// rejected.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return errBadJSON
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadJSON
	}
	if dec.More() {
		return errBadJSON
	}
	return nil
}

// money renders an amount with exactly two decimals, e.g. "9000.00".
func money(d decimal.Decimal) string {
	return domain.RoundCents(d).StringFixed(domain.CentPlaces)
}

// price renders a per-share price with at least two decimals, keeping any
// sub-cent precision the quote source reported.
func price(d decimal.Decimal) string {
	places := int32(domain.CentPlaces)
	if e := -d.Exponent(); e > places {
		places = e
	}
	return d.StringFixed(places)
}

// mapError translates service errors into HTTP responses.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		WriteError(w, http.StatusConflict, "username_taken", "username already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusForbidden, "invalid_credentials", "invalid username and/or password")
	case errors.Is(err, domain.ErrSessionNotFound):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or expired session")
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "account_not_found", "account not found")
	case errors.Is(err, domain.ErrQuoteUnavailable):
		WriteError(w, http.StatusBadGateway, "quote_unavailable", "market data is currently unavailable")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
