package medley

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in JSON error responses
const (
	ErrCodeMissingField = "missing_field"
	ErrCodeInvalidCreds = "invalid_credentials"
	ErrCodeInvalidKey   = "invalid_key"
	ErrCodeNotEnabled   = "not_enabled"
	ErrCodeProvider     = "provider_error"
)

// AuthError is a user-facing authentication error with an optional field
// reference for form-level errors.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates an AuthError with the given code, message and field
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// writeAuthError renders an AuthError as a JSON response
func writeAuthError(w http.ResponseWriter, err *AuthError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(err)
}
