package datanexus

import "fmt"

// APIError represents an error response from the DataNexus API. The code
// and message come from the server's error envelope when present,
// otherwise they are derived from the HTTP status.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (http %d)", e.Code, e.Message, e.Status)
}

// Common error codes
const (
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeUnexpectedStatus = "unexpected_status"
	ErrCodeInvalidResponse  = "invalid_response"
	ErrCodeInvalidRequest   = "invalid_request"
)

// NewAPIError creates an API error for a status without a server envelope.
func NewAPIError(status int, message string) *APIError {
	code := ErrCodeUnexpectedStatus
	switch status {
	case 401, 403:
		code = ErrCodeUnauthorized
	case 404:
		code = ErrCodeNotFound
	}
	return &APIError{Code: code, Message: message, Status: status}
}
