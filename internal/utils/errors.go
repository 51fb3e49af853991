package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error the caller caused or can act on. Message is
// display-ready and shown verbatim by the storefront; Detail carries
// machine-readable context (counts, codes) for the UI.
type APIError struct {
	Status  int         `json:"-"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func ValidationError(format string, args ...interface{}) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...interface{}) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...interface{}) *APIError {
	return &APIError{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// StatusOf maps any error to the HTTP status the handler should send.
// Store errors that are not APIErrors surface as 500 with their message
// passed through for diagnostics.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

// AsAPIError returns the APIError in err's chain, or nil.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
