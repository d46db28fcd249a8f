package stripe

import (
	"errors"
	"fmt"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v82"
)

// Error codes used by StripeError.
const (
	CodeAPICallFailed     = "api_call_failed"
	CodeSessionNotFound   = "session_not_found"
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidTransition = "invalid_transition"
)

// StripeError represents a Stripe-specific error
type StripeError struct {
	Code    string
	Message string
	// Stage is the workflow stage that failed, empty outside of invoice
	// issuance.
	Stage Stage
	Err   error
}

func (e *StripeError) Error() string {
	prefix := fmt.Sprintf("stripe error [%s]", e.Code)
	if e.Stage != "" {
		prefix = fmt.Sprintf("stripe error [%s@%s]", e.Code, e.Stage)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %s", prefix, e.Message, RemoteMessage(e.Err))
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *StripeError) Unwrap() error {
	return e.Err
}

// NewStripeError creates a new StripeError with the given code, message, and underlying error
func NewStripeError(code, message string, err error) *StripeError {
	return &StripeError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// RemoteMessage returns the message reported by the Stripe API for err,
// verbatim. Errors that did not come from the API fall back to err.Error().
func RemoteMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *stripeapi.Error
	if errors.As(err, &apiErr) && apiErr.Msg != "" {
		return apiErr.Msg
	}
	var stripeErr *StripeError
	if errors.As(err, &stripeErr) {
		if stripeErr.Err != nil {
			return RemoteMessage(stripeErr.Err)
		}
		return stripeErr.Message
	}
	return err.Error()
}

// IsNotFound reports whether err means the remote resource does not exist.
func IsNotFound(err error) bool {
	var stripeErr *StripeError
	if errors.As(err, &stripeErr) && stripeErr.Code == CodeSessionNotFound {
		return true
	}
	var apiErr *stripeapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == stripeapi.ErrorCodeResourceMissing ||
			apiErr.HTTPStatusCode == http.StatusNotFound
	}
	return false
}
