package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the closed set of expected failure modes. Callers
// branch with errors.Is; anything not matching is treated as unexpected
// and surfaced as a retryable internal failure.
var (
	ErrNotFound              = errors.New("resource not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrConcurrencyConflict   = errors.New("concurrent status update conflict")
	ErrAlreadyProcessed      = errors.New("event already processed")
)

// ValidationError reports a request that was rejected before any state
// was mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for the given field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Gateway failure reasons, coarse enough for user-facing messaging without
// leaking provider internals.
const (
	GatewayCardDeclined   = "card_declined"
	GatewayNetworkError   = "network_error"
	GatewayInvalidRequest = "invalid_request"
	GatewayAuthError      = "auth_error"
)

// GatewayError wraps a payment-gateway failure with a coarse reason code.
type GatewayError struct {
	Reason string
	Detail string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gateway error (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("gateway error (%s)", e.Reason)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NewGateway builds a GatewayError with the given reason code.
func NewGateway(reason, detail string, err error) *GatewayError {
	return &GatewayError{Reason: reason, Detail: detail, Err: err}
}

// AsGateway extracts a GatewayError if err carries one.
func AsGateway(err error) (*GatewayError, bool) {
	var ge *GatewayError
	ok := errors.As(err, &ge)
	return ge, ok
}

// WebhookError reports a webhook that could not be applied. The HTTP layer
// still acknowledges receipt so the provider does not retry forever.
type WebhookError struct {
	Reason string
	Err    error
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook error: %s", e.Reason)
}

func (e *WebhookError) Unwrap() error { return e.Err }

// ErrBadSignature marks a webhook whose signature failed verification.
// It is the only webhook failure that is not acknowledged with 200.
var ErrBadSignature = errors.New("webhook signature verification failed")
