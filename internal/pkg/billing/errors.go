package billing

import "errors"

var (
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrInvalidHottok       = errors.New("invalid hottok")
	ErrUserNotFound        = errors.New("user not found")
	ErrActivateFailed      = errors.New("failed to activate")
	ErrDeactivateFailed    = errors.New("failed to deactivate")
)

// ValidationError is a rejected webhook payload. Message is safe to return to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
