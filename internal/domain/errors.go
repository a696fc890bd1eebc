package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates the returned OAuth state failed
	// decryption or did not match the stored value. Fatal for the
	// request; the user must restart login.
	ErrInvalidState = errors.New("docusign: invalid security state")
	// ErrAuthServerNotConfigured signals the authorization server URL is
	// missing. Operator error, raised at first use.
	ErrAuthServerNotConfigured = errors.New("docusign: authorisation server not set")
	// ErrUnauthenticatedEvent indicates a webhook signature mismatch.
	ErrUnauthenticatedEvent = errors.New("docusign: event signature not authentic")
	// ErrEnvelopeNotFound signals an envelope lookup miss.
	ErrEnvelopeNotFound = errors.New("docusign: envelope not found")
	// ErrRecipientNotFound signals a recipient lookup miss.
	ErrRecipientNotFound = errors.New("docusign: recipient not found")
	// ErrNoSession signals no token bundle exists for the session.
	ErrNoSession = errors.New("docusign: no session")
)

// ExchangeError is a tagged failure from the provider token endpoint,
// carrying the provider's error message. Never retried automatically;
// authorization codes are single-use.
type ExchangeError struct {
	Grant   string
	Message string
	Err     error
}

func (e *ExchangeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("docusign: %s exchange failed: %s", e.Grant, e.Message)
	}
	return fmt.Sprintf("docusign: %s exchange failed", e.Grant)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// MissingDataError signals a required upstream field was absent. It marks
// a caller or integration bug, not a transient condition.
type MissingDataError struct {
	Field string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("docusign: missing data: %s", e.Field)
}

// InvalidTransitionError reports a status move outside the legal set.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("docusign: illegal %s transition %q -> %q", e.Entity, e.From, e.To)
}
