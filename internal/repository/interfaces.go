package repository

import (
	"context"
	"time"

	"github.com/paperpath/docusign-connect/internal/domain"
)

// EnvelopeRepository persists envelopes.
type EnvelopeRepository interface {
	Create(ctx context.Context, envelope domain.Envelope) (domain.Envelope, error)
	// GetByProviderID looks an envelope up by the provider-assigned id.
	// Returns (nil, nil) when no local envelope matches.
	GetByProviderID(ctx context.Context, envelopeID string) (*domain.Envelope, error)
	GetByID(ctx context.Context, id int64) (domain.Envelope, error)
	// MarkSent records the provider envelope id and the sent status in one
	// statement.
	MarkSent(ctx context.Context, id int64, providerEnvelopeID string) error
	UpdateStatus(ctx context.Context, id int64, status domain.EnvelopeStatus) error
}

// RecipientRepository persists envelope recipients.
type RecipientRepository interface {
	CreateAll(ctx context.Context, recipients []domain.Recipient) ([]domain.Recipient, error)
	ListByEnvelope(ctx context.Context, envelopeID int64) ([]domain.Recipient, error)
	// GetByOrder locates a recipient by its routing order, the correlation
	// key with the provider's recipient identifier. Returns (nil, nil) on
	// no match.
	GetByOrder(ctx context.Context, envelopeID int64, order int) (*domain.Recipient, error)
	UpdateStatus(ctx context.Context, id int64, status domain.RecipientStatus) error
}

// SessionStore holds the per-session token bundle and the pending OAuth
// security state.
type SessionStore interface {
	// SaveTokens overwrites the whole bundle atomically.
	SaveTokens(ctx context.Context, sessionID string, session domain.Session) error
	// GetTokens returns (nil, nil) when no bundle exists.
	GetTokens(ctx context.Context, sessionID string) (*domain.Session, error)
	ClearTokens(ctx context.Context, sessionID string) error

	SaveState(ctx context.Context, sessionID, state string, ttl time.Duration) error
	// GetState returns "" when no pending state exists.
	GetState(ctx context.Context, sessionID string) (string, error)
	ClearState(ctx context.Context, sessionID string) error
}
