package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/paperpath/docusign-connect/internal/domain"
	"github.com/paperpath/docusign-connect/internal/repository"
)

// stateTTL bounds how long a login round trip may take before the pending
// state expires.
const stateTTL = 5 * time.Minute

// StateGuard issues and validates the encrypted, single-use anti-forgery
// token round-tripped through the provider as the OAuth state parameter.
type StateGuard struct {
	store     repository.SessionStore
	key       []byte
	encrypter jose.Encrypter
}

// NewStateGuard builds a guard encrypting state payloads with the
// process-wide 32-byte key (direct A256GCM).
func NewStateGuard(store repository.SessionStore, key []byte) (*StateGuard, error) {
	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("build state encrypter: %w", err)
	}
	return &StateGuard{store: store, key: key, encrypter: encrypter}, nil
}

// Issue encrypts {nonce, redirect} into an opaque token, stores it as the
// session's pending state, and returns it for the provider round trip.
func (g *StateGuard) Issue(ctx context.Context, sessionID, redirectTarget string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate state nonce: %w", err)
	}

	payload, err := json.Marshal(domain.SecurityState{
		Nonce:    base64.RawURLEncoding.EncodeToString(nonce),
		Redirect: redirectTarget,
	})
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}

	encrypted, err := g.encrypter.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encrypt state: %w", err)
	}
	token, err := encrypted.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("serialize state: %w", err)
	}

	if err := g.store.SaveState(ctx, sessionID, token, stateTTL); err != nil {
		return "", fmt.Errorf("persist state: %w", err)
	}
	return token, nil
}

// Validate checks the returned token against the stored pending state and
// recovers the embedded redirect target. The stored state is consumed on
// every attempt, success or not, so a replayed token always fails.
func (g *StateGuard) Validate(ctx context.Context, sessionID, returned string) (string, error) {
	stored, err := g.store.GetState(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}
	if clearErr := g.store.ClearState(ctx, sessionID); clearErr != nil {
		return "", fmt.Errorf("consume state: %w", clearErr)
	}

	if stored == "" || returned == "" {
		return "", domain.ErrInvalidState
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(returned)) != 1 {
		return "", domain.ErrInvalidState
	}

	parsed, err := jose.ParseEncrypted(returned,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return "", domain.ErrInvalidState
	}
	payload, err := parsed.Decrypt(g.key)
	if err != nil {
		return "", domain.ErrInvalidState
	}

	var state domain.SecurityState
	if err := json.Unmarshal(payload, &state); err != nil {
		return "", domain.ErrInvalidState
	}
	return state.Redirect, nil
}
