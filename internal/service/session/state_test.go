package session

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperpath/docusign-connect/internal/domain"
)

func TestStateGuardRoundTrip(t *testing.T) {
	store := newMemorySessionStore()
	guard, err := NewStateGuard(store, bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)
	ctx := context.Background()

	token, err := guard.Issue(ctx, "sid-1", "/deep/link?x=1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	redirect, err := guard.Validate(ctx, "sid-1", token)
	require.NoError(t, err)
	require.Equal(t, "/deep/link?x=1", redirect)
}

func TestStateGuardRejectsMissingState(t *testing.T) {
	store := newMemorySessionStore()
	guard, err := NewStateGuard(store, bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)

	_, err = guard.Validate(context.Background(), "sid-1", "anything")
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestStateGuardConsumesOnFailedAttempt(t *testing.T) {
	store := newMemorySessionStore()
	guard, err := NewStateGuard(store, bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)
	ctx := context.Background()

	token, err := guard.Issue(ctx, "sid-1", "/target")
	require.NoError(t, err)

	_, err = guard.Validate(ctx, "sid-1", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidState)

	// The failed attempt consumed the stored state, so even the genuine
	// token is now rejected.
	_, err = guard.Validate(ctx, "sid-1", token)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestStateGuardIsolatesSessions(t *testing.T) {
	store := newMemorySessionStore()
	guard, err := NewStateGuard(store, bytes.Repeat([]byte{0x11}, 32))
	require.NoError(t, err)
	ctx := context.Background()

	tokenA, err := guard.Issue(ctx, "sid-a", "/a")
	require.NoError(t, err)
	_, err = guard.Issue(ctx, "sid-b", "/b")
	require.NoError(t, err)

	_, err = guard.Validate(ctx, "sid-b", tokenA)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}
