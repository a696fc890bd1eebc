package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "envelopes/contract.pdf", []byte("%PDF")))

	exists, err := store.Exists(ctx, "envelopes/contract.pdf")
	require.NoError(t, err)
	require.True(t, exists)

	data, err := store.Get(ctx, "envelopes/contract.pdf")
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF"), data)
}

func TestDiskStoreMissingDocument(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	ctx := context.Background()

	exists, err := store.Exists(ctx, "envelopes/nope.pdf")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = store.Get(ctx, "envelopes/nope.pdf")
	require.Error(t, err)
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	ctx := context.Background()

	require.Error(t, store.Put(ctx, "../outside.pdf", []byte("x")))
	_, err := store.Get(ctx, "a/../../outside.pdf")
	require.Error(t, err)
	_, err = store.Exists(ctx, "..")
	require.Error(t, err)
}
