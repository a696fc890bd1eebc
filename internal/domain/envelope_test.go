package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to EnvelopeStatus
		want     bool
	}{
		{EnvelopeCreated, EnvelopeSent, true},
		{EnvelopeSent, EnvelopeCompleted, true},
		{EnvelopeSent, EnvelopeDeclined, true},
		{EnvelopeCreated, EnvelopeCompleted, false},
		{EnvelopeCompleted, EnvelopeSent, false},
		{EnvelopeDeclined, EnvelopeCompleted, false},
		// Reapplying the current status is always a legal no-op.
		{EnvelopeSent, EnvelopeSent, true},
		{EnvelopeCompleted, EnvelopeCompleted, true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestRecipientStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to RecipientStatus
		want     bool
	}{
		{RecipientUnset, RecipientSent, true},
		{RecipientUnset, RecipientSigned, true},
		{RecipientSent, RecipientViewed, true},
		{RecipientSent, RecipientSigned, true},
		{RecipientViewed, RecipientDeclined, true},
		{RecipientSigned, RecipientViewed, false},
		{RecipientDeclined, RecipientSigned, false},
		{RecipientViewed, RecipientSent, false},
		{RecipientSigned, RecipientSigned, true},
		{RecipientUnset, RecipientUnset, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.from.CanTransition(tc.to),
			"%q -> %q", tc.from, tc.to)
	}
}

func TestEnvelopePaths(t *testing.T) {
	e := Envelope{
		Path:      "envelopes",
		Name:      "contract",
		Extension: "pdf",
	}
	require.Equal(t, "envelopes/contract.pdf", e.DocumentPath())
	require.Equal(t, "envelopes/contract_completed.pdf", e.CompletedArtifactPath())
}

func TestParseEventKind(t *testing.T) {
	require.Equal(t, EventEnvelopeCompleted, ParseEventKind("envelopeCompleted"))
	require.Equal(t, EventRecipientViewed, ParseEventKind("recipientViewed"))
	require.Equal(t, EventUnknown, ParseEventKind("envelopeVoided"))
	require.Equal(t, EventUnknown, ParseEventKind(""))
}
