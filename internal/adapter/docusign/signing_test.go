package docusign

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paperpath/docusign-connect/internal/domain"
)

func TestCreateEnvelope(t *testing.T) {
	var gotPath, gotAuth string
	var gotDef EnvelopeDefinition
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDef))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"envelopeId": "prov-7"})
	}))
	defer srv.Close()

	client := NewHTTPSigningClient(srv.Client())
	def := EnvelopeDefinition{
		EmailSubject: "Please sign contract.pdf",
		Status:       "sent",
		Recipients: Recipients{
			Signers: []Signer{{Email: "ann@example.com", Name: "Ann", RecipientID: "1", RoutingOrder: "1"}},
		},
	}

	id, err := client.CreateEnvelope(context.Background(), srv.URL, "acct-1", "tok", def)
	require.NoError(t, err)
	require.Equal(t, "prov-7", id)
	require.Equal(t, "/v2.1/accounts/acct-1/envelopes", gotPath)
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, "sent", gotDef.Status)
}

func TestCreateEnvelopeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"errorCode": "INVALID_REQUEST_BODY",
			"message":   "documents are required",
		})
	}))
	defer srv.Close()

	client := NewHTTPSigningClient(srv.Client())
	_, err := client.CreateEnvelope(context.Background(), srv.URL, "acct-1", "tok", EnvelopeDefinition{})
	var exchangeErr *domain.ExchangeError
	require.True(t, errors.As(err, &exchangeErr))
	require.Contains(t, exchangeErr.Message, "documents are required")
}
