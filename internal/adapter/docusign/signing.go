package docusign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paperpath/docusign-connect/internal/domain"
)

// SigningClient submits envelope-creation requests to the eSignature API.
type SigningClient interface {
	CreateEnvelope(ctx context.Context, basePath, accountID, accessToken string, def EnvelopeDefinition) (string, error)
}

// EnvelopeDefinition is the request body for the envelope-creation call.
type EnvelopeDefinition struct {
	EmailSubject string     `json:"emailSubject"`
	Documents    []Document `json:"documents"`
	Recipients   Recipients `json:"recipients"`
	Status       string     `json:"status"`
}

// Document carries one base64-encoded document to sign.
type Document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

// Recipients groups signers and carbon copies.
type Recipients struct {
	Signers      []Signer     `json:"signers"`
	CarbonCopies []CarbonCopy `json:"carbonCopies,omitempty"`
}

// Signer is a signing recipient. RecipientID and RoutingOrder are assigned
// in lockstep from the locally stored routing order; the webhook side
// relies on that numbering coming back unchanged.
type Signer struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
	Tabs         *Tabs  `json:"tabs,omitempty"`
}

// CarbonCopy receives the signed document after all signers are done.
type CarbonCopy struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder"`
}

// Tabs holds the field placements for a signer.
type Tabs struct {
	SignHereTabs []SignHere `json:"signHereTabs,omitempty"`
}

// SignHere is an anchor-positioned signature field.
type SignHere struct {
	AnchorString  string `json:"anchorString"`
	AnchorUnits   string `json:"anchorUnits"`
	AnchorYOffset string `json:"anchorYOffset"`
	AnchorXOffset string `json:"anchorXOffset"`
}

// DefaultSignHere anchors the signature field on the /sn1/ marker.
func DefaultSignHere() SignHere {
	return SignHere{
		AnchorString:  "/sn1/",
		AnchorUnits:   "pixels",
		AnchorYOffset: "10",
		AnchorXOffset: "20",
	}
}

// HTTPSigningClient is the default HTTP implementation.
type HTTPSigningClient struct {
	httpClient *http.Client
}

var _ SigningClient = (*HTTPSigningClient)(nil)

// NewHTTPSigningClient constructs the default SigningClient.
func NewHTTPSigningClient(client *http.Client) *HTTPSigningClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSigningClient{httpClient: client}
}

// CreateEnvelope calls the envelope-creation endpoint and returns the
// provider-assigned envelope id.
func (c *HTTPSigningClient) CreateEnvelope(ctx context.Context, basePath, accountID, accessToken string, def EnvelopeDefinition) (string, error) {
	payload, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal envelope definition: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2.1/accounts/%s/envelopes", basePath, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build envelope request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.ExchangeError{Grant: "envelope_create", Message: "envelope request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &domain.ExchangeError{Grant: "envelope_create", Message: "read envelope response", Err: err}
	}

	var raw struct {
		EnvelopeID string `json:"envelopeId"`
		ErrorCode  string `json:"errorCode"`
		Message    string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", &domain.ExchangeError{Grant: "envelope_create", Message: fmt.Sprintf("decode envelope response: status=%d", resp.StatusCode), Err: err}
	}
	if resp.StatusCode >= 300 || raw.ErrorCode != "" {
		message := raw.Message
		if message == "" {
			message = fmt.Sprintf("status=%d", resp.StatusCode)
		}
		return "", &domain.ExchangeError{Grant: "envelope_create", Message: message}
	}
	if raw.EnvelopeID == "" {
		return "", &domain.ExchangeError{Grant: "envelope_create", Message: "empty envelope id"}
	}
	return raw.EnvelopeID, nil
}
