package domain

import "time"

// EnvelopeStatus is the lifecycle status of an envelope.
type EnvelopeStatus string

const (
	EnvelopeCreated   EnvelopeStatus = "created"
	EnvelopeSent      EnvelopeStatus = "sent"
	EnvelopeCompleted EnvelopeStatus = "completed"
	EnvelopeDeclined  EnvelopeStatus = "declined"
)

// envelopeTransitions is the full legal transition set:
// created -> sent -> {completed, declined}. Terminal statuses have no exits.
var envelopeTransitions = map[EnvelopeStatus][]EnvelopeStatus{
	EnvelopeCreated: {EnvelopeSent},
	EnvelopeSent:    {EnvelopeCompleted, EnvelopeDeclined},
}

// CanTransition reports whether moving to target is legal. Re-applying the
// current status is allowed as a no-op so repeated webhook deliveries stay
// safe to reprocess.
func (s EnvelopeStatus) CanTransition(target EnvelopeStatus) bool {
	if s == target {
		return true
	}
	for _, next := range envelopeTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Valid reports whether the value is a member of the closed status set.
func (s EnvelopeStatus) Valid() bool {
	switch s {
	case EnvelopeCreated, EnvelopeSent, EnvelopeCompleted, EnvelopeDeclined:
		return true
	}
	return false
}

// RecipientStatus is the individual signing status of a recipient. The zero
// value means no notification has been received yet.
type RecipientStatus string

const (
	RecipientUnset    RecipientStatus = ""
	RecipientSent     RecipientStatus = "sent"
	RecipientViewed   RecipientStatus = "viewed"
	RecipientSigned   RecipientStatus = "signed"
	RecipientDeclined RecipientStatus = "declined"
)

var recipientTransitions = map[RecipientStatus][]RecipientStatus{
	RecipientUnset:  {RecipientSent, RecipientViewed, RecipientSigned, RecipientDeclined},
	RecipientSent:   {RecipientViewed, RecipientSigned, RecipientDeclined},
	RecipientViewed: {RecipientSigned, RecipientDeclined},
}

// CanTransition reports whether moving to target is legal, with the same
// reapply-as-no-op allowance as EnvelopeStatus.
func (s RecipientStatus) CanTransition(target RecipientStatus) bool {
	if s == target {
		return s != RecipientUnset
	}
	for _, next := range recipientTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Envelope is a document (set) submitted for signature. EnvelopeID is the
// provider-assigned identifier and stays empty until the envelope is sent.
type Envelope struct {
	ID               int64
	EnvelopeID       string
	OriginalFilename string
	Extension        string
	Path             string
	Name             string
	Subject          string
	Status           EnvelopeStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CompletedArtifactPath derives the storage path for the signed document
// written when an envelopeCompleted event is processed.
func (e Envelope) CompletedArtifactPath() string {
	return e.Path + "/" + e.Name + "_completed." + e.Extension
}

// DocumentPath is the storage path of the original uploaded document.
func (e Envelope) DocumentPath() string {
	return e.Path + "/" + e.Name + "." + e.Extension
}

// Recipient is a signer or carbon-copy party attached to an envelope.
// Order is the 1-based routing order and doubles as the correlation key
// with the provider's recipient identifier.
type Recipient struct {
	ID         int64
	EnvelopeID int64
	Name       string
	Email      string
	Order      int
	IsCC       bool
	Status     RecipientStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
