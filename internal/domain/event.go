package domain

// EventKind is the closed set of provider notification types this service
// models. Anything else maps to EventUnknown and is ignored for status
// mutation while still being observable.
type EventKind string

const (
	EventEnvelopeCompleted  EventKind = "envelopeCompleted"
	EventEnvelopeDeclined   EventKind = "envelopeDeclined"
	EventRecipientSent      EventKind = "recipientSent"
	EventRecipientViewed    EventKind = "recipientViewed"
	EventRecipientCompleted EventKind = "recipientCompleted"
	EventRecipientDeclined  EventKind = "recipientDeclined"
	EventUnknown            EventKind = ""
)

// ParseEventKind maps the camel-cased event name from a webhook payload
// onto the closed kind set.
func ParseEventKind(name string) EventKind {
	switch EventKind(name) {
	case EventEnvelopeCompleted, EventEnvelopeDeclined,
		EventRecipientSent, EventRecipientViewed,
		EventRecipientCompleted, EventRecipientDeclined:
		return EventKind(name)
	}
	return EventUnknown
}

// WebhookPayload is the decoded body of a provider status notification.
type WebhookPayload struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

// WebhookData carries the envelope reference plus event-specific fields.
type WebhookData struct {
	EnvelopeID      string           `json:"envelopeId"`
	RecipientID     string           `json:"recipientId,omitempty"`
	EnvelopeSummary *EnvelopeSummary `json:"envelopeSummary,omitempty"`
}

// EnvelopeSummary embeds the signed documents on completion events.
type EnvelopeSummary struct {
	EnvelopeDocuments []EnvelopeDocument `json:"envelopeDocuments"`
}

// EnvelopeDocument carries the base64-encoded signed PDF.
type EnvelopeDocument struct {
	PDFBytes string `json:"PDFBytes"`
}
