package webhook

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/domain"
	"github.com/paperpath/docusign-connect/internal/event"
	"github.com/paperpath/docusign-connect/internal/metrics"
	"github.com/paperpath/docusign-connect/internal/repository"
	"github.com/paperpath/docusign-connect/internal/storage"
)

// Router maps authenticated notifications onto envelope and recipient
// status transitions and publishes the resulting domain events.
type Router struct {
	envelopes     repository.EnvelopeRepository
	recipients    repository.RecipientRepository
	documents     storage.DocumentStore
	bus           *event.Bus
	metrics       *metrics.Collector
	processEvents bool
	logger        *zap.Logger
}

// NewRouter wires the event router. processEvents gates status mutation
// and artifact writes; event publication is never gated.
func NewRouter(
	envelopes repository.EnvelopeRepository,
	recipients repository.RecipientRepository,
	documents storage.DocumentStore,
	bus *event.Bus,
	collector *metrics.Collector,
	processEvents bool,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.L()
	}
	return &Router{
		envelopes:     envelopes,
		recipients:    recipients,
		documents:     documents,
		bus:           bus,
		metrics:       collector,
		processEvents: processEvents,
		logger:        logger,
	}
}

// Route applies the notification to local state. Events for envelopes this
// service does not track are ignored without error. Recognized events run
// their status transition; every event on a tracked envelope ends with the
// generic observed notification.
func (r *Router) Route(ctx context.Context, payload domain.WebhookPayload) error {
	envelope, err := r.envelopes.GetByProviderID(ctx, payload.Data.EnvelopeID)
	if err != nil {
		return err
	}
	if envelope == nil {
		r.metrics.RecordUnknownEnvelope()
		r.logger.Debug("event for untracked envelope ignored",
			zap.String("envelope_id", payload.Data.EnvelopeID),
			zap.String("event", payload.Event))
		return nil
	}

	kind := domain.ParseEventKind(payload.Event)
	r.metrics.RecordEvent(string(kind))

	switch kind {
	case domain.EventEnvelopeCompleted:
		err = r.handleEnvelope(ctx, envelope, payload, kind, domain.EnvelopeCompleted)
	case domain.EventEnvelopeDeclined:
		err = r.handleEnvelope(ctx, envelope, payload, kind, domain.EnvelopeDeclined)
	case domain.EventRecipientSent:
		err = r.handleRecipient(ctx, envelope, payload, kind, domain.RecipientSent)
	case domain.EventRecipientViewed:
		err = r.handleRecipient(ctx, envelope, payload, kind, domain.RecipientViewed)
	case domain.EventRecipientCompleted:
		err = r.handleRecipient(ctx, envelope, payload, kind, domain.RecipientSigned)
	case domain.EventRecipientDeclined:
		err = r.handleRecipient(ctx, envelope, payload, kind, domain.RecipientDeclined)
	default:
		r.logger.Debug("unrecognized event observed",
			zap.String("event", payload.Event),
			zap.String("envelope_id", payload.Data.EnvelopeID))
	}
	if err != nil {
		return err
	}

	r.bus.PublishObserved(ctx, event.Observed{
		Name:     payload.Event,
		Envelope: *envelope,
		Payload:  payload,
	})
	return nil
}

// handleEnvelope applies an envelope-level status transition and, when
// processing is enabled, stores the signed document embedded in the
// payload at the completed-artifact path.
func (r *Router) handleEnvelope(ctx context.Context, envelope *domain.Envelope, payload domain.WebhookPayload, kind domain.EventKind, target domain.EnvelopeStatus) error {
	if !envelope.Status.CanTransition(target) {
		r.logger.Warn("illegal envelope transition rejected",
			zap.String("envelope_id", envelope.EnvelopeID),
			zap.String("from", string(envelope.Status)),
			zap.String("to", string(target)))
		return nil
	}

	if r.processEvents {
		if envelope.Status != target {
			if err := r.envelopes.UpdateStatus(ctx, envelope.ID, target); err != nil {
				return err
			}
			envelope.Status = target
		}
		if err := r.storeSignedDocument(ctx, envelope, payload); err != nil {
			return err
		}
	}

	r.bus.Publish(ctx, event.Event{
		Kind:     kind,
		Envelope: *envelope,
		Payload:  payload,
	})
	return nil
}

// handleRecipient applies a recipient-level status transition. The
// recipient is correlated by routing order equal to the provider's
// recipient id; a miss is silent.
func (r *Router) handleRecipient(ctx context.Context, envelope *domain.Envelope, payload domain.WebhookPayload, kind domain.EventKind, target domain.RecipientStatus) error {
	order, err := strconv.Atoi(payload.Data.RecipientID)
	if err != nil {
		r.logger.Warn("non-numeric recipient id in event, cannot correlate with routing order",
			zap.String("envelope_id", envelope.EnvelopeID),
			zap.String("recipient_id", payload.Data.RecipientID))
		return nil
	}

	recipient, err := r.recipients.GetByOrder(ctx, envelope.ID, order)
	if err != nil {
		return err
	}
	if recipient == nil {
		r.logger.Debug("event for unknown recipient ignored",
			zap.String("envelope_id", envelope.EnvelopeID),
			zap.Int("order", order))
		return nil
	}

	if !recipient.Status.CanTransition(target) {
		r.logger.Warn("illegal recipient transition rejected",
			zap.String("envelope_id", envelope.EnvelopeID),
			zap.Int("order", recipient.Order),
			zap.String("from", string(recipient.Status)),
			zap.String("to", string(target)))
		return nil
	}

	if r.processEvents && recipient.Status != target {
		if err := r.recipients.UpdateStatus(ctx, recipient.ID, target); err != nil {
			return err
		}
		recipient.Status = target
	}

	r.bus.Publish(ctx, event.Event{
		Kind:      kind,
		Envelope:  *envelope,
		Recipient: recipient,
		Payload:   payload,
	})
	return nil
}

func (r *Router) storeSignedDocument(ctx context.Context, envelope *domain.Envelope, payload domain.WebhookPayload) error {
	summary := payload.Data.EnvelopeSummary
	if summary == nil || len(summary.EnvelopeDocuments) == 0 {
		r.logger.Warn("envelope event carried no documents",
			zap.String("envelope_id", envelope.EnvelopeID))
		return nil
	}

	pdf, err := base64.StdEncoding.DecodeString(summary.EnvelopeDocuments[0].PDFBytes)
	if err != nil {
		return fmt.Errorf("decode signed document: %w", err)
	}
	if err := r.documents.Put(ctx, envelope.CompletedArtifactPath(), pdf); err != nil {
		return fmt.Errorf("store signed document: %w", err)
	}
	return nil
}
