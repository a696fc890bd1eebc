package webhook

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/domain"
	"github.com/paperpath/docusign-connect/internal/event"
)

func TestRouteEnvelopeCompleted(t *testing.T) {
	h := newRouterTestHarness(t, true)
	ctx := context.Background()

	signed := []byte("%PDF-signed")
	payload := domain.WebhookPayload{
		Event: "envelopeCompleted",
		Data: domain.WebhookData{
			EnvelopeID: "prov-1",
			EnvelopeSummary: &domain.EnvelopeSummary{
				EnvelopeDocuments: []domain.EnvelopeDocument{
					{PDFBytes: base64.StdEncoding.EncodeToString(signed)},
				},
			},
		},
	}

	require.NoError(t, h.router.Route(ctx, payload))
	h.bus.Wait()

	require.Equal(t, domain.EnvelopeCompleted, h.envelopes.byID[1].Status)
	require.Equal(t, signed, h.documents.files["envelopes/contract_completed.pdf"])

	typed, observed := h.drain()
	require.Len(t, typed, 1)
	require.Equal(t, domain.EventEnvelopeCompleted, typed[0].Kind)
	require.Nil(t, typed[0].Recipient)
	require.Len(t, observed, 1)
	require.Equal(t, "envelopeCompleted", observed[0].Name)
}

func TestRouteWithProcessingDisabledStillPublishes(t *testing.T) {
	h := newRouterTestHarness(t, false)
	ctx := context.Background()

	payload := domain.WebhookPayload{
		Event: "envelopeCompleted",
		Data:  domain.WebhookData{EnvelopeID: "prov-1"},
	}

	require.NoError(t, h.router.Route(ctx, payload))
	h.bus.Wait()

	// No mutation, no artifact, but both events still fire.
	require.Equal(t, domain.EnvelopeSent, h.envelopes.byID[1].Status)
	require.Empty(t, h.documents.files)

	typed, observed := h.drain()
	require.Len(t, typed, 1)
	require.Len(t, observed, 1)
}

func TestRouteIgnoresUntrackedEnvelope(t *testing.T) {
	h := newRouterTestHarness(t, true)

	payload := domain.WebhookPayload{
		Event: "envelopeCompleted",
		Data:  domain.WebhookData{EnvelopeID: "someone-elses"},
	}

	require.NoError(t, h.router.Route(context.Background(), payload))
	h.bus.Wait()

	typed, observed := h.drain()
	require.Empty(t, typed)
	require.Empty(t, observed)
}

func TestRouteRecipientCompleted(t *testing.T) {
	h := newRouterTestHarness(t, true)
	ctx := context.Background()

	payload := domain.WebhookPayload{
		Event: "recipientCompleted",
		Data:  domain.WebhookData{EnvelopeID: "prov-1", RecipientID: "2"},
	}

	require.NoError(t, h.router.Route(ctx, payload))
	h.bus.Wait()

	require.Equal(t, domain.RecipientSigned, h.recipients.byID[102].Status)

	typed, _ := h.drain()
	require.Len(t, typed, 1)
	require.NotNil(t, typed[0].Recipient)
	require.Equal(t, 2, typed[0].Recipient.Order)
}

func TestRouteRecipientWithNonNumericIDIsSilent(t *testing.T) {
	h := newRouterTestHarness(t, true)

	payload := domain.WebhookPayload{
		Event: "recipientViewed",
		Data:  domain.WebhookData{EnvelopeID: "prov-1", RecipientID: "abc"},
	}

	require.NoError(t, h.router.Route(context.Background(), payload))
	h.bus.Wait()

	require.Equal(t, domain.RecipientUnset, h.recipients.byID[101].Status)
	typed, observed := h.drain()
	require.Empty(t, typed)
	// Still observed: the envelope is tracked.
	require.Len(t, observed, 1)
}

func TestRouteRecipientMissIsSilent(t *testing.T) {
	h := newRouterTestHarness(t, true)

	payload := domain.WebhookPayload{
		Event: "recipientSent",
		Data:  domain.WebhookData{EnvelopeID: "prov-1", RecipientID: "9"},
	}

	require.NoError(t, h.router.Route(context.Background(), payload))
	h.bus.Wait()

	typed, observed := h.drain()
	require.Empty(t, typed)
	require.Len(t, observed, 1)
}

func TestRouteRejectsIllegalEnvelopeTransition(t *testing.T) {
	h := newRouterTestHarness(t, true)
	h.envelopes.byID[1].Status = domain.EnvelopeCompleted

	payload := domain.WebhookPayload{
		Event: "envelopeDeclined",
		Data:  domain.WebhookData{EnvelopeID: "prov-1"},
	}

	require.NoError(t, h.router.Route(context.Background(), payload))
	h.bus.Wait()

	require.Equal(t, domain.EnvelopeCompleted, h.envelopes.byID[1].Status)
	typed, _ := h.drain()
	require.Empty(t, typed)
}

func TestRouteReappliedStatusIsIdempotent(t *testing.T) {
	h := newRouterTestHarness(t, true)
	h.envelopes.byID[1].Status = domain.EnvelopeCompleted

	payload := domain.WebhookPayload{
		Event: "envelopeCompleted",
		Data:  domain.WebhookData{EnvelopeID: "prov-1"},
	}

	require.NoError(t, h.router.Route(context.Background(), payload))
	h.bus.Wait()

	require.Equal(t, domain.EnvelopeCompleted, h.envelopes.byID[1].Status)
	require.Zero(t, h.envelopes.statusUpdates)
	typed, _ := h.drain()
	require.Len(t, typed, 1)
}

func TestRouteUnknownEventNameIsObservedOnly(t *testing.T) {
	h := newRouterTestHarness(t, true)

	payload := domain.WebhookPayload{
		Event: "envelopeVoided",
		Data:  domain.WebhookData{EnvelopeID: "prov-1"},
	}

	require.NoError(t, h.router.Route(context.Background(), payload))
	h.bus.Wait()

	typed, observed := h.drain()
	require.Empty(t, typed)
	require.Len(t, observed, 1)
	require.Equal(t, "envelopeVoided", observed[0].Name)
}

// ---- Test harness and fakes ----

type routerTestHarness struct {
	router     *Router
	envelopes  *memoryEnvelopeRepo
	recipients *memoryRecipientRepo
	documents  *memoryDocumentStore
	bus        *event.Bus

	mu       sync.Mutex
	typed    []event.Event
	observed []event.Observed
}

func newRouterTestHarness(t *testing.T, processEvents bool) *routerTestHarness {
	t.Helper()

	envelopes := &memoryEnvelopeRepo{byID: map[int64]*domain.Envelope{
		1: {
			ID:               1,
			EnvelopeID:       "prov-1",
			OriginalFilename: "contract.pdf",
			Extension:        "pdf",
			Path:             "envelopes",
			Name:             "contract",
			Subject:          "Please sign contract.pdf",
			Status:           domain.EnvelopeSent,
		},
	}}
	recipients := &memoryRecipientRepo{byID: map[int64]*domain.Recipient{
		101: {ID: 101, EnvelopeID: 1, Name: "Ann", Email: "ann@example.com", Order: 1},
		102: {ID: 102, EnvelopeID: 1, Name: "Bob", Email: "bob@example.com", Order: 2},
	}}
	documents := &memoryDocumentStore{files: make(map[string][]byte)}
	bus := event.NewBus(zap.NewNop())

	h := &routerTestHarness{
		envelopes:  envelopes,
		recipients: recipients,
		documents:  documents,
		bus:        bus,
	}
	bus.Subscribe(func(_ context.Context, evt event.Event) {
		h.mu.Lock()
		h.typed = append(h.typed, evt)
		h.mu.Unlock()
	})
	bus.SubscribeObserved(func(_ context.Context, evt event.Observed) {
		h.mu.Lock()
		h.observed = append(h.observed, evt)
		h.mu.Unlock()
	})

	h.router = NewRouter(envelopes, recipients, documents, bus, nil, processEvents, zap.NewNop())
	return h
}

func (h *routerTestHarness) drain() ([]event.Event, []event.Observed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.Event(nil), h.typed...), append([]event.Observed(nil), h.observed...)
}

type memoryEnvelopeRepo struct {
	byID          map[int64]*domain.Envelope
	statusUpdates int
}

func (r *memoryEnvelopeRepo) Create(_ context.Context, envelope domain.Envelope) (domain.Envelope, error) {
	copied := envelope
	r.byID[envelope.ID] = &copied
	return copied, nil
}

func (r *memoryEnvelopeRepo) GetByProviderID(_ context.Context, envelopeID string) (*domain.Envelope, error) {
	for _, envelope := range r.byID {
		if envelope.EnvelopeID == envelopeID {
			copied := *envelope
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryEnvelopeRepo) GetByID(_ context.Context, id int64) (domain.Envelope, error) {
	envelope, ok := r.byID[id]
	if !ok {
		return domain.Envelope{}, domain.ErrEnvelopeNotFound
	}
	return *envelope, nil
}

func (r *memoryEnvelopeRepo) MarkSent(_ context.Context, id int64, providerEnvelopeID string) error {
	envelope, ok := r.byID[id]
	if !ok {
		return domain.ErrEnvelopeNotFound
	}
	envelope.EnvelopeID = providerEnvelopeID
	envelope.Status = domain.EnvelopeSent
	return nil
}

func (r *memoryEnvelopeRepo) UpdateStatus(_ context.Context, id int64, status domain.EnvelopeStatus) error {
	envelope, ok := r.byID[id]
	if !ok {
		return domain.ErrEnvelopeNotFound
	}
	envelope.Status = status
	r.statusUpdates++
	return nil
}

type memoryRecipientRepo struct {
	byID map[int64]*domain.Recipient
}

func (r *memoryRecipientRepo) CreateAll(_ context.Context, recipients []domain.Recipient) ([]domain.Recipient, error) {
	out := make([]domain.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		copied := recipient
		r.byID[recipient.ID] = &copied
		out = append(out, copied)
	}
	return out, nil
}

func (r *memoryRecipientRepo) ListByEnvelope(_ context.Context, envelopeID int64) ([]domain.Recipient, error) {
	var out []domain.Recipient
	for _, recipient := range r.byID {
		if recipient.EnvelopeID == envelopeID {
			out = append(out, *recipient)
		}
	}
	return out, nil
}

func (r *memoryRecipientRepo) GetByOrder(_ context.Context, envelopeID int64, order int) (*domain.Recipient, error) {
	for _, recipient := range r.byID {
		if recipient.EnvelopeID == envelopeID && recipient.Order == order {
			copied := *recipient
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryRecipientRepo) UpdateStatus(_ context.Context, id int64, status domain.RecipientStatus) error {
	recipient, ok := r.byID[id]
	if !ok {
		return domain.ErrRecipientNotFound
	}
	recipient.Status = status
	return nil
}

type memoryDocumentStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memoryDocumentStore) Put(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), data...)
	return nil
}

func (s *memoryDocumentStore) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("document not found: " + path)
	}
	return data, nil
}

func (s *memoryDocumentStore) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok, nil
}
