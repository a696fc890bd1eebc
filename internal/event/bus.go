package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/domain"
)

// Event is a typed domain event fired when a recognized status notification
// has been applied (or skipped by configuration) to a tracked envelope.
type Event struct {
	Kind     domain.EventKind
	Envelope domain.Envelope
	// Recipient is set for recipient-level events.
	Recipient *domain.Recipient
	Payload   domain.WebhookPayload
}

// Observed is the generic notification emitted for every authenticated
// event on a tracked envelope, recognized or not, so subscribers can react
// to anything the provider sends.
type Observed struct {
	Name     string
	Envelope domain.Envelope
	Payload  domain.WebhookPayload
}

// NonAuthentic is published when a webhook fails signature verification.
type NonAuthentic struct {
	Signature string
	Body      []byte
}

// Handler consumes typed events.
type Handler func(ctx context.Context, evt Event)

// ObservedHandler consumes generic event notifications.
type ObservedHandler func(ctx context.Context, evt Observed)

// NonAuthenticHandler consumes rejected-webhook notifications.
type NonAuthenticHandler func(ctx context.Context, evt NonAuthentic)

// Bus is a plain in-process publish/subscribe fan-out. Each delivery runs
// on its own goroutine so publishing never blocks the webhook request.
type Bus struct {
	mu           sync.RWMutex
	typed        []Handler
	observed     []ObservedHandler
	nonAuthentic []NonAuthenticHandler
	logger       *zap.Logger
	wg           sync.WaitGroup
}

// NewBus constructs an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.L()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler for typed events.
func (b *Bus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed = append(b.typed, handler)
}

// SubscribeObserved registers a handler for generic notifications.
func (b *Bus) SubscribeObserved(handler ObservedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observed = append(b.observed, handler)
}

// SubscribeNonAuthentic registers a handler for rejected webhooks.
func (b *Bus) SubscribeNonAuthentic(handler NonAuthenticHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonAuthentic = append(b.nonAuthentic, handler)
}

// Publish fans a typed event out to its subscribers.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.typed...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(func(h Handler) func() {
			return func() { h(ctx, evt) }
		}(handler))
	}
}

// PublishObserved fans the generic notification out.
func (b *Bus) PublishObserved(ctx context.Context, evt Observed) {
	b.mu.RLock()
	handlers := append([]ObservedHandler(nil), b.observed...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(func(h ObservedHandler) func() {
			return func() { h(ctx, evt) }
		}(handler))
	}
}

// PublishNonAuthentic fans the rejection notification out.
func (b *Bus) PublishNonAuthentic(ctx context.Context, evt NonAuthentic) {
	b.mu.RLock()
	handlers := append([]NonAuthenticHandler(nil), b.nonAuthentic...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(func(h NonAuthenticHandler) func() {
			return func() { h(ctx, evt) }
		}(handler))
	}
}

func (b *Bus) dispatch(run func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event subscriber panicked", zap.Any("panic", r))
			}
		}()
		run()
	}()
}

// Wait blocks until in-flight deliveries finish. Used by tests and
// shutdown.
func (b *Bus) Wait() {
	b.wg.Wait()
}
