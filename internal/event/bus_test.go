package event

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/domain"
)

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	var got []domain.EventKind
	for i := 0; i < 3; i++ {
		bus.Subscribe(func(_ context.Context, evt Event) {
			mu.Lock()
			got = append(got, evt.Kind)
			mu.Unlock()
		})
	}

	bus.Publish(context.Background(), Event{Kind: domain.EventEnvelopeCompleted})
	bus.Wait()

	require.Len(t, got, 3)
	for _, kind := range got {
		require.Equal(t, domain.EventEnvelopeCompleted, kind)
	}
}

func TestBusSubscriberPanicDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	delivered := 0
	bus.SubscribeObserved(func(_ context.Context, _ Observed) {
		panic("broken subscriber")
	})
	bus.SubscribeObserved(func(_ context.Context, _ Observed) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	bus.PublishObserved(context.Background(), Observed{Name: "envelopeCompleted"})
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, delivered)
}

func TestBusNonAuthenticDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var mu sync.Mutex
	var got []NonAuthentic
	bus.SubscribeNonAuthentic(func(_ context.Context, evt NonAuthentic) {
		mu.Lock()
		got = append(got, evt)
		mu.Unlock()
	})

	bus.PublishNonAuthentic(context.Background(), NonAuthentic{
		Signature: "sig",
		Body:      []byte("{}"),
	})
	bus.Wait()

	require.Len(t, got, 1)
	require.Equal(t, "sig", got[0].Signature)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Publish(context.Background(), Event{Kind: domain.EventRecipientSent})
	bus.Wait()
}
