package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New(), uuid.New()),
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func (h *recordingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, evt)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	issued := &recordingHandler{types: []string{"InvoiceIssued"}}
	paid := &recordingHandler{types: []string{"InvoicePaymentRecorded"}}
	all := &recordingHandler{}
	bus.Subscribe(issued)
	bus.Subscribe(paid)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("InvoiceIssued"),
		newTestEvent("InvoiceIssued"),
		newTestEvent("InvoicePaymentRecorded"),
	))

	assert.Equal(t, 2, issued.count())
	assert.Equal(t, 1, paid.count())
	assert.Equal(t, 3, all.count(), "handler without event types receives everything")
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{types: []string{"InvoiceIssued"}}
	bus.Subscribe(h, "CreditNoteIssued")

	_ = bus.Publish(context.Background(), newTestEvent("InvoiceIssued"), newTestEvent("CreditNoteIssued"))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{"InvoiceIssued"}, err: errors.New("metrics exporter down")}
	panicking := &recordingHandler{types: []string{"InvoiceIssued"}, panics: true}
	healthy := &recordingHandler{types: []string{"InvoiceIssued"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("InvoiceIssued"))
	require.NoError(t, err)
	assert.Equal(t, 1, healthy.count())

	delivered, failed := bus.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(2), failed)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{"InvoiceIssued", "InvoiceCancelled"}}
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	_ = bus.Publish(context.Background(), newTestEvent("InvoiceIssued"), newTestEvent("InvoiceCancelled"))
	assert.Zero(t, h.count())
	assert.Zero(t, bus.registry.Len())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	assert.False(t, bus.IsRunning())
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.IsRunning())
	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.IsRunning())
}

func TestHandlerRegistry_Len(t *testing.T) {
	r := NewHandlerRegistry()
	h := &recordingHandler{}
	r.Register(h, "A", "B")
	r.Register(&recordingHandler{})

	assert.Equal(t, 2, r.Len())
	assert.Len(t, r.HandlersFor("A"), 2)
	assert.Len(t, r.HandlersFor("C"), 1)
}
