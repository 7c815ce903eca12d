package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookingagent/platform/logger"
)

type testEvent struct {
	BaseEvent
	Name string
}

func (e testEvent) EventName() string { return e.Name }

func TestInMemoryBusPublishSyncRunsHandlersInline(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var calls []string
	bus.Subscribe("slot.opened", HandlerFunc(func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return nil
	}))
	bus.Subscribe("slot.opened", HandlerFunc(func(ctx context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{Name: "slot.opened"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("expected handlers in subscribe order, got %v", calls)
	}
}

func TestInMemoryBusPublishSyncReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	wantErr := errTestHandler
	bus.Subscribe("hold.expired", HandlerFunc(func(ctx context.Context, e Event) error {
		return wantErr
	}))
	bus.Subscribe("hold.expired", HandlerFunc(func(ctx context.Context, e Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{Name: "hold.expired"})
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestInMemoryBusPublishIsAsynchronous(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var mu sync.Mutex
	done := make(chan struct{})
	var handled bool

	bus.Subscribe("waitlist.notified", HandlerFunc(func(ctx context.Context, e Event) error {
		mu.Lock()
		handled = true
		mu.Unlock()
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{Name: "waitlist.notified"})

	mu.Lock()
	calledImmediately := handled
	mu.Unlock()
	if calledImmediately {
		t.Fatal("expected Publish to return before the handler ran")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestInMemoryBusSubscribeWithNoHandlersIsANoop(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	bus.Publish(context.Background(), testEvent{Name: "unrouted"})
	if err := bus.PublishSync(context.Background(), testEvent{Name: "unrouted"}); err != nil {
		t.Fatalf("expected no error for an unrouted event, got %v", err)
	}
}

type testHandlerError struct{ msg string }

func (e *testHandlerError) Error() string { return e.msg }

var errTestHandler error = &testHandlerError{msg: "handler failed"}
