package events

import (
	"context"
	"fmt"
	"sync"

	"elecrm_backend/platform/logger"
)

// InMemoryBus is a process-local Bus. Dispatch is synchronous and follows
// handler registration order per event type; a handler error or panic is
// logged and the remaining handlers still run.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to every registered handler in order.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventName()]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, event, h)
	}
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				"event", event.EventName(),
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	if err := h.Handle(ctx, event); err != nil {
		b.log.Error("event handler failed",
			"event", event.EventName(),
			"error", err.Error(),
		)
	}
}

var _ Bus = (*InMemoryBus)(nil)
