package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by the async dispatcher when an event had to be dropped.
var ErrQueueFull = errors.New("event queue full")

// ErrDispatcherClosed is returned when publishing after Close.
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// registry holds subscriptions and invokes them, shared by both dispatchers.
type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
}

func newRegistry(logger *zap.Logger) registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return registry{listeners: make(map[EventType][]EventHandler), logger: logger}
}

// Subscribe registers a handler for the given event type.
func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

// deliver runs every handler for event. A failing or panicking handler does not stop the others.
func (r *registry) deliver(ctx context.Context, event Event) {
	r.mu.RLock()
	handlers := append([]EventHandler{}, r.listeners[event.Type]...)
	r.mu.RUnlock()

	for _, handler := range handlers {
		if err := safeInvoke(ctx, handler, event); err != nil {
			r.logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

func safeInvoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return handler(ctx, event)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	registry
}

// NewInMemoryDispatcher creates a dispatcher that runs handlers inline with Publish.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	return &inMemoryDispatcher{registry: newRegistry(logger)}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.deliver(ctx, event)
	return nil
}

// AsyncDispatcher queues events on a bounded channel and delivers them from worker goroutines.
// Publish never blocks: when the queue is full the event is dropped.
type AsyncDispatcher struct {
	registry
	queue   chan Event
	onDrop  func(Event)
	wg      sync.WaitGroup
	stateMu sync.RWMutex
	closed  bool
	started bool
}

// NewAsyncDispatcher builds a dispatcher with the given queue capacity.
func NewAsyncDispatcher(queueSize int, logger *zap.Logger) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &AsyncDispatcher{
		registry: newRegistry(logger),
		queue:    make(chan Event, queueSize),
	}
}

// OnDrop installs a callback invoked for every dropped event.
func (d *AsyncDispatcher) OnDrop(fn func(Event)) {
	d.onDrop = fn
}

// Start launches workers. Handlers receive ctx stripped of its cancellation so in-flight
// deliveries finish during shutdown.
func (d *AsyncDispatcher) Start(ctx context.Context, workers int) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	if workers <= 0 {
		workers = 1
	}
	deliveryCtx := context.WithoutCancel(ctx)
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for event := range d.queue {
				d.deliver(deliveryCtx, event)
			}
		}()
	}
}

// Publish enqueues event without waiting for delivery.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	if d.closed {
		d.drop(event, "closed")
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.drop(event, "queue full")
		return ErrQueueFull
	}
}

func (d *AsyncDispatcher) drop(event Event, reason string) {
	d.logger.Warn("event dropped",
		zap.String("reason", reason),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	if d.onDrop != nil {
		d.onDrop(event)
	}
}

// Close stops accepting events and waits for queued ones to be delivered until ctx expires.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.stateMu.Lock()
	if d.closed {
		d.stateMu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.stateMu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain notification queue: %w", ctx.Err())
	}
}

// Pending reports the number of queued, undelivered events.
func (d *AsyncDispatcher) Pending() int {
	return len(d.queue)
}
