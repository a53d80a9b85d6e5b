package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Common errors returned by the Dispatcher
var (
	ErrQueueClosed = errors.New("event queue is closed")
	ErrQueueFull   = errors.New("event queue is full")
)

// DispatcherConfig holds configuration options for the Dispatcher.
type DispatcherConfig struct {
	// WorkerCount is the number of concurrent delivery goroutines.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// QueueSize is the buffer capacity. If zero or negative, defaults to 1.
	QueueSize int

	// HandlerTimeout bounds the delivery of a single event.
	HandlerTimeout time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerCount:    2,
		QueueSize:      256,
		HandlerTimeout: 10 * time.Second,
	}
}

// Dispatcher is an asynchronous EventEmitter. Events are buffered and
// delivered to target by a pool of workers.
type Dispatcher struct {
	queue   chan queuedEvent
	target  EventEmitter
	config  DispatcherConfig
	logger  *slog.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	started bool
}

type queuedEvent struct {
	ctx   context.Context
	event *TaskEvent
}

// NewDispatcher creates a dispatcher delivering to target. Call Start to
// begin delivery and Stop to drain on shutdown.
func NewDispatcher(target EventEmitter, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "event_dispatcher")

	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = DefaultDispatcherConfig().HandlerTimeout
	}

	return &Dispatcher{
		queue:  make(chan queuedEvent, config.QueueSize),
		target: target,
		config: config,
		logger: logger,
	}
}

var _ EventEmitter = (*Dispatcher)(nil)

// Start launches the workers. Calling Start more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("event dispatcher started",
		"worker_count", d.config.WorkerCount,
		"queue_size", d.config.QueueSize)
}

// EmitEvent enqueues the event without blocking. When the queue is full or
// closed the event is dropped, a warning is logged and an error returned.
func (d *Dispatcher) EmitEvent(ctx context.Context, event *TaskEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("event dropped, dispatcher is closed",
			"event_id", event.ID,
			"event_type", event.Type)
		return ErrQueueClosed
	}

	// Delivery outlives the request, so only the context values are kept.
	select {
	case d.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		d.logger.Warn("event dropped, queue is full",
			"event_id", event.ID,
			"event_type", event.Type,
			"queue_cap", cap(d.queue))
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(d.queue))
	}
}

// Stop closes the queue and waits for queued events to be delivered or
// for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

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
		d.logger.Info("event dispatcher drained")
		return nil
	case <-ctx.Done():
		d.logger.Warn("event dispatcher stop timed out",
			"pending", len(d.queue))
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for item := range d.queue {
		d.deliver(id, item)
	}
}

func (d *Dispatcher) deliver(workerID int, item queuedEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				"worker_id", workerID,
				"event_id", item.event.ID,
				"panic", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(item.ctx, d.config.HandlerTimeout)
	defer cancel()

	if err := d.target.EmitEvent(ctx, item.event); err != nil {
		d.logger.Error("event delivery failed",
			"worker_id", workerID,
			"event_id", item.event.ID,
			"event_type", item.event.Type,
			"error", err)
	}
}
