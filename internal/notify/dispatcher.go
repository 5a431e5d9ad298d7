package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/driftlinehq/driftline/backend/internal/models"
)

// Broker publishes a payload onto a topic. Implementations live in the
// realtime package (in-process hub, Redis pub/sub).
type Broker interface {
	Publish(topic string, payload any) error
}

// Sink is a secondary delivery target fanned into after the broker, e.g.
// mobile push. Sink failures are logged and never propagate.
type Sink interface {
	Deliver(ctx context.Context, d Delivery) error
}

type dispatchJob struct {
	event        Event
	notification *models.Notification
}

// Dispatcher decouples realtime delivery from the request/response cycle.
// Events are enqueued on a bounded channel and routed to payloads inside
// worker goroutines, so payloads reflect entity state at dispatch time.
//
// Overflow policy: Enqueue never blocks; when the queue is full the event is
// dropped and counted. Durable state is already persisted by then, so a
// dropped dispatch costs at most one realtime push.
type Dispatcher struct {
	router  *Router
	broker  Broker
	sinks   []Sink
	queue   chan dispatchJob
	workers int
	logger  Logger

	dropped atomic.Uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher) error

// WithQueueSize bounds the dispatch queue (default 256).
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) error {
		if n <= 0 {
			return errors.New("queue size must be positive")
		}
		d.queue = make(chan dispatchJob, n)
		return nil
	}
}

// WithWorkers sets the number of delivery workers (default 2).
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) error {
		if n <= 0 {
			return errors.New("worker count must be positive")
		}
		d.workers = n
		return nil
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		d.logger = logger
		return nil
	}
}

// WithSink registers a secondary delivery sink.
func WithSink(s Sink) DispatcherOption {
	return func(d *Dispatcher) error {
		if s == nil {
			return errors.New("sink cannot be nil")
		}
		d.sinks = append(d.sinks, s)
		return nil
	}
}

// NewDispatcher creates a Dispatcher. Call Start before enqueuing.
func NewDispatcher(router *Router, broker Broker, opts ...DispatcherOption) (*Dispatcher, error) {
	if router == nil {
		return nil, errors.New("router is required")
	}
	if broker == nil {
		return nil, errors.New("broker is required")
	}

	d := &Dispatcher{
		router:  router,
		broker:  broker,
		workers: 2,
		logger:  StdLogger{},
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.queue == nil {
		d.queue = make(chan dispatchJob, 256)
	}
	return d, nil
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop halts the workers. Jobs still queued are abandoned; clients recover
// the lost pushes through REST reconciliation.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Enqueue hands an event to the background workers. It reports false when
// the queue is full and the event was dropped.
func (d *Dispatcher) Enqueue(ev Event, notification *models.Notification) bool {
	select {
	case d.queue <- dispatchJob{event: ev, notification: notification}:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warnf("dispatch queue full, dropping %s event from actor %d", ev.Kind, ev.ActorID)
		return false
	}
}

// Dropped returns the number of events lost to queue overflow.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.process(ctx, job)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job dispatchJob) {
	deliveries, err := d.router.Route(ctx, job.event, job.notification)
	if err != nil {
		if errors.Is(err, ErrStaleSubject) {
			d.logger.Debugf("dropping %s dispatch: %v", job.event.Kind, err)
		} else {
			d.logger.Warnf("routing %s event failed: %v", job.event.Kind, err)
		}
		return
	}

	for _, delivery := range deliveries {
		if err := d.broker.Publish(delivery.Topic, delivery.Payload); err != nil {
			// Best-effort: the notification row already exists, clients
			// reconcile over REST.
			d.logger.Warnf("publish to %s failed: %v", delivery.Topic, err)
		}
		for _, sink := range d.sinks {
			if err := sink.Deliver(ctx, delivery); err != nil {
				d.logger.Warnf("sink delivery for %s failed: %v", delivery.Topic, err)
			}
		}
	}
}
