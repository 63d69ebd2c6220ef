package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

// ErrQueueFull is returned when the dispatcher cannot accept more events.
var ErrQueueFull = errors.New("event queue is full")

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Config for Dispatcher.
type Config struct {
	Publisher      Publisher
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	QueueSize      int           // Number of events buffered before Publish fails
	PublishTimeout time.Duration // Bound on a single broker publish
	DrainTimeout   time.Duration // Time allowed to flush the queue on shutdown
}

// Dispatcher hands domain events to a Publisher from a background worker so
// that a slow broker never delays the write that produced the event.
type Dispatcher struct {
	publisher      Publisher
	logger         zerolog.Logger
	metrics        *metrics.Metrics
	queue          chan *domain.Event
	publishTimeout time.Duration
	drainTimeout   time.Duration
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 256
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = 5 * time.Second
	}

	return &Dispatcher{
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		queue:          make(chan *domain.Event, cfg.QueueSize),
		publishTimeout: cfg.PublishTimeout,
		drainTimeout:   cfg.DrainTimeout,
	}
}

// Publish enqueues event without blocking.
func (d *Dispatcher) Publish(_ context.Context, event *domain.Event) error {
	select {
	case d.queue <- event:
		return nil
	default:
		d.record("dropped")
		return ErrQueueFull
	}
}

// Start runs the worker until ctx is cancelled, then flushes what is queued.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().Int("queue_size", cap(d.queue)).Msg("event dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.drain()
			d.logger.Info().Msg("event dispatcher stopped")
			return ctx.Err()
		case event := <-d.queue:
			d.send(context.Background(), event)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()

	for {
		select {
		case event := <-d.queue:
			d.send(ctx, event)
		default:
			return
		}
		if ctx.Err() != nil {
			d.logger.Warn().Int("remaining", len(d.queue)).Msg("event drain timed out")
			return
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, event *domain.Event) {
	pctx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(pctx, event); err != nil {
		d.record("failed")
		d.logger.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.EventType).
			Msg("failed to publish event")
		return
	}

	d.record("published")
	d.logger.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_id", event.AggregateID).
		Msg("event published")
}

func (d *Dispatcher) record(result string) {
	if d.metrics != nil {
		d.metrics.EventsPublished.WithLabelValues(result).Inc()
	}
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("event published")

	return nil
}
