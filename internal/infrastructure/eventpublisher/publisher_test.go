package eventpublisher

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

type stubPublisher struct {
	mu         sync.Mutex
	published  []*domain.Event
	errorsByID map[string]error
}

func (s *stubPublisher) Publish(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errorsByID[event.ID]; err != nil {
		return err
	}
	s.published = append(s.published, event)
	return nil
}

func (s *stubPublisher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func TestDispatcherPublishesInBackground(t *testing.T) {
	pub := &stubPublisher{errorsByID: map[string]error{"evt-1": errors.New("broker down")}}
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(Config{Publisher: pub, Logger: zerolog.Nop(), Metrics: m})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	require.NoError(t, d.Publish(ctx, &domain.Event{ID: "evt-1", EventType: domain.EventTypeDaysUpdated}))
	require.NoError(t, d.Publish(ctx, &domain.Event{ID: "evt-2", EventType: domain.EventTypeDaysUpdated}))

	require.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("published")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("failed")))
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := NewDispatcher(Config{Publisher: &stubPublisher{}, Logger: zerolog.Nop(), Metrics: m, QueueSize: 1})

	require.NoError(t, d.Publish(context.Background(), &domain.Event{ID: "a"}))
	assert.ErrorIs(t, d.Publish(context.Background(), &domain.Event{ID: "b"}), ErrQueueFull)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("dropped")))
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	pub := &stubPublisher{}
	d := NewDispatcher(Config{Publisher: pub, Logger: zerolog.Nop(), QueueSize: 4})

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, d.Publish(context.Background(), &domain.Event{ID: id}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = d.Start(ctx)

	assert.Equal(t, 3, pub.count())
}

func TestLogPublisherWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	err := p.Publish(context.Background(), &domain.Event{
		ID:            "evt-1",
		EventType:     domain.EventTypeBookingCreated,
		AggregateType: domain.AggregateTypeApartment,
		AggregateID:   "apt-1",
		Payload:       map[string]any{"nights": 3},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"event_type":"booking.created"`)
	assert.Contains(t, out, `"payload":{"nights":3}`)
}
