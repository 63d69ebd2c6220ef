package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

const (
	feedChannelPrefix = "calendar:"
	feedBuffer        = 32
)

// dayMessage is the wire form of a day record on the feed.
type dayMessage struct {
	ApartmentID string    `json:"apartmentId"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Day         int       `json:"day"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DayFeed implements usecase.DayFeed over Redis pub/sub, one channel per apartment.
type DayFeed struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

// NewDayFeed creates a new DayFeed.
func NewDayFeed(client redis.UniversalClient, logger zerolog.Logger) *DayFeed {
	return &DayFeed{client: client, logger: logger}
}

// Publish broadcasts a written day record.
func (f *DayFeed) Publish(ctx context.Context, record *domain.DayRecord) error {
	data, err := json.Marshal(dayMessage{
		ApartmentID: record.ApartmentID,
		Year:        record.Year,
		Month:       record.Month,
		Day:         record.Day,
		Status:      record.Status.String(),
		Notes:       record.Notes,
		UpdatedAt:   record.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode day record: %w", err)
	}
	return f.client.Publish(ctx, feedChannelPrefix+record.ApartmentID, data).Err()
}

// Subscribe starts listening for an apartment's updates. It returns once the
// subscription is confirmed, so every record published afterwards is delivered.
func (f *DayFeed) Subscribe(ctx context.Context, apartmentID string) (usecase.DaySubscription, error) {
	pubsub := f.client.Subscribe(ctx, feedChannelPrefix+apartmentID)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", apartmentID, err)
	}

	sub := &daySubscription{
		pubsub:   pubsub,
		updates:  make(chan *domain.DayRecord, feedBuffer),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		logger:   f.logger.With().Str("apartment_id", apartmentID).Logger(),
	}
	go sub.run(ctx, pubsub.Channel())
	return sub, nil
}

type daySubscription struct {
	pubsub   *redis.PubSub
	updates  chan *domain.DayRecord
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
	err      error
	logger   zerolog.Logger
}

func (s *daySubscription) Updates() <-chan *domain.DayRecord {
	return s.updates
}

// Close stops the subscription. Updates is closed before Close returns.
func (s *daySubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.pubsub.Close()
	})
	<-s.finished
	return s.err
}

func (s *daySubscription) run(ctx context.Context, messages <-chan *redis.Message) {
	defer close(s.finished)
	defer close(s.updates)

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			record, err := decodeDayMessage(msg.Payload)
			if err != nil {
				s.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed feed message")
				continue
			}

			select {
			case s.updates <- record:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func decodeDayMessage(payload string) (*domain.DayRecord, error) {
	var msg dayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, err
	}

	status, err := domain.ParseDayStatus(msg.Status)
	if err != nil {
		return nil, err
	}

	return &domain.DayRecord{
		ApartmentID: msg.ApartmentID,
		Year:        msg.Year,
		Month:       msg.Month,
		Day:         msg.Day,
		Status:      status,
		Notes:       msg.Notes,
		UpdatedAt:   msg.UpdatedAt,
	}, nil
}
