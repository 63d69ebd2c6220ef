package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/aptledger/internal/domain"
)

// emitter publishes domain events after successful writes. Publishing is best
// effort: a failure is logged and never undoes the write.
type emitter struct {
	publisher EventPublisher
	idGen     IDGenerator
	logger    zerolog.Logger
}

func (e emitter) emit(ctx context.Context, aggregateType, aggregateID, eventType string, payload any) {
	if e.publisher == nil {
		return
	}

	event := &domain.Event{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       toPayload(payload),
		CreatedAt:     time.Now().UTC(),
	}
	if e.idGen != nil {
		event.ID = e.idGen.Generate()
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn().
			Err(err).
			Str("event_type", eventType).
			Str("aggregate_id", aggregateID).
			Msg("failed to publish event")
	}
}

func toPayload(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
