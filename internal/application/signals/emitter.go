package signals

import (
	"context"
	"encoding/json"
	"fmt"

	"library-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultStream = "library:resource-signals"

// Emitter delivers one event to whoever reacts to it. It must tolerate
// receiving the same event id more than once.
type Emitter interface {
	Emit(ctx context.Context, event domain.ResourceEvent) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, event domain.ResourceEvent) error

func (f EmitterFunc) Emit(ctx context.Context, event domain.ResourceEvent) error {
	return f(ctx, event)
}

// RedisStream appends events to a redis stream for out-of-process consumers.
type RedisStream struct {
	Rdb    *redis.Client
	Stream string
}

func (r *RedisStream) Emit(ctx context.Context, event domain.ResourceEvent) error {
	stream := r.Stream
	if stream == "" {
		stream = DefaultStream
	}
	return r.Rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"event_id":    event.EventID.String(),
			"event_type":  event.EventType,
			"resource_id": event.ResourceID.String(),
			"loan_id":     event.LoanID.String(),
			"event_data":  string(event.EventData),
		},
	}).Err()
}

// Catalog is the part of resource cataloguing that reacts to lost units.
type Catalog interface {
	AdjustTotalQuantity(ctx context.Context, resourceID uuid.UUID, delta int) error
}

// CatalogCallback applies TOTAL_QUANTITY_ADJUSTMENT events to a Catalog
// in-process and ignores every other event type.
type CatalogCallback struct {
	Catalog Catalog
}

func (c *CatalogCallback) Emit(ctx context.Context, event domain.ResourceEvent) error {
	if event.EventType != domain.EventTotalQuantityAdjustment {
		return nil
	}
	var data AdjustmentData
	if err := json.Unmarshal(event.EventData, &data); err != nil {
		return fmt.Errorf("decode adjustment event %s: %w", event.EventID, err)
	}
	return c.Catalog.AdjustTotalQuantity(ctx, event.ResourceID, data.Delta)
}

// Fanout emits to each emitter in order and stops at the first failure, so an
// emitter only sees an event once every earlier one accepted it. A failed event
// is re-sent to all of them on Flush; the last emitter is the only one that never
// sees a duplicate and should be the one that is not idempotent.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, event domain.ResourceEvent) error {
	for i, e := range f {
		if err := e.Emit(ctx, event); err != nil {
			return fmt.Errorf("emitter %d: %w", i, err)
		}
	}
	return nil
}
