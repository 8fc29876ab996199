package signals

import (
	"context"
	"fmt"
	"time"

	"library-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// FailingAfter is the number of refused dispatches after which an event is
// logged as an error and counted as failing.
const FailingAfter = 3

// Outbox dispatches recorded events and marks the ones an emitter accepted.
type Outbox struct {
	DB      *gorm.DB
	Emitter Emitter
	Now     func() time.Time
}

func (o *Outbox) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Dispatch emits events that were committed. Failures are logged and the
// event stays pending for Flush; the loan change they follow is already durable.
func (o *Outbox) Dispatch(ctx context.Context, events []domain.ResourceEvent) int {
	sent, _ := o.dispatch(ctx, events)
	return sent
}

func (o *Outbox) dispatch(ctx context.Context, events []domain.ResourceEvent) (int, error) {
	if o == nil || o.Emitter == nil {
		return 0, nil
	}
	var (
		sent    int
		failed  int
		lastErr error
	)
	for _, ev := range events {
		if err := o.Emitter.Emit(ctx, ev); err != nil {
			failed++
			lastErr = err
			o.recordFailure(ctx, ev, err)
			continue
		}
		if err := o.DB.WithContext(ctx).Model(&domain.ResourceEvent{}).
			Where("event_id = ?", ev.EventID).
			Update("dispatched_at", o.now()).Error; err != nil {
			log.Warn().Err(err).Str("event_id", ev.EventID.String()).Msg("Could not mark resource signal dispatched")
			continue
		}
		sent++
	}
	if failed > 0 {
		return sent, fmt.Errorf("%d resource signals left pending: %w", failed, lastErr)
	}
	return sent, nil
}

func (o *Outbox) recordFailure(ctx context.Context, ev domain.ResourceEvent, cause error) {
	attempts := ev.Attempts + 1
	if err := o.DB.WithContext(ctx).Model(&domain.ResourceEvent{}).
		Where("event_id = ?", ev.EventID).
		UpdateColumns(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error; err != nil {
		log.Warn().Err(err).Str("event_id", ev.EventID.String()).Msg("Could not record resource signal failure")
	}

	entry := log.Warn()
	if attempts >= FailingAfter {
		entry = log.Error()
	}
	entry.Err(cause).
		Str("event_id", ev.EventID.String()).
		Str("event_type", ev.EventType).
		Str("resource_id", ev.ResourceID.String()).
		Int("attempts", attempts).
		Msg("Resource signal dispatch failed, left pending")
}

// Pending lists events not yet dispatched, oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]domain.ResourceEvent, error) {
	var events []domain.ResourceEvent
	q := o.DB.WithContext(ctx).Where("dispatched_at IS NULL").Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Flush re-dispatches pending events and returns how many were accepted. The
// error reports events that are still pending afterwards.
func (o *Outbox) Flush(ctx context.Context, limit int) (int, error) {
	events, err := o.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}
	return o.dispatch(ctx, events)
}

// Run flushes every interval until ctx is done. A lost-copy adjustment the
// catalogue refuses while the released units are out on loan again is retried
// here and applies once they come back.
func (o *Outbox) Run(ctx context.Context, every time.Duration, limit int) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := o.Flush(ctx, limit)
			if err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Int("dispatched", n).Msg("Resource signal flush incomplete")
			} else if n > 0 {
				log.Info().Int("dispatched", n).Msg("Pending resource signals flushed")
			}
		}
	}
}

// PendingCount is the number of events not yet dispatched.
func (o *Outbox) PendingCount(ctx context.Context) (int64, error) {
	var n int64
	err := o.DB.WithContext(ctx).Model(&domain.ResourceEvent{}).Where("dispatched_at IS NULL").Count(&n).Error
	return n, err
}

// FailingCount is the number of pending events refused at least FailingAfter times.
func (o *Outbox) FailingCount(ctx context.Context) (int64, error) {
	var n int64
	err := o.DB.WithContext(ctx).Model(&domain.ResourceEvent{}).
		Where("dispatched_at IS NULL AND attempts >= ?", FailingAfter).
		Count(&n).Error
	return n, err
}
