// Package stream turns ordered subscription change records into published
// bus events, with bounded retry, bisect-on-failure, and dead-letter
// overflow so one poisoned record cannot block its partition forever.
package stream

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/events"
	"catalog-backend/infrastructure/observability"
)

// Consumer processes one stream batch at a time. A batch is published with
// up to maxAttempts tries; on exhaustion it is bisected and each half
// retried independently, so only the failing sub-range drains to the
// dead-letter sink while the remainder continues. A dead-letter failure is
// re-raised to the caller so the platform's batch retry kicks in — records
// are never dropped silently.
type Consumer struct {
	bus     ports.EventBus
	dlq     ports.DeadLetterSink
	metrics *observability.Metrics
	logger  *zap.Logger

	maxAttempts int
	baseBackoff time.Duration
}

// Option adjusts consumer tuning.
type Option func(*Consumer)

// WithMaxAttempts bounds publish attempts per (sub-)batch.
func WithMaxAttempts(n int) Option {
	return func(c *Consumer) { c.maxAttempts = n }
}

// WithBaseBackoff sets the initial retry delay; it doubles per attempt.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Consumer) { c.baseBackoff = d }
}

// NewConsumer creates a stream consumer.
func NewConsumer(bus ports.EventBus, dlq ports.DeadLetterSink, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *Consumer {
	c := &Consumer{
		bus:         bus,
		dlq:         dlq,
		metrics:     metrics,
		logger:      logger,
		maxAttempts: 3,
		baseBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessBatch publishes one event per change record. Records within the
// batch keep their stream order; nothing is promised across partitions.
func (c *Consumer) ProcessBatch(ctx context.Context, changes []events.SubscriptionChange) error {
	if len(changes) == 0 {
		return nil
	}

	err := c.publishWithRetry(ctx, changes)
	if err == nil {
		c.metrics.Count(ctx, observability.MetricEventsPublished, float64(len(changes)))
		return nil
	}

	c.logger.Error("Batch exhausted publish retries, bisecting",
		zap.Int("batchSize", len(changes)),
		zap.Error(err),
	)
	return c.bisect(ctx, changes, err)
}

// bisect narrows a failing batch down to the poisoned records. Halves that
// publish cleanly continue; singletons that still fail go to the
// dead-letter sink.
func (c *Consumer) bisect(ctx context.Context, changes []events.SubscriptionChange, cause error) error {
	if len(changes) == 1 {
		change := changes[0]
		c.logger.Error("Routing poisoned change record to dead letter sink",
			zap.String("kind", string(change.Kind)),
			zap.Time("changeTime", change.Time),
			zap.Error(cause),
		)
		if err := c.dlq.Send(ctx, change, cause); err != nil {
			return fmt.Errorf("dead letter delivery failed: %w", err)
		}
		c.metrics.Count(ctx, observability.MetricEventsDeadLettered, 1)
		return nil
	}

	mid := len(changes) / 2
	for _, half := range [][]events.SubscriptionChange{changes[:mid], changes[mid:]} {
		err := c.publishWithRetry(ctx, half)
		if err == nil {
			c.metrics.Count(ctx, observability.MetricEventsPublished, float64(len(half)))
			continue
		}
		if err := c.bisect(ctx, half, err); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) publishWithRetry(ctx context.Context, changes []events.SubscriptionChange) error {
	batch := toBusEvents(changes)

	backoff := c.baseBackoff
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		lastErr = c.bus.PublishBatch(ctx, batch)
		if lastErr == nil {
			return nil
		}

		if attempt < c.maxAttempts-1 {
			c.logger.Warn("Publish attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Int("batchSize", len(batch)),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			c.metrics.Count(ctx, observability.MetricEventsRetried, float64(len(batch)))

			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// toBusEvents maps each change to its outbound event: the after-image, or
// the before-image for removals.
func toBusEvents(changes []events.SubscriptionChange) []events.BusEvent {
	batch := make([]events.BusEvent, 0, len(changes))
	for _, change := range changes {
		batch = append(batch, events.BusEvent{
			Time:       change.Time,
			DetailType: events.DetailTypeSubscription,
			Detail:     change.Image(),
		})
	}
	return batch
}
