// Package eventbridge publishes normalized catalog events to an AWS
// EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// EventBridgeAPI is the subset of the EventBridge client the publisher
// uses; tests substitute a fake.
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, input *awseventbridge.PutEventsInput, optFns ...func(*awseventbridge.Options)) (*awseventbridge.PutEventsOutput, error)
}

// Publisher implements ports.EventBus on EventBridge. Publishes run behind
// a circuit breaker and a bounded exponential-backoff retry; entries are
// chunked to the PutEvents limit of 10.
type Publisher struct {
	client       EventBridgeAPI
	eventBusName string
	logger       *zap.Logger
	breaker      *gobreaker.CircuitBreaker

	maxAttempts int
	baseBackoff time.Duration
}

// NewPublisher creates an EventBridge publisher.
func NewPublisher(client EventBridgeAPI, eventBusName string, logger *zap.Logger) *Publisher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "eventbridge",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
		breaker:      breaker,
		maxAttempts:  3,
		baseBackoff:  100 * time.Millisecond,
	}
}

var _ ports.EventBus = (*Publisher)(nil)

// Publish sends a single event.
func (p *Publisher) Publish(ctx context.Context, event events.BusEvent) error {
	return p.PublishBatch(ctx, []events.BusEvent{event})
}

// PublishBatch sends the batch in chunks of at most 10 entries.
func (p *Publisher) PublishBatch(ctx context.Context, batch []events.BusEvent) error {
	const chunkSize = 10

	for start := 0; start < len(batch); start += chunkSize {
		end := start + chunkSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := p.publishChunk(ctx, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishChunk(ctx context.Context, chunk []events.BusEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(chunk))
	for _, event := range chunk {
		detail, err := json.Marshal(event.Detail)
		if err != nil {
			p.logger.Error("Failed to marshal event detail",
				zap.String("detailType", event.DetailType),
				zap.Error(err),
			)
			return fmt.Errorf("failed to marshal event detail: %w", err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(events.SourceCatalog),
			DetailType:   aws.String(event.DetailType),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.Time),
		})
	}

	backoff := p.baseBackoff
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		lastErr = p.putEntries(ctx, chunk, entries)
		if lastErr == nil {
			return nil
		}
		if stderrors.Is(lastErr, gobreaker.ErrOpenState) {
			return lastErr
		}

		if attempt < p.maxAttempts-1 {
			p.logger.Warn("Retrying event publication",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed to publish events after %d attempts: %w", p.maxAttempts, lastErr)
}

func (p *Publisher) putEntries(ctx context.Context, chunk []events.BusEvent, entries []types.PutEventsRequestEntry) error {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.client.PutEvents(ctx, &awseventbridge.PutEventsInput{Entries: entries})
	})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	result := out.(*awseventbridge.PutEventsOutput)
	if result.FailedEntryCount == 0 {
		p.logger.Debug("Events published",
			zap.Int("count", len(entries)),
			zap.String("eventBus", p.eventBusName),
		)
		return nil
	}

	for i, entry := range result.Entries {
		if entry.ErrorCode == nil {
			continue
		}
		p.logger.Error("Failed to publish event",
			zap.String("detailType", chunk[i].DetailType),
			zap.String("errorCode", aws.ToString(entry.ErrorCode)),
			zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
		)
	}
	return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
}
