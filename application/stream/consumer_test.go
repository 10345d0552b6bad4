package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-backend/domain/catalog"
	"catalog-backend/domain/events"
)

// fakeBus records published events; failOn rejects any batch containing a
// matching event, failures counts down forced whole-batch failures.
type fakeBus struct {
	published []events.BusEvent
	failOn    func(events.BusEvent) bool
	failures  int
}

func (b *fakeBus) Publish(ctx context.Context, event events.BusEvent) error {
	return b.PublishBatch(ctx, []events.BusEvent{event})
}

func (b *fakeBus) PublishBatch(ctx context.Context, batch []events.BusEvent) error {
	if b.failures > 0 {
		b.failures--
		return errors.New("transient publish failure")
	}
	if b.failOn != nil {
		for _, event := range batch {
			if b.failOn(event) {
				return errors.New("entry rejected")
			}
		}
	}
	b.published = append(b.published, batch...)
	return nil
}

type fakeDLQ struct {
	sent    []events.SubscriptionChange
	sendErr error
}

func (d *fakeDLQ) Send(ctx context.Context, change events.SubscriptionChange, cause error) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, change)
	return nil
}

func subscription(accountID string) *catalog.Subscription {
	return &catalog.Subscription{
		AccountID: accountID,
		PlanID:    "plan-1",
		CreatedAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func insertChange(accountID string) events.SubscriptionChange {
	return events.SubscriptionChange{
		Kind: events.ChangeInsert,
		Time: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		New:  subscription(accountID),
	}
}

func newTestConsumer(bus *fakeBus, dlq *fakeDLQ) *Consumer {
	return NewConsumer(bus, dlq, nil, zap.NewNop(), WithBaseBackoff(time.Millisecond))
}

func TestProcessBatchPublishesOneEventPerChange(t *testing.T) {
	bus := &fakeBus{}
	dlq := &fakeDLQ{}
	consumer := newTestConsumer(bus, dlq)

	changes := []events.SubscriptionChange{
		insertChange("acct-1"),
		insertChange("acct-2"),
	}
	require.NoError(t, consumer.ProcessBatch(context.Background(), changes))

	require.Len(t, bus.published, 2)
	assert.Empty(t, dlq.sent)
	for i, event := range bus.published {
		assert.Equal(t, events.DetailTypeSubscription, event.DetailType)
		detail, ok := event.Detail.(*catalog.Subscription)
		require.True(t, ok)
		assert.Equal(t, changes[i].New.AccountID, detail.AccountID)
	}
}

func TestProcessBatchRemoveCarriesPriorImage(t *testing.T) {
	bus := &fakeBus{}
	consumer := newTestConsumer(bus, &fakeDLQ{})

	prior := subscription("acct-1")
	err := consumer.ProcessBatch(context.Background(), []events.SubscriptionChange{{
		Kind: events.ChangeRemove,
		Time: prior.CreatedAt,
		Old:  prior,
	}})
	require.NoError(t, err)

	require.Len(t, bus.published, 1)
	assert.Same(t, prior, bus.published[0].Detail)
}

func TestProcessBatchEmptyIsNoOp(t *testing.T) {
	bus := &fakeBus{}
	consumer := newTestConsumer(bus, &fakeDLQ{})

	require.NoError(t, consumer.ProcessBatch(context.Background(), nil))
	assert.Empty(t, bus.published)
}

func TestProcessBatchRetriesTransientFailure(t *testing.T) {
	bus := &fakeBus{failures: 2}
	dlq := &fakeDLQ{}
	consumer := newTestConsumer(bus, dlq)

	err := consumer.ProcessBatch(context.Background(), []events.SubscriptionChange{insertChange("acct-1")})
	require.NoError(t, err)
	assert.Len(t, bus.published, 1)
	assert.Empty(t, dlq.sent)
}

func TestProcessBatchBisectsPoisonedRecord(t *testing.T) {
	poisoned := func(event events.BusEvent) bool {
		detail, ok := event.Detail.(*catalog.Subscription)
		return ok && detail.AccountID == "poison"
	}
	bus := &fakeBus{failOn: poisoned}
	dlq := &fakeDLQ{}
	consumer := newTestConsumer(bus, dlq)

	changes := []events.SubscriptionChange{
		insertChange("acct-1"),
		insertChange("poison"),
		insertChange("acct-2"),
		insertChange("acct-3"),
	}
	require.NoError(t, consumer.ProcessBatch(context.Background(), changes))

	// the healthy records all published, only the poisoned one drained
	require.Len(t, dlq.sent, 1)
	assert.Equal(t, "poison", dlq.sent[0].New.AccountID)
	assert.Len(t, bus.published, 3)
	for _, event := range bus.published {
		assert.NotEqual(t, "poison", event.Detail.(*catalog.Subscription).AccountID)
	}
}

func TestProcessBatchDeadLetterFailureIsReRaised(t *testing.T) {
	bus := &fakeBus{failOn: func(events.BusEvent) bool { return true }}
	dlq := &fakeDLQ{sendErr: errors.New("queue unavailable")}
	consumer := newTestConsumer(bus, dlq)

	err := consumer.ProcessBatch(context.Background(), []events.SubscriptionChange{insertChange("acct-1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dead letter delivery failed")
}
