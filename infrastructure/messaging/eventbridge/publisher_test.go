package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-backend/domain/catalog"
	"catalog-backend/domain/events"
)

type fakeEventBridge struct {
	calls       []*awseventbridge.PutEventsInput
	err         error
	failEntries int32
}

func (f *fakeEventBridge) PutEvents(ctx context.Context, input *awseventbridge.PutEventsInput, optFns ...func(*awseventbridge.Options)) (*awseventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, input)
	if f.err != nil {
		return nil, f.err
	}
	out := &awseventbridge.PutEventsOutput{FailedEntryCount: f.failEntries}
	for range input.Entries {
		entry := types.PutEventsResultEntry{}
		if f.failEntries > 0 {
			entry.ErrorCode = aws.String("InternalFailure")
			entry.ErrorMessage = aws.String("boom")
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func newTestPublisher(client EventBridgeAPI) *Publisher {
	p := NewPublisher(client, "catalog-events", zap.NewNop())
	p.baseBackoff = time.Millisecond
	return p
}

func busEvent(accountID string) events.BusEvent {
	return events.BusEvent{
		Time:       time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		DetailType: events.DetailTypeSubscription,
		Detail: &catalog.Subscription{
			AccountID: accountID,
			PlanID:    "plan-1",
			CreatedAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestPublishEntryShape(t *testing.T) {
	client := &fakeEventBridge{}
	publisher := newTestPublisher(client)

	require.NoError(t, publisher.Publish(context.Background(), busEvent("acct-1")))

	require.Len(t, client.calls, 1)
	require.Len(t, client.calls[0].Entries, 1)
	entry := client.calls[0].Entries[0]

	assert.Equal(t, "catalog-events", aws.ToString(entry.EventBusName))
	assert.Equal(t, "catalog", aws.ToString(entry.Source))
	assert.Equal(t, "Subscription", aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "acct-1", detail["accountId"])
	assert.Equal(t, "plan-1", detail["planId"])
}

func TestPublishBatchChunksAtTen(t *testing.T) {
	client := &fakeEventBridge{}
	publisher := newTestPublisher(client)

	batch := make([]events.BusEvent, 25)
	for i := range batch {
		batch[i] = busEvent("acct")
	}
	require.NoError(t, publisher.PublishBatch(context.Background(), batch))

	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0].Entries, 10)
	assert.Len(t, client.calls[1].Entries, 10)
	assert.Len(t, client.calls[2].Entries, 5)
}

func TestPublishFailedEntriesSurfaceError(t *testing.T) {
	client := &fakeEventBridge{failEntries: 1}
	publisher := newTestPublisher(client)

	err := publisher.Publish(context.Background(), busEvent("acct-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish")
}

func TestPublishRetriesClientErrors(t *testing.T) {
	client := &fakeEventBridge{err: errors.New("throttled")}
	publisher := newTestPublisher(client)

	err := publisher.Publish(context.Background(), busEvent("acct-1"))
	require.Error(t, err)
	assert.Len(t, client.calls, 3)
}
