package dynamodb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-backend/domain/catalog"
)

func newTestSubscriptionRepo(t *testing.T) *SubscriptionRepository {
	t.Helper()
	subscriptions := NewSubscriptionRepository(newFakeStore(), testSubscriptionsTable, testPlanIndex, zap.NewNop())
	subscriptions.now = fixedNow
	return subscriptions
}

func TestPutSubscriptionRoundTrip(t *testing.T) {
	subscriptions := newTestSubscriptionRepo(t)
	ctx := context.Background()

	expires := fixedNow().Add(30 * 24 * time.Hour)
	created, err := subscriptions.PutSubscription(ctx, catalog.PutSubscriptionInput{
		AccountID:            "acct-1",
		PlanID:               "plan-1",
		ExpiresAt:            &expires,
		StripeSubscriptionID: strPtr("sub_123"),
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow(), created.CreatedAt)

	got, err := subscriptions.GetSubscription(ctx, catalog.SubscriptionKey{AccountID: "acct-1", PlanID: "plan-1"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created, got)
}

func TestPutSubscriptionPreservesCreatedAt(t *testing.T) {
	subscriptions := newTestSubscriptionRepo(t)
	ctx := context.Background()

	first, err := subscriptions.PutSubscription(ctx, catalog.PutSubscriptionInput{
		AccountID: "acct-1",
		PlanID:    "plan-1",
	})
	require.NoError(t, err)

	// a later re-put keeps the original creation time
	subscriptions.now = func() time.Time { return fixedNow().Add(time.Hour) }
	second, err := subscriptions.PutSubscription(ctx, catalog.PutSubscriptionInput{
		AccountID:            "acct-1",
		PlanID:               "plan-1",
		StripeSubscriptionID: strPtr("sub_999"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "sub_999", *second.StripeSubscriptionID)
}

func TestGetSubscriptionAbsentReturnsNil(t *testing.T) {
	subscriptions := newTestSubscriptionRepo(t)

	got, err := subscriptions.GetSubscription(context.Background(), catalog.SubscriptionKey{AccountID: "a", PlanID: "p"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteSubscriptionIdempotent(t *testing.T) {
	subscriptions := newTestSubscriptionRepo(t)
	ctx := context.Background()
	key := catalog.SubscriptionKey{AccountID: "acct-1", PlanID: "plan-1"}

	_, err := subscriptions.PutSubscription(ctx, catalog.PutSubscriptionInput{
		AccountID: key.AccountID,
		PlanID:    key.PlanID,
	})
	require.NoError(t, err)

	deleted, err := subscriptions.DeleteSubscription(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "acct-1", deleted.AccountID)

	again, err := subscriptions.DeleteSubscription(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestListSubscriptionsByAccount(t *testing.T) {
	subscriptions := newTestSubscriptionRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := subscriptions.PutSubscription(ctx, catalog.PutSubscriptionInput{
			AccountID: "acct-1",
			PlanID:    fmt.Sprintf("plan-%d", i),
		})
		require.NoError(t, err)
	}
	_, err := subscriptions.PutSubscription(ctx, catalog.PutSubscriptionInput{
		AccountID: "acct-2",
		PlanID:    "plan-0",
	})
	require.NoError(t, err)

	listed, err := subscriptions.ListSubscriptionsByAccount(ctx, "acct-1", 0)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	limited, err := subscriptions.ListSubscriptionsByAccount(ctx, "acct-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListSubscriptionsByPlan(t *testing.T) {
	subscriptions := newTestSubscriptionRepo(t)
	ctx := context.Background()

	for _, accountID := range []string{"acct-1", "acct-2", "acct-3"} {
		_, err := subscriptions.PutSubscription(ctx, catalog.PutSubscriptionInput{
			AccountID: accountID,
			PlanID:    "plan-1",
		})
		require.NoError(t, err)
	}

	listed, err := subscriptions.ListSubscriptionsByPlan(ctx, "plan-1", 0)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	limited, err := subscriptions.ListSubscriptionsByPlan(ctx, "plan-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
