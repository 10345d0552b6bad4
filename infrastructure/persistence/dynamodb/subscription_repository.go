package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

// subscriptionItem is a row of the subscriptions table, keyed by
// (accountId, planId) with planId doubling as the PlanIndex hash key.
type subscriptionItem struct {
	AccountID            string `dynamodbav:"accountId"`
	PlanID               string `dynamodbav:"planId"`
	CreatedAt            string `dynamodbav:"createdAt"`
	ExpiresAt            string `dynamodbav:"expiresAt,omitempty"`
	StripeSubscriptionID string `dynamodbav:"stripeSubscriptionId,omitempty"`
}

func (it *subscriptionItem) toSubscription() (*catalog.Subscription, error) {
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return nil, err
	}
	expiresAt, err := parseOptTime(it.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &catalog.Subscription{
		AccountID:            it.AccountID,
		PlanID:               it.PlanID,
		CreatedAt:            createdAt,
		ExpiresAt:            expiresAt,
		StripeSubscriptionID: optString(it.StripeSubscriptionID),
	}, nil
}

// UnmarshalSubscription decodes a raw subscription row. The stream
// consumer uses it on the before/after images carried by change records so
// that both paths share one codec.
func UnmarshalSubscription(raw Item) (*catalog.Subscription, error) {
	var item subscriptionItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal subscription").WithCause(err)
	}
	return item.toSubscription()
}

// SubscriptionRepository implements ports.SubscriptionRepository on the
// subscriptions table. Mutations on that table feed the change stream the
// event publisher consumes.
type SubscriptionRepository struct {
	store     Store
	table     string
	planIndex string
	logger    *zap.Logger
	now       nowFunc
}

// NewSubscriptionRepository creates a subscription repository.
func NewSubscriptionRepository(store Store, table, planIndex string, logger *zap.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{
		store:     store,
		table:     table,
		planIndex: planIndex,
		logger:    logger,
		now:       defaultNow,
	}
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)

// PutSubscription is an idempotent upsert: re-putting an existing
// (accountId, planId) pair overwrites the row, keeping its original
// createdAt.
func (r *SubscriptionRepository) PutSubscription(ctx context.Context, input catalog.PutSubscriptionInput) (*catalog.Subscription, error) {
	existing, err := r.GetSubscription(ctx, catalog.SubscriptionKey{
		AccountID: input.AccountID,
		PlanID:    input.PlanID,
	})
	if err != nil {
		return nil, err
	}

	createdAt := r.now()
	if existing != nil {
		createdAt = existing.CreatedAt
	}

	item := subscriptionItem{
		AccountID:            input.AccountID,
		PlanID:               input.PlanID,
		CreatedAt:            formatTime(createdAt),
		ExpiresAt:            formatOptTime(input.ExpiresAt),
		StripeSubscriptionID: stringValue(input.StripeSubscriptionID),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal subscription").WithCause(err)
	}
	if err := r.store.Put(ctx, PutInput{Table: r.table, Item: av}); err != nil {
		r.logger.Error("Failed to put subscription",
			zap.String("accountId", input.AccountID),
			zap.String("planId", input.PlanID),
			zap.Error(err),
		)
		return nil, err
	}
	return item.toSubscription()
}

// GetSubscription returns the subscription, or nil when absent.
func (r *SubscriptionRepository) GetSubscription(ctx context.Context, key catalog.SubscriptionKey) (*catalog.Subscription, error) {
	raw, err := r.store.Get(ctx, r.table, subscriptionKey(key))
	if err != nil {
		r.logger.Error("Failed to get subscription",
			zap.String("accountId", key.AccountID),
			zap.String("planId", key.PlanID),
			zap.Error(err),
		)
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return UnmarshalSubscription(raw)
}

// DeleteSubscription removes the subscription; deleting an absent pair is
// a no-op returning nil.
func (r *SubscriptionRepository) DeleteSubscription(ctx context.Context, key catalog.SubscriptionKey) (*catalog.Subscription, error) {
	existing, err := r.GetSubscription(ctx, key)
	if err != nil || existing == nil {
		return nil, err
	}

	if err := r.store.Delete(ctx, r.table, subscriptionKey(key)); err != nil {
		r.logger.Error("Failed to delete subscription",
			zap.String("accountId", key.AccountID),
			zap.String("planId", key.PlanID),
			zap.Error(err),
		)
		return nil, err
	}
	return existing, nil
}

// ListSubscriptionsByAccount queries the account's partition.
func (r *SubscriptionRepository) ListSubscriptionsByAccount(ctx context.Context, accountID string, limit int32) ([]catalog.Subscription, error) {
	items, err := r.store.Query(ctx, QueryInput{
		Table:    r.table,
		KeyAttr:  attrAccountID,
		KeyValue: accountID,
		Limit:    limit,
	})
	if err != nil {
		r.logger.Error("Failed to list subscriptions by account", zap.String("accountId", accountID), zap.Error(err))
		return nil, err
	}
	return r.toSubscriptions(items)
}

// ListSubscriptionsByPlan queries the PlanIndex.
func (r *SubscriptionRepository) ListSubscriptionsByPlan(ctx context.Context, planID string, limit int32) ([]catalog.Subscription, error) {
	items, err := r.store.Query(ctx, QueryInput{
		Table:    r.table,
		Index:    r.planIndex,
		KeyAttr:  attrPlanID,
		KeyValue: planID,
		Limit:    limit,
	})
	if err != nil {
		r.logger.Error("Failed to list subscriptions by plan", zap.String("planId", planID), zap.Error(err))
		return nil, err
	}
	return r.toSubscriptions(items)
}

func (r *SubscriptionRepository) toSubscriptions(items []Item) ([]catalog.Subscription, error) {
	subscriptions := make([]catalog.Subscription, 0, len(items))
	for _, raw := range items {
		subscription, err := UnmarshalSubscription(raw)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, *subscription)
	}
	return subscriptions, nil
}
