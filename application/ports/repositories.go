// Package ports declares the contracts between the storage engine and its
// callers. One call per logical operation; absent entities come back as
// (nil, nil), failures as typed errors from pkg/errors.
package ports

import (
	"context"
	"time"

	"catalog-backend/domain/catalog"
	"catalog-backend/domain/events"
)

// ProductRepository owns product entities and their entitlement maps.
type ProductRepository interface {
	CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.Product, error)
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	UpdateProduct(ctx context.Context, input catalog.ModifyProductInput) (*catalog.Product, error)
	// DeleteProduct is idempotent: deleting an absent product returns
	// (nil, nil).
	DeleteProduct(ctx context.Context, productID string) (*catalog.Product, error)
}

// ListPlansFilter narrows ListPlans. All fields are optional; EffectiveDate
// is applied client-side after the store's result limit.
type ListPlansFilter struct {
	ProductID     *string
	Currency      *catalog.Currency
	EffectiveDate *time.Time
}

// PlanRepository owns plan entities. Plans are addressed by planId even
// though their physical key embeds currency and name.
type PlanRepository interface {
	CreatePlan(ctx context.Context, input catalog.CreatePlanInput) (*catalog.Plan, error)
	GetPlan(ctx context.Context, planID string) (*catalog.Plan, error)
	ListPlans(ctx context.Context, filter ListPlansFilter) ([]catalog.Plan, error)
	UpdatePlan(ctx context.Context, input catalog.ModifyPlanInput) (*catalog.Plan, error)
	DeletePlan(ctx context.Context, planID string) (*catalog.Plan, error)
}

// ResourceRepository owns metering resources.
type ResourceRepository interface {
	CreateResource(ctx context.Context, input catalog.CreateResourceInput) (*catalog.Resource, error)
	GetResource(ctx context.Context, resourceID string) (*catalog.Resource, error)
	// ListResources scans a secondary index; callers should treat it as
	// expensive and resource data as slow-changing.
	ListResources(ctx context.Context) ([]catalog.Resource, error)
	UpdateResource(ctx context.Context, input catalog.ModifyResourceInput) (*catalog.Resource, error)
	DeleteResource(ctx context.Context, resourceID string) (*catalog.Resource, error)
}

// SubscriptionRepository owns account subscriptions. Writes against the
// backing table feed the change stream consumed by the event publisher.
type SubscriptionRepository interface {
	PutSubscription(ctx context.Context, input catalog.PutSubscriptionInput) (*catalog.Subscription, error)
	GetSubscription(ctx context.Context, key catalog.SubscriptionKey) (*catalog.Subscription, error)
	DeleteSubscription(ctx context.Context, key catalog.SubscriptionKey) (*catalog.Subscription, error)
	// Listings take a result limit; 0 means the store default.
	ListSubscriptionsByAccount(ctx context.Context, accountID string, limit int32) ([]catalog.Subscription, error)
	ListSubscriptionsByPlan(ctx context.Context, planID string, limit int32) ([]catalog.Subscription, error)
}

// EventBus publishes normalized domain events to the external bus.
type EventBus interface {
	Publish(ctx context.Context, event events.BusEvent) error
	PublishBatch(ctx context.Context, batch []events.BusEvent) error
}

// DeadLetterSink receives change records that exhausted their publish
// retries.
type DeadLetterSink interface {
	Send(ctx context.Context, change events.SubscriptionChange, cause error) error
}
