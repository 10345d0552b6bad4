package catalog

import "time"

// Subscription binds an account to a plan. Identity is the (accountId,
// planId) pair; an account may hold many subscriptions to different plans.
type Subscription struct {
	AccountID            string     `json:"accountId"`
	PlanID               string     `json:"planId"`
	CreatedAt            time.Time  `json:"createdAt"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	StripeSubscriptionID *string    `json:"stripeSubscriptionId,omitempty"`
}

// SubscriptionKey is the composite identity of a subscription.
type SubscriptionKey struct {
	AccountID string
	PlanID    string
}

// PutSubscriptionInput upserts a subscription. Re-putting an existing pair
// overwrites everything except createdAt.
type PutSubscriptionInput struct {
	AccountID            string
	PlanID               string
	ExpiresAt            *time.Time
	StripeSubscriptionID *string
}
