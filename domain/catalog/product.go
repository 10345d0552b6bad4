package catalog

import "time"

// Entitlement grants a product a metered amount of a resource. The map key
// on Product is the resourceId being granted.
type Entitlement struct {
	Value      float64 `json:"value"`
	Cumulative bool    `json:"cumulative"`
}

// Product is the top-level catalog entity. Entitlements are owned by the
// product and replaced wholesale on write.
type Product struct {
	ProductID       string                 `json:"productId"`
	Name            string                 `json:"name"`
	Description     *string                `json:"description,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	Entitlements    map[string]Entitlement `json:"entitlements,omitempty"`
	StripeProductID *string                `json:"stripeProductId,omitempty"`
}

type CreateProductInput struct {
	Name            string
	Description     *string
	Entitlements    map[string]Entitlement
	StripeProductID *string
}

// ModifyProductInput carries partial updates; nil fields are left untouched.
// The three entitlement directives compose: Entitlements replaces the whole
// map, AddEntitlements merges keys on top, RemoveEntitlements deletes keys.
// They are applied in that order.
type ModifyProductInput struct {
	ProductID          string
	Name               *string
	Description        *string
	StripeProductID    *string
	Entitlements       map[string]Entitlement
	AddEntitlements    map[string]Entitlement
	RemoveEntitlements []string
}
