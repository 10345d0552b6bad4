// Package events models the change records emitted by the subscription
// table's stream and the normalized events republished to the bus.
package events

import (
	"time"

	"catalog-backend/domain/catalog"
)

// Event bus wire constants. Downstream consumers match on these; they are a
// compatibility surface and must not change.
const (
	SourceCatalog          = "catalog"
	DetailTypeSubscription = "Subscription"
)

// ChangeKind is the mutation kind reported by the table stream.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeModify ChangeKind = "MODIFY"
	ChangeRemove ChangeKind = "REMOVE"
)

// SubscriptionChange is one ordered, at-least-once record from the
// subscription table's change stream.
type SubscriptionChange struct {
	Kind ChangeKind            `json:"kind"`
	Time time.Time             `json:"time"`
	Old  *catalog.Subscription `json:"old,omitempty"`
	New  *catalog.Subscription `json:"new,omitempty"`
}

// Image returns the subscription state to publish for this change: the
// after-image, or the before-image for removals.
func (c *SubscriptionChange) Image() *catalog.Subscription {
	if c.Kind == ChangeRemove {
		return c.Old
	}
	return c.New
}

// BusEvent is one outbound message for the external event bus. Detail is
// JSON-serialized as-is into the entry's detail field.
type BusEvent struct {
	Time       time.Time
	DetailType string
	Detail     interface{}
}
