package catalog

import "time"

// MeteringType describes how usage of a resource is measured.
type MeteringType string

const (
	// MeteringBoolean resources are either on or off.
	MeteringBoolean MeteringType = "boolean"
	// MeteringMaximum resources meter against a numeric ceiling.
	MeteringMaximum MeteringType = "maximum"
)

// Valid reports whether m is a supported metering type.
func (m MeteringType) Valid() bool {
	return m == MeteringBoolean || m == MeteringMaximum
}

// Resource is a meterable capability that product entitlements reference.
// Resources have an independent lifecycle: deleting one does not cascade to
// products that reference it.
type Resource struct {
	ResourceID   string       `json:"resourceId"`
	Name         string       `json:"name"`
	Description  *string      `json:"description,omitempty"`
	MeteringType MeteringType `json:"meteringType"`
	DefaultValue int64        `json:"defaultValue"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// CreateResourceInput creates a resource. ResourceID is generated when nil;
// either way it is immutable afterwards.
type CreateResourceInput struct {
	ResourceID   *string
	Name         string
	Description  *string
	MeteringType MeteringType
	DefaultValue int64
}

type ModifyResourceInput struct {
	ResourceID   string
	Name         *string
	Description  *string
	MeteringType *MeteringType
	DefaultValue *int64
}
