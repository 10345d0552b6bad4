package catalog

import "time"

// Currency is the billing currency of a plan. Together with the plan name it
// forms part of the plan's physical storage key, so changing either on an
// existing plan is a key migration, not an in-place update.
type Currency string

const (
	CurrencyCAD Currency = "CAD"
	CurrencyUSD Currency = "USD"
	CurrencyMXN Currency = "MXN"
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyCAD, CurrencyUSD, CurrencyMXN:
		return true
	}
	return false
}

// Plan is a priced offering of a product. The (productId, currency, name)
// triple is unique among live plans.
type Plan struct {
	PlanID       string     `json:"planId"`
	ProductID    string     `json:"productId"`
	Currency     Currency   `json:"currency"`
	Name         string     `json:"name"`
	Description  *string    `json:"description,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	StripePlanID *string    `json:"stripePlanId,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// EffectiveOn reports whether the plan's effective window contains date.
// An unset bound is open-ended on that side.
func (p *Plan) EffectiveOn(date time.Time) bool {
	if p.StartDate != nil && p.StartDate.After(date) {
		return false
	}
	if p.EndDate != nil && p.EndDate.Before(date) {
		return false
	}
	return true
}

type CreatePlanInput struct {
	ProductID    string
	Currency     Currency
	Name         string
	Description  *string
	StartDate    *time.Time
	EndDate      *time.Time
	StripePlanID *string
}

// ModifyPlanInput carries partial updates; nil fields are left untouched.
type ModifyPlanInput struct {
	PlanID       string
	Currency     *Currency
	Name         *string
	Description  *string
	StartDate    *time.Time
	EndDate      *time.Time
	StripePlanID *string
}
