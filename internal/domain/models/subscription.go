package models

// Plan names a subscription tier.
type Plan string

const (
	PlanDemo       Plan = "demo"
	PlanMonthly    Plan = "monthly"
	PlanHalfYearly Plan = "half_yearly"
	PlanYearly     Plan = "yearly"
)

// Plans lists every tier in display order.
var Plans = []Plan{PlanDemo, PlanMonthly, PlanHalfYearly, PlanYearly}

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	for _, known := range Plans {
		if p == known {
			return true
		}
	}
	return false
}

// Subscription is the single plan record of an account. A nil EntryLimit means unlimited.
type Subscription struct {
	ID         string  `bson:"_id" json:"id"`
	UserID     string  `bson:"user_id" json:"userId"`
	Plan       Plan    `bson:"plan" json:"plan"`
	EntryLimit *int    `bson:"entry_limit" json:"entryLimit"`
	StartDate  string  `bson:"start_date" json:"startDate"`
	EndDate    *string `bson:"end_date" json:"endDate"`
}

// Account is the caller on whose behalf an operation runs. Its flags are resolved
// by the surrounding auth layer and passed in as plain data.
type Account struct {
	ID               string
	ExemptFromLimits bool
	IsAdmin          bool
	Subscription     *Subscription
}
