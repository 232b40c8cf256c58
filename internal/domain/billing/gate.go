package billing

import (
	"fmt"
	"time"

	"github.com/mamadbah2/milkman/internal/domain/models"
)

const (
	// DemoEntryLimit applies to accounts without a subscription record.
	DemoEntryLimit = 3
	// ReasonLimitReached explains a denied entry.
	ReasonLimitReached = "demo limit reached"
)

// Decision is the outcome of asking whether a new entry may be recorded. A nil Limit
// means unlimited. Denial is a normal outcome, not an error.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Used      int    `json:"used"`
	Limit     *int   `json:"limit"`
	Remaining *int   `json:"remaining"`
}

// EffectiveLimit resolves the entry limit of an account; nil means unlimited.
func EffectiveLimit(account models.Account) *int {
	if account.ExemptFromLimits {
		return nil
	}
	if account.Subscription == nil {
		limit := DemoEntryLimit
		return &limit
	}
	if account.Subscription.EntryLimit == nil {
		return nil
	}
	limit := *account.Subscription.EntryLimit
	return &limit
}

// CanRecordEntry decides whether account may add one more entry given how many it
// already has. The check shapes product behaviour only; it is not a security boundary.
func CanRecordEntry(account models.Account, currentEntryCount int) Decision {
	decision := Decision{Used: currentEntryCount}

	limit := EffectiveLimit(account)
	if limit == nil {
		decision.Allowed = true
		return decision
	}

	remaining := *limit - currentEntryCount
	if remaining < 0 {
		remaining = 0
	}
	decision.Limit = limit
	decision.Remaining = &remaining

	if currentEntryCount >= *limit {
		decision.Reason = ReasonLimitReached
		return decision
	}
	decision.Allowed = true
	return decision
}

// PlanConfig describes a subscription tier. A nil EntryLimit means unlimited.
type PlanConfig struct {
	Plan           models.Plan `json:"plan"`
	Label          string      `json:"label"`
	DurationMonths int         `json:"durationMonths"`
	EntryLimit     *int        `json:"entryLimit"`
}

func limitOf(n int) *int { return &n }

var planTable = map[models.Plan]PlanConfig{
	models.PlanDemo:       {Plan: models.PlanDemo, Label: "Demo", DurationMonths: 0, EntryLimit: limitOf(DemoEntryLimit)},
	models.PlanMonthly:    {Plan: models.PlanMonthly, Label: "Monthly - ₹99", DurationMonths: 1},
	models.PlanHalfYearly: {Plan: models.PlanHalfYearly, Label: "6 Months - ₹549", DurationMonths: 6},
	models.PlanYearly:     {Plan: models.PlanYearly, Label: "12 Months - ₹1049", DurationMonths: 12},
}

// PlanConfigFor looks plan up in the static plan table.
func PlanConfigFor(plan models.Plan) (PlanConfig, error) {
	cfg, ok := planTable[plan]
	if !ok {
		return PlanConfig{}, NewValidationError("plan", fmt.Sprintf("unknown plan %q", plan))
	}
	if cfg.EntryLimit != nil {
		cfg.EntryLimit = limitOf(*cfg.EntryLimit)
	}
	return cfg, nil
}

// PlanConfigs lists every plan in display order.
func PlanConfigs() []PlanConfig {
	out := make([]PlanConfig, 0, len(models.Plans))
	for _, plan := range models.Plans {
		cfg, _ := PlanConfigFor(plan)
		out = append(out, cfg)
	}
	return out
}

// PlanPeriod is the validity window of a plan. A nil EndDate never expires.
type PlanPeriod struct {
	StartDate time.Time
	EndDate   *time.Time
}

// ApplyPlanChange computes the period of plan starting at effectiveDate.
func ApplyPlanChange(plan models.Plan, effectiveDate time.Time) (PlanPeriod, error) {
	cfg, err := PlanConfigFor(plan)
	if err != nil {
		return PlanPeriod{}, err
	}

	period := PlanPeriod{StartDate: effectiveDate}
	if cfg.DurationMonths == 0 {
		return period, nil
	}

	end := AddMonths(effectiveDate, cfg.DurationMonths)
	period.EndDate = &end
	return period, nil
}
