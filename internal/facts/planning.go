package facts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalambet/moara/internal/normalize"
	"github.com/kalambet/moara/internal/records"
)

// Plan is the monthly contribution needed to reach a goal.
type Plan struct {
	Goal            records.Goal    `json:"goal"`
	Months          int             `json:"months"`
	MonthlyRequired decimal.Decimal `json:"monthly_required"`
	PercentOfIncome decimal.Decimal `json:"percent_of_income"`
	IncomeKnown     bool            `json:"income_known"`
	RiskProfile     string          `json:"risk_profile"`
	NoData          bool            `json:"no_data"`
	Sources         []string        `json:"sources"`
}

// MonthsBetween counts calendar months from ref to target, ignoring days.
// It is zero or negative when target is in the same month or the past.
func MonthsBetween(ref, target time.Time) int {
	return (target.Year()-ref.Year())*12 + int(target.Month()) - int(ref.Month())
}

// GoalPlan divides the goal amount evenly over the months left until its
// deadline. A deadline in the current month or earlier yields NoData.
func GoalPlan(profile records.Profile, goal records.Goal, ref time.Time) Plan {
	p := Plan{
		Goal:        goal,
		RiskProfile: profile.RiskProfile,
		Sources:     []string{SourceGoal},
	}
	p.Months = MonthsBetween(ref, goal.TargetDate)
	if p.Months <= 0 {
		p.NoData = true
		return p
	}

	p.MonthlyRequired = goal.TargetAmount.Div(decimal.NewFromInt(int64(p.Months)))
	if profile.MonthlyIncome.IsPositive() {
		p.IncomeKnown = true
		p.PercentOfIncome = p.MonthlyRequired.Div(profile.MonthlyIncome).Mul(hundred)
	}
	return p
}

// Suitability is the catalog filtered by the profile's allowed risk tiers.
type Suitability struct {
	RiskProfile string             `json:"risk_profile"`
	AcceptsRisk bool               `json:"accepts_risk"`
	Allowed     []records.RiskTier `json:"allowed"`
	Products    []records.Product  `json:"products"`
	Sources     []string           `json:"sources"`
}

// AllowedRisk maps an investor profile to the risk tiers it may hold.
// Unknown profiles are treated as conservative.
func AllowedRisk(profile records.Profile) []records.RiskTier {
	switch normalize.Fold(profile.RiskProfile) {
	case records.ProfileAggressive:
		return []records.RiskTier{records.RiskLow, records.RiskMedium, records.RiskHigh}
	case records.ProfileModerate:
		if profile.AcceptsRisk {
			return []records.RiskTier{records.RiskLow, records.RiskMedium}
		}
		return []records.RiskTier{records.RiskLow}
	default:
		return []records.RiskTier{records.RiskLow}
	}
}

// SuitableProducts keeps the catalog entries whose risk tier is allowed for
// the profile, in catalog order. An empty result is returned as is.
func SuitableProducts(profile records.Profile, catalog []records.Product) Suitability {
	s := Suitability{
		RiskProfile: profile.RiskProfile,
		AcceptsRisk: profile.AcceptsRisk,
		Allowed:     AllowedRisk(profile),
		Sources:     []string{SourceProfile, SourceProducts},
	}
	allowed := make(map[records.RiskTier]bool, len(s.Allowed))
	for _, r := range s.Allowed {
		allowed[r] = true
	}
	for _, p := range catalog {
		if allowed[p.Risk] {
			s.Products = append(s.Products, p)
		}
	}
	return s
}
