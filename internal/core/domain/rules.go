package domain

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Rules holds the economic constants of the exchange. Deployments disagree on
// the exact figures, so every value is configurable; DefaultRules returns the
// canonical set.
type Rules struct {
	TaskReward         decimal.Decimal
	AdReward           decimal.Decimal
	DailyAdCap         int
	OnboardingReward   decimal.Decimal
	DailyBonusReward   decimal.Decimal
	MinPostBalance     decimal.Decimal
	CostPerFollow      decimal.Decimal
	MaxActiveCampaigns int
	MinTarget          int
	MaxTarget          int
	// ProfileURL is the pattern a campaign target must match.
	ProfileURL *regexp.Regexp
	// Location decides where calendar days start for the daily quota.
	Location *time.Location
}

// DefaultProfileURL matches profile links on the supported platform.
const DefaultProfileURL = `^https://base\.app/profile/[a-zA-Z0-9_]+$`

// DefaultRules returns the canonical rule set.
func DefaultRules() Rules {
	return Rules{
		TaskReward:         decimal.NewFromInt(1),
		AdReward:           decimal.RequireFromString("0.5"),
		DailyAdCap:         70,
		OnboardingReward:   decimal.NewFromInt(10),
		DailyBonusReward:   decimal.RequireFromString("2.5"),
		MinPostBalance:     decimal.NewFromInt(21),
		CostPerFollow:      decimal.RequireFromString("1.5"),
		MaxActiveCampaigns: 2,
		MinTarget:          1,
		MaxTarget:          1000,
		ProfileURL:         regexp.MustCompile(DefaultProfileURL),
		Location:           time.UTC,
	}
}

// CampaignCost returns the price of target follow actions.
func (r Rules) CampaignCost(target int) decimal.Decimal {
	return r.CostPerFollow.Mul(decimal.NewFromInt(int64(target)))
}
