package configs

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"follow-exchange/internal/core/domain"
)

// Ledger holds the economic constants of the exchange and the engine's retry
// and paging settings. Decimal values are parsed from their text form.
type Ledger struct {
	TaskReward         decimal.Decimal `env:"TASK_REWARD" envDefault:"1.0"`
	AdReward           decimal.Decimal `env:"AD_REWARD" envDefault:"0.5"`
	DailyAdCap         int             `env:"DAILY_AD_CAP" envDefault:"70"`
	OnboardingReward   decimal.Decimal `env:"ONBOARDING_REWARD" envDefault:"10"`
	DailyBonusReward   decimal.Decimal `env:"DAILY_BONUS_REWARD" envDefault:"2.5"`
	MinPostBalance     decimal.Decimal `env:"MIN_POST_BALANCE" envDefault:"21"`
	CostPerFollow      decimal.Decimal `env:"COST_PER_FOLLOW" envDefault:"1.5"`
	MaxActiveCampaigns int             `env:"MAX_ACTIVE_CAMPAIGNS" envDefault:"2"`
	MinTarget          int             `env:"MIN_TARGET" envDefault:"1"`
	MaxTarget          int             `env:"MAX_TARGET" envDefault:"1000"`
	// URLPattern overrides domain.DefaultProfileURL when set.
	URLPattern string `env:"URL_PATTERN"`
	// Timezone decides where calendar days start for the daily quota.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`

	RetryAttempts uint          `env:"RETRY_ATTEMPTS" envDefault:"5"`
	RetryDelay    time.Duration `env:"RETRY_DELAY" envDefault:"10ms"`
	ListLimit     int           `env:"LIST_LIMIT" envDefault:"20"`
	ListMaxLimit  int           `env:"LIST_MAX_LIMIT" envDefault:"100"`
}

// Rules validates the configuration and converts it into domain.Rules.
func (c Ledger) Rules() (domain.Rules, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("ledger timezone: %w", err)
	}
	pattern := c.URLPattern
	if pattern == "" {
		pattern = domain.DefaultProfileURL
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("ledger url pattern: %w", err)
	}
	if c.MinTarget < 1 || c.MaxTarget < c.MinTarget {
		return domain.Rules{}, fmt.Errorf("ledger target bounds [%d, %d] are invalid", c.MinTarget, c.MaxTarget)
	}
	for name, d := range map[string]decimal.Decimal{
		"task reward":        c.TaskReward,
		"ad reward":          c.AdReward,
		"onboarding reward":  c.OnboardingReward,
		"daily bonus reward": c.DailyBonusReward,
		"min post balance":   c.MinPostBalance,
		"cost per follow":    c.CostPerFollow,
	} {
		if d.IsNegative() {
			return domain.Rules{}, fmt.Errorf("ledger %s must not be negative", name)
		}
	}

	return domain.Rules{
		TaskReward:         c.TaskReward,
		AdReward:           c.AdReward,
		DailyAdCap:         c.DailyAdCap,
		OnboardingReward:   c.OnboardingReward,
		DailyBonusReward:   c.DailyBonusReward,
		MinPostBalance:     c.MinPostBalance,
		CostPerFollow:      c.CostPerFollow,
		MaxActiveCampaigns: c.MaxActiveCampaigns,
		MinTarget:          c.MinTarget,
		MaxTarget:          c.MaxTarget,
		ProfileURL:         re,
		Location:           loc,
	}, nil
}
