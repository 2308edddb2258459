package domain

import (
	"maps"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Account is a user's ledger record. It is created on first authentication
// and mutated only inside store transactions.
type Account struct {
	ID    string
	Email string
	// Balance is never negative after a committed transaction.
	Balance decimal.Decimal
	// ActiveCampaigns mirrors the number of owned campaigns with budget left.
	ActiveCampaigns    int
	Onboarding         map[string]bool
	OnboardingComplete bool
	Quota              DailyQuota
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DailyQuota holds the counters that reset at the start of each calendar day.
type DailyQuota struct {
	AdsWatched   int
	BonusClaimed bool
	// LastReset is the day the counters belong to. The zero value means never.
	LastReset civil.Date
}

// NewAccount returns a fresh account with zero balance and every onboarding
// item unset.
func NewAccount(id, email string, items []string, now time.Time) *Account {
	onboarding := make(map[string]bool, len(items))
	for _, item := range items {
		onboarding[item] = false
	}
	return &Account{
		ID:         id,
		Email:      email,
		Balance:    decimal.Zero,
		Onboarding: onboarding,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Adjust applies delta to the balance. It refuses to leave the balance
// negative and leaves the account untouched in that case.
func (a *Account) Adjust(delta decimal.Decimal) error {
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return ErrInsufficientBalance
	}
	a.Balance = next
	return nil
}

// Clone returns a deep copy so stores can hand out records without sharing
// the onboarding map.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Onboarding = maps.Clone(a.Onboarding)
	if c.Onboarding == nil {
		c.Onboarding = map[string]bool{}
	}
	return &c
}
