package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind names the economic event that produced a ledger entry.
type EntryKind string

const (
	EntryCampaignDebit    EntryKind = "campaign_debit"
	EntryTaskReward       EntryKind = "task_reward"
	EntryAdReward         EntryKind = "ad_reward"
	EntryOnboardingReward EntryKind = "onboarding_reward"
	EntryDailyBonus       EntryKind = "daily_bonus"
	// EntryAdjustment is an operator grant outside the points economy, such
	// as demo seeding.
	EntryAdjustment EntryKind = "adjustment"
)

// LedgerEntry records one balance adjustment. It is written in the same
// transaction as the adjustment itself.
type LedgerEntry struct {
	ID     string
	UserID string
	Kind   EntryKind
	// Amount is signed: debits are negative.
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	// Ref points at the campaign or onboarding item involved, if any.
	Ref       string
	CreatedAt time.Time
}
