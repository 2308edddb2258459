package port

import (
	"context"

	"github.com/shopspring/decimal"

	"follow-exchange/internal/core/domain"
)

// ExchangeUseCase defines the business operations exposed by the exchange
// engine. This interface represents the primary port into the application
// domain. Every reward operation requires a proof from the verification gate.
type ExchangeUseCase interface {
	// EnsureAccount creates the user's account on first authentication and
	// returns the existing one afterwards.
	EnsureAccount(ctx context.Context, userID, email string) (*domain.Account, error)
	// GetAccount returns a read-only projection of the account.
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	// GetBalance returns the committed balance.
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	// History returns the most recent ledger entries of the user.
	History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)

	// CreateCampaign spends target*CostPerFollow points to ask target users
	// to follow url.
	CreateCampaign(ctx context.Context, ownerID, url string, target int) (*domain.Campaign, error)
	// ListOpenCampaigns returns campaigns the user can still complete,
	// oldest first.
	ListOpenCampaigns(ctx context.Context, userID string, limit int) ([]domain.Campaign, error)
	// ListOwnCampaigns returns the user's campaigns that still have budget.
	ListOwnCampaigns(ctx context.Context, ownerID string) ([]domain.Campaign, error)
	// GetCampaign returns one campaign regardless of its status.
	GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)
	// Completions returns the ids of users who completed the campaign, sorted.
	Completions(ctx context.Context, campaignID string) ([]string, error)
	// CompleteTask settles one completion of a campaign by userID.
	CompleteTask(ctx context.Context, userID, campaignID string, proof domain.Proof) (*Settlement, error)

	// WatchAd credits one ad impression within the daily cap.
	WatchAd(ctx context.Context, userID string, proof domain.Proof) (*domain.Account, error)
	// ClaimDailyBonus credits the once-per-day bonus.
	ClaimDailyBonus(ctx context.Context, userID string, proof domain.Proof) (*domain.Account, error)

	// MarkOnboardingItem marks one checklist item done, paying the onboarding
	// reward when it completes the checklist.
	MarkOnboardingItem(ctx context.Context, userID, itemID string, proof domain.Proof) (*OnboardingStatus, error)
	// ClaimOnboarding completes an account whose checklist is already done.
	ClaimOnboarding(ctx context.Context, userID string) (*OnboardingStatus, error)
}

// Settlement is the outcome of a successful CompleteTask.
type Settlement struct {
	CampaignID      string
	UserID          string
	Reward          decimal.Decimal
	Balance         decimal.Decimal
	BudgetRemaining int
	Exhausted       bool
}

// OnboardingStatus describes the checklist after an onboarding operation.
// Rewarded is true only for the call that completed the checklist.
type OnboardingStatus struct {
	Items    map[string]bool
	Complete bool
	Rewarded bool
	Balance  decimal.Decimal
}
