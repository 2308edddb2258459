package port

import (
	"context"
	"time"

	"follow-exchange/internal/core/domain"
)

// Store is the persistence layer for the ledger. It is an outbound port in
// hexagonal architecture. Implementations must give RunInTx serializable
// isolation: the body either commits entirely or has no visible effect.
type Store interface {
	// RunInTx executes fn inside a single atomic transaction. When a
	// concurrent writer invalidates the transaction, RunInTx returns an error
	// wrapping domain.ErrConflict and nothing is committed. Errors returned by
	// fn abort the transaction and are returned unchanged.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// GetAccount reads the committed account outside any transaction.
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	// GetCampaign reads the committed campaign outside any transaction.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	// ListOpenCampaigns returns active campaigns with budget left, not owned
	// by q.ExcludeOwnerID and not yet completed by q.ExcludeCompletedBy,
	// oldest first, at most q.Limit of them.
	ListOpenCampaigns(ctx context.Context, q domain.OpenCampaignsQuery) ([]domain.Campaign, error)
	// ListOwnedCampaigns returns the owner's active campaigns, newest first.
	ListOwnedCampaigns(ctx context.Context, ownerID string) ([]domain.Campaign, error)
	// Completions returns the sorted set of users who completed a campaign.
	Completions(ctx context.Context, campaignID string) ([]string, error)
	// History returns the newest ledger entries of a user.
	History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
}

// Tx exposes record level operations valid only inside RunInTx. Records
// returned by Tx are private copies; changes become visible to other
// transactions only after the enclosing RunInTx commits.
type Tx interface {
	// GetAccount returns domain.ErrAccountNotFound when the user has none.
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	// CreateAccount inserts a new account. It is a no-op when one exists.
	CreateAccount(ctx context.Context, acc *domain.Account) error
	UpdateAccount(ctx context.Context, acc *domain.Account) error

	// GetCampaign returns domain.ErrCampaignNotFound when absent.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	InsertCampaign(ctx context.Context, c *domain.Campaign) error
	UpdateCampaign(ctx context.Context, c *domain.Campaign) error

	// HasCompleted reports whether userID is in the campaign's completion set.
	HasCompleted(ctx context.Context, campaignID, userID string) (bool, error)
	// AddCompletion adds userID to the completion set. Adding a member
	// twice fails with domain.ErrAlreadyCompleted.
	AddCompletion(ctx context.Context, campaignID, userID string, at time.Time) error

	AppendLedger(ctx context.Context, e domain.LedgerEntry) error
}
