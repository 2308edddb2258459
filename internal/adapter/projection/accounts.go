// Package projection serves read-only account views from a cache that is
// invalidated by committed account events. Nothing read here may feed a
// write decision.
package projection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"follow-exchange/internal/adapter/cache"
	"follow-exchange/internal/adapter/events"
	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
)

const keyPrefix = "account:"

// Source loads the committed account on a cache miss.
type Source interface {
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
}

// Accounts is a cache-through account reader.
type Accounts struct {
	source Source
	cache  port.Cache
	ttl    time.Duration
	logger *slog.Logger

	// mu orders cache fills against invalidations; gen counts
	// invalidations so a fill that raced one is dropped.
	mu  sync.Mutex
	gen uint64

	unsubscribe func()
}

// NewAccounts creates the projection and, if bus is not nil, subscribes it to
// account changes.
func NewAccounts(source Source, c port.Cache, ttl time.Duration, bus *events.Manager, logger *slog.Logger) *Accounts {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Accounts{
		source: source,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
	if bus != nil {
		a.unsubscribe = bus.Subscribe(events.EventAccountChanged, a.handleAccountChanged)
	}
	return a
}

// Account returns the cached view of userID, loading it from the source on
// a miss. Cache failures degrade to a direct read.
func (a *Accounts) Account(ctx context.Context, userID string) (*domain.Account, error) {
	var v view
	err := cache.GetJSON(ctx, a.cache, keyPrefix+userID, &v)
	if err == nil {
		return v.account(), nil
	}
	if !errors.Is(err, port.ErrCacheMiss) {
		a.logger.Warn("account projection read failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}

	gen := a.generation()
	acc, err := a.source.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.store(ctx, acc, gen)
	return acc, nil
}

// Invalidate drops the cached view of userID. Reads that started before
// the call do not repopulate the cache.
func (a *Accounts) Invalidate(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.gen++
	return a.cache.Delete(ctx, keyPrefix+userID)
}

func (a *Accounts) generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

// Close detaches the projection from the event bus.
func (a *Accounts) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

func (a *Accounts) store(ctx context.Context, acc *domain.Account, gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gen != gen {
		a.logger.Debug("account projection fill skipped", slog.String("user_id", acc.ID))
		return
	}
	if err := cache.SetJSON(ctx, a.cache, keyPrefix+acc.ID, newView(acc), a.ttl); err != nil {
		a.logger.Warn("account projection write failed",
			slog.String("user_id", acc.ID),
			slog.Any("error", err))
	}
}

func (a *Accounts) handleAccountChanged(ctx context.Context, e events.Event) error {
	data, ok := e.Data.(events.AccountChangedData)
	if !ok {
		return nil
	}
	return a.Invalidate(ctx, data.Account.ID)
}

// view is the cached form of an account.
type view struct {
	ID                 string          `json:"id"`
	Email              string          `json:"email"`
	Balance            decimal.Decimal `json:"balance"`
	ActiveCampaigns    int             `json:"active_campaigns"`
	Onboarding         map[string]bool `json:"onboarding"`
	OnboardingComplete bool            `json:"onboarding_complete"`
	AdsWatched         int             `json:"ads_watched"`
	BonusClaimed       bool            `json:"bonus_claimed"`
	LastReset          string          `json:"last_reset,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func newView(acc *domain.Account) view {
	v := view{
		ID:                 acc.ID,
		Email:              acc.Email,
		Balance:            acc.Balance,
		ActiveCampaigns:    acc.ActiveCampaigns,
		Onboarding:         acc.Onboarding,
		OnboardingComplete: acc.OnboardingComplete,
		AdsWatched:         acc.Quota.AdsWatched,
		BonusClaimed:       acc.Quota.BonusClaimed,
		CreatedAt:          acc.CreatedAt,
		UpdatedAt:          acc.UpdatedAt,
	}
	if !acc.Quota.LastReset.IsZero() {
		v.LastReset = acc.Quota.LastReset.String()
	}
	return v
}

func (v view) account() *domain.Account {
	onboarding := v.Onboarding
	if onboarding == nil {
		onboarding = map[string]bool{}
	}
	// An unparsable day reads as never reset, which only zeroes the counters.
	lastReset, _ := civil.ParseDate(v.LastReset)
	return &domain.Account{
		ID:                 v.ID,
		Email:              v.Email,
		Balance:            v.Balance,
		ActiveCampaigns:    v.ActiveCampaigns,
		Onboarding:         onboarding,
		OnboardingComplete: v.OnboardingComplete,
		Quota: domain.DailyQuota{
			AdsWatched:   v.AdsWatched,
			BonusClaimed: v.BonusClaimed,
			LastReset:    lastReset,
		},
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}
