package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"follow-exchange/internal/adapter/cache"
	"follow-exchange/internal/adapter/events"
	"follow-exchange/internal/adapter/gate"
	"follow-exchange/internal/adapter/memory"
	"follow-exchange/internal/adapter/projection"
	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
	"follow-exchange/internal/core/port/mocks"
)

const profile = "https://base.app/profile/alice_1"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func allowAll(t *testing.T) *mocks.MockVerifier {
	v := mocks.NewMockVerifier(t)
	v.EXPECT().
		Verify(mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).
		Maybe()
	v.EXPECT().
		Restore(mock.Anything, mock.Anything).
		Return(nil).
		Maybe()
	return v
}

func newEngine(t *testing.T, opts ...Option) (*ExchangeUseCase, *memory.Store) {
	t.Helper()
	store := memory.New()
	opts = append([]Option{WithRetry(RetryPolicy{Attempts: 50})}, opts...)
	return NewExchangeUseCase(store, allowAll(t), opts...), store
}

func fund(t *testing.T, store port.Store, userID string, amount int64) {
	t.Helper()
	err := store.RunInTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		acc, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		acc.Balance = decimal.NewFromInt(amount)
		return tx.UpdateAccount(ctx, acc)
	})
	require.NoError(t, err)
}

func balance(t *testing.T, u *ExchangeUseCase, userID string) decimal.Decimal {
	t.Helper()
	b, err := u.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func requireBalance(t *testing.T, u *ExchangeUseCase, userID, want string) {
	t.Helper()
	got := balance(t, u, userID)
	require.Truef(t, got.Equal(decimal.RequireFromString(want)), "balance of %s: want %s, got %s", userID, want, got)
}

func ensure(t *testing.T, u *ExchangeUseCase, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := u.EnsureAccount(context.Background(), id, id+"@example.com")
		require.NoError(t, err)
	}
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	u, store := newEngine(t)
	ctx := context.Background()

	acc, err := u.EnsureAccount(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
	assert.Len(t, acc.Onboarding, 4)

	fund(t, store, "alice", 7)
	again, err := u.EnsureAccount(ctx, "alice", "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", again.Email)
	requireBalance(t, u, "alice", "7")

	_, err = u.EnsureAccount(ctx, "  ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)
}

func TestCampaignLifecycle(t *testing.T) {
	u, store := newEngine(t)
	ctx := context.Background()
	ensure(t, u, "alice", "bob")

	_, err := u.CreateCampaign(ctx, "alice", profile, 10)
	require.ErrorIs(t, err, domain.ErrBelowMinimumBalance)

	fund(t, store, "alice", 30)
	camp, err := u.CreateCampaign(ctx, "alice", profile, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, camp.BudgetRemaining)
	assert.True(t, camp.Cost.Equal(decimal.NewFromInt(15)))
	requireBalance(t, u, "alice", "15")

	alice, err := u.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.ActiveCampaigns)

	open, err := u.ListOpenCampaigns(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, camp.ID, open[0].ID)

	s, err := u.CompleteTask(ctx, "bob", camp.ID, domain.Proof{})
	require.NoError(t, err)
	assert.Equal(t, 9, s.BudgetRemaining)
	assert.False(t, s.Exhausted)
	requireBalance(t, u, "bob", "1")

	alice, err = u.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.ActiveCampaigns, "a campaign with budget left stays active")

	_, err = u.CompleteTask(ctx, "bob", camp.ID, domain.Proof{})
	require.ErrorIs(t, err, domain.ErrAlreadyCompleted)
	requireBalance(t, u, "bob", "1")

	_, err = u.CompleteTask(ctx, "alice", camp.ID, domain.Proof{})
	require.ErrorIs(t, err, domain.ErrOwnCampaign)

	open, err = u.ListOpenCampaigns(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Empty(t, open)

	for i := range 9 {
		id := fmt.Sprintf("user%d", i)
		ensure(t, u, id)
		s, err = u.CompleteTask(ctx, id, camp.ID, domain.Proof{})
		require.NoError(t, err)
	}
	assert.True(t, s.Exhausted)
	assert.Equal(t, 0, s.BudgetRemaining)

	alice, err = u.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, alice.ActiveCampaigns)

	ensure(t, u, "carol")
	_, err = u.CompleteTask(ctx, "carol", camp.ID, domain.Proof{})
	require.ErrorIs(t, err, domain.ErrExhausted)

	open, err = u.ListOpenCampaigns(ctx, "carol", 0)
	require.NoError(t, err)
	assert.Empty(t, open)

	own, err := u.ListOwnCampaigns(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, own)

	done, err := store.Completions(ctx, camp.ID)
	require.NoError(t, err)
	assert.Len(t, done, 10)
}

func TestCreateCampaignValidation(t *testing.T) {
	u, store := newEngine(t)
	ctx := context.Background()
	ensure(t, u, "alice")
	fund(t, store, "alice", 25)

	tests := []struct {
		name   string
		url    string
		target int
		want   error
	}{
		{name: "bad host", url: "https://example.com/profile/alice", target: 1, want: domain.ErrInvalidURL},
		{name: "bad handle", url: "https://base.app/profile/al ice", target: 1, want: domain.ErrInvalidURL},
		{name: "zero target", url: profile, target: 0, want: domain.ErrInvalidTarget},
		{name: "target too big", url: profile, target: 1001, want: domain.ErrInvalidTarget},
		{name: "cost above balance", url: profile, target: 20, want: domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.CreateCampaign(ctx, "alice", tt.url, tt.target)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	requireBalance(t, u, "alice", "25")

	_, err := u.CreateCampaign(ctx, "nobody", profile, 1)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestCreateCampaignOwnerLimit(t *testing.T) {
	u, store := newEngine(t)
	ctx := context.Background()
	ensure(t, u, "alice")
	fund(t, store, "alice", 100)

	_, err := u.CreateCampaign(ctx, "alice", profile, 1)
	require.NoError(t, err)
	_, err = u.CreateCampaign(ctx, "alice", profile, 2)
	require.NoError(t, err)

	_, err = u.CreateCampaign(ctx, "alice", profile, 1)
	require.ErrorIs(t, err, domain.ErrOwnerLimitExceeded)
	requireBalance(t, u, "alice", "95.5")

	own, err := u.ListOwnCampaigns(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, 2, own[0].BudgetTotal)
}

func TestConcurrentCompletionsNeverOverspend(t *testing.T) {
	u, store := newEngine(t)
	ctx := context.Background()
	ensure(t, u, "alice")
	fund(t, store, "alice", 30)
	camp, err := u.CreateCampaign(ctx, "alice", profile, 5)
	require.NoError(t, err)

	const workers = 20
	for i := range workers {
		ensure(t, u, fmt.Sprintf("w%d", i))
	}

	var (
		wg        sync.WaitGroup
		settled   atomic.Int32
		exhausted atomic.Int32
	)
	for i := range workers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := u.CompleteTask(ctx, id, camp.ID, domain.Proof{})
			switch {
			case err == nil:
				settled.Add(1)
			case errors.Is(err, domain.ErrExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected error for %s: %v", id, err)
			}
		}(fmt.Sprintf("w%d", i))
	}
	wg.Wait()

	assert.EqualValues(t, 5, settled.Load())
	assert.EqualValues(t, workers-5, exhausted.Load())

	c, err := store.GetCampaign(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, c.BudgetRemaining)
	assert.Equal(t, domain.CampaignExhausted, c.Status)

	done, err := store.Completions(ctx, camp.ID)
	require.NoError(t, err)
	assert.Len(t, done, 5)

	alice, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, alice.ActiveCampaigns)
}

func TestConcurrentDuplicateCompletionPaysOnce(t *testing.T) {
	u, store := newEngine(t)
	ctx := context.Background()
	ensure(t, u, "alice", "bob")
	fund(t, store, "alice", 30)
	camp, err := u.CreateCampaign(ctx, "alice", profile, 10)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		settled atomic.Int32
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := u.CompleteTask(ctx, "bob", camp.ID, domain.Proof{})
			if err == nil {
				settled.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrAlreadyCompleted) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, settled.Load())
	requireBalance(t, u, "bob", "1")

	c, err := store.GetCampaign(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, c.BudgetRemaining)
}

func TestWatchAdDailyCap(t *testing.T) {
	clk := &clock{now: time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)}
	u, _ := newEngine(t, WithClock(clk.Now))
	ctx := context.Background()
	ensure(t, u, "bob")

	for range 70 {
		_, err := u.WatchAd(ctx, "bob", domain.Proof{})
		require.NoError(t, err)
	}
	requireBalance(t, u, "bob", "35")

	_, err := u.WatchAd(ctx, "bob", domain.Proof{})
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	requireBalance(t, u, "bob", "35")

	clk.Advance(2 * time.Hour)
	acc, err := u.WatchAd(ctx, "bob", domain.Proof{})
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Quota.AdsWatched)
	requireBalance(t, u, "bob", "35.5")
}

func TestGetAccountAppliesDailyReset(t *testing.T) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.New()
	bus := events.NewManager(nil)
	accounts := projection.NewAccounts(store, cache.NewInMemoryCache(), time.Hour, bus, nil)
	defer accounts.Close()
	u := NewExchangeUseCase(store, allowAll(t),
		WithClock(clk.Now), WithEvents(bus), WithAccountReader(accounts))
	ctx := context.Background()
	ensure(t, u, "bob")

	for range 70 {
		_, err := u.WatchAd(ctx, "bob", domain.Proof{})
		require.NoError(t, err)
	}
	_, err := u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
	require.NoError(t, err)

	acc, err := u.GetAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 70, acc.Quota.AdsWatched)
	assert.True(t, acc.Quota.BonusClaimed)

	clk.Advance(24 * time.Hour)
	acc, err = u.GetAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, acc.Quota.AdsWatched)
	assert.False(t, acc.Quota.BonusClaimed)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.March, Day: 2}, acc.Quota.LastReset)

	acc, err = u.EnsureAccount(ctx, "bob", "")
	require.NoError(t, err)
	assert.Zero(t, acc.Quota.AdsWatched)
}

func TestClaimDailyBonus(t *testing.T) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	u, _ := newEngine(t, WithClock(clk.Now))
	ctx := context.Background()
	ensure(t, u, "bob")

	_, err := u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
	require.NoError(t, err)
	_, err = u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
	require.ErrorIs(t, err, domain.ErrBonusAlreadyClaimed)
	requireBalance(t, u, "bob", "2.5")

	clk.Advance(24 * time.Hour)
	_, err = u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
	require.NoError(t, err)
	requireBalance(t, u, "bob", "5")

	history, err := u.History(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.EntryDailyBonus, history[0].Kind)
	assert.True(t, history[0].BalanceAfter.Equal(decimal.NewFromInt(5)))
}

func TestOnboardingPaysOnce(t *testing.T) {
	u, _ := newEngine(t)
	ctx := context.Background()
	ensure(t, u, "bob")

	ids := u.Checklist().IDs()
	for _, id := range ids[:len(ids)-1] {
		st, err := u.MarkOnboardingItem(ctx, "bob", id, domain.Proof{})
		require.NoError(t, err)
		assert.False(t, st.Complete)
		assert.False(t, st.Rewarded)
	}

	_, err := u.ClaimOnboarding(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrOnboardingIncomplete)

	st, err := u.MarkOnboardingItem(ctx, "bob", ids[len(ids)-1], domain.Proof{})
	require.NoError(t, err)
	assert.True(t, st.Complete)
	assert.True(t, st.Rewarded)
	requireBalance(t, u, "bob", "10")

	st, err = u.MarkOnboardingItem(ctx, "bob", ids[0], domain.Proof{})
	require.NoError(t, err)
	assert.False(t, st.Rewarded)

	_, err = u.ClaimOnboarding(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrOnboardingAlreadyClaimed)
	requireBalance(t, u, "bob", "10")

	history, err := u.History(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.EntryOnboardingReward, history[0].Kind)
}

func TestUnknownOnboardingItemSkipsVerification(t *testing.T) {
	store := memory.New()
	u := NewExchangeUseCase(store, mocks.NewMockVerifier(t))
	ensure(t, u, "bob")

	_, err := u.MarkOnboardingItem(context.Background(), "bob", "nope", domain.Proof{})
	assert.ErrorIs(t, err, domain.ErrUnknownOnboardingItem)
}

func TestVerificationRejected(t *testing.T) {
	store := memory.New()
	v := mocks.NewMockVerifier(t)
	v.EXPECT().
		Verify(mock.Anything, "bob", domain.PurposeAd, "", domain.Proof{Token: "stale"}).
		Return(domain.ErrVerificationRequired).
		Once()
	v.EXPECT().
		Verify(mock.Anything, "bob", domain.PurposeTask, "c1", domain.Proof{Token: "t"}).
		Return(domain.ErrVerificationRequired).
		Once()
	u := NewExchangeUseCase(store, v)
	ensure(t, u, "bob")
	ctx := context.Background()

	_, err := u.WatchAd(ctx, "bob", domain.Proof{Token: "stale"})
	require.ErrorIs(t, err, domain.ErrVerificationRequired)

	_, err = u.CompleteTask(ctx, "bob", "c1", domain.Proof{Token: "t"})
	require.ErrorIs(t, err, domain.ErrVerificationRequired)

	requireBalance(t, u, "bob", "0")
}

// flakyStore reports a conflict for the first failures transactions.
type flakyStore struct {
	*memory.Store
	failures int32
	calls    atomic.Int32
}

func (s *flakyStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	if s.calls.Add(1) <= s.failures {
		return fmt.Errorf("%w: injected", domain.ErrConflict)
	}
	return s.Store.RunInTx(ctx, fn)
}

func TestTransactionRetries(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	seed := NewExchangeUseCase(base, allowAll(t))
	ensure(t, seed, "bob")

	t.Run("recovers", func(t *testing.T) {
		store := &flakyStore{Store: base, failures: 2}
		u := NewExchangeUseCase(store, allowAll(t), WithRetry(RetryPolicy{Attempts: 3}))

		_, err := u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, store.calls.Load())
	})

	t.Run("gives up", func(t *testing.T) {
		store := &flakyStore{Store: base, failures: 100}
		u := NewExchangeUseCase(store, allowAll(t), WithRetry(RetryPolicy{Attempts: 3}))

		_, err := u.WatchAd(ctx, "bob", domain.Proof{})
		require.ErrorIs(t, err, domain.ErrTransient)
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, domain.KindTransient, domain.KindOf(err))
		assert.EqualValues(t, 3, store.calls.Load())
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		store := &flakyStore{Store: base}
		u := NewExchangeUseCase(store, allowAll(t), WithRetry(RetryPolicy{Attempts: 3}))

		_, err := u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
		require.ErrorIs(t, err, domain.ErrBonusAlreadyClaimed)
		assert.EqualValues(t, 1, store.calls.Load())
	})

	requireBalance(t, seed, "bob", "2.5")
}

func TestTransientFailureKeepsTicket(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	g := gate.New(cache.NewInMemoryCache(), gate.WithDelay(0))
	ensure(t, NewExchangeUseCase(base, g), "bob")

	store := &flakyStore{Store: base, failures: 3}
	u := NewExchangeUseCase(store, g, WithRetry(RetryPolicy{Attempts: 3}))

	ticket, err := g.Issue(ctx, "bob", domain.PurposeBonus, "")
	require.NoError(t, err)
	proof := domain.Proof{Token: ticket.Token}

	_, err = u.ClaimDailyBonus(ctx, "bob", proof)
	require.ErrorIs(t, err, domain.ErrTransient)
	requireBalance(t, u, "bob", "0")

	acc, err := u.ClaimDailyBonus(ctx, "bob", proof)
	require.NoError(t, err)
	assert.True(t, acc.Quota.BonusClaimed)
	requireBalance(t, u, "bob", "2.5")

	_, err = u.ClaimDailyBonus(ctx, "bob", proof)
	assert.ErrorIs(t, err, domain.ErrVerificationRequired, "a settled ticket is spent")
}

func TestBusinessFailureSpendsTicket(t *testing.T) {
	ctx := context.Background()
	v := mocks.NewMockVerifier(t)
	v.EXPECT().
		Verify(mock.Anything, "bob", domain.PurposeAd, "", domain.Proof{Token: "t"}).
		Return(nil).
		Once()
	u := NewExchangeUseCase(memory.New(), v)

	_, err := u.WatchAd(ctx, "bob", domain.Proof{Token: "t"})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestEventsFollowCommits(t *testing.T) {
	bus := events.NewManager(nil)
	var changed []string
	bus.Subscribe(events.EventAccountChanged, func(_ context.Context, e events.Event) error {
		changed = append(changed, e.Data.(events.AccountChangedData).Account.ID)
		return nil
	})
	u, _ := newEngine(t, WithEvents(bus))
	ctx := context.Background()

	ensure(t, u, "bob")
	_, err := u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
	require.NoError(t, err)
	_, err = u.ClaimDailyBonus(ctx, "bob", domain.Proof{})
	require.Error(t, err)

	assert.Equal(t, []string{"bob", "bob"}, changed)
}

func TestListLimits(t *testing.T) {
	u, _ := newEngine(t, WithListLimits(2, 3))
	assert.Equal(t, 2, u.limit(0))
	assert.Equal(t, 3, u.limit(10))
	assert.Equal(t, 1, u.limit(1))
}
