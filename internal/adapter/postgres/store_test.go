package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
	"follow-exchange/internal/db"
)

// newTestStore connects to the database named by PSQL_TEST_ADDRESS and
// applies the migrations. Tests are skipped when it is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("PSQL_TEST_ADDRESS")
	if addr == "" {
		t.Skip("PSQL_TEST_ADDRESS not set")
	}
	require.NoError(t, db.Migrate(addr))

	pool, err := pgxpool.New(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func TestStoreAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.CreateAccount(ctx, domain.NewAccount(id, "a@example.com", []string{"tg1", "yt"}, now))
	}))

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		acc, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		acc.Balance = decimal.RequireFromString("12.5")
		acc.Onboarding["yt"] = true
		acc.Quota = domain.DailyQuota{AdsWatched: 3, LastReset: civil.DateOf(now)}
		return tx.UpdateAccount(ctx, acc)
	}))

	acc, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, map[string]bool{"tg1": false, "yt": true}, acc.Onboarding)
	assert.Equal(t, 3, acc.Quota.AdsWatched)
	assert.Equal(t, civil.DateOf(now), acc.Quota.LastReset)

	_, err = s.GetAccount(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestStoreCampaignsAndCompletions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner, doer := uuid.NewString(), uuid.NewString()
	now := time.Now().UTC()
	camp := &domain.Campaign{
		ID:              uuid.NewString(),
		OwnerID:         owner,
		TargetURL:       "https://base.app/profile/owner",
		BudgetTotal:     2,
		BudgetRemaining: 2,
		Cost:            decimal.NewFromInt(3),
		Status:          domain.CampaignActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		for _, id := range []string{owner, doer} {
			if err := tx.CreateAccount(ctx, domain.NewAccount(id, "", nil, now)); err != nil {
				return err
			}
		}
		return tx.InsertCampaign(ctx, camp)
	}))

	open, err := s.ListOpenCampaigns(ctx, domain.OpenCampaignsQuery{ExcludeOwnerID: doer, ExcludeCompletedBy: doer})
	require.NoError(t, err)
	assert.Contains(t, campaignIDs(open), camp.ID)

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.AddCompletion(ctx, camp.ID, doer, now)
	}))
	err = s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.AddCompletion(ctx, camp.ID, doer, now)
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	users, err := s.Completions(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{doer}, users)

	open, err = s.ListOpenCampaigns(ctx, domain.OpenCampaignsQuery{ExcludeOwnerID: doer, ExcludeCompletedBy: doer})
	require.NoError(t, err)
	assert.NotContains(t, campaignIDs(open), camp.ID)

	own, err := s.ListOwnedCampaigns(ctx, owner)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.True(t, own[0].Cost.Equal(decimal.NewFromInt(3)))
}

func TestStoreRejectsNegativeBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	err := s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		if err := tx.CreateAccount(ctx, domain.NewAccount(id, "", nil, time.Now())); err != nil {
			return err
		}
		acc, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		acc.Balance = decimal.NewFromInt(-1)
		return tx.UpdateAccount(ctx, acc)
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	_, err = s.GetAccount(ctx, id)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func campaignIDs(cs []domain.Campaign) []string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}
