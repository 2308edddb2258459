package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
)

func seedAccount(t *testing.T, s *Store, id string, balance int64) {
	t.Helper()
	err := s.RunInTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		acc := domain.NewAccount(id, "", nil, time.Now())
		acc.Balance = decimal.NewFromInt(balance)
		return tx.CreateAccount(ctx, acc)
	})
	require.NoError(t, err)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	s := New()
	seedAccount(t, s, "u1", 5)

	err := s.RunInTx(context.Background(), func(ctx context.Context, tx port.Tx) error {
		acc, err := tx.GetAccount(ctx, "u1")
		require.NoError(t, err)
		acc.Balance = decimal.NewFromInt(100)
		require.NoError(t, tx.UpdateAccount(ctx, acc))
		return domain.ErrExhausted
	})
	assert.ErrorIs(t, err, domain.ErrExhausted)

	acc, err := s.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(5)))
}

func TestRunInTxDetectsConflict(t *testing.T) {
	s := New()
	seedAccount(t, s, "u1", 5)
	ctx := context.Background()

	err := s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		acc, err := tx.GetAccount(ctx, "u1")
		require.NoError(t, err)

		// a concurrent writer commits in between
		require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, other port.Tx) error {
			acc, err := other.GetAccount(ctx, "u1")
			require.NoError(t, err)
			acc.Balance = acc.Balance.Add(decimal.NewFromInt(1))
			return other.UpdateAccount(ctx, acc)
		}))

		acc.Balance = acc.Balance.Add(decimal.NewFromInt(10))
		return tx.UpdateAccount(ctx, acc)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	acc, err := s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(6)))
}

func TestCompletionSetRejectsDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.AddCompletion(ctx, "c1", "u1", now)
	}))
	err := s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.AddCompletion(ctx, "c1", "u1", now)
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyCompleted)

	users, err := s.Completions(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)
}

func TestListOpenCampaignsFIFO(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	insert := func(id, owner string, remaining int) {
		require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
			status := domain.CampaignActive
			if remaining == 0 {
				status = domain.CampaignExhausted
			}
			return tx.InsertCampaign(ctx, &domain.Campaign{
				ID: id, OwnerID: owner, BudgetTotal: 3, BudgetRemaining: remaining,
				Status: status, CreatedAt: now,
			})
		}))
	}
	insert("c1", "alice", 3)
	insert("c2", "bob", 3)
	insert("c3", "alice", 0)
	insert("c4", "carol", 2)
	insert("c5", "dave", 1)

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		return tx.AddCompletion(ctx, "c4", "bob", now)
	}))

	open, err := s.ListOpenCampaigns(ctx, domain.OpenCampaignsQuery{
		ExcludeOwnerID: "bob", ExcludeCompletedBy: "bob", Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "c1", open[0].ID)
	assert.Equal(t, "c5", open[1].ID)

	own, err := s.ListOwnedCampaigns(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "c1", own[0].ID)
}

func TestHistoryNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		for _, kind := range []domain.EntryKind{domain.EntryAdReward, domain.EntryDailyBonus, domain.EntryTaskReward} {
			if err := tx.AppendLedger(ctx, domain.LedgerEntry{UserID: "u1", Kind: kind}); err != nil {
				return err
			}
		}
		return tx.AppendLedger(ctx, domain.LedgerEntry{UserID: "u2", Kind: domain.EntryAdReward})
	}))

	entries, err := s.History(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryTaskReward, entries[0].Kind)
	assert.Equal(t, domain.EntryDailyBonus, entries[1].Kind)
}
