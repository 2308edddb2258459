package db

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"follow-exchange/internal/adapter/memory"
	"follow-exchange/internal/adapter/usecase"
	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port/mocks"
)

func TestSeedIsRepeatable(t *testing.T) {
	store := memory.New()
	svc := usecase.NewExchangeUseCase(store, mocks.NewMockVerifier(t))
	ctx := context.Background()

	require.NoError(t, Seed(ctx, store, svc))
	require.NoError(t, Seed(ctx, store, svc))

	own, err := svc.ListOwnCampaigns(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, own, 2)

	open, err := svc.ListOpenCampaigns(ctx, "worker-1", 100)
	require.NoError(t, err)
	assert.Len(t, open, 2*SeedOwners)

	history, err := svc.History(ctx, "owner-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.EntryAdjustment, history[2].Kind)
}

func TestGrant(t *testing.T) {
	store := memory.New()
	svc := usecase.NewExchangeUseCase(store, mocks.NewMockVerifier(t))
	ctx := context.Background()

	_, err := svc.EnsureAccount(ctx, "bob", "")
	require.NoError(t, err)

	require.NoError(t, Grant(ctx, store, "bob", decimal.NewFromInt(3), "support"))
	assert.Error(t, Grant(ctx, store, "bob", decimal.Zero, "support"))
	assert.ErrorIs(t, Grant(ctx, store, "ghost", decimal.NewFromInt(1), "support"), domain.ErrAccountNotFound)

	b, err := svc.GetBalance(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, b.Equal(decimal.NewFromInt(3)))
}
