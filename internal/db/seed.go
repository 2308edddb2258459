package db

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
)

// SeedOwners is the number of demo accounts that post campaigns.
const SeedOwners = 5

// Seed fills store with demo data: funded owners, each with campaigns, and a
// pool of unfunded workers. Owners that already have campaigns are skipped,
// so running it twice is harmless.
func Seed(ctx context.Context, store port.Store, svc port.ExchangeUseCase) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 1; i <= 20; i++ {
		id := fmt.Sprintf("worker-%d", i)
		if _, err := svc.EnsureAccount(ctx, id, id+"@example.com"); err != nil {
			return err
		}
	}

	for i := 1; i <= SeedOwners; i++ {
		id := fmt.Sprintf("owner-%d", i)
		acc, err := svc.EnsureAccount(ctx, id, id+"@example.com")
		if err != nil {
			return err
		}
		if acc.ActiveCampaigns > 0 {
			continue
		}
		if err = Grant(ctx, store, id, decimal.NewFromInt(500), "seed"); err != nil {
			return err
		}
		for j := 1; j <= 2; j++ {
			url := fmt.Sprintf("https://base.app/profile/owner_%d_%d", i, j)
			target := 5 + r.Intn(20)
			if _, err = svc.CreateCampaign(ctx, id, url, target); err != nil {
				return fmt.Errorf("seed campaign for %s: %w", id, err)
			}
		}
	}
	return nil
}

// Grant credits amount to userID outside the points economy and records it
// as an adjustment.
func Grant(ctx context.Context, store port.Store, userID string, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return errors.New("grant amount must be positive")
	}
	return store.RunInTx(ctx, func(ctx context.Context, tx port.Tx) error {
		acc, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		if err = acc.Adjust(amount); err != nil {
			return err
		}
		now := time.Now()
		acc.UpdatedAt = now
		if err = tx.UpdateAccount(ctx, acc); err != nil {
			return err
		}
		return tx.AppendLedger(ctx, domain.LedgerEntry{
			ID:           uuid.NewString(),
			UserID:       userID,
			Kind:         domain.EntryAdjustment,
			Amount:       amount,
			BalanceAfter: acc.Balance,
			Ref:          ref,
			CreatedAt:    now,
		})
	})
}
