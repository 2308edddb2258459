package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"follow-exchange/internal/adapter/events"
	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/onboarding"
	"follow-exchange/internal/core/port"
	"follow-exchange/internal/core/quota"
	"follow-exchange/internal/metrics"
)

// ExchangeUseCase is the task-exchange engine. It owns every rule of the
// points economy and expresses each economic event as a single store
// transaction; it keeps no state of its own between calls.
type ExchangeUseCase struct {
	store     port.Store
	verifier  port.Verifier
	rules     domain.Rules
	checklist onboarding.Checklist
	retry     RetryPolicy

	reader  AccountReader
	events  *events.Manager
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	listDefault int
	listMax     int
}

var _ port.ExchangeUseCase = (*ExchangeUseCase)(nil)

// NewExchangeUseCase creates the engine over store. Every reward operation
// is checked against verifier before any transaction starts.
func NewExchangeUseCase(store port.Store, verifier port.Verifier, opts ...Option) *ExchangeUseCase {
	u := &ExchangeUseCase{
		store:       store,
		verifier:    verifier,
		rules:       domain.DefaultRules(),
		checklist:   onboarding.Default(),
		retry:       RetryPolicy{Attempts: 5, Delay: 10 * time.Millisecond},
		logger:      slog.New(slog.DiscardHandler),
		tracer:      otel.Tracer("follow-exchange/usecase"),
		now:         time.Now,
		listDefault: 20,
		listMax:     100,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.retry.Attempts == 0 {
		u.retry.Attempts = 1
	}
	if u.reader == nil {
		u.reader = storeReader{u.store}
	}
	return u
}

// Checklist returns the onboarding checklist in force.
func (u *ExchangeUseCase) Checklist() onboarding.Checklist {
	return u.checklist
}

// Rules returns the economic rules in force.
func (u *ExchangeUseCase) Rules() domain.Rules {
	return u.rules
}

// EnsureAccount creates the account on first authentication.
func (u *ExchangeUseCase) EnsureAccount(ctx context.Context, userID, email string) (acc *domain.Account, err error) {
	ctx, span := u.start(ctx, "ensure_account", userID)
	defer func() { u.finish(span, "ensure_account", err) }()

	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUserID
	}

	created := false
	err = u.transact(ctx, "ensure_account", func(ctx context.Context, tx port.Tx) error {
		created = false
		existing, err := tx.GetAccount(ctx, userID)
		if err == nil {
			acc = existing
			return nil
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return err
		}
		acc = domain.NewAccount(userID, email, u.checklist.IDs(), u.now())
		created = true
		return tx.CreateAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	if created {
		u.logger.Info("account created", slog.String("user_id", userID))
		u.events.PublishAccountChanged(ctx, acc)
	}
	return u.current(acc), nil
}

// GetAccount returns a read-only projection of the account with its daily
// counters as they stand today.
func (u *ExchangeUseCase) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	acc, err := u.reader.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.current(acc), nil
}

// current applies a pending daily reset to acc for display. The reset is
// only persisted by the next reward transaction.
func (u *ExchangeUseCase) current(acc *domain.Account) *domain.Account {
	acc.Quota = quota.Fresh(acc.Quota, quota.Today(u.now(), u.rules.Location))
	return acc
}

// GetBalance returns the committed balance, bypassing any projection.
func (u *ExchangeUseCase) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	acc, err := u.store.GetAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}

// History returns the user's newest ledger entries.
func (u *ExchangeUseCase) History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	return u.store.History(ctx, userID, u.limit(limit))
}

// CreateCampaign debits target*CostPerFollow from the owner and opens a
// campaign with that many follow actions, in one transaction.
func (u *ExchangeUseCase) CreateCampaign(ctx context.Context, ownerID, url string, target int) (camp *domain.Campaign, err error) {
	ctx, span := u.start(ctx, "create_campaign", ownerID)
	defer func() { u.finish(span, "create_campaign", err) }()

	url = strings.TrimSpace(url)
	if !u.rules.ProfileURL.MatchString(url) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, url)
	}
	if target < u.rules.MinTarget || target > u.rules.MaxTarget {
		return nil, fmt.Errorf("%w: must be between %d and %d", domain.ErrInvalidTarget, u.rules.MinTarget, u.rules.MaxTarget)
	}
	cost := u.rules.CampaignCost(target)

	var owner *domain.Account
	err = u.transact(ctx, "create_campaign", func(ctx context.Context, tx port.Tx) error {
		var err error
		owner, err = tx.GetAccount(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner.Balance.LessThan(u.rules.MinPostBalance) {
			return fmt.Errorf("%w: %s points required", domain.ErrBelowMinimumBalance, u.rules.MinPostBalance)
		}
		if owner.Balance.LessThan(cost) {
			return fmt.Errorf("%w: campaign costs %s, balance is %s", domain.ErrInsufficientBalance, cost, owner.Balance)
		}
		if owner.ActiveCampaigns >= u.rules.MaxActiveCampaigns {
			return fmt.Errorf("%w: %d active", domain.ErrOwnerLimitExceeded, owner.ActiveCampaigns)
		}

		now := u.now()
		camp = &domain.Campaign{
			ID:              uuid.NewString(),
			OwnerID:         ownerID,
			TargetURL:       url,
			BudgetTotal:     target,
			BudgetRemaining: target,
			Cost:            cost,
			Status:          domain.CampaignActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err = u.post(ctx, tx, owner, domain.EntryCampaignDebit, cost.Neg(), camp.ID); err != nil {
			return err
		}
		owner.ActiveCampaigns++
		if err = tx.UpdateAccount(ctx, owner); err != nil {
			return err
		}
		return tx.InsertCampaign(ctx, camp)
	})
	if err != nil {
		return nil, err
	}

	u.credited(domain.EntryCampaignDebit, cost.Neg())
	u.logger.Debug("campaign created",
		slog.String("campaign_id", camp.ID),
		slog.String("owner_id", ownerID),
		slog.Int("target", target),
		slog.String("cost", cost.String()))
	u.events.PublishAccountChanged(ctx, owner)
	u.events.PublishCampaignChanged(ctx, camp)
	return camp, nil
}

// ListOpenCampaigns returns campaigns userID may still complete, oldest
// first.
func (u *ExchangeUseCase) ListOpenCampaigns(ctx context.Context, userID string, limit int) ([]domain.Campaign, error) {
	return u.store.ListOpenCampaigns(ctx, domain.OpenCampaignsQuery{
		ExcludeOwnerID:     userID,
		ExcludeCompletedBy: userID,
		Limit:              u.limit(limit),
	})
}

// ListOwnCampaigns returns the owner's campaigns with budget left.
func (u *ExchangeUseCase) ListOwnCampaigns(ctx context.Context, ownerID string) ([]domain.Campaign, error) {
	return u.store.ListOwnedCampaigns(ctx, ownerID)
}

// GetCampaign returns the committed campaign.
func (u *ExchangeUseCase) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	return u.store.GetCampaign(ctx, campaignID)
}

// Completions returns the completion set of the campaign.
func (u *ExchangeUseCase) Completions(ctx context.Context, campaignID string) ([]string, error) {
	return u.store.Completions(ctx, campaignID)
}

// CompleteTask settles userID's completion of campaignID. The membership
// check, the budget decrement, the owner's counter and the reward all happen
// in one transaction, so concurrent settlements can neither overspend the
// budget nor credit a user twice.
func (u *ExchangeUseCase) CompleteTask(ctx context.Context, userID, campaignID string, proof domain.Proof) (s *port.Settlement, err error) {
	ctx, span := u.start(ctx, "complete_task", userID)
	defer func() { u.finish(span, "complete_task", err) }()

	if err = u.verifier.Verify(ctx, userID, domain.PurposeTask, campaignID, proof); err != nil {
		return nil, err
	}

	var (
		camp  *domain.Campaign
		doer  *domain.Account
		owner *domain.Account
	)
	err = u.transact(ctx, "complete_task", func(ctx context.Context, tx port.Tx) error {
		var err error
		owner = nil
		camp, err = tx.GetCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if camp.OwnerID == userID {
			return domain.ErrOwnCampaign
		}
		if !camp.Open() {
			return domain.ErrExhausted
		}
		done, err := tx.HasCompleted(ctx, campaignID, userID)
		if err != nil {
			return err
		}
		if done {
			return domain.ErrAlreadyCompleted
		}
		doer, err = tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}

		now := u.now()
		if err = tx.AddCompletion(ctx, campaignID, userID, now); err != nil {
			return err
		}
		if camp.Consume(now) {
			owner, err = tx.GetAccount(ctx, camp.OwnerID)
			if err != nil {
				return err
			}
			owner.ActiveCampaigns = max(owner.ActiveCampaigns-1, 0)
			owner.UpdatedAt = now
			if err = tx.UpdateAccount(ctx, owner); err != nil {
				return err
			}
		}
		if err = tx.UpdateCampaign(ctx, camp); err != nil {
			return err
		}
		if err = u.post(ctx, tx, doer, domain.EntryTaskReward, u.rules.TaskReward, campaignID); err != nil {
			return err
		}
		return tx.UpdateAccount(ctx, doer)
	})
	if err != nil {
		u.release(ctx, proof, err)
		return nil, err
	}

	exhausted := camp.Status == domain.CampaignExhausted
	u.credited(domain.EntryTaskReward, u.rules.TaskReward)
	u.metrics.IncSettlement(exhausted)
	u.logger.Debug("task settled",
		slog.String("campaign_id", campaignID),
		slog.String("user_id", userID),
		slog.Int("remaining", camp.BudgetRemaining))
	u.events.PublishAccountChanged(ctx, doer)
	u.events.PublishAccountChanged(ctx, owner)
	u.events.PublishCampaignChanged(ctx, camp)
	u.events.PublishTaskSettled(ctx, campaignID, userID, exhausted)

	return &port.Settlement{
		CampaignID:      campaignID,
		UserID:          userID,
		Reward:          u.rules.TaskReward,
		Balance:         doer.Balance,
		BudgetRemaining: camp.BudgetRemaining,
		Exhausted:       exhausted,
	}, nil
}

// WatchAd credits one watched ad. The daily reset is applied inside the
// same transaction as the grant.
func (u *ExchangeUseCase) WatchAd(ctx context.Context, userID string, proof domain.Proof) (acc *domain.Account, err error) {
	ctx, span := u.start(ctx, "watch_ad", userID)
	defer func() { u.finish(span, "watch_ad", err) }()

	if err = u.verifier.Verify(ctx, userID, domain.PurposeAd, "", proof); err != nil {
		return nil, err
	}
	acc, err = u.dailyReward(ctx, "watch_ad", userID, domain.EntryAdReward, u.rules.AdReward, func(q domain.DailyQuota, today civil.Date) (domain.DailyQuota, error) {
		return quota.RecordAd(q, today, u.rules.DailyAdCap)
	})
	u.release(ctx, proof, err)
	return acc, err
}

// ClaimDailyBonus credits the once-per-day bonus.
func (u *ExchangeUseCase) ClaimDailyBonus(ctx context.Context, userID string, proof domain.Proof) (acc *domain.Account, err error) {
	ctx, span := u.start(ctx, "claim_daily_bonus", userID)
	defer func() { u.finish(span, "claim_daily_bonus", err) }()

	if err = u.verifier.Verify(ctx, userID, domain.PurposeBonus, "", proof); err != nil {
		return nil, err
	}
	acc, err = u.dailyReward(ctx, "claim_daily_bonus", userID, domain.EntryDailyBonus, u.rules.DailyBonusReward, quota.RecordBonus)
	u.release(ctx, proof, err)
	return acc, err
}

// dailyReward runs one quota-limited grant: reset-aware read, quota update
// and credit in a single transaction.
func (u *ExchangeUseCase) dailyReward(
	ctx context.Context,
	op, userID string,
	kind domain.EntryKind,
	amount decimal.Decimal,
	record func(domain.DailyQuota, civil.Date) (domain.DailyQuota, error),
) (acc *domain.Account, err error) {
	err = u.transact(ctx, op, func(ctx context.Context, tx port.Tx) error {
		var err error
		acc, err = tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		today := quota.Today(u.now(), u.rules.Location)
		q, err := record(acc.Quota, today)
		if err != nil {
			return err
		}
		acc.Quota = q
		if err = u.post(ctx, tx, acc, kind, amount, ""); err != nil {
			return err
		}
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	u.credited(kind, amount)
	u.events.PublishAccountChanged(ctx, acc)
	return acc, nil
}

// MarkOnboardingItem marks one checklist item. The call that sets the last
// item also flips the completion flag and pays the onboarding reward in the
// same transaction. Repeated or post-completion calls change nothing.
func (u *ExchangeUseCase) MarkOnboardingItem(ctx context.Context, userID, itemID string, proof domain.Proof) (st *port.OnboardingStatus, err error) {
	ctx, span := u.start(ctx, "mark_onboarding_item", userID)
	defer func() { u.finish(span, "mark_onboarding_item", err) }()

	if !u.checklist.Has(itemID) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownOnboardingItem, itemID)
	}
	if err = u.verifier.Verify(ctx, userID, domain.PurposeOnboarding, itemID, proof); err != nil {
		return nil, err
	}

	var (
		acc *domain.Account
		out onboarding.Outcome
	)
	err = u.transact(ctx, "mark_onboarding_item", func(ctx context.Context, tx port.Tx) error {
		var err error
		acc, err = tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		out, err = u.checklist.Mark(acc, itemID)
		if err != nil || !out.Changed {
			return err
		}
		if out.Completed {
			if err = u.post(ctx, tx, acc, domain.EntryOnboardingReward, u.rules.OnboardingReward, "onboarding"); err != nil {
				return err
			}
		}
		acc.UpdatedAt = u.now()
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		u.release(ctx, proof, err)
		return nil, err
	}
	if out.Changed {
		u.events.PublishAccountChanged(ctx, acc)
	}
	if out.Completed {
		u.credited(domain.EntryOnboardingReward, u.rules.OnboardingReward)
		u.logger.Info("onboarding completed", slog.String("user_id", userID))
	}
	return u.onboardingStatus(acc, out.Completed), nil
}

// ClaimOnboarding completes an account whose checklist items are all set but
// whose completion flag is still false, paying the reward once.
func (u *ExchangeUseCase) ClaimOnboarding(ctx context.Context, userID string) (st *port.OnboardingStatus, err error) {
	ctx, span := u.start(ctx, "claim_onboarding", userID)
	defer func() { u.finish(span, "claim_onboarding", err) }()

	var acc *domain.Account
	err = u.transact(ctx, "claim_onboarding", func(ctx context.Context, tx port.Tx) error {
		var err error
		acc, err = tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		if err = u.checklist.Complete(acc); err != nil {
			return err
		}
		if err = u.post(ctx, tx, acc, domain.EntryOnboardingReward, u.rules.OnboardingReward, "onboarding"); err != nil {
			return err
		}
		return tx.UpdateAccount(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	u.credited(domain.EntryOnboardingReward, u.rules.OnboardingReward)
	u.events.PublishAccountChanged(ctx, acc)
	return u.onboardingStatus(acc, true), nil
}

func (u *ExchangeUseCase) onboardingStatus(acc *domain.Account, rewarded bool) *port.OnboardingStatus {
	return &port.OnboardingStatus{
		Items:    u.checklist.Progress(acc),
		Complete: acc.OnboardingComplete,
		Rewarded: rewarded,
		Balance:  acc.Balance,
	}
}

func (u *ExchangeUseCase) limit(n int) int {
	switch {
	case n <= 0:
		return u.listDefault
	case n > u.listMax:
		return u.listMax
	default:
		return n
	}
}

// storeReader reads accounts straight from the store.
type storeReader struct {
	store port.Store
}

func (r storeReader) Account(ctx context.Context, userID string) (*domain.Account, error) {
	return r.store.GetAccount(ctx, userID)
}
