package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
)

// SQLSTATE codes the store translates into domain errors.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements port.Store on PostgreSQL. Every RunInTx is a SERIALIZABLE
// transaction; serialization failures surface as domain.ErrConflict so the
// engine can replay them.
type Store struct {
	pool *pgxpool.Pool
}

var _ port.Store = (*Store)(nil)

// NewStore returns a store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunInTx implements port.Store.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = fn(ctx, &pgTx{q: tx}); err != nil {
		return classify(err)
	}
	return classify(tx.Commit(ctx))
}

// classify maps driver errors onto the domain taxonomy. Errors that are
// already classified pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
	case codeCheckViolation:
		return fmt.Errorf("%w: %s", domain.ErrInsufficientBalance, pgErr.ConstraintName)
	default:
		return err
	}
}

// GetAccount implements port.Store.
func (s *Store) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	return getAccount(ctx, s.pool, userID, false)
}

// GetCampaign implements port.Store.
func (s *Store) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return getCampaign(ctx, s.pool, id, false)
}

// ListOpenCampaigns returns active campaigns in creation order.
func (s *Store) ListOpenCampaigns(ctx context.Context, q domain.OpenCampaignsQuery) ([]domain.Campaign, error) {
	query := `
        SELECT ` + campaignColumns + `
        FROM campaigns c
        WHERE c.status = 'active'
          AND c.budget_remaining > 0
          AND c.owner_id <> $1
          AND NOT EXISTS (
              SELECT 1 FROM campaign_completions x
              WHERE x.campaign_id = c.id AND x.user_id = $2)
        ORDER BY c.seq
        LIMIT $3`
	rows, err := s.pool.Query(ctx, query, q.ExcludeOwnerID, q.ExcludeCompletedBy, limitArg(q.Limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCampaign)
}

// ListOwnedCampaigns returns the owner's open campaigns, newest first.
func (s *Store) ListOwnedCampaigns(ctx context.Context, ownerID string) ([]domain.Campaign, error) {
	query := `
        SELECT ` + campaignColumns + `
        FROM campaigns c
        WHERE c.owner_id = $1
          AND c.status = 'active'
          AND c.budget_remaining > 0
        ORDER BY c.seq DESC`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCampaign)
}

// Completions implements port.Store.
func (s *Store) Completions(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id FROM campaign_completions WHERE campaign_id = $1 ORDER BY user_id`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// History implements port.Store.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	query := `
        SELECT id, user_id, kind, amount::text, balance_after::text, ref, created_at
        FROM ledger_entries
        WHERE user_id = $1
        ORDER BY seq DESC
        LIMIT $2`
	rows, err := s.pool.Query(ctx, query, userID, limitArg(limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerEntry, error) {
		var (
			e                    domain.LedgerEntry
			amount, balanceAfter string
		)
		if err := row.Scan(&e.ID, &e.UserID, &e.Kind, &amount, &balanceAfter, &e.Ref, &e.CreatedAt); err != nil {
			return e, err
		}
		var err error
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return e, err
		}
		e.BalanceAfter, err = decimal.NewFromString(balanceAfter)
		return e, err
	})
}

// limitArg turns a non-positive limit into SQL NULL, which LIMIT treats as
// unbounded.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

type pgTx struct {
	q querier
}

func (t *pgTx) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	return getAccount(ctx, t.q, userID, true)
}

func (t *pgTx) CreateAccount(ctx context.Context, acc *domain.Account) error {
	_, err := t.q.Exec(ctx, `
        INSERT INTO users (id, email, balance, active_campaigns, onboarding, onboarding_complete,
                           ads_watched, bonus_claimed, last_reset, created_at, updated_at)
        VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7, $8, nullif($9::text, '')::date, $10, $11)
        ON CONFLICT (id) DO NOTHING`,
		acc.ID, acc.Email, acc.Balance.String(), acc.ActiveCampaigns, acc.Onboarding, acc.OnboardingComplete,
		acc.Quota.AdsWatched, acc.Quota.BonusClaimed, dateArg(acc.Quota.LastReset), acc.CreatedAt, acc.UpdatedAt)
	return err
}

func (t *pgTx) UpdateAccount(ctx context.Context, acc *domain.Account) error {
	if acc.Balance.IsNegative() {
		return fmt.Errorf("%w: balance of %s would be negative", domain.ErrInsufficientBalance, acc.ID)
	}
	tag, err := t.q.Exec(ctx, `
        UPDATE users
        SET balance = $2::text::numeric,
            active_campaigns = $3,
            onboarding = $4,
            onboarding_complete = $5,
            ads_watched = $6,
            bonus_claimed = $7,
            last_reset = nullif($8::text, '')::date,
            updated_at = $9
        WHERE id = $1`,
		acc.ID, acc.Balance.String(), acc.ActiveCampaigns, acc.Onboarding, acc.OnboardingComplete,
		acc.Quota.AdsWatched, acc.Quota.BonusClaimed, dateArg(acc.Quota.LastReset), acc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (t *pgTx) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return getCampaign(ctx, t.q, id, true)
}

func (t *pgTx) InsertCampaign(ctx context.Context, c *domain.Campaign) error {
	_, err := t.q.Exec(ctx, `
        INSERT INTO campaigns (id, owner_id, target_url, budget_total, budget_remaining, cost,
                               status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, $9)`,
		c.ID, c.OwnerID, c.TargetURL, c.BudgetTotal, c.BudgetRemaining, c.Cost.String(),
		string(c.Status), c.CreatedAt, c.UpdatedAt)
	return err
}

func (t *pgTx) UpdateCampaign(ctx context.Context, c *domain.Campaign) error {
	tag, err := t.q.Exec(ctx, `
        UPDATE campaigns
        SET budget_remaining = $2, status = $3, updated_at = $4
        WHERE id = $1`,
		c.ID, c.BudgetRemaining, string(c.Status), c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

func (t *pgTx) HasCompleted(ctx context.Context, campaignID, userID string) (bool, error) {
	var done bool
	err := t.q.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM campaign_completions WHERE campaign_id = $1 AND user_id = $2)`,
		campaignID, userID).Scan(&done)
	return done, err
}

func (t *pgTx) AddCompletion(ctx context.Context, campaignID, userID string, at time.Time) error {
	_, err := t.q.Exec(ctx, `
        INSERT INTO campaign_completions (campaign_id, user_id, completed_at)
        VALUES ($1, $2, $3)`, campaignID, userID, at)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return domain.ErrAlreadyCompleted
	}
	return err
}

func (t *pgTx) AppendLedger(ctx context.Context, e domain.LedgerEntry) error {
	_, err := t.q.Exec(ctx, `
        INSERT INTO ledger_entries (id, user_id, kind, amount, balance_after, ref, created_at)
        VALUES ($1, $2, $3, $4::text::numeric, $5::text::numeric, $6, $7)`,
		e.ID, e.UserID, string(e.Kind), e.Amount.String(), e.BalanceAfter.String(), e.Ref, e.CreatedAt)
	return err
}

const accountColumns = `id, email, balance::text, active_campaigns, onboarding, onboarding_complete,
        ads_watched, bonus_claimed, coalesce(last_reset::text, ''), created_at, updated_at`

func getAccount(ctx context.Context, q querier, userID string, lock bool) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	var (
		acc       domain.Account
		balance   string
		lastReset string
	)
	err := q.QueryRow(ctx, query, userID).Scan(
		&acc.ID,
		&acc.Email,
		&balance,
		&acc.ActiveCampaigns,
		&acc.Onboarding,
		&acc.OnboardingComplete,
		&acc.Quota.AdsWatched,
		&acc.Quota.BonusClaimed,
		&lastReset,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if acc.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, err
	}
	if lastReset != "" {
		if acc.Quota.LastReset, err = civil.ParseDate(lastReset); err != nil {
			return nil, err
		}
	}
	if acc.Onboarding == nil {
		acc.Onboarding = map[string]bool{}
	}
	return &acc, nil
}

const campaignColumns = `c.id, c.owner_id, c.target_url, c.budget_total, c.budget_remaining,
        c.cost::text, c.status, c.created_at, c.updated_at`

func getCampaign(ctx context.Context, q querier, id string, lock bool) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns c WHERE c.id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCampaign)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCampaign(row pgx.CollectableRow) (domain.Campaign, error) {
	var (
		c      domain.Campaign
		cost   string
		status string
	)
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.TargetURL,
		&c.BudgetTotal,
		&c.BudgetRemaining,
		&cost,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	c.Status = domain.CampaignStatus(status)
	c.Cost, err = decimal.NewFromString(cost)
	return c, err
}

func dateArg(d civil.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
