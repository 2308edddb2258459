// Package memory implements port.Store in process memory with optimistic
// concurrency: a transaction records the version of every key it reads and
// commits only if none of them changed in the meantime.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
)

// Store is an in-memory port.Store. The zero value is not usable; call New.
type Store struct {
	mu          sync.Mutex
	versions    map[string]uint64
	accounts    map[string]*domain.Account
	campaigns   map[string]*domain.Campaign
	order       map[string]int64
	completions map[string]map[string]time.Time
	ledger      []domain.LedgerEntry
	seq         int64
}

var _ port.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		versions:    make(map[string]uint64),
		accounts:    make(map[string]*domain.Account),
		campaigns:   make(map[string]*domain.Campaign),
		order:       make(map[string]int64),
		completions: make(map[string]map[string]time.Time),
	}
}

func accountKey(id string) string { return "a/" + id }
func campaignKey(id string) string { return "c/" + id }
func completionKey(cid, uid string) string { return "x/" + cid + "/" + uid }

// RunInTx executes fn against a private view and commits its writes if no
// key read by fn was modified concurrently.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	tx := &memTx{
		store:       s,
		reads:       make(map[string]uint64),
		accounts:    make(map[string]*domain.Account),
		campaigns:   make(map[string]*domain.Campaign),
		inserted:    make(map[string]bool),
		completions: make(map[string]time.Time),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, v := range tx.reads {
		if s.versions[key] != v {
			return fmt.Errorf("%w: %s changed", domain.ErrConflict, key)
		}
	}
	// Blind writes to keys never read still need validation against
	// concurrent inserts.
	for id := range tx.inserted {
		if _, ok := tx.reads[campaignKey(id)]; !ok && s.versions[campaignKey(id)] != 0 {
			return fmt.Errorf("%w: campaign %s exists", domain.ErrConflict, id)
		}
	}

	for id, acc := range tx.accounts {
		s.accounts[id] = acc.Clone()
		s.versions[accountKey(id)]++
	}
	for id, c := range tx.campaigns {
		cp := *c
		s.campaigns[id] = &cp
		if tx.inserted[id] {
			s.seq++
			s.order[id] = s.seq
		}
		s.versions[campaignKey(id)]++
	}
	for key, at := range tx.completions {
		cid, uid := splitCompletion(key)
		set, ok := s.completions[cid]
		if !ok {
			set = make(map[string]time.Time)
			s.completions[cid] = set
		}
		set[uid] = at
		s.versions[key]++
	}
	s.ledger = append(s.ledger, tx.ledger...)
	return nil
}

func splitCompletion(key string) (cid, uid string) {
	rest := key[len("x/"):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:]
		}
	}
	return rest, ""
}

// GetAccount returns a copy of the committed account.
func (s *Store) GetAccount(_ context.Context, userID string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// GetCampaign returns a copy of the committed campaign.
func (s *Store) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

// ListOpenCampaigns implements port.Store.
func (s *Store) ListOpenCampaigns(_ context.Context, q domain.OpenCampaignsQuery) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Campaign, 0)
	for _, id := range s.sortedIDs(false) {
		c := s.campaigns[id]
		if !c.Open() || c.OwnerID == q.ExcludeOwnerID {
			continue
		}
		if _, done := s.completions[id][q.ExcludeCompletedBy]; done && q.ExcludeCompletedBy != "" {
			continue
		}
		out = append(out, *c)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// ListOwnedCampaigns implements port.Store.
func (s *Store) ListOwnedCampaigns(_ context.Context, ownerID string) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Campaign, 0)
	for _, id := range s.sortedIDs(true) {
		c := s.campaigns[id]
		if c.OwnerID == ownerID && c.Open() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Store) sortedIDs(newestFirst bool) []string {
	ids := make([]string, 0, len(s.campaigns))
	for id := range s.campaigns {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if newestFirst {
			return cmp.Compare(s.order[b], s.order[a])
		}
		return cmp.Compare(s.order[a], s.order[b])
	})
	return ids
}

// Completions implements port.Store.
func (s *Store) Completions(_ context.Context, campaignID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]string, 0, len(s.completions[campaignID]))
	for uid := range s.completions[campaignID] {
		users = append(users, uid)
	}
	slices.Sort(users)
	return users, nil
}

// History implements port.Store.
func (s *Store) History(_ context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.LedgerEntry, 0)
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID != userID {
			continue
		}
		out = append(out, s.ledger[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// memTx buffers writes until commit.
type memTx struct {
	store       *Store
	reads       map[string]uint64
	accounts    map[string]*domain.Account
	campaigns   map[string]*domain.Campaign
	inserted    map[string]bool
	completions map[string]time.Time
	ledger      []domain.LedgerEntry
}

func (t *memTx) read(key string) {
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = t.store.versions[key]
	}
}

func (t *memTx) GetAccount(_ context.Context, userID string) (*domain.Account, error) {
	if acc, ok := t.accounts[userID]; ok {
		return acc.Clone(), nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.read(accountKey(userID))
	acc, ok := t.store.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (t *memTx) CreateAccount(ctx context.Context, acc *domain.Account) error {
	if _, err := t.GetAccount(ctx, acc.ID); err == nil {
		return nil
	}
	t.accounts[acc.ID] = acc.Clone()
	return nil
}

func (t *memTx) UpdateAccount(ctx context.Context, acc *domain.Account) error {
	if _, err := t.GetAccount(ctx, acc.ID); err != nil {
		return err
	}
	if acc.Balance.IsNegative() {
		return fmt.Errorf("%w: balance of %s would be negative", domain.ErrInsufficientBalance, acc.ID)
	}
	t.accounts[acc.ID] = acc.Clone()
	return nil
}

func (t *memTx) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	if c, ok := t.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.read(campaignKey(id))
	c, ok := t.store.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *memTx) InsertCampaign(_ context.Context, c *domain.Campaign) error {
	cp := *c
	t.campaigns[c.ID] = &cp
	t.inserted[c.ID] = true
	return nil
}

func (t *memTx) UpdateCampaign(ctx context.Context, c *domain.Campaign) error {
	if _, err := t.GetCampaign(ctx, c.ID); err != nil {
		return err
	}
	cp := *c
	t.campaigns[c.ID] = &cp
	return nil
}

func (t *memTx) HasCompleted(_ context.Context, campaignID, userID string) (bool, error) {
	key := completionKey(campaignID, userID)
	if _, ok := t.completions[key]; ok {
		return true, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	t.read(key)
	_, ok := t.store.completions[campaignID][userID]
	return ok, nil
}

func (t *memTx) AddCompletion(ctx context.Context, campaignID, userID string, at time.Time) error {
	done, err := t.HasCompleted(ctx, campaignID, userID)
	if err != nil {
		return err
	}
	if done {
		return domain.ErrAlreadyCompleted
	}
	t.completions[completionKey(campaignID, userID)] = at
	return nil
}

func (t *memTx) AppendLedger(_ context.Context, e domain.LedgerEntry) error {
	t.ledger = append(t.ledger, e)
	return nil
}
