// Package bolt implements port.Store on an embedded bbolt database. bbolt
// admits a single writer at a time, so every RunInTx is serializable and
// never reports a conflict.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
)

var (
	bucketAccounts    = []byte("accounts")
	bucketCampaigns   = []byte("campaigns")
	bucketCampaignSeq = []byte("campaign_seq")
	bucketCompletions = []byte("completions")
	bucketLedger      = []byte("ledger")
)

// Store implements port.Store using BoltDB.
type Store struct {
	db *bolt.DB
}

var _ port.Store = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAccounts, bucketCampaigns, bucketCampaignSeq, bucketCompletions, bucketLedger} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTx runs fn inside one read-write bbolt transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := fn(ctx, &boltTx{tx: tx}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

// GetAccount implements port.Store.
func (s *Store) GetAccount(_ context.Context, userID string) (acc *domain.Account, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		acc, err = loadAccount(tx, userID)
		return err
	})
	return acc, err
}

// GetCampaign implements port.Store.
func (s *Store) GetCampaign(_ context.Context, id string) (c *domain.Campaign, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		var rec *campaignRecord
		rec, err = loadCampaign(tx, id)
		if err == nil {
			c = rec.campaign()
		}
		return err
	})
	return c, err
}

// ListOpenCampaigns walks the creation index oldest first.
func (s *Store) ListOpenCampaigns(_ context.Context, q domain.OpenCampaignsQuery) ([]domain.Campaign, error) {
	out := make([]domain.Campaign, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		completions := tx.Bucket(bucketCompletions)
		c := tx.Bucket(bucketCampaignSeq).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rec, err := loadCampaign(tx, string(v))
			if err != nil {
				return err
			}
			camp := rec.campaign()
			if !camp.Open() || camp.OwnerID == q.ExcludeOwnerID {
				continue
			}
			if q.ExcludeCompletedBy != "" && completions.Get(completionKey(camp.ID, q.ExcludeCompletedBy)) != nil {
				continue
			}
			out = append(out, *camp)
			if q.Limit > 0 && len(out) == q.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// ListOwnedCampaigns walks the creation index newest first.
func (s *Store) ListOwnedCampaigns(_ context.Context, ownerID string) ([]domain.Campaign, error) {
	out := make([]domain.Campaign, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCampaignSeq).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			rec, err := loadCampaign(tx, string(v))
			if err != nil {
				return err
			}
			camp := rec.campaign()
			if camp.OwnerID == ownerID && camp.Open() {
				out = append(out, *camp)
			}
		}
		return nil
	})
	return out, err
}

// Completions implements port.Store. Keys sort by user id within a
// campaign, so the result is already ordered.
func (s *Store) Completions(_ context.Context, campaignID string) ([]string, error) {
	users := make([]string, 0)
	prefix := completionKey(campaignID, "")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketCompletions).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			users = append(users, string(k[len(prefix):]))
		}
		return nil
	})
	return users, err
}

// History implements port.Store.
func (s *Store) History(_ context.Context, userID string, limit int) ([]domain.LedgerEntry, error) {
	out := make([]domain.LedgerEntry, 0)
	prefix := append([]byte(userID), 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLedger).Cursor()

		// Position after the user's last entry, then walk backwards.
		var k, v []byte
		if k, _ = c.Seek(append(bytes.Clone(prefix), bytes.Repeat([]byte{0xff}, 8)...)); k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			var e domain.LedgerEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to unmarshal ledger entry: %w", err)
			}
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) GetAccount(_ context.Context, userID string) (*domain.Account, error) {
	return loadAccount(t.tx, userID)
}

func (t *boltTx) CreateAccount(_ context.Context, acc *domain.Account) error {
	if t.tx.Bucket(bucketAccounts).Get([]byte(acc.ID)) != nil {
		return nil
	}
	return t.putAccount(acc)
}

func (t *boltTx) UpdateAccount(_ context.Context, acc *domain.Account) error {
	if t.tx.Bucket(bucketAccounts).Get([]byte(acc.ID)) == nil {
		return domain.ErrAccountNotFound
	}
	if acc.Balance.IsNegative() {
		return fmt.Errorf("%w: balance of %s would be negative", domain.ErrInsufficientBalance, acc.ID)
	}
	return t.putAccount(acc)
}

func (t *boltTx) putAccount(acc *domain.Account) error {
	data, err := json.Marshal(newAccountRecord(acc))
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	return t.tx.Bucket(bucketAccounts).Put([]byte(acc.ID), data)
}

func (t *boltTx) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	rec, err := loadCampaign(t.tx, id)
	if err != nil {
		return nil, err
	}
	return rec.campaign(), nil
}

func (t *boltTx) InsertCampaign(_ context.Context, c *domain.Campaign) error {
	if t.tx.Bucket(bucketCampaigns).Get([]byte(c.ID)) != nil {
		return fmt.Errorf("campaign %s already exists", c.ID)
	}
	seqBucket := t.tx.Bucket(bucketCampaignSeq)
	seq, err := seqBucket.NextSequence()
	if err != nil {
		return err
	}
	if err = seqBucket.Put(seqKey(seq), []byte(c.ID)); err != nil {
		return fmt.Errorf("failed to index campaign: %w", err)
	}
	return t.putCampaign(&campaignRecord{Campaign: *c, Seq: seq})
}

func (t *boltTx) UpdateCampaign(_ context.Context, c *domain.Campaign) error {
	rec, err := loadCampaign(t.tx, c.ID)
	if err != nil {
		return err
	}
	rec.Campaign = *c
	return t.putCampaign(rec)
}

func (t *boltTx) putCampaign(rec *campaignRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}
	return t.tx.Bucket(bucketCampaigns).Put([]byte(rec.ID), data)
}

func (t *boltTx) HasCompleted(_ context.Context, campaignID, userID string) (bool, error) {
	return t.tx.Bucket(bucketCompletions).Get(completionKey(campaignID, userID)) != nil, nil
}

func (t *boltTx) AddCompletion(_ context.Context, campaignID, userID string, at time.Time) error {
	b := t.tx.Bucket(bucketCompletions)
	key := completionKey(campaignID, userID)
	if b.Get(key) != nil {
		return domain.ErrAlreadyCompleted
	}
	ts, err := at.MarshalBinary()
	if err != nil {
		return err
	}
	return b.Put(key, ts)
}

func (t *boltTx) AppendLedger(_ context.Context, e domain.LedgerEntry) error {
	b := t.tx.Bucket(bucketLedger)
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	key := append(append([]byte(e.UserID), 0), seqKey(seq)...)
	return b.Put(key, data)
}

func loadAccount(tx *bolt.Tx, userID string) (*domain.Account, error) {
	data := tx.Bucket(bucketAccounts).Get([]byte(userID))
	if data == nil {
		return nil, domain.ErrAccountNotFound
	}
	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return rec.account()
}

func loadCampaign(tx *bolt.Tx, id string) (*campaignRecord, error) {
	data := tx.Bucket(bucketCampaigns).Get([]byte(id))
	if data == nil {
		return nil, domain.ErrCampaignNotFound
	}
	var rec campaignRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign: %w", err)
	}
	return &rec, nil
}

// completionKey is campaignID NUL userID.
func completionKey(campaignID, userID string) []byte {
	key := make([]byte, 0, len(campaignID)+1+len(userID))
	key = append(key, campaignID...)
	key = append(key, 0)
	return append(key, userID...)
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// accountRecord is the stored form of domain.Account.
type accountRecord struct {
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

func newAccountRecord(acc *domain.Account) accountRecord {
	rec := accountRecord{
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
		rec.LastReset = acc.Quota.LastReset.String()
	}
	return rec
}

func (r accountRecord) account() (*domain.Account, error) {
	acc := &domain.Account{
		ID:                 r.ID,
		Email:              r.Email,
		Balance:            r.Balance,
		ActiveCampaigns:    r.ActiveCampaigns,
		Onboarding:         r.Onboarding,
		OnboardingComplete: r.OnboardingComplete,
		Quota: domain.DailyQuota{
			AdsWatched:   r.AdsWatched,
			BonusClaimed: r.BonusClaimed,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if acc.Onboarding == nil {
		acc.Onboarding = map[string]bool{}
	}
	if r.LastReset != "" {
		d, err := civil.ParseDate(r.LastReset)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", r.ID, err)
		}
		acc.Quota.LastReset = d
	}
	return acc, nil
}

// campaignRecord is the stored form of domain.Campaign.
type campaignRecord struct {
	domain.Campaign
	Seq uint64 `json:"seq"`
}

func (r *campaignRecord) campaign() *domain.Campaign {
	c := r.Campaign
	return &c
}
