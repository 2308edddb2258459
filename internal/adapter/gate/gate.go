// Package gate implements the verification gate that stands between a user
// action on a third-party surface and the reward for it. Task, onboarding
// and bonus tickets become valid after a fixed delay; ad tickets are issued
// ready once the ad network resolved.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
	"follow-exchange/internal/metrics"
)

const (
	DefaultDelay = 6 * time.Second
	DefaultTTL   = 10 * time.Minute

	keyPrefix   = "ticket:"
	spentPrefix = "spent:"
)

// Gate issues and redeems single-use verification tickets.
type Gate struct {
	cache   port.Cache
	delay   time.Duration
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ port.Verifier = (*Gate)(nil)

// Option configures a Gate.
type Option func(*Gate)

// WithDelay sets how long after issue a ticket becomes valid.
func WithDelay(d time.Duration) Option {
	return func(g *Gate) { g.delay = d }
}

// WithTTL sets how long a ready ticket stays redeemable.
func WithTTL(d time.Duration) Option {
	return func(g *Gate) { g.ttl = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithMetrics enables ticket counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// New returns a gate storing tickets in cache.
func New(cache port.Cache, opts ...Option) *Gate {
	g := &Gate{
		cache:  cache,
		delay:  DefaultDelay,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Issue starts a verification for userID. Tasks need the campaign id and
// onboarding needs the item id as subject. Ad tickets are only issued by
// ConfirmAd.
func (g *Gate) Issue(ctx context.Context, userID string, purpose domain.Purpose, subject string) (*domain.Ticket, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUserID
	}
	switch purpose {
	case domain.PurposeTask, domain.PurposeOnboarding:
		if subject == "" {
			return nil, fmt.Errorf("%w: %s ticket needs a subject", domain.ErrVerificationRequired, purpose)
		}
	case domain.PurposeBonus:
		subject = ""
	case domain.PurposeAd:
		return nil, fmt.Errorf("%w: ad tickets are issued by the ad network", domain.ErrVerificationRequired)
	default:
		return nil, fmt.Errorf("%w: unknown purpose %q", domain.ErrVerificationRequired, purpose)
	}
	return g.issue(ctx, userID, purpose, subject, g.delay)
}

// ConfirmAd shows one ad through ads and issues a ready ad ticket once it
// resolved, whether or not the user watched it to the end. An SDK error
// issues nothing.
func (g *Gate) ConfirmAd(ctx context.Context, userID string, ads port.AdNetwork) (*domain.Ticket, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUserID
	}
	watched, err := ads.ShowAd(ctx, userID)
	if err != nil {
		g.logger.Warn("ad network failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, fmt.Errorf("show ad: %w", err)
	}
	g.logger.Debug("ad resolved",
		slog.String("user_id", userID),
		slog.Bool("watched", watched))
	return g.issue(ctx, userID, domain.PurposeAd, "", 0)
}

func (g *Gate) issue(ctx context.Context, userID string, purpose domain.Purpose, subject string, delay time.Duration) (*domain.Ticket, error) {
	now := g.now()
	t := &domain.Ticket{
		Token:     uuid.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		Subject:   subject,
		ReadyAt:   now.Add(delay),
		ExpiresAt: now.Add(delay + g.ttl),
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	if err = g.cache.Set(ctx, keyPrefix+t.Token, data, delay+g.ttl); err != nil {
		return nil, fmt.Errorf("store ticket: %w", err)
	}
	g.metrics.IncTicketIssued(string(purpose))
	return t, nil
}

// Wait blocks until t is ready or ctx is done.
func (g *Gate) Wait(ctx context.Context, t *domain.Ticket) error {
	d := t.ReadyAt.Sub(g.now())
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Verify redeems proof for the given operation. A matching, ready ticket is
// consumed; anything else fails with domain.ErrVerificationRequired. A
// ticket presented before it is ready is put back so it can be retried.
// A consumed ticket is remembered until it expires so Restore can undo the
// redemption.
func (g *Gate) Verify(ctx context.Context, userID string, purpose domain.Purpose, subject string, proof domain.Proof) error {
	if proof.Token == "" {
		return g.reject("missing", nil)
	}
	key := keyPrefix + proof.Token
	data, err := g.cache.GetDel(ctx, key)
	if errors.Is(err, port.ErrCacheMiss) {
		return g.reject("unknown", nil)
	}
	if err != nil {
		return fmt.Errorf("%w: read ticket: %w", domain.ErrTransient, err)
	}

	var t domain.Ticket
	if err = json.Unmarshal(data, &t); err != nil {
		return g.reject("corrupt", err)
	}
	if t.UserID != userID || t.Purpose != purpose || t.Subject != subject {
		return g.reject("mismatch", nil)
	}

	now := g.now()
	if !now.Before(t.ExpiresAt) {
		return g.reject("expired", nil)
	}
	if now.Before(t.ReadyAt) {
		if err = g.cache.Set(ctx, key, data, t.ExpiresAt.Sub(now)); err != nil {
			g.logger.Warn("failed to restore early ticket", slog.Any("error", err))
		}
		return g.reject("early", nil)
	}
	if err = g.cache.Set(ctx, spentPrefix+proof.Token, data, t.ExpiresAt.Sub(now)); err != nil {
		g.logger.Warn("failed to remember redeemed ticket", slog.Any("error", err))
	}
	return nil
}

// Restore makes a ticket redeemed by Verify redeemable again. Tickets that
// were never redeemed, were already restored or have expired since are
// ignored.
func (g *Gate) Restore(ctx context.Context, proof domain.Proof) error {
	if proof.Token == "" {
		return nil
	}
	data, err := g.cache.GetDel(ctx, spentPrefix+proof.Token)
	if errors.Is(err, port.ErrCacheMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read redeemed ticket: %w", err)
	}

	var t domain.Ticket
	if err = json.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decode redeemed ticket: %w", err)
	}
	ttl := t.ExpiresAt.Sub(g.now())
	if ttl <= 0 {
		return nil
	}
	if err = g.cache.Set(ctx, keyPrefix+proof.Token, data, ttl); err != nil {
		return fmt.Errorf("restore ticket: %w", err)
	}
	g.logger.Debug("ticket restored",
		slog.String("user_id", t.UserID),
		slog.String("purpose", string(t.Purpose)))
	return nil
}

func (g *Gate) reject(reason string, cause error) error {
	g.metrics.IncTicketRejected(reason)
	if cause != nil {
		return fmt.Errorf("%w: %s ticket: %v", domain.ErrVerificationRequired, reason, cause)
	}
	return fmt.Errorf("%w: %s ticket", domain.ErrVerificationRequired, reason)
}
