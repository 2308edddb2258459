package usecase

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"follow-exchange/internal/adapter/events"
	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/onboarding"
	"follow-exchange/internal/metrics"
)

// AccountReader serves read-only account projections. It is never consulted
// for a write decision.
type AccountReader interface {
	Account(ctx context.Context, userID string) (*domain.Account, error)
}

// RetryPolicy bounds how often a conflicting transaction is replayed.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts uint
	// Delay is the initial backoff between tries; zero retries immediately.
	Delay time.Duration
}

// Option configures an ExchangeUseCase.
type Option func(*ExchangeUseCase)

// WithRules replaces the default economic rules.
func WithRules(r domain.Rules) Option {
	return func(u *ExchangeUseCase) { u.rules = r }
}

// WithChecklist replaces the default onboarding checklist.
func WithChecklist(c onboarding.Checklist) Option {
	return func(u *ExchangeUseCase) { u.checklist = c }
}

// WithRetry sets the conflict retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(u *ExchangeUseCase) { u.retry = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *ExchangeUseCase) { u.logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(u *ExchangeUseCase) { u.metrics = m }
}

// WithEvents publishes committed changes on m.
func WithEvents(m *events.Manager) Option {
	return func(u *ExchangeUseCase) { u.events = m }
}

// WithAccountReader routes GetAccount through a cached projection.
func WithAccountReader(r AccountReader) Option {
	return func(u *ExchangeUseCase) { u.reader = r }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(u *ExchangeUseCase) { u.tracer = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(u *ExchangeUseCase) { u.now = now }
}

// WithListLimits sets the default and maximum page size of listings.
func WithListLimits(def, maxLimit int) Option {
	return func(u *ExchangeUseCase) {
		u.listDefault = def
		u.listMax = maxLimit
	}
}
