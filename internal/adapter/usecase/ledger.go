package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"follow-exchange/internal/core/domain"
	"follow-exchange/internal/core/port"
)

// transact runs fn in a store transaction and replays it from a fresh read
// whenever the store reports a conflict, up to the retry budget. Exhausting
// the budget yields domain.ErrTransient. Any other error ends the loop.
func (u *ExchangeUseCase) transact(ctx context.Context, op string, fn func(ctx context.Context, tx port.Tx) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := u.store.RunInTx(ctx, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, domain.ErrConflict):
			u.metrics.IncTxRetry(op)
			u.logger.Warn("transaction conflict",
				slog.String("op", op),
				slog.Int("attempt", attempt))
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(u.backOff()), backoff.WithMaxTries(u.retry.Attempts))
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%w: %s gave up after %d attempts: %w", domain.ErrTransient, op, attempt, err)
	}
	return err
}

// release hands proof back to the verifier when the operation it guarded
// failed transiently, so the same request can be repeated.
func (u *ExchangeUseCase) release(ctx context.Context, proof domain.Proof, err error) {
	if err == nil || domain.KindOf(err) != domain.KindTransient {
		return
	}
	if rerr := u.verifier.Restore(context.WithoutCancel(ctx), proof); rerr != nil {
		u.logger.Warn("failed to restore verification",
			slog.Any("error", rerr),
			slog.Any("cause", err))
	}
}

func (u *ExchangeUseCase) backOff() backoff.BackOff {
	if u.retry.Delay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.retry.Delay
	b.MaxInterval = 20 * u.retry.Delay
	return b
}

// post adjusts acc's balance by amount and appends the matching ledger entry
// in tx. The caller still has to persist acc with tx.UpdateAccount.
func (u *ExchangeUseCase) post(ctx context.Context, tx port.Tx, acc *domain.Account, kind domain.EntryKind, amount decimal.Decimal, ref string) error {
	if err := acc.Adjust(amount); err != nil {
		return err
	}
	now := u.now()
	acc.UpdatedAt = now
	return tx.AppendLedger(ctx, domain.LedgerEntry{
		ID:           uuid.NewString(),
		UserID:       acc.ID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: acc.Balance,
		Ref:          ref,
		CreatedAt:    now,
	})
}

// start opens an operation span.
func (u *ExchangeUseCase) start(ctx context.Context, op, userID string) (context.Context, trace.Span) {
	return u.tracer.Start(ctx, "exchange."+op, trace.WithAttributes(
		attribute.String("exchange.user_id", userID),
	))
}

// finish closes the span of op and records its outcome.
func (u *ExchangeUseCase) finish(span trace.Span, op string, err error) {
	defer span.End()
	if err == nil {
		u.metrics.ObserveOperation(op, "ok")
		return
	}
	u.metrics.ObserveOperation(op, domain.CodeOf(err))
	span.SetAttributes(attribute.String("exchange.error_kind", domain.KindOf(err).String()))
	if domain.KindOf(err) == domain.KindTransient {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (u *ExchangeUseCase) credited(kind domain.EntryKind, amount decimal.Decimal) {
	u.metrics.AddPoints(string(kind), amount.InexactFloat64())
}
