package port

import (
	"context"
	"errors"
	"time"

	"follow-exchange/internal/core/domain"
)

//go:generate mockery --name Verifier --with-expecter --output ./mocks --outpkg mocks
//go:generate mockery --name AdNetwork --with-expecter --output ./mocks --outpkg mocks

// Verifier checks that the verification gate resolved for a reward
// operation. Verify consumes the proof; presenting it again fails with
// domain.ErrVerificationRequired. Restore hands a consumed proof back after
// the operation it guarded failed without effect.
type Verifier interface {
	Verify(ctx context.Context, userID string, purpose domain.Purpose, subject string, proof domain.Proof) error
	Restore(ctx context.Context, proof domain.Proof) error
}

// AdNetwork is the third-party ad SDK. ShowAd resolves once the impression
// finished; watched is false when the user skipped it. A non-nil error means
// the ad could not be shown at all.
type AdNetwork interface {
	ShowAd(ctx context.Context, userID string) (watched bool, err error)
}

// ErrCacheMiss is returned by Cache for absent or expired keys.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a byte oriented key/value store with expirations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetDel returns the value and removes the key in one atomic step.
	GetDel(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
