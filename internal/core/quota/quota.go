// Package quota decides whether a user's daily counters still belong to the
// current calendar day. It is evaluated at the top of every reward
// transaction, never as a separate write.
package quota

import (
	"time"

	"cloud.google.com/go/civil"

	"follow-exchange/internal/core/domain"
)

// Today returns the calendar day of now in loc. A nil loc means UTC.
func Today(now time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc))
}

// Stale reports whether q was last reset on a day other than today.
func Stale(q domain.DailyQuota, today civil.Date) bool {
	return q.LastReset != today
}

// Fresh returns q as it should be read today: counters from an earlier day
// are zeroed and stamped with today.
func Fresh(q domain.DailyQuota, today civil.Date) domain.DailyQuota {
	if !Stale(q, today) {
		return q
	}
	return domain.DailyQuota{LastReset: today}
}

// RecordAd counts one watched ad against the daily cap. It fails with
// domain.ErrQuotaExceeded once cap ads were watched today.
func RecordAd(q domain.DailyQuota, today civil.Date, cap int) (domain.DailyQuota, error) {
	q = Fresh(q, today)
	if q.AdsWatched >= cap {
		return q, domain.ErrQuotaExceeded
	}
	q.AdsWatched++
	return q, nil
}

// RecordBonus marks today's bonus claimed. It fails with
// domain.ErrBonusAlreadyClaimed on a second claim the same day.
func RecordBonus(q domain.DailyQuota, today civil.Date) (domain.DailyQuota, error) {
	q = Fresh(q, today)
	if q.BonusClaimed {
		return q, domain.ErrBonusAlreadyClaimed
	}
	q.BonusClaimed = true
	return q, nil
}

// Remaining returns how many ads can still be rewarded today.
func Remaining(q domain.DailyQuota, today civil.Date, cap int) int {
	q = Fresh(q, today)
	return max(cap-q.AdsWatched, 0)
}
