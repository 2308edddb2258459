package domain

import "errors"

// Kind classifies an error by how a caller is expected to react to it.
type Kind int

const (
	// KindTransient is returned for failures that are safe to retry from
	// scratch: exhausted conflict retries or an unreachable store. Errors that
	// are not a *Error classify as transient.
	KindTransient Kind = iota
	// KindValidation marks malformed input or an unmet balance rule.
	KindValidation
	// KindStateConflict marks a business-rule denial.
	KindStateConflict
	// KindNotFound marks a vanished account or campaign.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// Error is a classified ledger error. Sentinels below are compared with
// errors.Is; context is added by wrapping with fmt.Errorf("%w: ...").
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrInvalidURL            = &Error{Kind: KindValidation, Code: "invalid_url", Msg: "invalid profile url"}
	ErrInvalidTarget         = &Error{Kind: KindValidation, Code: "invalid_target", Msg: "invalid follow target"}
	ErrBelowMinimumBalance   = &Error{Kind: KindValidation, Code: "below_minimum_balance", Msg: "balance below minimum required to post"}
	ErrInsufficientBalance   = &Error{Kind: KindValidation, Code: "insufficient_balance", Msg: "insufficient points"}
	ErrUnknownOnboardingItem = &Error{Kind: KindValidation, Code: "unknown_onboarding_item", Msg: "unknown onboarding item"}
	ErrOnboardingIncomplete  = &Error{Kind: KindValidation, Code: "onboarding_incomplete", Msg: "onboarding checklist incomplete"}
	ErrVerificationRequired  = &Error{Kind: KindValidation, Code: "verification_required", Msg: "action not verified"}
	ErrInvalidUserID         = &Error{Kind: KindValidation, Code: "invalid_user_id", Msg: "user id is required"}

	ErrAlreadyCompleted         = &Error{Kind: KindStateConflict, Code: "already_completed", Msg: "task already completed"}
	ErrExhausted                = &Error{Kind: KindStateConflict, Code: "exhausted", Msg: "campaign exhausted"}
	ErrOwnCampaign              = &Error{Kind: KindStateConflict, Code: "own_campaign", Msg: "cannot complete own campaign"}
	ErrOwnerLimitExceeded       = &Error{Kind: KindStateConflict, Code: "owner_limit_exceeded", Msg: "active campaign limit reached"}
	ErrQuotaExceeded            = &Error{Kind: KindStateConflict, Code: "quota_exceeded", Msg: "daily ad limit reached"}
	ErrBonusAlreadyClaimed      = &Error{Kind: KindStateConflict, Code: "bonus_already_claimed", Msg: "daily bonus already claimed"}
	ErrOnboardingAlreadyClaimed = &Error{Kind: KindStateConflict, Code: "onboarding_already_claimed", Msg: "onboarding reward already claimed"}

	ErrAccountNotFound  = &Error{Kind: KindNotFound, Code: "account_not_found", Msg: "account not found"}
	ErrCampaignNotFound = &Error{Kind: KindNotFound, Code: "campaign_not_found", Msg: "campaign not found"}

	ErrTransient = &Error{Kind: KindTransient, Code: "transient", Msg: "temporary failure, retry"}
)

// ErrConflict is reported by a Store when a transaction lost a race against a
// concurrent writer. It never reaches callers of the engine unwrapped.
var ErrConflict = errors.New("transaction conflict")

// KindOf returns the classification of err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// CodeOf returns the machine readable code of err, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
