package domain

import "time"

// Purpose names the kind of reward a verification ticket unlocks.
type Purpose string

const (
	PurposeTask       Purpose = "task"
	PurposeAd         Purpose = "ad"
	PurposeOnboarding Purpose = "onboarding"
	PurposeBonus      Purpose = "bonus"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeTask, PurposeAd, PurposeOnboarding, PurposeBonus:
		return true
	}
	return false
}

// Proof is the token a caller presents to show the verification gate
// resolved before a reward operation.
type Proof struct {
	Token string
}

// Ticket is an issued verification. Subject is the campaign id for tasks and
// the item id for onboarding; it is empty otherwise.
type Ticket struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Purpose   Purpose   `json:"purpose"`
	Subject   string    `json:"subject,omitempty"`
	ReadyAt   time.Time `json:"ready_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
