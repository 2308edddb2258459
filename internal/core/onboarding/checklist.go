package onboarding

import (
	"maps"

	"follow-exchange/internal/core/domain"
)

// Item is one one-time task of the onboarding checklist.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Checklist is the fixed, ordered set of onboarding items.
type Checklist struct {
	items []Item
}

// New builds a checklist from items in display order.
func New(items ...Item) Checklist {
	return Checklist{items: append([]Item(nil), items...)}
}

// Default returns the checklist every new account starts with.
func Default() Checklist {
	return New(
		Item{ID: "tg1", Name: "Telegram Channel 1", URL: "https://t.me/ABaseGrow"},
		Item{ID: "tg2", Name: "Telegram Channel 2", URL: "https://t.me/Scalpingargha"},
		Item{ID: "tw", Name: "Twitter X", URL: "https://x.com/Arghade74167980"},
		Item{ID: "yt", Name: "YouTube", URL: "https://youtube.com/@aafxtrade"},
	)
}

// Items returns the checklist items in display order.
func (c Checklist) Items() []Item {
	return append([]Item(nil), c.items...)
}

// IDs returns the item ids in display order.
func (c Checklist) IDs() []string {
	ids := make([]string, len(c.items))
	for i, it := range c.items {
		ids[i] = it.ID
	}
	return ids
}

// Has reports whether id belongs to the checklist.
func (c Checklist) Has(id string) bool {
	for _, it := range c.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

// Done reports whether every item is marked on acc.
func (c Checklist) Done(acc *domain.Account) bool {
	for _, it := range c.items {
		if !acc.Onboarding[it.ID] {
			return false
		}
	}
	return true
}

// Progress returns the state of every checklist item on acc.
func (c Checklist) Progress(acc *domain.Account) map[string]bool {
	out := make(map[string]bool, len(c.items))
	for _, it := range c.items {
		out[it.ID] = acc.Onboarding[it.ID]
	}
	return out
}

// Outcome tells the caller what Mark changed.
type Outcome struct {
	// Changed is false when the item was already set or the checklist is
	// frozen.
	Changed bool
	// Completed is true only when this call flipped OnboardingComplete.
	Completed bool
}

// Mark sets item id on acc. Marking an already set item is a no-op. When the
// last item is set the account flips to complete; the caller must pay the
// reward in the same transaction. Completed accounts are frozen.
func (c Checklist) Mark(acc *domain.Account, id string) (Outcome, error) {
	if !c.Has(id) {
		return Outcome{}, domain.ErrUnknownOnboardingItem
	}
	if acc.OnboardingComplete || acc.Onboarding[id] {
		return Outcome{}, nil
	}
	if acc.Onboarding == nil {
		acc.Onboarding = make(map[string]bool, len(c.items))
	} else {
		acc.Onboarding = maps.Clone(acc.Onboarding)
	}
	acc.Onboarding[id] = true
	out := Outcome{Changed: true}
	if c.Done(acc) {
		acc.OnboardingComplete = true
		out.Completed = true
	}
	return out, nil
}

// Complete flips an account whose items are all set but which was never
// marked complete.
func (c Checklist) Complete(acc *domain.Account) error {
	if acc.OnboardingComplete {
		return domain.ErrOnboardingAlreadyClaimed
	}
	if !c.Done(acc) {
		return domain.ErrOnboardingIncomplete
	}
	acc.OnboardingComplete = true
	return nil
}
