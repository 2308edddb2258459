package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CampaignStatus is the lifecycle state of a campaign. Exhausted is terminal.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignExhausted CampaignStatus = "exhausted"
)

// Campaign is a budgeted request for other users to follow TargetURL.
// BudgetRemaining always equals BudgetTotal minus the size of the campaign's
// completion set, which stores keep separately.
type Campaign struct {
	ID              string
	OwnerID         string
	TargetURL       string
	BudgetTotal     int
	BudgetRemaining int
	// Cost is the number of points the owner paid.
	Cost      decimal.Decimal
	Status    CampaignStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the campaign can still be completed.
func (c *Campaign) Open() bool {
	return c.Status == CampaignActive && c.BudgetRemaining > 0
}

// Completed returns the number of successful settlements so far.
func (c *Campaign) Completed() int {
	return c.BudgetTotal - c.BudgetRemaining
}

// Consume takes one unit of budget. It reports whether the campaign became
// exhausted as a result.
func (c *Campaign) Consume(now time.Time) (exhausted bool) {
	c.BudgetRemaining--
	c.UpdatedAt = now
	if c.BudgetRemaining <= 0 {
		c.BudgetRemaining = 0
		c.Status = CampaignExhausted
		return true
	}
	return false
}

// OpenCampaignsQuery selects campaigns a user may work on.
type OpenCampaignsQuery struct {
	ExcludeOwnerID     string
	ExcludeCompletedBy string
	Limit              int
}
