package domain

import "time"

// Platform identifies the advertising platform a campaign runs on.
type Platform string

const (
	PlatformFacebook  Platform = "Facebook"
	PlatformGoogle    Platform = "Google"
	PlatformInstagram Platform = "Instagram"
	PlatformLinkedIn  Platform = "LinkedIn"
	PlatformYouTube   Platform = "YouTube"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignPaused CampaignStatus = "paused"
)

// Campaign is a marketing campaign as written by campaign management.
// The monitor only reads campaigns.
// Budgets are stored in integer cents.
type Campaign struct {
	ID              int64
	Name            string
	Platform        Platform
	Objective       string
	StartDate       time.Time
	EndDate         time.Time
	BudgetCents     int64
	AudienceSegment string
	Status          CampaignStatus
	OwnerEmail      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DailyBudget approximates the campaign's daily budget in dollars
// (total budget spread over 30 days).
func (c Campaign) DailyBudget() float64 {
	return float64(c.BudgetCents) / 100 / 30
}
