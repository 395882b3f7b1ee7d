package domain

// CampaignStatus is the lifecycle state of a presale campaign.
// Statuses only move forward through the enum; the value is written either
// by the lifecycle scheduler or by a reconciling on-chain status event.
type CampaignStatus string

const (
	StatusUpcoming             CampaignStatus = "upcoming"
	StatusPresaleOpened        CampaignStatus = "presaleOpened"
	StatusPresaleFinished      CampaignStatus = "presaleFinished"
	StatusDistributionOpened   CampaignStatus = "distributionOpened"
	StatusDistributionFinished CampaignStatus = "distributionFinished"
)

// statusOrder maps each status to its forward position in the lifecycle.
var statusOrder = map[CampaignStatus]int{
	StatusUpcoming:             0,
	StatusPresaleOpened:        1,
	StatusPresaleFinished:      2,
	StatusDistributionOpened:   3,
	StatusDistributionFinished: 4,
}

// Valid reports whether s is a known lifecycle status.
func (s CampaignStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// Terminal reports whether s is the final lifecycle status.
func (s CampaignStatus) Terminal() bool {
	return s == StatusDistributionFinished
}

// Before reports whether s comes strictly before other in the lifecycle.
func (s CampaignStatus) Before(other CampaignStatus) bool {
	return statusOrder[s] < statusOrder[other]
}
