package domain

import "time"

// DescriptionSection is one header/text block of the long campaign description.
type DescriptionSection struct {
	Header string `json:"header"`
	Text   string `json:"text"`
}

// TokenomicsItem is one slice of the tokenomics breakdown. Percent is a
// decimal string to avoid float drift in money-adjacent fields.
type TokenomicsItem struct {
	Item    string `json:"item"`
	Percent string `json:"percent"`
}

// Campaign is one presale campaign. Identity fields (campaign id, token
// name/symbol, derived on-chain addresses, wallet cap, investment bounds,
// supply, unlock interval) are immutable after creation; business fields
// may be updated; lifecycle fields advance only forward.
//
// All monetary fields are decimal strings; on-chain submission converts them
// to fixed-point integers with 9 decimals.
type Campaign struct {
	CampaignID string

	// Token data.
	TokenName   string
	TokenSymbol string
	TokenImage  string

	// Project info.
	ProjectName       string
	ShortDescription1 string
	ShortDescription2 string
	BigDescription    []DescriptionSection
	CoverImage        string

	CurrentStatus CampaignStatus

	// WalletAddress receives collected SOL. Immutable.
	WalletAddress string

	// Derived on-chain addresses, filled after on-chain creation.
	MintAddress     string
	CampaignAddress string
	StatsAddress    string
	TokenAccount    string

	OnChainTokenDescriptor    string
	OnChainCampaignDescriptor string

	// Presale data.
	PresalePrice      string
	ListingMultiplier string
	ListingPrice      string
	ProfitChance      string
	AmountOfWallet    int
	MinInvestmentSize string
	MaxInvestmentSize string
	TokenSupply       string

	// TokenUnlockIntervalSec is the claim unlock step in seconds. Immutable.
	TokenUnlockIntervalSec int64

	// Lifecycle timestamps, strictly increasing in this order.
	PresaleStartUTC     time.Time
	PresaleEndUTC       time.Time
	DistributionUTC     time.Time
	PresaleDrawStartUTC time.Time
	PresaleDrawEndUTC   time.Time

	// Token info links.
	Solscan     string
	Dexscreener string
	Raydium     string
	Jupiter     string

	// Funds distribution.
	FundsToLP          string
	BuybackReserve     string
	Team               string
	LiquidityAtListing string
	TokensSentToLP     string
	PriceLevelSupport  string

	// Pie chart percentages.
	PublicProvision string
	Liquidity       string
	PieChartTeam    string
	Marketing       string

	Tokenomics []TokenomicsItem

	// Social links.
	Twitter  string
	Website  string
	Telegram string

	CreatedAt time.Time
}
