// Package profit estimates the share of presale participants who can exit at
// break-even or better, given the campaign's fund allocation.
package profit

import "math"

// Input holds the presale economics. Fractions are parts of the raised
// volume, prices are in the base currency.
type Input struct {
	TotalTokenSupply  float64
	LPUsdFraction     float64
	BuybackFraction   float64
	PresalePrice      float64
	ListingMultiplier float64
	BuybackPrice      float64
}

// Result holds each step of the calculation alongside the final share.
type Result struct {
	PresaleFraction          float64
	TokensSoldInPresale      float64
	USDRaised                float64
	TokensInLP               float64
	USDInLP                  float64
	MaxTokensBeforePriceDrop float64
	BuybackUSD               float64
	TokensBoughtByBuyback    float64
	TotalProfitableTokens    float64
	ProfitableUserShare      float64
}

// Calculate derives the profitable-user share from the presale settings.
func Calculate(in Input) Result {
	var r Result

	// Fraction of supply sold in presale vs parked in the liquidity pool.
	r.PresaleFraction = in.ListingMultiplier / (in.ListingMultiplier + in.LPUsdFraction)
	r.TokensSoldInPresale = in.TotalTokenSupply * r.PresaleFraction
	r.USDRaised = r.TokensSoldInPresale * in.PresalePrice

	r.TokensInLP = in.TotalTokenSupply * (1 - r.PresaleFraction)
	r.USDInLP = r.TokensInLP * in.PresalePrice * in.ListingMultiplier

	// Constant-product pool: tokens sellable before price returns to the
	// presale level.
	r.MaxTokensBeforePriceDrop = math.Sqrt(r.TokensInLP*r.USDInLP/in.PresalePrice) - r.TokensInLP

	r.BuybackUSD = r.USDRaised * in.BuybackFraction
	r.TokensBoughtByBuyback = r.BuybackUSD / in.BuybackPrice

	r.TotalProfitableTokens = r.MaxTokensBeforePriceDrop + r.TokensBoughtByBuyback
	r.ProfitableUserShare = r.TotalProfitableTokens / r.TokensSoldInPresale

	return r
}
