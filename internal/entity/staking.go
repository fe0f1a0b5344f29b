package entity

import (
	"github.com/shopspring/decimal"

	"staking_portfolio/internal/pkg/fixedpoint"
)

// AssetCategory is the staking reward bucket an asset belongs to.
type AssetCategory string

const (
	CategorySTRK AssetCategory = "strk"
	CategoryBTC  AssetCategory = "btc"
)

// StakingParameters is a single consistent snapshot of the on-chain inputs
// to the APY formula. It is read once per computation; stale and fresh
// reads are never mixed.
type StakingParameters struct {
	YearlyMinting     fixedpoint.Decimal
	TotalStakingPower map[AssetCategory]fixedpoint.Decimal
	AllocationAlpha   decimal.Decimal // percent in [0, 100]
	ProtocolFeeBps    int64
}

// APYQuote is the user-facing yield figure for one asset. Only this final
// display shape carries floating point; all token-amount math behind it is
// fixed-point.
type APYQuote struct {
	APY             float64 `json:"apy"`
	APYInPercentage string  `json:"apyInPercentage"`
	TVLUsd          float64 `json:"tvlUsd"`
	ExchangeRate    float64 `json:"exchangeRate"`
}
