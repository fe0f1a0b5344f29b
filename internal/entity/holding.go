package entity

import "staking_portfolio/internal/pkg/fixedpoint"

// Protocol identifies one DeFi protocol the staked token can sit in.
type Protocol string

const (
	// ProtocolWallet is the plain wallet balance of the staked token.
	ProtocolWallet Protocol = "wallet"
	ProtocolVesu   Protocol = "vesu"
	ProtocolEkubo  Protocol = "ekubo"
	ProtocolNostra Protocol = "nostra"
)

// ProtocolHolding is one protocol's contribution for one address at one
// block: the wrapped (staked-token) amount held there and its value in the
// underlying asset.
type ProtocolHolding struct {
	Protocol         Protocol           `json:"protocol"`
	WrappedAmount    fixedpoint.Decimal `json:"xAmount"`
	UnderlyingAmount fixedpoint.Decimal `json:"amount"`
}

// ZeroHolding is the sentinel recorded when a (protocol, block) unit fails
// after exhausting its retries.
func ZeroHolding(p Protocol, scale uint32) ProtocolHolding {
	return ProtocolHolding{
		Protocol:         p,
		WrappedAmount:    fixedpoint.Zero(scale),
		UnderlyingAmount: fixedpoint.Zero(scale),
	}
}

// SnapshotPoint is the per-block row of a portfolio snapshot. Holdings
// always contains one entry per registered protocol, zero-filled on
// partial failure, so positional consumers never go out of bounds.
type SnapshotPoint struct {
	Block    BlockInfo                    `json:"block"`
	Holdings map[Protocol]ProtocolHolding `json:"holdings"`
}

// PortfolioSnapshot is an ordered (ascending by timestamp) series of
// per-block holdings for one address. Partial is set when any unit was
// zero-filled after retry exhaustion.
type PortfolioSnapshot struct {
	Address string          `json:"address"`
	Points  []SnapshotPoint `json:"points"`
	Partial bool            `json:"partial"`
}
