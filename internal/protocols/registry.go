// Package protocols maps protocol keys to holdings fetchers. Protocols are
// data, not code branches: adding one is a single registration driven by
// configuration, never a new call site.
package protocols

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"staking_portfolio/internal/chain"
	"staking_portfolio/internal/config"
	"staking_portfolio/internal/entity"
)

// Fetcher returns the holding of one address inside one protocol as of one
// historical block.
type Fetcher func(ctx context.Context, address common.Address, block uint64) (entity.ProtocolHolding, error)

// Registry holds the registered protocol set in registration order, so
// snapshot layouts stay deterministic.
type Registry struct {
	order    []entity.Protocol
	fetchers map[entity.Protocol]Fetcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[entity.Protocol]Fetcher)}
}

// Register adds or replaces the fetcher for a protocol.
func (r *Registry) Register(p entity.Protocol, f Fetcher) {
	if _, exists := r.fetchers[p]; !exists {
		r.order = append(r.order, p)
	}
	r.fetchers[p] = f
}

// Protocols returns the registered keys in registration order.
func (r *Registry) Protocols() []entity.Protocol {
	out := make([]entity.Protocol, len(r.order))
	copy(out, r.order)
	return out
}

// Fetcher returns the fetcher for a protocol.
func (r *Registry) Fetcher(p entity.Protocol) (Fetcher, bool) {
	f, ok := r.fetchers[p]
	return f, ok
}

// Len returns the number of registered protocols.
func (r *Registry) Len() int { return len(r.order) }

// BuildRegistry wires one balance fetcher per configured protocol entry.
// The wallet protocol reads the staked token itself; every other entry
// reads that protocol's receipt-token contract.
func BuildRegistry(entries []config.ProtocolEntry, reader chain.Reader, lst *LSTContract) (*Registry, error) {
	reg := NewRegistry()
	for _, e := range entries {
		if !common.IsHexAddress(e.Contract) {
			return nil, fmt.Errorf("protocol %s: invalid contract address %q", e.Key, e.Contract)
		}
		proto := entity.Protocol(e.Key)
		reg.Register(proto, NewBalanceFetcher(proto, reader, lst, common.HexToAddress(e.Contract)))
	}
	return reg, nil
}
