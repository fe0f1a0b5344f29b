package protocols

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"staking_portfolio/internal/chain"
	"staking_portfolio/internal/entity"
	"staking_portfolio/internal/pkg/fixedpoint"
)

// Minimal ABI covering the reads the engine needs: receipt-token balances
// plus the staked token's share conversion and total assets.
const stakedTokenABI = `[
{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"shares","type":"uint256"}],"name":"convertToAssets","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalAssets","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	parsedStakedABI  abi.ABI
	parsedStakedOnce sync.Once
)

func stakedABI() abi.ABI {
	parsedStakedOnce.Do(func() {
		var err error
		parsedStakedABI, err = abi.JSON(strings.NewReader(stakedTokenABI))
		if err != nil {
			// Parsing a compile-time constant; failure is a programming error.
			panic(fmt.Sprintf("failed to parse staked token ABI: %v", err))
		}
	})
	return parsedStakedABI
}

// callUint256 packs a view call, executes it at the given block and
// unpacks a single uint256. Empty return data decodes as zero, matching
// how un-deployed or empty positions respond.
func callUint256(ctx context.Context, reader chain.Reader, to common.Address, method string, block uint64, args ...interface{}) (*big.Int, error) {
	data, err := stakedABI().Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	out, err := reader.CallAtBlock(ctx, to, data, block)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return big.NewInt(0), nil
	}

	unpacked, err := stakedABI().Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("%s unpack returned no data", method)
	}
	value, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("failed to assert %s result to *big.Int, got %T", method, unpacked[0])
	}
	return value, nil
}

// LSTContract is the liquid-staking token: the wrapped asset every
// protocol position ultimately denominates in.
type LSTContract struct {
	reader   chain.Reader
	address  common.Address
	decimals uint32
}

// NewLSTContract binds the staked token at the given address.
func NewLSTContract(reader chain.Reader, address common.Address, decimals uint32) *LSTContract {
	return &LSTContract{reader: reader, address: address, decimals: decimals}
}

// Address returns the token contract address.
func (l *LSTContract) Address() common.Address { return l.address }

// Decimals returns the token's fixed-point scale.
func (l *LSTContract) Decimals() uint32 { return l.decimals }

// BalanceOf reads the wallet balance of the staked token at a block.
func (l *LSTContract) BalanceOf(ctx context.Context, account common.Address, block uint64) (fixedpoint.Decimal, error) {
	raw, err := callUint256(ctx, l.reader, l.address, "balanceOf", block, account)
	if err != nil {
		return fixedpoint.Decimal{}, err
	}
	return fixedpoint.FromBigInt(raw, l.decimals), nil
}

// ConvertToAssets translates a wrapped amount into the underlying asset
// using the on-chain exchange rate as of the given block.
func (l *LSTContract) ConvertToAssets(ctx context.Context, shares fixedpoint.Decimal, block uint64) (fixedpoint.Decimal, error) {
	raw, err := callUint256(ctx, l.reader, l.address, "convertToAssets", block, shares.BigInt())
	if err != nil {
		return fixedpoint.Decimal{}, err
	}
	return fixedpoint.FromBigInt(raw, l.decimals), nil
}

// TotalAssets reads the total underlying value held by the staked token.
func (l *LSTContract) TotalAssets(ctx context.Context, block uint64) (fixedpoint.Decimal, error) {
	raw, err := callUint256(ctx, l.reader, l.address, "totalAssets", block)
	if err != nil {
		return fixedpoint.Decimal{}, err
	}
	return fixedpoint.FromBigInt(raw, l.decimals), nil
}

// NewBalanceFetcher builds the standard two-read fetcher for a protocol:
// the receipt-token balance at the block, then the conversion of that
// wrapped amount into the underlying asset at the same block. Both reads
// share one retry unit in the aggregator.
func NewBalanceFetcher(proto entity.Protocol, reader chain.Reader, lst *LSTContract, position common.Address) Fetcher {
	return func(ctx context.Context, address common.Address, block uint64) (entity.ProtocolHolding, error) {
		raw, err := callUint256(ctx, reader, position, "balanceOf", block, address)
		if err != nil {
			return entity.ProtocolHolding{}, fmt.Errorf("%s balance at block %d: %w", proto, block, err)
		}
		wrapped := fixedpoint.FromBigInt(raw, lst.Decimals())

		if wrapped.IsZero() {
			return entity.ZeroHolding(proto, lst.Decimals()), nil
		}

		underlying, err := lst.ConvertToAssets(ctx, wrapped, block)
		if err != nil {
			return entity.ProtocolHolding{}, fmt.Errorf("%s conversion at block %d: %w", proto, block, err)
		}

		return entity.ProtocolHolding{
			Protocol:         proto,
			WrappedAmount:    wrapped,
			UnderlyingAmount: underlying,
		}, nil
	}
}
