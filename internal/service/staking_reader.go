package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"staking_portfolio/internal/chain"
	"staking_portfolio/internal/entity"
	"staking_portfolio/internal/pkg/fixedpoint"
)

// stakingParamsABI covers the three reads behind one APY computation: the
// minting curve's yearly emission, the per-category staking power and the
// BTC allocation percentage.
const stakingParamsABI = `[
{"constant":true,"inputs":[],"name":"yearlyMinting","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalStakingPower","outputs":[{"name":"strkPower","type":"uint256"},{"name":"btcPower","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"alpha","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	parsedParamsABI  abi.ABI
	parsedParamsOnce sync.Once
)

func paramsABI() abi.ABI {
	parsedParamsOnce.Do(func() {
		var err error
		parsedParamsABI, err = abi.JSON(strings.NewReader(stakingParamsABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse staking params ABI: %v", err))
		}
	})
	return parsedParamsABI
}

// ParamsReader supplies one consistent snapshot of the APY inputs.
type ParamsReader interface {
	StakingParameters(ctx context.Context, block uint64) (entity.StakingParameters, error)
}

// ChainParamsReader reads staking parameters from the staking and minting
// contracts, all pinned to one block so a computation never mixes stale
// and fresh values.
type ChainParamsReader struct {
	reader          chain.Reader
	stakingContract common.Address
	mintingContract common.Address
	feeBps          int64
}

// NewChainParamsReader binds the two parameter contracts.
func NewChainParamsReader(reader chain.Reader, stakingContract, mintingContract common.Address, feeBps int64) *ChainParamsReader {
	return &ChainParamsReader{
		reader:          reader,
		stakingContract: stakingContract,
		mintingContract: mintingContract,
		feeBps:          feeBps,
	}
}

// StakingParameters reads the full parameter snapshot as of one block.
func (r *ChainParamsReader) StakingParameters(ctx context.Context, block uint64) (entity.StakingParameters, error) {
	minting, err := r.callWords(ctx, r.mintingContract, "yearlyMinting", block, 1)
	if err != nil {
		return entity.StakingParameters{}, err
	}

	powers, err := r.callWords(ctx, r.stakingContract, "totalStakingPower", block, 2)
	if err != nil {
		return entity.StakingParameters{}, err
	}

	alpha, err := r.callWords(ctx, r.stakingContract, "alpha", block, 1)
	if err != nil {
		return entity.StakingParameters{}, err
	}

	return entity.StakingParameters{
		YearlyMinting: fixedpoint.FromBigInt(minting[0], 18),
		TotalStakingPower: map[entity.AssetCategory]fixedpoint.Decimal{
			entity.CategorySTRK: fixedpoint.FromBigInt(powers[0], 18),
			entity.CategoryBTC:  fixedpoint.FromBigInt(powers[1], 18),
		},
		AllocationAlpha: decimal.NewFromBigInt(alpha[0], 0),
		ProtocolFeeBps:  r.feeBps,
	}, nil
}

func (r *ChainParamsReader) callWords(ctx context.Context, to common.Address, method string, block uint64, want int) ([]*big.Int, error) {
	data, err := paramsABI().Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	out, err := r.reader.CallAtBlock(ctx, to, data, block)
	if err != nil {
		return nil, fmt.Errorf("%s read failed: %w", method, err)
	}

	unpacked, err := paramsABI().Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(unpacked) < want {
		return nil, fmt.Errorf("%s returned %d values, want %d", method, len(unpacked), want)
	}

	words := make([]*big.Int, want)
	for i := 0; i < want; i++ {
		v, ok := unpacked[i].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("failed to assert %s output %d to *big.Int, got %T", method, i, unpacked[i])
		}
		words[i] = v
	}
	return words, nil
}
