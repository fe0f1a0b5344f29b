package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"staking_portfolio/internal/chain"
	"staking_portfolio/internal/client"
	"staking_portfolio/internal/config"
	"staking_portfolio/internal/entity"
	"staking_portfolio/internal/pkg/fixedpoint"
	"staking_portfolio/internal/protocols"
)

const daysPerYear = 365

// AssetToken is the slice of the staked-token contract the yield pipeline
// needs: total value locked and the share-to-asset conversion.
type AssetToken interface {
	Decimals() uint32
	TotalAssets(ctx context.Context, block uint64) (fixedpoint.Decimal, error)
	ConvertToAssets(ctx context.Context, shares fixedpoint.Decimal, block uint64) (fixedpoint.Decimal, error)
}

type yieldAsset struct {
	entry config.AssetEntry
	token AssetToken
}

// YieldService computes protocol APY per asset category. All amount math
// runs on exact decimals; floating point appears only in the final quote.
type YieldService struct {
	reader    chain.Reader
	params    ParamsReader
	oracle    client.PriceOracle
	strkAsset yieldAsset
	btcAssets map[string]yieldAsset
	logger    *zap.Logger
}

// NewYieldService wires the yield pipeline from configuration.
func NewYieldService(reader chain.Reader, oracle client.PriceOracle, cfg config.StakingConfig, logger *zap.Logger) (*YieldService, error) {
	if !common.IsHexAddress(cfg.StakingContract) {
		return nil, fmt.Errorf("invalid staking contract address %q", cfg.StakingContract)
	}
	if !common.IsHexAddress(cfg.MintingContract) {
		return nil, fmt.Errorf("invalid minting contract address %q", cfg.MintingContract)
	}
	if !common.IsHexAddress(cfg.STRKAsset.Contract) {
		return nil, fmt.Errorf("invalid STRK asset contract address %q", cfg.STRKAsset.Contract)
	}

	svc := &YieldService{
		reader: reader,
		params: NewChainParamsReader(reader,
			common.HexToAddress(cfg.StakingContract),
			common.HexToAddress(cfg.MintingContract),
			cfg.ProtocolFeeBps),
		oracle: oracle,
		strkAsset: yieldAsset{
			entry: cfg.STRKAsset,
			token: protocols.NewLSTContract(reader, common.HexToAddress(cfg.STRKAsset.Contract), cfg.STRKAsset.Decimals),
		},
		btcAssets: make(map[string]yieldAsset, len(cfg.BTCAssets)),
		logger:    logger.Named("YieldService"),
	}

	for _, asset := range cfg.BTCAssets {
		if !common.IsHexAddress(asset.Contract) {
			return nil, fmt.Errorf("invalid BTC asset contract address %q", asset.Contract)
		}
		svc.btcAssets[asset.Symbol] = yieldAsset{
			entry: asset,
			token: protocols.NewLSTContract(reader, common.HexToAddress(asset.Contract), asset.Decimals),
		}
	}

	return svc, nil
}

// STRKQuote computes the APY quote for the STRK category.
func (s *YieldService) STRKQuote(ctx context.Context, compounded bool) (entity.APYQuote, error) {
	return s.quote(ctx, entity.CategorySTRK, s.strkAsset, compounded)
}

// BTCQuote computes the APY quote for one BTC-category asset.
func (s *YieldService) BTCQuote(ctx context.Context, assetSymbol string, compounded bool) (entity.APYQuote, error) {
	asset, ok := s.btcAssets[assetSymbol]
	if !ok {
		return entity.APYQuote{}, &entity.StructuralError{Field: "asset", Reason: fmt.Sprintf("unknown BTC asset %q", assetSymbol)}
	}
	return s.quote(ctx, entity.CategoryBTC, asset, compounded)
}

// BTCAssetSymbols lists the configured BTC-category assets, sorted.
func (s *YieldService) BTCAssetSymbols() []string {
	out := make([]string, 0, len(s.btcAssets))
	for symbol := range s.btcAssets {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func (s *YieldService) quote(ctx context.Context, category entity.AssetCategory, asset yieldAsset, compounded bool) (entity.APYQuote, error) {
	head, err := s.reader.HeadBlock(ctx)
	if err != nil {
		return entity.APYQuote{}, &entity.UpstreamUnavailableError{Op: "yield head", Err: err}
	}

	params, err := s.params.StakingParameters(ctx, head.BlockNumber)
	if err != nil {
		return entity.APYQuote{}, err
	}

	rate, err := s.rate(ctx, category, asset, params)
	if err != nil {
		return entity.APYQuote{}, err
	}

	totalAssets, err := asset.token.TotalAssets(ctx, head.BlockNumber)
	if err != nil {
		return entity.APYQuote{}, err
	}
	underlyingPrice, err := s.oracle.USDPrice(ctx, asset.entry.UnderlyingSymbol)
	if err != nil {
		return entity.APYQuote{}, err
	}
	tvlUsd := fpToDecimal(totalAssets).Mul(underlyingPrice)

	oneShare := fixedpoint.FromInt64(1, 0).Rescale(asset.token.Decimals(), fixedpoint.RoundDown)
	converted, err := asset.token.ConvertToAssets(ctx, oneShare, head.BlockNumber)
	if err != nil {
		return entity.APYQuote{}, err
	}
	exchangeRate := fpToDecimal(converted)

	apy := rate.InexactFloat64()
	if compounded {
		apy = math.Pow(1+apy/daysPerYear, daysPerYear) - 1
	}

	s.logger.Debug("Computed APY quote",
		zap.String("category", string(category)),
		zap.String("asset", asset.entry.Symbol),
		zap.Uint64("block", head.BlockNumber),
		zap.Float64("apy", apy))

	return entity.APYQuote{
		APY:             apy,
		APYInPercentage: fmt.Sprintf("%.2f%%", apy*100),
		TVLUsd:          tvlUsd.InexactFloat64(),
		ExchangeRate:    exchangeRate.InexactFloat64(),
	}, nil
}

// rate returns the fee-adjusted yearly rate on a 0..1 scale. Zero staking
// power means nobody has collected a yield yet; the rate is defined as
// zero rather than a division error.
func (s *YieldService) rate(ctx context.Context, category entity.AssetCategory, asset yieldAsset, params entity.StakingParameters) (decimal.Decimal, error) {
	hundred := decimal.NewFromInt(100)
	mint := fpToDecimal(params.YearlyMinting)
	power := fpToDecimal(params.TotalStakingPower[category])
	if power.IsZero() {
		return decimal.Zero, nil
	}

	var gross decimal.Decimal
	switch category {
	case entity.CategorySTRK:
		gross = mint.Mul(hundred.Sub(params.AllocationAlpha)).Div(hundred.Mul(power))
	case entity.CategoryBTC:
		strkPrice, err := s.oracle.USDPrice(ctx, "STRK")
		if err != nil {
			return decimal.Zero, err
		}
		assetPrice, err := s.oracle.USDPrice(ctx, asset.entry.UnderlyingSymbol)
		if err != nil {
			return decimal.Zero, err
		}
		gross = mint.Mul(strkPrice).Mul(params.AllocationAlpha).Div(hundred.Mul(power).Mul(assetPrice))
	default:
		return decimal.Zero, fmt.Errorf("unknown asset category %q", category)
	}

	fee := decimal.NewFromInt(params.ProtocolFeeBps).Div(decimal.NewFromInt(10000))
	return gross.Mul(decimal.NewFromInt(1).Sub(fee)), nil
}

func fpToDecimal(d fixedpoint.Decimal) decimal.Decimal {
	return decimal.NewFromBigInt(d.BigInt(), -int32(d.Scale()))
}
