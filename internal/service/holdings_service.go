// Package service implements the portfolio reconstruction and yield
// calculation pipelines on top of the chain and protocol layers.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"staking_portfolio/internal/chain"
	"staking_portfolio/internal/config"
	"staking_portfolio/internal/entity"
	"staking_portfolio/internal/pkg/retry"
	"staking_portfolio/internal/protocols"
	"staking_portfolio/pkg/metrics"
)

// HoldingsService reconstructs per-protocol holdings of one address across
// a list of historical blocks.
type HoldingsService struct {
	reader        chain.Reader
	registry      *protocols.Registry
	logger        *zap.Logger
	limiter       *rate.Limiter
	maxConcurrent int
	maxAttempts   int
	retryDelay    time.Duration
	amountScale   uint32
}

// NewHoldingsService creates the aggregator. amountScale is the staked
// token's decimal scale, used for zero-filled holdings.
func NewHoldingsService(
	reader chain.Reader,
	registry *protocols.Registry,
	amountScale uint32,
	cfg config.RpcClientConfig,
	logger *zap.Logger,
) *HoldingsService {
	return &HoldingsService{
		reader:        reader,
		registry:      registry,
		logger:        logger.Named("HoldingsService"),
		limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstLimit),
		maxConcurrent: cfg.MaxConcurrentRequests,
		maxAttempts:   cfg.MaxRetries,
		retryDelay:    time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		amountScale:   amountScale,
	}
}

// Holdings fans out one retried fetch per (protocol, block) unit and joins
// the results into a snapshot with a fixed layout: every block carries one
// holding per registered protocol. A unit that exhausts its retries is
// recorded as a zero holding and flips the Partial flag; it never fails
// the snapshot. Only structural problems or context cancellation do.
func (s *HoldingsService) Holdings(ctx context.Context, address string, blocks []entity.BlockInfo) (*entity.PortfolioSnapshot, error) {
	if !common.IsHexAddress(address) {
		return nil, &entity.StructuralError{Field: "address", Reason: "not a valid hex address"}
	}
	if len(blocks) == 0 {
		return nil, &entity.StructuralError{Field: "blocks", Reason: "empty block list"}
	}

	account := common.HexToAddress(address)
	protocolSet := s.registry.Protocols()

	// Pre-fill every cell with the zero sentinel so the layout invariant
	// holds no matter which units succeed.
	points := make([]entity.SnapshotPoint, len(blocks))
	for i, block := range blocks {
		holdings := make(map[entity.Protocol]entity.ProtocolHolding, len(protocolSet))
		for _, proto := range protocolSet {
			holdings[proto] = entity.ZeroHolding(proto, s.amountScale)
		}
		points[i] = entity.SnapshotPoint{Block: block, Holdings: holdings}
	}

	var mu sync.Mutex
	partial := false

	eg, childCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxConcurrent)

	for i := range blocks {
		for _, proto := range protocolSet {
			i, proto := i, proto
			fetcher, ok := s.registry.Fetcher(proto)
			if !ok {
				continue
			}
			blockNumber := blocks[i].BlockNumber

			eg.Go(func() error {
				if err := s.limiter.Wait(childCtx); err != nil {
					return err
				}

				holding, err := retry.Do(childCtx, s.maxAttempts, s.retryDelay,
					func(ctx context.Context) (entity.ProtocolHolding, error) {
						return fetcher(ctx, account, blockNumber)
					})

				mu.Lock()
				defer mu.Unlock()

				if err != nil {
					if childCtx.Err() != nil {
						return childCtx.Err()
					}
					s.logger.Warn("Holdings unit failed after retries, zero-filling",
						zap.String("protocol", string(proto)),
						zap.Uint64("block", blockNumber),
						zap.Error(err))
					metrics.HoldingUnitFailures.WithLabelValues(string(proto)).Inc()
					partial = true
					return nil
				}

				points[i].Holdings[proto] = holding
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &entity.PortfolioSnapshot{
		Address: account.Hex(),
		Points:  points,
		Partial: partial,
	}, nil
}

// HoldingsAtBlock is the single-block variant of Holdings.
func (s *HoldingsService) HoldingsAtBlock(ctx context.Context, address string, blockNumber uint64) (*entity.PortfolioSnapshot, error) {
	block, err := s.reader.BlockByNumber(ctx, blockNumber)
	if err != nil {
		return nil, &entity.UpstreamUnavailableError{Op: "block lookup", Err: err}
	}
	return s.Holdings(ctx, address, []entity.BlockInfo{block})
}
