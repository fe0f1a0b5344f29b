package chain

import (
	"context"

	"go.uber.org/zap"

	"staking_portfolio/internal/entity"
)

// Resolver maps a wall-clock timestamp to the nearest chain block by binary
// search over block numbers. Every probe is a network round-trip, so the
// search runs in O(log head) remote calls and is meant for single-point
// lookups; multi-checkpoint ranges go through the RangeGenerator instead.
// The resolver holds no cache; callers memoize results if they need to.
type Resolver struct {
	reader       Reader
	genesisBlock uint64
	logger       *zap.Logger
}

// NewResolver creates a resolver bounded below by the deployment block.
func NewResolver(reader Reader, genesisBlock uint64, logger *zap.Logger) *Resolver {
	return &Resolver{
		reader:       reader,
		genesisBlock: genesisBlock,
		logger:       logger.Named("Resolver"),
	}
}

// Resolve returns the block whose timestamp is closest to target. An exact
// timestamp match returns immediately; otherwise the two blocks around the
// convergence point are compared and ties resolve toward the lower block
// number. Targets outside [genesis, head] fail with OutOfRangeError.
func (r *Resolver) Resolve(ctx context.Context, target int64) (entity.BlockInfo, error) {
	head, err := r.reader.HeadBlock(ctx)
	if err != nil {
		return entity.BlockInfo{}, &entity.UpstreamUnavailableError{Op: "resolve head", Err: err}
	}
	genesis, err := r.reader.BlockByNumber(ctx, r.genesisBlock)
	if err != nil {
		return entity.BlockInfo{}, &entity.UpstreamUnavailableError{Op: "resolve genesis", Err: err}
	}

	if target < genesis.Timestamp || target > head.Timestamp {
		return entity.BlockInfo{}, &entity.OutOfRangeError{
			Timestamp:        target,
			GenesisTimestamp: genesis.Timestamp,
			HeadTimestamp:    head.Timestamp,
		}
	}

	// Signed bounds keep the mid-1 step safe at block zero.
	low, high := int64(genesis.BlockNumber), int64(head.BlockNumber)
	for low <= high {
		mid := uint64(low + (high-low)/2)
		probe, err := r.reader.BlockByNumber(ctx, mid)
		if err != nil {
			return entity.BlockInfo{}, &entity.UpstreamUnavailableError{Op: "resolve probe", Err: err}
		}

		switch {
		case probe.Timestamp == target:
			return probe, nil
		case probe.Timestamp < target:
			low = int64(mid) + 1
		default:
			high = int64(mid) - 1
		}
	}

	// No exact match: low has crossed high. The candidates are the block
	// below the target (high) and the block above it (low), clamped to the
	// searchable range.
	lower := uint64(max64(high, int64(genesis.BlockNumber)))
	upper := uint64(min64(low, int64(head.BlockNumber)))

	lowerBlock, err := r.reader.BlockByNumber(ctx, lower)
	if err != nil {
		return entity.BlockInfo{}, &entity.UpstreamUnavailableError{Op: "resolve boundary", Err: err}
	}
	if upper == lower {
		return lowerBlock, nil
	}
	upperBlock, err := r.reader.BlockByNumber(ctx, upper)
	if err != nil {
		return entity.BlockInfo{}, &entity.UpstreamUnavailableError{Op: "resolve boundary", Err: err}
	}

	lowerDiff := absDiff(lowerBlock.Timestamp, target)
	upperDiff := absDiff(upperBlock.Timestamp, target)
	if lowerDiff <= upperDiff {
		// Tie resolves toward the lower block number.
		return lowerBlock, nil
	}
	return upperBlock, nil
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
