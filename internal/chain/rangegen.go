package chain

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"staking_portfolio/internal/entity"
)

// rangePresets maps a supported day window to its checkpoint gap in days.
// Requests outside this set fail with UnsupportedRangeError.
var rangePresets = map[int]int{
	7:   1,
	30:  3,
	90:  7,
	180: 7,
}

// avgBlockSampleSpan is how many blocks back the generator looks to measure
// the local average block time.
const avgBlockSampleSpan = 1000

const secondsPerDay = 24 * 60 * 60

// RangeGenerator produces sparse historical checkpoints for a day window.
// Instead of binary-searching every checkpoint it extrapolates block
// numbers linearly from a measured average block time and fetches only the
// real header of each estimate: one call per checkpoint instead of
// O(log head). The estimation error is accepted; checkpoints feed charts,
// not settlement, and the error is logged when it grows past half a gap.
type RangeGenerator struct {
	reader Reader
	logger *zap.Logger
	now    func() time.Time
}

// NewRangeGenerator creates a generator reading through the given reader.
func NewRangeGenerator(reader Reader, logger *zap.Logger) *RangeGenerator {
	return &RangeGenerator{
		reader: reader,
		logger: logger.Named("RangeGenerator"),
		now:    time.Now,
	}
}

// Generate returns checkpoints covering [now-days, now], sorted ascending
// by timestamp with duplicate block numbers removed. The chain head is
// always included as the most recent checkpoint.
func (g *RangeGenerator) Generate(ctx context.Context, days int) ([]entity.BlockInfo, error) {
	gapDays, ok := rangePresets[days]
	if !ok {
		return nil, &entity.UnsupportedRangeError{Days: days}
	}

	head, err := g.reader.HeadBlock(ctx)
	if err != nil {
		return nil, &entity.UpstreamUnavailableError{Op: "range head", Err: err}
	}

	sampleStart := uint64(0)
	if head.BlockNumber > avgBlockSampleSpan {
		sampleStart = head.BlockNumber - avgBlockSampleSpan
	}
	past, err := g.reader.BlockByNumber(ctx, sampleStart)
	if err != nil {
		return nil, &entity.UpstreamUnavailableError{Op: "range sample", Err: err}
	}

	span := head.BlockNumber - past.BlockNumber
	avgBlockTime := float64(1)
	if span > 0 {
		avgBlockTime = float64(head.Timestamp-past.Timestamp) / float64(span)
	}
	if avgBlockTime <= 0 {
		avgBlockTime = 1
	}

	now := g.now().Unix()
	gapSeconds := int64(gapDays) * secondsPerDay
	windowStart := now - int64(days)*secondsPerDay

	// The stride rarely lands on the window edge, so the final target is
	// clamped to windowStart; otherwise presets whose gap does not divide
	// the window (90/7, 180/7) would stop a full gap short of covering it.
	targets := make([]int64, 0, days/gapDays+1)
	for target := now - gapSeconds; target > windowStart; target -= gapSeconds {
		targets = append(targets, target)
	}
	targets = append(targets, windowStart)

	blocks := []entity.BlockInfo{head}
	for _, target := range targets {
		behind := uint64(float64(now-target) / avgBlockTime)
		if behind >= head.BlockNumber {
			break
		}
		estimate := head.BlockNumber - behind

		block, err := g.reader.BlockByNumber(ctx, estimate)
		if err != nil {
			return nil, &entity.UpstreamUnavailableError{Op: "range checkpoint", Err: err}
		}

		if drift := absDiff(block.Timestamp, target); drift > gapSeconds/2 {
			g.logger.Warn("checkpoint estimate drifted past half a gap",
				zap.Uint64("block", block.BlockNumber),
				zap.Int64("target", target),
				zap.Int64("driftSeconds", drift))
		}
		blocks = append(blocks, block)
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Timestamp < blocks[j].Timestamp
	})

	// Estimates can collide on the same block near the head; keep one.
	deduped := blocks[:0]
	seen := make(map[uint64]struct{}, len(blocks))
	for _, b := range blocks {
		if _, ok := seen[b.BlockNumber]; ok {
			continue
		}
		seen[b.BlockNumber] = struct{}{}
		deduped = append(deduped, b)
	}

	return deduped, nil
}

// SupportedDays lists the registered day windows, ascending.
func SupportedDays() []int {
	days := make([]int, 0, len(rangePresets))
	for d := range rangePresets {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}
