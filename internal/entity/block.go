package entity

import "time"

// BlockInfo is a resolved chain checkpoint: a block number with its real
// timestamp and a derived ISO date for charting.
type BlockInfo struct {
	BlockNumber uint64 `json:"blockNumber"`
	Timestamp   int64  `json:"timestamp"`
	ISODate     string `json:"date"`
}

// NewBlockInfo builds a BlockInfo, deriving the ISO date from the timestamp.
func NewBlockInfo(number uint64, timestamp int64) BlockInfo {
	return BlockInfo{
		BlockNumber: number,
		Timestamp:   timestamp,
		ISODate:     time.Unix(timestamp, 0).UTC().Format(time.RFC3339),
	}
}
