// Package chain wraps the RPC endpoint behind a synchronous-looking
// reader and builds the block/timestamp primitives on top of it.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"staking_portfolio/internal/config"
	"staking_portfolio/internal/entity"
	"staking_portfolio/pkg/metrics"
)

// Reader is the read-only chain facade the engine depends on. Everything
// above this interface is testable without a node.
type Reader interface {
	// HeadBlock returns the current chain head.
	HeadBlock(ctx context.Context) (entity.BlockInfo, error)
	// BlockByNumber returns the header metadata of one block.
	BlockByNumber(ctx context.Context, number uint64) (entity.BlockInfo, error)
	// CallAtBlock executes a read-only contract call as of a historical block.
	CallAtBlock(ctx context.Context, to common.Address, data []byte, blockNumber uint64) ([]byte, error)
}

// RPCReader implements Reader over a go-ethereum RPC connection.
type RPCReader struct {
	ethClient      *ethclient.Client
	rpcCallTimeout time.Duration
	logger         *zap.Logger
}

// NewRPCReader dials the primary endpoint and falls back to the configured
// alternates until one connects.
func NewRPCReader(cfg config.ChainConfig, logger *zap.Logger) (*RPCReader, error) {
	rpcURLs := append([]string{cfg.PrimaryRPCURL}, cfg.FallbackRPCURLs...)
	connectionTimeout := time.Duration(cfg.ConnectionTimeoutMs) * time.Millisecond
	var lastErr error

	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return &RPCReader{
				ethClient:      client,
				rpcCallTimeout: time.Duration(cfg.RPCCallTimeoutMs) * time.Millisecond,
				logger:         logger.Named("RPCReader"),
			}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}

	return nil, &entity.UpstreamUnavailableError{Op: "dial", Err: lastErr}
}

// HeadBlock returns the current chain head.
func (r *RPCReader) HeadBlock(ctx context.Context) (entity.BlockInfo, error) {
	return r.header(ctx, nil)
}

// BlockByNumber returns the header metadata of one block.
func (r *RPCReader) BlockByNumber(ctx context.Context, number uint64) (entity.BlockInfo, error) {
	return r.header(ctx, new(big.Int).SetUint64(number))
}

func (r *RPCReader) header(ctx context.Context, number *big.Int) (entity.BlockInfo, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.rpcCallTimeout)
	defer cancel()

	metrics.RPCCalls.WithLabelValues("getHeader").Inc()
	header, err := r.ethClient.HeaderByNumber(callCtx, number)
	if err != nil {
		metrics.RPCErrors.WithLabelValues("getHeader").Inc()
		return entity.BlockInfo{}, fmt.Errorf("failed to fetch header %v: %w", number, err)
	}
	return entity.NewBlockInfo(header.Number.Uint64(), int64(header.Time)), nil
}

// CallAtBlock executes a read-only contract call pinned to blockNumber.
func (r *RPCReader) CallAtBlock(ctx context.Context, to common.Address, data []byte, blockNumber uint64) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.rpcCallTimeout)
	defer cancel()

	metrics.RPCCalls.WithLabelValues("call").Inc()
	out, err := r.ethClient.CallContract(callCtx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		metrics.RPCErrors.WithLabelValues("call").Inc()
		return nil, fmt.Errorf("contract call to %s at block %d failed: %w", to.Hex(), blockNumber, err)
	}
	return out, nil
}
