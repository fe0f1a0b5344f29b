// Package restapi exposes the portfolio and yield pipelines over HTTP.
package restapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staking_portfolio/internal/chain"
	"staking_portfolio/internal/entity"
	"staking_portfolio/internal/pkg/ttlcache"
	"staking_portfolio/internal/service"
)

// Checkpoint lists refresh slowly, so responses are marked cacheable for
// intermediaries. Holdings additionally allow serving stale data while a
// revalidation is in flight.
const (
	blocksCacheControl   = "public, max-age=21600"
	holdingsCacheControl = "public, s-maxage=21600, stale-while-revalidate=180"
)

type holdingsKey struct {
	Address string `json:"address"`
	Days    int    `json:"days"`
}

type atBlockKey struct {
	Address string `json:"address"`
	Block   uint64 `json:"block"`
}

type quoteKey struct {
	Asset      string `json:"asset"`
	Compounded bool   `json:"compounded"`
}

// Handler serves the portfolio API. Every upstream-heavy operation is
// memoized through the shared TTL cache; errors pass through uncached so a
// flaky node never poisons an entry.
type Handler struct {
	logger *zap.Logger

	blocksFor  func(ctx context.Context, days int) ([]entity.BlockInfo, error)
	resolve    func(ctx context.Context, timestamp int64) (entity.BlockInfo, error)
	holdings   func(ctx context.Context, key holdingsKey) (*entity.PortfolioSnapshot, error)
	holdingsAt func(ctx context.Context, key atBlockKey) (*entity.PortfolioSnapshot, error)
	quote      func(ctx context.Context, key quoteKey) (entity.APYQuote, error)
	btcAssets  func() []string
}

// NewHandler wires the handler over the chain and service layers.
func NewHandler(
	ranges *chain.RangeGenerator,
	resolver *chain.Resolver,
	holdingsSvc *service.HoldingsService,
	yieldSvc *service.YieldService,
	cache *ttlcache.Cache,
	logger *zap.Logger,
) *Handler {
	blocksFor := ttlcache.Memoize(cache, "blocks", ranges.Generate)

	return &Handler{
		logger:    logger.Named("Handler"),
		blocksFor: blocksFor,
		resolve:   ttlcache.Memoize(cache, "resolve", resolver.Resolve),
		holdings: ttlcache.Memoize(cache, "holdings",
			func(ctx context.Context, key holdingsKey) (*entity.PortfolioSnapshot, error) {
				blocks, err := blocksFor(ctx, key.Days)
				if err != nil {
					return nil, err
				}
				return holdingsSvc.Holdings(ctx, key.Address, blocks)
			}),
		holdingsAt: ttlcache.Memoize(cache, "holdingsAt",
			func(ctx context.Context, key atBlockKey) (*entity.PortfolioSnapshot, error) {
				return holdingsSvc.HoldingsAtBlock(ctx, key.Address, key.Block)
			}),
		quote: ttlcache.Memoize(cache, "quote",
			func(ctx context.Context, key quoteKey) (entity.APYQuote, error) {
				if key.Asset == "" {
					return yieldSvc.STRKQuote(ctx, key.Compounded)
				}
				return yieldSvc.BTCQuote(ctx, key.Asset, key.Compounded)
			}),
		btcAssets: yieldSvc.BTCAssetSymbols,
	}
}

// GetBlocksHandler returns the checkpoint blocks for a supported day window.
func (h *Handler) GetBlocksHandler(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days", "message": "days must be an integer"})
		return
	}

	blocks, err := h.blocksFor(c.Request.Context(), days)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Cache-Control", blocksCacheControl)
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

// GetBlockByTimestampHandler resolves a unix timestamp to the nearest block.
func (h *Handler) GetBlockByTimestampHandler(c *gin.Context) {
	ts, err := strconv.ParseInt(c.Param("timestamp"), 10, 64)
	if err != nil || ts <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timestamp", "message": "timestamp must be a positive unix timestamp"})
		return
	}

	block, err := h.resolve(c.Request.Context(), ts)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"block": block})
}

// GetHoldingsHandler returns the per-protocol holdings series of one
// address over a day window.
func (h *Handler) GetHoldingsHandler(c *gin.Context) {
	days, err := strconv.Atoi(c.Param("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days", "message": "days must be an integer"})
		return
	}

	snapshot, err := h.holdings(c.Request.Context(), holdingsKey{
		Address: c.Param("address"),
		Days:    days,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Cache-Control", holdingsCacheControl)
	c.JSON(http.StatusOK, snapshot)
}

// GetHoldingsAtBlockHandler returns the holdings of one address at one
// specific block.
func (h *Handler) GetHoldingsAtBlockHandler(c *gin.Context) {
	blockNumber, err := strconv.ParseUint(c.Param("block"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block", "message": "block must be a non-negative integer"})
		return
	}

	snapshot, err := h.holdingsAt(c.Request.Context(), atBlockKey{
		Address: c.Param("address"),
		Block:   blockNumber,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetSTRKAPYHandler returns the APY quote for the STRK category.
func (h *Handler) GetSTRKAPYHandler(c *gin.Context) {
	quote, err := h.quote(c.Request.Context(), quoteKey{
		Compounded: c.Query("compounded") == "true",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetBTCAssetsHandler lists the BTC-category assets quotes are served for.
func (h *Handler) GetBTCAssetsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"assets": h.btcAssets()})
}

// GetBTCAPYHandler returns the APY quote for one BTC-category asset.
func (h *Handler) GetBTCAPYHandler(c *gin.Context) {
	quote, err := h.quote(c.Request.Context(), quoteKey{
		Asset:      c.Param("asset"),
		Compounded: c.Query("compounded") == "true",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// respondError maps the error taxonomy onto HTTP statuses. Client mistakes
// are 400, unreachable or unanswerable upstreams are 502, everything else
// is a 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		structural  *entity.StructuralError
		unsupported *entity.UnsupportedRangeError
		outOfRange  *entity.OutOfRangeError
		price       *entity.PriceUnavailableError
		upstream    *entity.UpstreamUnavailableError
	)

	switch {
	case errors.As(err, &structural):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
	case errors.As(err, &unsupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported range", "message": err.Error()})
	case errors.As(err, &outOfRange):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Timestamp out of range", "message": err.Error()})
	case errors.As(err, &price):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Price unavailable", "message": err.Error()})
	case errors.As(err, &upstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream unavailable", "message": err.Error()})
	default:
		h.logger.Error("Unclassified handler error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "message": err.Error()})
	}
}
