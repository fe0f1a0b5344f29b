package restapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"staking_portfolio/internal/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func testRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, h)
	return router
}

func serve(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetBlocksHandler(t *testing.T) {
	blocks := []entity.BlockInfo{
		entity.NewBlockInfo(1000, 1700000000),
		entity.NewBlockInfo(2000, 1700086400),
	}
	h := &Handler{
		logger: zap.NewNop(),
		blocksFor: func(_ context.Context, days int) ([]entity.BlockInfo, error) {
			if days != 7 {
				return nil, &entity.UnsupportedRangeError{Days: days}
			}
			return blocks, nil
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/blocks?days=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=21600", rec.Header().Get("Cache-Control"))

	var body struct {
		Blocks []entity.BlockInfo `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Blocks, 2)
	assert.Equal(t, uint64(1000), body.Blocks[0].BlockNumber)
}

func TestGetBlocksHandlerRejectsUnsupportedWindow(t *testing.T) {
	h := &Handler{
		logger: zap.NewNop(),
		blocksFor: func(_ context.Context, days int) ([]entity.BlockInfo, error) {
			return nil, &entity.UnsupportedRangeError{Days: days}
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/blocks?days=13")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, router, "/api/v1/blocks?days=soon")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBlockByTimestampHandler(t *testing.T) {
	block := entity.NewBlockInfo(1000000, 1740000000)
	h := &Handler{
		logger: zap.NewNop(),
		resolve: func(_ context.Context, ts int64) (entity.BlockInfo, error) {
			if ts < 1732421848 || ts > 1750000000 {
				return entity.BlockInfo{}, &entity.OutOfRangeError{
					Timestamp:        ts,
					GenesisTimestamp: 1732421848,
					HeadTimestamp:    1750000000,
				}
			}
			return block, nil
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/block-by-timestamp/1740000000")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Block entity.BlockInfo `json:"block"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, block, body.Block)
}

func TestGetBlockByTimestampHandlerRejectsMalformedInput(t *testing.T) {
	h := &Handler{logger: zap.NewNop()}
	router := testRouter(h)

	for _, raw := range []string{"soon", "0", "-5", "1.5"} {
		rec := serve(t, router, "/api/v1/block-by-timestamp/"+raw)
		require.Equal(t, http.StatusBadRequest, rec.Code, "timestamp %q", raw)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Invalid timestamp", body["error"])
	}
}

func TestGetBlockByTimestampHandlerOutOfRangeIsBadGateway(t *testing.T) {
	h := &Handler{
		logger: zap.NewNop(),
		resolve: func(_ context.Context, ts int64) (entity.BlockInfo, error) {
			return entity.BlockInfo{}, &entity.OutOfRangeError{Timestamp: ts}
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/block-by-timestamp/1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetHoldingsHandler(t *testing.T) {
	snapshot := &entity.PortfolioSnapshot{
		Address: "0x00000000219ab540356cBB839Cbe05303d7705Fa",
		Points: []entity.SnapshotPoint{
			{Block: entity.NewBlockInfo(1000, 1700000000), Holdings: map[entity.Protocol]entity.ProtocolHolding{}},
		},
	}
	h := &Handler{
		logger: zap.NewNop(),
		holdings: func(_ context.Context, key holdingsKey) (*entity.PortfolioSnapshot, error) {
			assert.Equal(t, snapshot.Address, key.Address)
			assert.Equal(t, 30, key.Days)
			return snapshot, nil
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/holdings/"+snapshot.Address+"/30")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, s-maxage=21600, stale-while-revalidate=180", rec.Header().Get("Cache-Control"))

	var body entity.PortfolioSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, snapshot.Address, body.Address)
	assert.False(t, body.Partial)
}

func TestGetHoldingsHandlerMapsStructuralErrors(t *testing.T) {
	h := &Handler{
		logger: zap.NewNop(),
		holdings: func(_ context.Context, _ holdingsKey) (*entity.PortfolioSnapshot, error) {
			return nil, &entity.StructuralError{Field: "address", Reason: "not a valid hex address"}
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/holdings/not-an-address/7")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHoldingsAtBlockHandler(t *testing.T) {
	h := &Handler{
		logger: zap.NewNop(),
		holdingsAt: func(_ context.Context, key atBlockKey) (*entity.PortfolioSnapshot, error) {
			assert.Equal(t, uint64(4242), key.Block)
			return &entity.PortfolioSnapshot{Address: key.Address}, nil
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/holdings-at-block/0x00000000219ab540356cBB839Cbe05303d7705Fa/4242")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, "/api/v1/holdings-at-block/0x00000000219ab540356cBB839Cbe05303d7705Fa/not-a-block")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAPYHandlers(t *testing.T) {
	h := &Handler{
		logger: zap.NewNop(),
		quote: func(_ context.Context, key quoteKey) (entity.APYQuote, error) {
			if key.Asset != "" && key.Asset != "xWBTC" {
				return entity.APYQuote{}, &entity.StructuralError{Field: "asset", Reason: "unknown"}
			}
			apy := 0.036
			if key.Compounded {
				apy = 0.0366
			}
			return entity.APYQuote{APY: apy, APYInPercentage: "3.60%"}, nil
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/apy/strk")
	require.Equal(t, http.StatusOK, rec.Code)

	var quote entity.APYQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, 0.036, quote.APY)

	rec = serve(t, router, "/api/v1/apy/strk?compounded=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, 0.0366, quote.APY)

	rec = serve(t, router, "/api/v1/apy/btc/xWBTC")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, "/api/v1/apy/btc/xDOGE")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBTCAssetsHandler(t *testing.T) {
	h := &Handler{
		logger:    zap.NewNop(),
		btcAssets: func() []string { return []string{"xWBTC", "xtBTC"} },
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/apy/btc")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Assets []string `json:"assets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"xWBTC", "xtBTC"}, body.Assets)
}

func TestMissingPriceIsBadGateway(t *testing.T) {
	h := &Handler{
		logger: zap.NewNop(),
		quote: func(_ context.Context, _ quoteKey) (entity.APYQuote, error) {
			return entity.APYQuote{}, &entity.PriceUnavailableError{Symbol: "WBTC"}
		},
	}
	router := testRouter(h)

	rec := serve(t, router, "/api/v1/apy/btc/xWBTC")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
