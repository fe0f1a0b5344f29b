// Package client holds HTTP clients for external collaborators.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"staking_portfolio/internal/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PriceOracle supplies current USD prices for asset symbols.
type PriceOracle interface {
	USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// OracleClient implements PriceOracle against the price oracle HTTP API.
type OracleClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOracleClient creates a price oracle client with built-in retries.
func NewOracleClient(baseURL string, requestTimeout time.Duration, logger *zap.Logger) *OracleClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.HTTPClient.Timeout = requestTimeout
	retryClient.Logger = nil

	return &OracleClient{
		baseURL:    baseURL,
		httpClient: retryClient.StandardClient(),
		logger:     logger.Named("OracleClient"),
	}
}

type priceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// USDPrice fetches the current USD price of a symbol. A missing or zero
// price is PriceUnavailableError; callers decide whether that is fatal,
// and the yield calculator treats it as such.
func (c *OracleClient) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v1/price/%s", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching USD price", zap.String("symbol", symbol))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, &entity.UpstreamUnavailableError{Op: "price fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, &entity.PriceUnavailableError{Symbol: symbol}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, &entity.UpstreamUnavailableError{
			Op:  "price fetch",
			Err: fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var payload priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response for %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil || price.Sign() <= 0 {
		return decimal.Zero, &entity.PriceUnavailableError{Symbol: symbol}
	}
	return price, nil
}
