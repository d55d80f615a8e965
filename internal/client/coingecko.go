package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/seashail/seashail/internal/policy"
)

const (
	// DefaultCoinGeckoURL is the public CoinGecko API.
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
)

// nativeCoinIDs maps a chain to the CoinGecko id of its native asset.
// Test networks have no market price.
var nativeCoinIDs = map[policy.Chain]string{
	policy.ChainEthereum:  "ethereum",
	policy.ChainBase:      "ethereum",
	policy.ChainArbitrum:  "ethereum",
	policy.ChainOptimism:  "ethereum",
	policy.ChainPolygon:   "polygon-ecosystem-token",
	policy.ChainBNB:       "binancecoin",
	policy.ChainAvalanche: "avalanche-2",
	policy.ChainSolana:    "solana",
	policy.ChainBitcoin:   "bitcoin",
}

// CoinGeckoClient client for CoinGecko API
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoClient creates a new CoinGecko client.  An empty baseURL
// selects the public API.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PriceResponse response from CoinGecko simple/price, keyed by coin id then
// currency.
type PriceResponse map[string]map[string]float64

// NativeUSDPrice gets the USD price of one unit of chain's native asset.
func (c *CoinGeckoClient) NativeUSDPrice(ctx context.Context, chain policy.Chain) (float64, error) {
	id, ok := nativeCoinIDs[chain]
	if !ok {
		return 0, fmt.Errorf("no market price for %s", chain)
	}
	return c.USDPrice(ctx, id)
}

// USDPrice gets the USD price of a CoinGecko coin id.
func (c *CoinGeckoClient) USDPrice(ctx context.Context, coinID string) (float64, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(coinID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to get price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to get price: status %d", resp.StatusCode)
	}

	var priceResp PriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return 0, fmt.Errorf("failed to decode price: %w", err)
	}

	price, ok := priceResp[coinID]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no USD price for %s", coinID)
	}
	return price, nil
}
