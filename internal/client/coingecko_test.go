package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seashail/seashail/internal/policy"
	"github.com/stretchr/testify/require"
)

func TestNativeUSDPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" || r.URL.Query().Get("vs_currencies") != "usd" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.URL.Query().Get("ids") {
		case "solana":
			_, _ = w.Write([]byte(`{"solana":{"usd":142.5}}`))
		case "ethereum":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL)
	ctx := context.Background()

	price, err := c.NativeUSDPrice(ctx, policy.ChainSolana)
	require.NoError(t, err)
	require.Equal(t, 142.5, price)

	_, err = c.NativeUSDPrice(ctx, policy.ChainBase)
	require.Error(t, err, "missing price")

	_, err = c.NativeUSDPrice(ctx, policy.ChainBNB)
	require.Error(t, err, "rate limited")

	_, err = c.NativeUSDPrice(ctx, policy.ChainBitcoinTestnet)
	require.Error(t, err, "test networks have no price")
}
