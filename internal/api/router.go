package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/seashail/seashail/docs"
	"github.com/seashail/seashail/internal/handler"
	"github.com/seashail/seashail/internal/metrics"
)

// SetupRouter sets up router with handlers.  m may be nil, which leaves
// /metrics unrouted.
func SetupRouter(h *handler.Handler, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	// Wallet endpoints
	mux.HandleFunc("/wallets", h.ListWallets)
	mux.HandleFunc("/wallets/generate", h.Generate)
	mux.HandleFunc("/balance", h.GetBalance)

	// Policy and history endpoints
	mux.HandleFunc("/policy/evaluate", h.Evaluate)
	mux.HandleFunc("/history", h.History)

	return mux
}
