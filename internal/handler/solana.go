package handler

import (
	"net/http"
	"strconv"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/keystore"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/solana"
)

// GetBalance handles GET /balance
// @Summary      Get Solana balance of a wallet account
// @Description  Gets SOL and USDC balance of the cached Solana address, with USD value when a price is available
// @Tags         solana
// @Produce      json
// @Param        wallet   query     string  false  "Wallet name (default: active wallet)"
// @Param        account  query     int     false  "Account index (default: active account)"
// @Success      200  {object}  model.BalanceResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /balance [get]
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}
	if h.rpc == nil {
		http.Error(w, "Solana RPC is not configured", http.StatusServiceUnavailable)
		return
	}

	ks := h.svc.Keystore()
	var (
		rec     model.WalletRecord
		account uint32
		err     error
	)
	if name := r.URL.Query().Get("wallet"); name != "" {
		rec, err = ks.GetWalletByName(name)
	} else {
		rec, account, err = ks.GetActiveWallet()
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	if s := r.URL.Query().Get("account"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			badRequest(w, "invalid account index")
			return
		}
		account = uint32(n)
	}

	address := rec.Addresses.At(account).Solana
	if address == "" {
		h.writeError(w, apperr.E(apperr.NotExist, keystore.CodeAccountOutOfRange,
			"wallet has no Solana address for this account"))
		return
	}

	balance, err := solana.GetBalance(r.Context(), h.rpc, h.pricer, address)
	if err != nil {
		h.writeError(w, err)
		return
	}
	balance.Wallet = rec.Name
	balance.Account = account
	writeJSON(w, http.StatusOK, balance)
}
