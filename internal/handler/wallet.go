package handler

import (
	"encoding/json"
	"net/http"

	"github.com/seashail/seashail/internal/model"
)

// ListWallets handles GET /wallets
// @Summary      List wallets
// @Description  Lists every wallet with its cached public addresses. Nothing is decrypted.
// @Tags         wallets
// @Produce      json
// @Success      200  {object}  model.WalletListResponse
// @Router       /wallets [get]
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	ks := h.svc.Keystore()
	wallets, err := ks.ListWallets()
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := model.WalletListResponse{Wallets: wallets}
	for _, info := range wallets {
		if info.Active {
			_, account, err := ks.GetActiveWallet()
			if err != nil {
				h.writeError(w, err)
				return
			}
			resp.ActiveWallet = info.Name
			resp.ActiveAccount = account
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Generate handles POST /wallets/generate
// @Summary      Generate new wallet
// @Description  Creates a machine-only generated wallet. Its offline backup share is issued later by a rotation from the CLI.
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        request  body      model.GenerateRequest  true  "Wallet name"
// @Success      200      {object}  model.GenerateResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /wallets/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	info, err := h.svc.Keystore().CreateGeneratedWalletMachineOnly(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.GenerateResponse{
		Success: true,
		Message: "Wallet generated successfully",
		Wallet:  info,
	})
}
