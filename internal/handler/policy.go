package handler

import (
	"encoding/json"
	"net/http"

	"github.com/seashail/seashail/internal/model"
)

// Evaluate handles POST /policy/evaluate
// @Summary      Dry-run a write against policy
// @Description  Classifies a proposed operation as auto_approve, require_confirmation or blocked. Nothing is signed, asked or audited.
// @Tags         policy
// @Accept       json
// @Produce      json
// @Param        request  body      model.EvaluateRequest  true  "Proposed operation"
// @Success      200      {object}  model.EvaluateResponse
// @Failure      400      {object}  model.ErrorResponse
// @Router       /policy/evaluate [post]
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	ev, err := h.svc.DryRun(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.EvaluateResponse{
		Outcome:        ev.Decision.Outcome.String(),
		Reason:         string(ev.Decision.Reason),
		USDValue:       ev.USDValue,
		USDValueKnown:  ev.USDValueKnown,
		DailyUsedUSD:   ev.DailyUsedUSD,
		PolicyOverride: ev.Override,
	})
}
