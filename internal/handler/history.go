package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
)

// History handles GET /history
// @Summary      Export transaction history and audit log
// @Description  Returns history and audit records with filtering, plus today's spend of the wallet filter (or all wallets)
// @Tags         history
// @Produce      json
// @Param        wallet  query     string  false  "Wallet name"
// @Param        chain   query     string  false  "Chain, e.g. solana or base"
// @Param        op      query     string  false  "Operation, e.g. send or swap"
// @Param        from    query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to      query     string  false  "End date, inclusive (YYYY-MM-DD)"
// @Param        limit   query     int     false  "Maximum records per list"
// @Success      200  {object}  model.HistoryResponse
// @Failure      400  {object}  model.ErrorResponse
// @Router       /history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	var req model.HistoryQuery

	// Parse date parameters (YYYY-MM-DD)
	const dateLayout = "2006-01-02"
	if fromStr := q.Get("from"); fromStr != "" {
		t, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			badRequest(w, "invalid from date: use YYYY-MM-DD (e.g. 2006-01-02)")
			return
		}
		req.From = &t
	}
	if toStr := q.Get("to"); toStr != "" {
		t, err := time.Parse(dateLayout, toStr)
		if err != nil {
			badRequest(w, "invalid to date: use YYYY-MM-DD (e.g. 2006-01-02)")
			return
		}
		// To is exclusive; include the whole day.
		t = t.Add(24 * time.Hour)
		req.To = &t
	}

	if wallet := q.Get("wallet"); wallet != "" {
		req.Wallet = &wallet
	}
	if s := q.Get("chain"); s != "" {
		chain, err := policy.ParseChain(s)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		req.Chain = &chain
	}
	if s := q.Get("op"); s != "" {
		op, err := policy.ParseWriteOp(s)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		req.Op = &op
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			badRequest(w, "invalid limit")
			return
		}
		req.Limit = limit
	}

	if err := req.Validate(); err != nil {
		badRequest(w, err.Error())
		return
	}

	ks := h.svc.Keystore()
	txs, err := ks.QueryHistory(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	audit, err := ks.QueryAudit(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	daily, err := ks.DailyUsedUSDFiltered(ks.Clock().Now(), req.Wallet)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if txs == nil {
		txs = []model.TxHistoryRecord{}
	}
	if audit == nil {
		audit = []model.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, model.HistoryResponse{
		Transactions: txs,
		Audit:        audit,
		DailyUsedUSD: daily,
	})
}
