package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/common"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/service"
	"github.com/seashail/seashail/solana"
)

// Handler serves the read-only and dry-run HTTP endpoints.  Nothing here
// can move funds or disclose secret material.
type Handler struct {
	svc    *service.Service
	rpc    solana.BalanceReader
	pricer common.Pricer
	log    *zap.Logger
}

// New creates a Handler.  rpc may be nil, which disables /balance.
func New(svc *service.Service, rpc solana.BalanceReader, pricer common.Pricer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, rpc: rpc, pricer: pricer, log: log.Named("http")}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error to a status code and the ErrorResponse body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.Is(apperr.Invalid, err):
		status = http.StatusBadRequest
	case apperr.Is(apperr.NotExist, err):
		status = http.StatusNotFound
	case apperr.Is(apperr.Exist, err):
		status = http.StatusConflict
	case apperr.Is(apperr.Passphrase, err), apperr.Is(apperr.NotEstablished, err):
		status = http.StatusUnauthorized
	case apperr.Is(apperr.Policy, err), apperr.Is(apperr.Declined, err):
		status = http.StatusForbidden
	case apperr.Is(apperr.LockTimeout, err):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, model.ErrorResponse{
		Error: err.Error(),
		Code:  string(apperr.CodeOf(err)),
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: msg})
}
