package keystore

import (
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/model"
)

// The Record*BestEffort helpers are for paths that have already succeeded
// (a broadcast transaction, a decided request).  A failed write is logged
// and dropped; it must not turn that success into an error.

// RecordTxBestEffort appends rec to the transaction history.
func (k *Keystore) RecordTxBestEffort(rec *model.TxHistoryRecord) {
	if err := k.AppendTxHistory(rec); err != nil {
		k.metrics.AuditFailure()
		k.log.Warn("failed to record transaction history",
			zap.String("wallet", rec.Wallet), zap.String("tx_id", rec.TxID),
			zap.Stringer("op", rec.Op), zap.Error(err))
	}
}

// RecordAuditBestEffort appends rec to the audit log.
func (k *Keystore) RecordAuditBestEffort(rec *model.AuditRecord) {
	if err := k.AppendAuditLog(rec); err != nil {
		k.metrics.AuditFailure()
		k.log.Warn("failed to record audit log",
			zap.String("wallet", rec.Wallet), zap.String("request_id", rec.RequestID),
			zap.String("decision", string(rec.Decision)), zap.Error(err))
	}
}
