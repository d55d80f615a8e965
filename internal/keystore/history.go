package keystore

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
)

var (
	// txHistoryBucket stores one TxHistoryRecord per broadcast or failed
	// transaction.
	txHistoryBucket = []byte("tx-history")

	// auditBucket stores one AuditRecord per write request.
	auditBucket = []byte("audit-log")

	byteOrder = binary.BigEndian
)

// historyStore is the append-only history and audit database.  It is
// opened per call so several processes can share the data directory; bolt
// holds its own file lock while open.
type historyStore struct {
	path    string
	timeout time.Duration
}

func newHistoryStore(path string, timeout time.Duration) *historyStore {
	return &historyStore{path: path, timeout: timeout}
}

func (h *historyStore) update(fn func(tx *bolt.Tx) error) error {
	db, err := bolt.Open(h.path, 0o600, &bolt.Options{Timeout: h.timeout})
	if err != nil {
		return apperr.E(apperr.IO, fmt.Errorf("failed to open history: %w", err))
	}
	defer db.Close()
	return db.Update(fn)
}

// view runs fn read-only.  A database that was never written reads as
// empty.
func (h *historyStore) view(fn func(tx *bolt.Tx) error) error {
	if _, err := os.Stat(h.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	db, err := bolt.Open(h.path, 0o600, &bolt.Options{Timeout: h.timeout, ReadOnly: true})
	if err != nil {
		return apperr.E(apperr.IO, fmt.Errorf("failed to open history: %w", err))
	}
	defer db.Close()
	return db.View(fn)
}

// recordKey orders records by time, then by insertion.
func recordKey(ts time.Time, seq uint64) []byte {
	var k [16]byte
	byteOrder.PutUint64(k[:8], uint64(ts.UnixNano()))
	byteOrder.PutUint64(k[8:], seq)
	return k[:]
}

func (h *historyStore) append(bucket []byte, ts time.Time, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(recordKey(ts, seq), value)
	})
}

// scan decodes records of bucket in time order starting at from.  fn
// returns false to stop.
func scan[T any](h *historyStore, bucket []byte, from *time.Time, fn func(rec *T) bool) error {
	return h.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()

		var k, v []byte
		if from != nil {
			k, v = c.Seek(recordKey(*from, 0))
		} else {
			k, v = c.First()
		}
		for ; k != nil; k, v = c.Next() {
			var rec T
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt record %x: %w", k, err)
			}
			if !fn(&rec) {
				return nil
			}
		}
		return nil
	})
}

// AppendTxHistory records a transaction.  Callers on a success path treat
// the error as best effort; see RecordTxBestEffort.
func (k *Keystore) AppendTxHistory(rec *model.TxHistoryRecord) error {
	const op apperr.Op = "keystore.AppendTxHistory"

	if rec.Timestamp.IsZero() {
		rec.Timestamp = k.clock.Now().UTC()
	}
	if err := k.history.append(txHistoryBucket, rec.Timestamp, rec); err != nil {
		return apperr.E(op, apperr.IO, err)
	}
	return nil
}

// AppendAuditLog records the terminal state of one write request.
func (k *Keystore) AppendAuditLog(rec *model.AuditRecord) error {
	const op apperr.Op = "keystore.AppendAuditLog"

	if rec.Timestamp.IsZero() {
		rec.Timestamp = k.clock.Now().UTC()
	}
	if err := k.history.append(auditBucket, rec.Timestamp, rec); err != nil {
		return apperr.E(op, apperr.IO, err)
	}
	return nil
}

// QueryHistory returns transaction records matching q, oldest first.
func (k *Keystore) QueryHistory(q model.HistoryQuery) ([]model.TxHistoryRecord, error) {
	const op apperr.Op = "keystore.QueryHistory"

	if err := q.Validate(); err != nil {
		return nil, apperr.E(op, apperr.Invalid, err)
	}
	var out []model.TxHistoryRecord
	err := scan(k.history, txHistoryBucket, q.From, func(r *model.TxHistoryRecord) bool {
		if q.To != nil && !r.Timestamp.Before(*q.To) {
			return false
		}
		if q.Matches(r.Timestamp, r.Wallet, r.Chain, r.Op) {
			out = append(out, *r)
		}
		return q.Limit == 0 || len(out) < q.Limit
	})
	if err != nil {
		return nil, apperr.E(op, apperr.IO, err)
	}
	return out, nil
}

// QueryAudit returns audit records matching q, oldest first.
func (k *Keystore) QueryAudit(q model.HistoryQuery) ([]model.AuditRecord, error) {
	const op apperr.Op = "keystore.QueryAudit"

	if err := q.Validate(); err != nil {
		return nil, apperr.E(op, apperr.Invalid, err)
	}
	var out []model.AuditRecord
	err := scan(k.history, auditBucket, q.From, func(r *model.AuditRecord) bool {
		if q.To != nil && !r.Timestamp.Before(*q.To) {
			return false
		}
		if q.Matches(r.Timestamp, r.Wallet, r.Chain, r.Op) {
			out = append(out, *r)
		}
		return q.Limit == 0 || len(out) < q.Limit
	})
	if err != nil {
		return nil, apperr.E(op, apperr.IO, err)
	}
	return out, nil
}

// DailyUsedUSDFiltered sums the known USD value of broadcast transactions on
// the UTC calendar day containing day.  A nil wallet sums every wallet.
func (k *Keystore) DailyUsedUSDFiltered(day time.Time, wallet *string) (float64, error) {
	const op apperr.Op = "keystore.DailyUsedUSDFiltered"

	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var total float64
	err := scan(k.history, txHistoryBucket, &start, func(r *model.TxHistoryRecord) bool {
		if !r.Timestamp.Before(end) {
			return false
		}
		if wallet != nil && r.Wallet != *wallet {
			return true
		}
		if r.CountsTowardDailyCap() {
			total += r.USDValue
		}
		return true
	})
	if err != nil {
		return 0, apperr.E(op, apperr.IO, err)
	}
	return total, nil
}

// DailyUsedUSD is today's spend for one wallet.
func (k *Keystore) DailyUsedUSD(wallet string) (float64, error) {
	return k.DailyUsedUSDFiltered(k.clock.Now(), &wallet)
}

// CountHistorySince counts broadcast operations of kind op by wallet at or
// after since.
func (k *Keystore) CountHistorySince(wallet string, op policy.WriteOp, since time.Time) (uint32, error) {
	const fnOp apperr.Op = "keystore.CountHistorySince"

	var n uint32
	err := scan(k.history, txHistoryBucket, &since, func(r *model.TxHistoryRecord) bool {
		if r.Wallet == wallet && r.Op == op && r.Status == model.TxStatusBroadcast {
			n++
		}
		return true
	})
	if err != nil {
		return 0, apperr.E(fnOp, apperr.IO, err)
	}
	return n, nil
}
