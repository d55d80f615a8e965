// Package keystore owns wallet key material at rest.
//
// The data directory holds the wallet index, one directory of encrypted
// secret files per wallet, the machine-bound master secret and the
// history/audit database.  Every mutation runs under an exclusive file lock
// and every file is replaced by an atomic rename, so the on-disk index is
// always the last valid one.  Read-only queries do not take the lock.
package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/lightningnetwork/lnd/clock"
	"go.uber.org/zap"

	"github.com/seashail/seashail/internal/apperr"
	"github.com/seashail/seashail/internal/config"
	"github.com/seashail/seashail/internal/metrics"
	"github.com/seashail/seashail/internal/model"
)

const (
	indexFileName      = "wallets.json"
	lockFileName       = "keystore.lock"
	machineKeyFileName = "machine.key"
	historyFileName    = "history.db"
	verifierFileName   = "passphrase.check"
	secretsDirName     = "secrets"

	// DefaultLockTimeout bounds how long a mutation waits for the lock.
	DefaultLockTimeout = 10 * time.Second
)

// AddressDeriver turns secret material into cached public addresses.
type AddressDeriver interface {
	EntropyAddresses(entropy []byte, account uint32) (model.AccountAddresses, error)
	MnemonicAddresses(mnemonic string, account uint32) (model.AccountAddresses, error)
	PrivateKeyAddresses(chain model.KeyChain, key []byte) (model.AccountAddresses, error)
}

// Config is the set of dependencies a Keystore is opened with.
type Config struct {
	DataDir     string
	Store       *config.Store
	Deriver     AddressDeriver
	Clock       clock.Clock
	Log         *zap.Logger
	LockTimeout time.Duration

	// Metrics counts dropped best-effort writes.  Optional.
	Metrics *metrics.Metrics
}

// Keystore manages wallets under one data directory.
type Keystore struct {
	dataDir string
	cfg     *config.Store
	deriver AddressDeriver
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics

	lock       *writeLock
	machineKey []byte
	session    *Session
	history    *historyStore
}

// Open prepares the data directory and loads (or creates) the machine
// secret.
func Open(ctx context.Context, cfg Config) (*Keystore, error) {
	const op apperr.Op = "keystore.Open"

	if cfg.DataDir == "" || cfg.Store == nil || cfg.Deriver == nil {
		return nil, apperr.E(op, apperr.Invalid, "data dir, config store and deriver are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}

	for _, dir := range []string{cfg.DataDir, filepath.Join(cfg.DataDir, secretsDirName)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, apperr.E(op, apperr.IO, err)
		}
		if err := os.Chmod(dir, 0o700); err != nil {
			return nil, apperr.E(op, apperr.IO, err)
		}
	}

	k := &Keystore{
		dataDir: cfg.DataDir,
		cfg:     cfg.Store,
		deriver: cfg.Deriver,
		clock:   cfg.Clock,
		log:     cfg.Log.Named("keystore"),
		metrics: cfg.Metrics,
		lock:    newWriteLock(filepath.Join(cfg.DataDir, lockFileName), cfg.LockTimeout),
		session: NewSession(cfg.Clock),
		history: newHistoryStore(filepath.Join(cfg.DataDir, historyFileName), cfg.LockTimeout),
	}

	err := k.lock.with(ctx, func() error {
		key, err := loadOrCreateMachineKey(k.path(machineKeyFileName), k.log)
		if err != nil {
			return err
		}
		k.machineKey = key
		return nil
	})
	if err != nil {
		return nil, apperr.E(op, err)
	}
	return k, nil
}

// Close zeroizes in-memory secrets.
func (k *Keystore) Close() error {
	k.session.Clear()
	clear(k.machineKey)
	return nil
}

// DataDir returns the directory the keystore lives in.
func (k *Keystore) DataDir() string {
	return k.dataDir
}

// Config returns the configuration store shared with the keystore.
func (k *Keystore) Config() *config.Store {
	return k.cfg
}

// Clock returns the keystore's time source.
func (k *Keystore) Clock() clock.Clock {
	return k.clock
}

func (k *Keystore) path(name string) string {
	return filepath.Join(k.dataDir, name)
}

func (k *Keystore) readIndex() (*model.WalletIndex, error) {
	data, err := os.ReadFile(k.path(indexFileName))
	if errors.Is(err, os.ErrNotExist) {
		return &model.WalletIndex{Version: model.WalletIndexVersion}, nil
	}
	if err != nil {
		return nil, apperr.E(apperr.IO, err)
	}

	var ix model.WalletIndex
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, apperr.E(apperr.IO, fmt.Errorf("failed to decode wallet index: %w", err))
	}
	if ix.Version != model.WalletIndexVersion {
		return nil, apperr.E(apperr.Invalid,
			fmt.Sprintf("unsupported wallet index version %d", ix.Version))
	}
	return &ix, nil
}

func (k *Keystore) writeIndex(ix *model.WalletIndex) error {
	ix.Version = model.WalletIndexVersion
	if err := ix.Validate(); err != nil {
		return apperr.E(apperr.Invalid, err)
	}
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return apperr.E(apperr.IO, err)
	}
	if err := renameio.WriteFile(k.path(indexFileName), data, 0o600); err != nil {
		return apperr.E(apperr.IO, fmt.Errorf("failed to write wallet index: %w", err))
	}
	return nil
}

// update runs fn against the current index under the write lock and saves
// the result.  The index on disk is untouched when fn fails.
func (k *Keystore) update(ctx context.Context, op apperr.Op, fn func(ix *model.WalletIndex) error) error {
	err := k.lock.with(ctx, func() error {
		ix, err := k.readIndex()
		if err != nil {
			return err
		}
		if err := fn(ix); err != nil {
			return err
		}
		return k.writeIndex(ix)
	})
	if err != nil {
		return apperr.E(op, err)
	}
	return nil
}
