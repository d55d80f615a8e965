package keystore

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"

	"github.com/seashail/seashail/internal/apperr"
)

const lockRetryDelay = 50 * time.Millisecond

// writeLock serializes keystore mutations across goroutines and processes.
// flock.Flock reports success when this process already holds the lock, so
// goroutines are serialized by sem first.
type writeLock struct {
	sem     chan struct{}
	file    *flock.Flock
	timeout time.Duration
}

func newWriteLock(path string, timeout time.Duration) *writeLock {
	return &writeLock{
		sem:     make(chan struct{}, 1),
		file:    flock.New(path),
		timeout: timeout,
	}
}

// acquire blocks until both locks are held or the timeout passes.  The
// returned release func must be called on every path.
func (l *writeLock) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, lockErr(ctx.Err())
	}

	locked, err := l.file.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-l.sem
		if err == nil {
			err = context.DeadlineExceeded
		}
		return nil, lockErr(err)
	}

	return func() {
		// Unlock only fails on a closed descriptor; the kernel drops the
		// lock with it.
		_ = l.file.Unlock()
		<-l.sem
	}, nil
}

// with runs fn while holding the lock.
func (l *writeLock) with(ctx context.Context, fn func() error) error {
	release, err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func lockErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.E(apperr.LockTimeout, "timed out waiting for keystore lock")
	}
	if errors.Is(err, context.Canceled) {
		return apperr.E(apperr.LockTimeout, err)
	}
	return apperr.E(apperr.IO, err)
}
