package keystore

import (
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// Session caches the passphrase master key in memory until it expires.  It
// never touches disk.
type Session struct {
	clock clock.Clock

	mu     sync.Mutex
	key    []byte
	expiry time.Time
}

// NewSession returns an empty session.
func NewSession(c clock.Clock) *Session {
	return &Session{clock: c}
}

// Get returns a copy of the cached key.  A key read at or past its expiry
// is zeroized and reported missing.
func (s *Session) Get() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return nil, false
	}
	if !s.clock.Now().Before(s.expiry) {
		s.clearLocked()
		return nil, false
	}
	return append([]byte(nil), s.key...), true
}

// Set caches a copy of key for ttl, replacing any previous key.
func (s *Session) Set(key []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.key = append([]byte(nil), key...)
	s.expiry = s.clock.Now().Add(ttl)
}

// Clear zeroizes the cached key.
func (s *Session) Clear() {
	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
}

// ExpiresAt returns when the cached key expires.
func (s *Session) ExpiresAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiry, s.key != nil
}

func (s *Session) clearLocked() {
	clear(s.key)
	s.key = nil
	s.expiry = time.Time{}
}

// SessionGet returns the live passphrase key, if any.
func (k *Keystore) SessionGet() ([]byte, bool) {
	return k.session.Get()
}

// SessionSet caches the passphrase key for ttl.
func (k *Keystore) SessionSet(key []byte, ttl time.Duration) {
	k.session.Set(key, ttl)
}

// SessionClear locks the keystore again.
func (k *Keystore) SessionClear() {
	k.session.Clear()
}
