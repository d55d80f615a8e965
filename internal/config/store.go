package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"

	"github.com/seashail/seashail/internal/policy"
)

// DocumentName is the file name of the persisted configuration document.
const DocumentName = "config.toml"

// Document is the persisted configuration: the passphrase salt, the global
// policy and optional per-wallet overrides.
type Document struct {
	PassphraseSalt  string                   `toml:"passphrase_salt,omitempty"`
	Policy          policy.Policy            `toml:"policy"`
	PolicyOverrides map[string]policy.Policy `toml:"policy_overrides,omitempty"`
}

// rawDocument defers decoding of overrides so each one starts from the
// global policy.
type rawDocument struct {
	PassphraseSalt  string                    `toml:"passphrase_salt"`
	Policy          toml.Primitive            `toml:"policy"`
	PolicyOverrides map[string]toml.Primitive `toml:"policy_overrides"`
}

// Store holds the configuration document and persists changes atomically.
// Cross-process exclusion is the caller's job (the keystore write lock).
// Readers see changes saved by other processes: the file is re-read
// whenever it has been replaced since it was last loaded.
type Store struct {
	path string

	mu  sync.RWMutex
	doc Document

	// seen is the stat of the file doc was loaded from, nil if there was
	// no file.
	seen os.FileInfo
}

// Open loads the document at path.  A missing file yields the default
// policy and no salt.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the document from disk.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Store) reloadLocked() error {
	fi, err := statDocument(s.path)
	if err != nil {
		return err
	}
	doc, err := readDocument(s.path)
	if err != nil {
		return err
	}
	s.doc, s.seen = *doc, fi
	return nil
}

// current returns the document, reloading it first if the file changed.
// A file that no longer loads leaves the last valid document in effect
// and is retried on the next call.
func (s *Store) current() Document {
	fi, err := statDocument(s.path)

	s.mu.RLock()
	doc := s.doc
	stale := err == nil && changed(s.seen, fi)
	s.mu.RUnlock()
	if !stale {
		return doc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if changed(s.seen, fi) {
		_ = s.reloadLocked()
	}
	return s.doc
}

func statDocument(path string) (os.FileInfo, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}
	return fi, nil
}

// changed reports whether the file behind now differs from seen.  Saves
// go through a rename, so a new inode means a new document.
func changed(seen, now os.FileInfo) bool {
	if seen == nil || now == nil {
		return seen != nil || now != nil
	}
	return !os.SameFile(seen, now) || !seen.ModTime().Equal(now.ModTime()) ||
		seen.Size() != now.Size()
}

func readDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Document{Policy: policy.Default()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decodeDocument(data)
}

func decodeDocument(data []byte) (*Document, error) {
	var raw rawDocument
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	doc := &Document{
		PassphraseSalt: raw.PassphraseSalt,
		Policy:         policy.Default(),
	}
	if md.IsDefined("policy") {
		if err := md.PrimitiveDecode(raw.Policy, &doc.Policy); err != nil {
			return nil, fmt.Errorf("failed to decode policy: %w", err)
		}
	}
	if err := doc.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid global policy: %w", err)
	}

	if len(raw.PolicyOverrides) > 0 {
		doc.PolicyOverrides = make(map[string]policy.Policy, len(raw.PolicyOverrides))
	}
	for name, prim := range raw.PolicyOverrides {
		p := doc.Policy.Clone()
		if err := md.PrimitiveDecode(prim, &p); err != nil {
			return nil, fmt.Errorf("failed to decode policy override %q: %w", name, err)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid policy override %q: %w", name, err)
		}
		doc.PolicyOverrides[name] = p
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	if doc.PassphraseSalt != "" {
		if _, err := decodeSalt(doc.PassphraseSalt); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func decodeSalt(s string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid passphrase_salt: %w", err)
	}
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("invalid passphrase_salt: want %d bytes, got %d",
			SaltLen, len(salt))
	}
	return salt, nil
}

// SaltLen is the length of the persisted passphrase salt.
const SaltLen = 16

// PolicyForWallet returns the policy that applies to the named wallet and
// whether it is a per-wallet override.
func (s *Store) PolicyForWallet(name string) (policy.Policy, bool) {
	doc := s.current()
	if p, ok := doc.PolicyOverrides[name]; ok {
		return p.Clone(), true
	}
	return doc.Policy.Clone(), false
}

// GlobalPolicy returns the policy applied to wallets without an override.
func (s *Store) GlobalPolicy() policy.Policy {
	doc := s.current()
	return doc.Policy.Clone()
}

// Overrides returns the names of wallets with a policy override, sorted.
func (s *Store) Overrides() []string {
	doc := s.current()

	names := make([]string, 0, len(doc.PolicyOverrides))
	for name := range doc.PolicyOverrides {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PassphraseSalt returns the persisted salt, or false when none exists yet.
func (s *Store) PassphraseSalt() ([]byte, bool) {
	doc := s.current()
	if doc.PassphraseSalt == "" {
		return nil, false
	}
	salt, err := decodeSalt(doc.PassphraseSalt)
	if err != nil {
		// Rejected at load time.
		return nil, false
	}
	return salt, true
}

// Update reloads the document from disk, applies fn, validates and saves
// the result.  Nothing is written when fn or validation fails.
func (s *Store) Update(fn func(doc *Document) error) error {
	doc, err := readDocument(s.path)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// Round trip so what is saved is exactly what a later load accepts.
	if _, err := decodeDocument(buf.Bytes()); err != nil {
		return err
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fi, err := statDocument(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.doc, s.seen = *doc, fi
	s.mu.Unlock()
	return nil
}

// SetPassphraseSalt stores salt unless one already exists.
func SetPassphraseSalt(salt []byte) func(*Document) error {
	return func(doc *Document) error {
		if doc.PassphraseSalt != "" {
			return nil
		}
		if len(salt) != SaltLen {
			return fmt.Errorf("passphrase salt must be %d bytes", SaltLen)
		}
		doc.PassphraseSalt = base64.StdEncoding.EncodeToString(salt)
		return nil
	}
}

// SetPolicy replaces the global policy (wallet == "") or one wallet's
// override.
func SetPolicy(wallet string, p policy.Policy) func(*Document) error {
	return func(doc *Document) error {
		if err := p.Validate(); err != nil {
			return err
		}
		if wallet == "" {
			doc.Policy = p.Clone()
			return nil
		}
		if doc.PolicyOverrides == nil {
			doc.PolicyOverrides = make(map[string]policy.Policy)
		}
		doc.PolicyOverrides[wallet] = p.Clone()
		return nil
	}
}

// RemovePolicyOverride drops a wallet's override so it falls back to the
// global policy.
func RemovePolicyOverride(wallet string) func(*Document) error {
	return func(doc *Document) error {
		delete(doc.PolicyOverrides, wallet)
		return nil
	}
}
