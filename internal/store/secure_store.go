// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/crypto"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
)

// Meta keys live next to the collections but do not count as data writes.
const (
	KeyLastSyncedAt      = "lastSyncedAt"
	KeyRateLimits        = "rateLimits"
	KeySessionMarks      = "sessionMarks"
	KeyDeviceFingerprint = "deviceFingerprint"
)

const defaultStaleAfter = 24 * time.Hour

var metaKeys = map[string]bool{
	KeyLastSyncedAt:      true,
	KeyRateLimits:        true,
	KeySessionMarks:      true,
	KeyDeviceFingerprint: true,
}

// SecureStore persists JSON values in a [KVBackend], encrypting them with a
// key derived from the current user id.
//
// Without a user, values are written as plaintext JSON and a warning is
// logged, unless RequireEncryption is configured, in which case the write
// fails with [ErrEncryptionUnavailable]. [SecureStore.Get] never returns an
// error: any failure is logged and reported as "not found" so that callers
// keep their empty default. [SecureStore.Load] reports the failure instead.
type SecureStore struct {
	backend           KVBackend
	keys              crypto.KeyChain
	requireEncryption bool
	staleAfter        time.Duration
	now               func() time.Time
	logger            *logger.Logger

	mu     sync.RWMutex
	userID string
	warned map[string]struct{}
}

// NewSecureStore constructs a [SecureStore] on backend.
func NewSecureStore(backend KVBackend, keys crypto.KeyChain, cfg config.ClientStorage, logger *logger.Logger) *SecureStore {
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &SecureStore{
		backend:           backend,
		keys:              keys,
		requireEncryption: cfg.RequireEncryption,
		staleAfter:        staleAfter,
		now:               time.Now,
		logger:            logger,
		warned:            make(map[string]struct{}),
	}
}

// SetUser switches the encryption identity. An empty id signs the user out.
func (s *SecureStore) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// UserID returns the current encryption identity.
func (s *SecureStore) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Put serialises value and writes it under key. Writes of data keys also
// stamp lastSyncedAt.
func (s *SecureStore) Put(ctx context.Context, key string, value any) error {
	if err := s.put(ctx, key, value); err != nil {
		return err
	}

	if !metaKeys[key] {
		if err := s.put(ctx, KeyLastSyncedAt, s.now().UTC()); err != nil {
			s.logger.Err(err).Str("func", "SecureStore.Put").Msg("failed to stamp last synced time")
		}
	}
	return nil
}

func (s *SecureStore) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	blob, err := s.seal(key, data)
	if err != nil {
		return err
	}

	if err = s.backend.Put(ctx, key, blob); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *SecureStore) seal(key string, data []byte) ([]byte, error) {
	userID := s.UserID()
	if userID != "" {
		blob, err := s.keys.Encrypt(data, userID)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", key, err)
		}
		return blob, nil
	}

	if s.requireEncryption {
		return nil, fmt.Errorf("%w: %s", ErrEncryptionUnavailable, key)
	}

	s.mu.Lock()
	_, seen := s.warned[key]
	s.warned[key] = struct{}{}
	s.mu.Unlock()
	if !seen {
		s.logger.Warn().Str("func", "SecureStore.seal").Str("key", key).
			Msg("no user signed in, writing cache entry without encryption")
	}
	return data, nil
}

// Get reads key into target and reports whether it succeeded. target is left
// untouched on failure.
func (s *SecureStore) Get(ctx context.Context, key string, target any) bool {
	found, err := s.Load(ctx, key, target)
	if err != nil {
		s.logger.Err(err).Str("func", "SecureStore.Get").Str("key", key).Msg("failed to read cache entry")
		return false
	}
	return found
}

// Load reads key into target. A missing key yields (false, nil). An entry
// that exists but cannot be decrypted with the current identity or decoded
// yields [ErrEntryUnreadable], so that callers about to overwrite it can tell
// it apart from an absent one.
func (s *SecureStore) Load(ctx context.Context, key string, target any) (bool, error) {
	blob, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	plaintext := blob
	if s.keys.IsEncrypted(blob) {
		plaintext, err = s.keys.Decrypt(blob, s.UserID())
		if err != nil {
			return false, fmt.Errorf("%w: %s: %w", ErrEntryUnreadable, key, err)
		}
	}

	if err = json.Unmarshal(plaintext, target); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrEntryUnreadable, key, err)
	}
	return true, nil
}

// Delete removes key.
func (s *SecureStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Clear removes every key, including meta keys.
func (s *SecureStore) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx)
}

// LastSyncedAt returns the time of the last successful data write.
func (s *SecureStore) LastSyncedAt(ctx context.Context) (time.Time, bool) {
	var at time.Time
	if !s.Get(ctx, KeyLastSyncedAt, &at) {
		return time.Time{}, false
	}
	return at, true
}

// IsStale reports whether the cache was never written or is older than the
// configured freshness horizon.
func (s *SecureStore) IsStale(ctx context.Context) bool {
	at, ok := s.LastSyncedAt(ctx)
	if !ok {
		return true
	}
	return s.now().Sub(at) > s.staleAfter
}
