// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package crypto implements at-rest encryption for the local cache.
//
// Keys are derived per user with PBKDF2-HMAC-SHA256 and a fixed application
// salt, so the same user id always yields the same key on the same install
// and cached blobs remain readable across restarts. Each write is sealed with
// AES-256-GCM under a fresh random nonce.
package crypto

// KeyChain seals and opens cache blobs with a key bound to a user id.
type KeyChain interface {
	// Encrypt seals plaintext for userID. The result is
	// magic ‖ nonce ‖ ciphertext and is never equal for two calls.
	Encrypt(plaintext []byte, userID string) ([]byte, error)

	// Decrypt opens a blob produced by Encrypt. It fails if the blob was
	// sealed for another user, is truncated or was tampered with.
	Decrypt(blob []byte, userID string) ([]byte, error)

	// IsEncrypted reports whether blob carries the envelope magic.
	IsEncrypted(blob []byte) bool
}
