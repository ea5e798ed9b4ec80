// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor.
	DefaultIterations = 100_000

	keyLen = 32 // AES-256
)

var (
	// fixedSalt is constant per application so that the derived key is
	// reproducible from the user id alone.
	fixedSalt = []byte("receipt-keeper/local-cache/v1")

	envelopeMagic = []byte("RKE1")
)

type keyChain struct {
	iterations int

	mu   sync.Mutex
	keys map[string][]byte
}

// NewKeyChain constructs a [KeyChain] with [DefaultIterations].
func NewKeyChain() KeyChain {
	return NewKeyChainWithIterations(DefaultIterations)
}

// NewKeyChainWithIterations constructs a [KeyChain] with a custom PBKDF2 work
// factor. Values below 1 fall back to [DefaultIterations].
func NewKeyChainWithIterations(iterations int) KeyChain {
	if iterations < 1 {
		iterations = DefaultIterations
	}
	return &keyChain{iterations: iterations, keys: make(map[string][]byte)}
}

// key derives (once) and caches the AES key of userID.
func (k *keyChain) key(userID string) ([]byte, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.keys[userID]; ok {
		return key, nil
	}
	key := pbkdf2.Key([]byte(userID), fixedSalt, k.iterations, keyLen, sha256.New)
	k.keys[userID] = key
	return key, nil
}

func (k *keyChain) gcm(userID string) (cipher.AEAD, error) {
	key, err := k.key(userID)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Encrypt implements [KeyChain].
func (k *keyChain) Encrypt(plaintext []byte, userID string) ([]byte, error) {
	gcm, err := k.gcm(userID)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	blob := make([]byte, 0, len(envelopeMagic)+len(nonce)+len(plaintext)+gcm.Overhead())
	blob = append(blob, envelopeMagic...)
	blob = append(blob, nonce...)
	return gcm.Seal(blob, nonce, plaintext, nil), nil
}

// Decrypt implements [KeyChain].
func (k *keyChain) Decrypt(blob []byte, userID string) ([]byte, error) {
	if !k.IsEncrypted(blob) {
		return nil, ErrNotEncrypted
	}

	gcm, err := k.gcm(userID)
	if err != nil {
		return nil, err
	}

	body := blob[len(envelopeMagic):]
	nonceSize := gcm.NonceSize()
	if len(body) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := body[:nonceSize], body[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt data: %w", err)
	}
	return plaintext, nil
}

// IsEncrypted implements [KeyChain].
func (k *keyChain) IsEncrypted(blob []byte) bool {
	return bytes.HasPrefix(blob, envelopeMagic)
}
