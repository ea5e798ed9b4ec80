// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"bytes"
	"errors"
	"testing"
)

// low work factor keeps the suite fast; derivation itself is exercised by
// TestNewKeyChain_DefaultIterations.
func newTestKeyChain() KeyChain {
	return NewKeyChainWithIterations(1000)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	kc := newTestKeyChain()
	plaintext := []byte(`{"name":"Ann"}`)

	blob, err := kc.Encrypt(plaintext, "user-1")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if !kc.IsEncrypted(blob) {
		t.Fatalf("blob must carry the envelope magic")
	}
	if bytes.Contains(blob, plaintext) {
		t.Fatalf("blob leaks plaintext")
	}

	got, err := kc.Decrypt(blob, "user-1")
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("Decrypt = %q, want %q", got, plaintext)
	}
}

func TestEncrypt_FreshNoncePerWrite(t *testing.T) {
	kc := newTestKeyChain()

	b1, err := kc.Encrypt([]byte("same"), "u")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	b2, err := kc.Encrypt([]byte("same"), "u")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if bytes.Equal(b1, b2) {
		t.Fatalf("two encryptions of the same plaintext must differ")
	}
}

func TestDecrypt_WrongUserFails(t *testing.T) {
	kc := newTestKeyChain()

	blob, err := kc.Encrypt([]byte("secret"), "alice")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if _, err = kc.Decrypt(blob, "bob"); err == nil {
		t.Fatalf("expected error decrypting with another user's key")
	}
}

func TestDecrypt_SameUserAcrossInstances(t *testing.T) {
	blob, err := newTestKeyChain().Encrypt([]byte("persisted"), "alice")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}

	got, err := newTestKeyChain().Decrypt(blob, "alice")
	if err != nil {
		t.Fatalf("Decrypt error: %v", err)
	}
	if string(got) != "persisted" {
		t.Fatalf("Decrypt = %q", got)
	}
}

func TestDecrypt_TamperedBlob(t *testing.T) {
	kc := newTestKeyChain()

	blob, err := kc.Encrypt([]byte("secret"), "u")
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	blob[len(blob)-1] ^= 0xFF

	if _, err = kc.Decrypt(blob, "u"); err == nil {
		t.Fatalf("expected authentication failure on tampered blob")
	}
}

func TestDecrypt_Errors(t *testing.T) {
	kc := newTestKeyChain()

	if _, err := kc.Decrypt([]byte(`{"plain":true}`), "u"); !errors.Is(err, ErrNotEncrypted) {
		t.Fatalf("plain JSON: err = %v, want ErrNotEncrypted", err)
	}
	if _, err := kc.Decrypt([]byte("RKE1abc"), "u"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("short blob: err = %v, want ErrCiphertextTooShort", err)
	}
	if _, err := kc.Encrypt([]byte("x"), ""); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("empty user: err = %v, want ErrEmptyUserID", err)
	}
}

func TestNewKeyChain_DefaultIterations(t *testing.T) {
	kc, ok := NewKeyChain().(*keyChain)
	if !ok {
		t.Fatalf("unexpected implementation type")
	}
	if kc.iterations != DefaultIterations {
		t.Fatalf("iterations = %d, want %d", kc.iterations, DefaultIterations)
	}
	if NewKeyChainWithIterations(0).(*keyChain).iterations != DefaultIterations {
		t.Fatalf("non-positive iterations must fall back to the default")
	}
}
