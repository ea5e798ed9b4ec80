// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import "errors"

var (
	// ErrEmptyUserID is returned when a key is requested without a user.
	ErrEmptyUserID = errors.New("empty user id")

	// ErrNotEncrypted is returned by Decrypt for blobs without the envelope
	// magic.
	ErrNotEncrypted = errors.New("blob is not encrypted")

	// ErrCiphertextTooShort is returned when the blob cannot hold a nonce.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)
