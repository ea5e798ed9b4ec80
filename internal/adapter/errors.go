// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import "errors"

var (
	// ErrBadRequest is returned for 400: the store rejected the payload.
	// Retrying the same payload cannot succeed.
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized is returned for 401.
	ErrUnauthorized = errors.New("client unauthorized")
	// ErrForbidden is returned for 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for 404.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for 409.
	ErrConflict = errors.New("conflict")
	// ErrInternalServerError is returned for 500.
	ErrInternalServerError = errors.New("internal server error")
	// ErrBadGateway is returned for 502.
	ErrBadGateway = errors.New("bad gateway")
	// ErrUnavailable is returned for 503, 504 and transport failures.
	ErrUnavailable = errors.New("remote store unavailable")
	// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
	ErrInvalidResponse = errors.New("invalid response from remote store")
)
