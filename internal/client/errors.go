// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import "errors"

// ErrInvalidSessionToken is returned when the configured session token is
// not a JWT with a subject.
var ErrInvalidSessionToken = errors.New("session token has no readable subject")
