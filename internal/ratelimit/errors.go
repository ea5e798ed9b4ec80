// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package ratelimit

import "errors"

// ErrInvalidPolicy is returned by RegisterLimit for a policy without a
// positive attempt count or window.
var ErrInvalidPolicy = errors.New("invalid rate limit policy")
