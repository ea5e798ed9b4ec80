// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "errors"

// ErrMalformedPlaceholder is returned by ParseID when a value carries the
// placeholder prefix but not the kind and sequence parts.
var ErrMalformedPlaceholder = errors.New("malformed placeholder id")
