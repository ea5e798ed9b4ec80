// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks domain entities before they are cached or queued
// on the client, and record envelopes before the server persists them.
package validators

import "context"

// Validator checks one value. fields narrows the check to the named fields;
// an empty list means every rule for the value's type.
type Validator interface {
	Validate(ctx context.Context, value any, fields ...string) error
}
