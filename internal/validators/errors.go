// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidID          = errors.New("invalid id")
	ErrEmptyName          = errors.New("name is required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrMissingClient      = errors.New("receipt must reference a client")
	ErrMissingDate        = errors.New("receipt date is required")
	ErrEmptyItems         = errors.New("receipt must have at least one item")
	ErrInvalidItem        = errors.New("invalid receipt item")
	ErrTotalMismatch      = errors.New("receipt total does not match its items")
	ErrNoFieldsToUpdate   = errors.New("at least one field must be provided for update")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidCollection  = errors.New("invalid collection")
	ErrInvalidOwnerID     = errors.New("invalid owner id")
	ErrInvalidRecordBody  = errors.New("record body must be a JSON object")
	ErrInvalidRecordRefID = errors.New("record id must be empty or a server id")
)
