// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"
	"time"
)

// Sync pass errors.
var (
	// ErrSyncInProgress is returned when a pass is triggered while another
	// one has not returned to idle yet.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncRateLimited is returned when the coarse sync limit denied the
	// pass. The queue is left untouched.
	ErrSyncRateLimited = errors.New("sync rate limited")

	// ErrUnresolvedReference is recorded on an operation whose payload still
	// points at a placeholder nobody is going to create.
	ErrUnresolvedReference = errors.New("payload references an unresolved placeholder")

	// ErrOperationDiscarded is reported when an operation hit the retry
	// ceiling or was rejected as invalid by the remote store.
	ErrOperationDiscarded = errors.New("operation discarded")
)

// Record service errors.
var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrEntityNotFound      = errors.New("entity not found in local cache")
	ErrNoOwner             = errors.New("no owner id was given")

	ErrVersionIsNotSpecified   = errors.New("version is not specified")
	ErrTokenCreationFailed     = errors.New("token creation failed")
	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrUnknownCollection       = errors.New("unknown collection")
)

// ErrRateLimited is matched with errors.Is against a *RateLimitError.
var ErrRateLimited = errors.New("rate limited")

// RateLimitError carries the limiter decision for a denied mutation so the
// UI can show the localized message and retry hint.
type RateLimitError struct {
	Operation  string
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s: retry after %s", e.Operation, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
