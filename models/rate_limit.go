// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// RateLimitPolicy configures one guarded operation.
type RateLimitPolicy struct {
	// MaxAttempts is the number of calls allowed inside one window.
	MaxAttempts int `json:"max_attempts"`
	// Window is the length of a counting window.
	Window time.Duration `json:"window"`
	// BlockDuration, when non-zero, blocks the key for that long once the
	// window limit is exceeded.
	BlockDuration time.Duration `json:"block_duration,omitempty"`
	// UserMessage is shown when the call is denied. A single %s verb is
	// replaced by the human readable retry-after.
	UserMessage string `json:"user_message,omitempty"`
}

// RateLimitResult is the decision for one CheckLimit / GetStatus call.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"resetAt"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// RateLimitEntry is the persisted counter of one (operation, identifier,
// fingerprint) key.
type RateLimitEntry struct {
	Operation     string    `json:"operation"`
	Identifier    string    `json:"identifier"`
	Fingerprint   string    `json:"fingerprint"`
	Count         int       `json:"count"`
	WindowResetAt time.Time `json:"windowResetAt"`
	BlockedUntil  time.Time `json:"blockedUntil,omitzero"`
}

// Expired reports whether both the window and any block have lapsed at now.
func (e RateLimitEntry) Expired(now time.Time) bool {
	return !now.Before(e.WindowResetAt) && !now.Before(e.BlockedUntil)
}

// SessionMarks are the recent session start times of one identifier on one
// device.
type SessionMarks struct {
	Identifier  string      `json:"identifier"`
	Fingerprint string      `json:"fingerprint"`
	Marks       []time.Time `json:"marks"`
}
