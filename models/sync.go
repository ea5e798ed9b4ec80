// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SyncState is the phase the sync orchestrator is in.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncChecking
	SyncDraining
	SyncReconciling
	SyncNotifying
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncChecking:
		return "checking"
	case SyncDraining:
		return "draining"
	case SyncReconciling:
		return "reconciling"
	case SyncNotifying:
		return "notifying"
	default:
		return "unknown"
	}
}

// CacheUpdateReport summarises what reconciliation rewrote in the cache.
type CacheUpdateReport struct {
	UpdatedChildren int      `json:"updatedChildren"`
	UpdatedParents  int      `json:"updatedParents"`
	Errors          []string `json:"errors,omitempty"`
}

// SyncResult is the outcome of one sync pass.
type SyncResult struct {
	Success        bool               `json:"success"`
	SyncedCount    int                `json:"syncedCount"`
	FailedCount    int                `json:"failedCount"`
	DiscardedCount int                `json:"discardedCount"`
	DeferredCount  int                `json:"deferredCount"`
	Errors         []string           `json:"errors,omitempty"`
	CacheUpdates   *CacheUpdateReport `json:"cacheUpdates,omitempty"`
	RetryAfter     time.Duration      `json:"retryAfter,omitempty"`
	StartedAt      time.Time          `json:"startedAt,omitzero"`
	FinishedAt     time.Time          `json:"finishedAt,omitzero"`
}

// SyncStatus is a snapshot of the orchestrator for the UI.
type SyncStatus struct {
	State        SyncState   `json:"state"`
	IsSyncing    bool        `json:"isSyncing"`
	PendingCount int         `json:"pendingCount"`
	LastResult   *SyncResult `json:"lastResult,omitempty"`
}

// ConsistencyIssueKind classifies a cache consistency problem.
type ConsistencyIssueKind string

const (
	IssueOrphanedReference     ConsistencyIssueKind = "orphaned_reference"
	IssueDuplicateID           ConsistencyIssueKind = "duplicate_id"
	IssueUnresolvedPlaceholder ConsistencyIssueKind = "unresolved_placeholder"
	IssueDanglingPlaceholder   ConsistencyIssueKind = "dangling_placeholder"
)

// ConsistencyIssue is one problem found while verifying the cache.
type ConsistencyIssue struct {
	Kind       ConsistencyIssueKind `json:"kind"`
	Collection string               `json:"collection"`
	EntityID   ID                   `json:"entityId"`
	Reference  ID                   `json:"reference,omitzero"`
	Fixed      bool                 `json:"fixed"`
}

// ConsistencyReport is the result of a cache consistency check.
type ConsistencyReport struct {
	IsConsistent bool               `json:"isConsistent"`
	Issues       []ConsistencyIssue `json:"issues,omitempty"`
	Fixed        int                `json:"fixed"`
}
