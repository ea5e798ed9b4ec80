// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

// IdentityMapper tracks, for one sync pass, which placeholder ids were
// replaced by authoritative ids and which cached entities depend on them.
// It holds no state across passes: the orchestrator rebuilds it from the
// queue at the start of every pass and clears it at the end.
type IdentityMapper interface {
	// AddMapping records that placeholder became authoritative.
	AddMapping(placeholder, authoritative models.ID, kind models.EntityKind) error

	// GetAuthoritativeID returns the mapped id of placeholder, if any.
	GetAuthoritativeID(placeholder models.ID) (models.ID, bool)

	IsPlaceholder(id models.ID) bool

	// AddDependency records that child references parent. Edges to
	// non-placeholder parents are ignored.
	AddDependency(child, parent models.ID)
	GetDependents(parent models.ID) []models.ID

	// ResolveReferences rewrites, in place, every reference of rec that holds
	// a mapped placeholder and returns how many were replaced. Unmapped
	// placeholders are left untouched.
	ResolveReferences(rec models.Referencer) int

	// ResolveOperation returns a deep copy of op with its payload resolved.
	ResolveOperation(op models.PendingOperation) models.PendingOperation

	// GenerateBatchUpdates returns one update per mapping with the children
	// known to depend on it.
	GenerateBatchUpdates() []models.BatchUpdate

	// ValidateMappings reports duplicate authoritative ids and dependency
	// edges to parents that were never mapped. Nothing is corrected.
	ValidateMappings() []error

	Mappings() []models.IdentityMapping
	Clear()
}

// CacheReconciler folds sync results back into the local cache.
type CacheReconciler interface {
	// ApplyIDMappingUpdates rewrites every cached reference to an old
	// parent id, including queued operations, and writes back only the
	// collections that changed.
	ApplyIDMappingUpdates(ctx context.Context, updates []models.BatchUpdate) models.CacheUpdateReport

	// ReplaceEntity swaps the cached record carrying placeholder for record,
	// which must already carry authoritative as its id.
	ReplaceEntity(ctx context.Context, placeholder, authoritative models.ID, record models.Referencer, kind models.EntityKind) bool

	RemoveEntity(ctx context.Context, id models.ID, kind models.EntityKind) bool

	// CleanupTempEntries removes cached placeholder records that no queued
	// operation is going to create.
	CleanupTempEntries(ctx context.Context) int

	// VerifyCacheConsistency clears references to missing authoritative
	// parents and reports duplicates and leftover placeholders.
	VerifyCacheConsistency(ctx context.Context) models.ConsistencyReport
}

// SyncListener is called after every completed pass.
type SyncListener func(models.SyncResult)

// Notifier surfaces the one user-facing summary of a pass.
type Notifier interface {
	Notify(summary string)
}

// SyncOrchestrator drains the pending operation queue against the remote
// store.
type SyncOrchestrator interface {
	// SyncPendingOperations runs one pass for ownerID. It returns
	// [ErrSyncInProgress] when another pass is running and
	// [ErrSyncRateLimited] when the sync limit denied the pass; in both cases
	// the queue is not touched.
	SyncPendingOperations(ctx context.Context, ownerID string) (models.SyncResult, error)

	Status(ctx context.Context) models.SyncStatus

	// OnComplete registers listener and returns a function removing it.
	OnComplete(listener SyncListener) (remove func())
}

// ClientRecordService is the UI boundary: every mutation is validated, rate
// checked, written optimistically to the cache and queued for sync.
type ClientRecordService interface {
	// CreateClient caches c under a new placeholder id and queues its
	// creation. The placeholder id is returned.
	CreateClient(ctx context.Context, ownerID string, c models.Client) (models.ID, error)

	// CreateReceipt caches r under a new placeholder id and queues its
	// creation. The referenced client must be cached.
	CreateReceipt(ctx context.Context, ownerID string, r models.Receipt) (models.ID, error)

	// UpdateClient applies patch to the cached client. An update of a client
	// whose creation is still queued is merged into that creation.
	UpdateClient(ctx context.Context, ownerID string, id models.ID, patch models.ClientPatch) (models.ID, error)

	// DeleteClient removes the cached client. Deleting a client whose
	// creation is still queued drops the creation and queues nothing.
	DeleteClient(ctx context.Context, ownerID string, id models.ID) error

	ListClients(ctx context.Context) []models.Client
	ListReceipts(ctx context.Context) []models.Receipt

	// ImportCatalog replaces the cached products and categories.
	ImportCatalog(ctx context.Context, products []models.Product, categories []models.Category) error

	PendingCount(ctx context.Context) int
}

// ClientSyncJob defines the contract for a background worker that
// periodically drains a non-empty queue.
type ClientSyncJob interface {
	// Start launches the background goroutine. It checks the queue every
	// interval, defaulting to 5 minutes if interval is zero or negative. Any
	// previously running job is stopped before the new one begins.
	Start(ctx context.Context, ownerID string, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()
}

// ConnectivityWatcher probes the remote store and triggers a pass when it
// comes back online with work queued.
type ConnectivityWatcher interface {
	Start(ctx context.Context, ownerID string)
	Stop()
	// Online reports the result of the last probe.
	Online() bool
}
