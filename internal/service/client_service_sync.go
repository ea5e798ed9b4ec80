// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/adapter"
	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/metrics"
	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

// DefaultMaxRetries is the number of failed attempts after which a queued
// operation is discarded.
const DefaultMaxRetries = 3

// DefaultMaxHolds is the number of held attempts after which a queued
// operation is discarded.
const DefaultMaxHolds = 10

// ErrUnsupportedOperation is recorded for queue entries with an unknown type
// or an empty payload. They are discarded on sight.
var ErrUnsupportedOperation = errors.New("unsupported pending operation")

// syncOrchestrator drains the pending operation queue. Only one pass runs at
// a time; the state field doubles as the mutual exclusion flag and lives in
// memory only, so a restart always starts idle.
type syncOrchestrator struct {
	cache      store.LocalCache
	remote     adapter.RemoteStore
	limiter    ratelimit.Checker
	mapper     IdentityMapper
	reconciler CacheReconciler
	notifier   Notifier
	metrics    *metrics.SyncMetrics
	logger     *logger.Logger

	maxRetries int
	maxHolds   int
	opIDs      idGenerator
	now        func() time.Time

	mu         sync.Mutex
	state      models.SyncState
	lastResult *models.SyncResult
	listeners  map[uint64]SyncListener
	nextID     uint64
}

// NewSyncOrchestrator wires an orchestrator. limiter, notifier and m may be
// nil.
func NewSyncOrchestrator(
	cache store.LocalCache,
	remote adapter.RemoteStore,
	limiter ratelimit.Checker,
	notifier Notifier,
	m *metrics.SyncMetrics,
	log *logger.Logger,
) SyncOrchestrator {
	return newSyncOrchestrator(cache, remote, limiter, notifier, m, log)
}

func newSyncOrchestrator(
	cache store.LocalCache,
	remote adapter.RemoteStore,
	limiter ratelimit.Checker,
	notifier Notifier,
	m *metrics.SyncMetrics,
	log *logger.Logger,
) *syncOrchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &syncOrchestrator{
		cache:      cache,
		remote:     remote,
		limiter:    limiter,
		mapper:     NewIdentityMapper(),
		reconciler: NewCacheReconciler(cache, log),
		notifier:   notifier,
		metrics:    m,
		logger:     log,
		maxRetries: DefaultMaxRetries,
		maxHolds:   DefaultMaxHolds,
		opIDs:      utils.NewUUIDGenerator(),
		now:        time.Now,
		listeners:  make(map[uint64]SyncListener),
	}
}

// pass is the bookkeeping of one drain.
type pass struct {
	result models.SyncResult
	// creates holds subjects of create operations still waiting in the
	// queue. A child of one of them is deferred, not failed.
	creates map[models.ID]bool
}

func (o *syncOrchestrator) SyncPendingOperations(ctx context.Context, ownerID string) (models.SyncResult, error) {
	startedAt := o.now()

	if !o.begin() {
		return models.SyncResult{
			Errors:     []string{ErrSyncInProgress.Error()},
			StartedAt:  startedAt,
			FinishedAt: startedAt,
		}, ErrSyncInProgress
	}
	defer o.setState(models.SyncIdle)

	log := o.logger.With().Str("owner", ownerID).Logger()

	if o.limiter != nil {
		decision := o.limiter.CheckLimit(config.OpSync, LimitIdentifier(ownerID))
		if !decision.Allowed {
			log.Info().Dur("retry_after", decision.RetryAfter).Msg("sync pass denied by rate limit")
			o.metrics.Pass("rate_limited", o.now().Sub(startedAt), len(o.cache.PendingOperations(ctx)))

			msg := decision.Message
			if msg == "" {
				msg = ErrSyncRateLimited.Error()
			}
			return models.SyncResult{
				Errors:     []string{msg},
				RetryAfter: decision.RetryAfter,
				StartedAt:  startedAt,
				FinishedAt: o.now(),
			}, fmt.Errorf("%w: retry after %s", ErrSyncRateLimited, decision.RetryAfter)
		}
	}

	o.setState(models.SyncDraining)

	// The mapper never carries state from one pass into the next.
	o.mapper.Clear()
	defer o.mapper.Clear()

	ops := o.cache.PendingOperations(ctx)
	slices.SortStableFunc(ops, func(a, b models.PendingOperation) int {
		return a.EnqueuedAt.Compare(b.EnqueuedAt)
	})

	p := &pass{
		result:  models.SyncResult{StartedAt: startedAt},
		creates: make(map[models.ID]bool),
	}
	for _, op := range ops {
		if op.Type.IsCreate() {
			p.creates[op.SubjectID()] = true
		}
		subject := op.SubjectID()
		for _, parent := range op.ParentIDs() {
			o.mapper.AddDependency(subject, parent)
		}
	}

	log.Debug().Int("queued", len(ops)).Msg("draining pending operations")

	for _, op := range ops {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("drain interrupted, remaining operations stay queued")
			break
		}
		o.process(ctx, op, p)
	}

	// Reconciliation must not be cut short by the caller's deadline: a half
	// reconciled cache is worse than a late one.
	rctx := context.WithoutCancel(ctx)
	o.setState(models.SyncReconciling)
	_ = o.cache.Exclusive(func() error {
		o.reconcile(rctx, p)
		return nil
	})

	o.mapper.Clear()

	o.setState(models.SyncNotifying)
	p.result.Success = p.result.FailedCount == 0
	p.result.FinishedAt = o.now()

	queueDepth := len(o.cache.PendingOperations(rctx))
	outcome := "success"
	if !p.result.Success {
		outcome = "partial"
	}
	o.metrics.Pass(outcome, p.result.FinishedAt.Sub(startedAt), queueDepth)

	log.Info().
		Int("synced", p.result.SyncedCount).
		Int("failed", p.result.FailedCount).
		Int("discarded", p.result.DiscardedCount).
		Int("deferred", p.result.DeferredCount).
		Int("remaining", queueDepth).
		Msg("sync pass finished")

	o.notify(p.result)
	return p.result, nil
}

// process submits one operation and applies the outcome to the queue.
func (o *syncOrchestrator) process(ctx context.Context, op models.PendingOperation, p *pass) {
	log := o.logger.With().
		Str("op_id", op.ID).
		Str("op_type", string(op.Type)).
		Logger()

	if !hasPayload(op) {
		o.discard(ctx, op, p, ErrUnsupportedOperation)
		return
	}

	resolved := o.mapper.ResolveOperation(op)

	var (
		id      string
		err     error
		outcome remoteOutcome
	)

	if ref, ok := unresolvedParent(resolved); ok {
		if p.creates[ref] {
			log.Debug().Stringer("parent", ref).Msg("parent not created yet, deferring")
			p.result.DeferredCount++
			o.metrics.Operation(string(op.Type), "deferred")
			return
		}
		err = fmt.Errorf("%w: %s", ErrUnresolvedReference, ref)
		outcome = outcomeRetry
	} else {
		id, err = o.submit(ctx, resolved)
		outcome = mapAdapterError(op, err)
		if outcome == outcomeDone && op.Type.IsCreate() && id == "" {
			err, outcome = adapter.ErrInvalidResponse, outcomeRetry
		}
	}

	switch outcome {
	case outcomeDone:
		o.complete(ctx, op, resolved, id, p)
	case outcomeHold:
		if o.recordAttempt(ctx, op, err, outcomeHold) {
			o.discarded(op, p, fmt.Errorf("held %d times: %w", o.maxHolds, err))
			return
		}
		log.Warn().Err(err).Msg("operation held for a later pass")
		p.result.FailedCount++
		p.result.Errors = append(p.result.Errors, fmt.Sprintf("%s %s: %v", op.Type, op.SubjectID(), err))
		o.metrics.Operation(string(op.Type), "held")
	case outcomeDiscard:
		o.discard(ctx, op, p, err)
	default:
		if o.recordAttempt(ctx, op, err, outcomeRetry) {
			o.discarded(op, p, err)
			return
		}
		log.Warn().Err(err).Msg("operation failed, will retry")
		p.result.FailedCount++
		p.result.Errors = append(p.result.Errors, fmt.Sprintf("%s %s: %v", op.Type, op.SubjectID(), err))
		o.metrics.Operation(string(op.Type), "retry")
	}
}

// submit sends op to the remote store. Creates carry the operation id as
// idempotency key so a replay after a lost response is deduplicated.
func (o *syncOrchestrator) submit(ctx context.Context, op models.PendingOperation) (string, error) {
	switch op.Type {
	case models.OpCreateClient:
		c := *op.Payload.Client
		c.ID = models.ID{}
		return o.remote.Create(ctx, models.CollectionClients, c, op.ID)

	case models.OpCreateReceipt:
		r := op.Payload.Receipt.Clone()
		for i := range r.Items {
			if r.Items[i].ReceiptID == r.ID {
				r.Items[i].ReceiptID = models.ID{}
			}
		}
		r.ID = models.ID{}
		return o.remote.Create(ctx, models.CollectionReceipts, r, op.ID)

	case models.OpUpdateClient:
		return "", o.remote.Update(ctx, models.CollectionClients, op.Payload.TargetID.String(), *op.Payload.Patch)

	case models.OpDeleteClient:
		return "", o.remote.Delete(ctx, models.CollectionClients, op.Payload.TargetID.String())
	}
	return "", ErrUnsupportedOperation
}

// complete records the outcome of an acknowledged operation in the cache and
// dequeues it.
func (o *syncOrchestrator) complete(ctx context.Context, op, resolved models.PendingOperation, id string, p *pass) {
	var err error
	switch op.Type {
	case models.OpCreateClient, models.OpCreateReceipt:
		delete(p.creates, op.SubjectID())
		if op.SubjectID().IsPlaceholder() {
			err = o.settleCreate(ctx, op, resolved, models.AuthoritativeID(id), p)
		} else {
			err = o.dequeue(ctx, op.ID)
		}

	case models.OpDeleteClient:
		o.reconciler.RemoveEntity(ctx, op.Payload.TargetID, models.KindClient)
		err = o.dequeue(ctx, op.ID)

	default:
		err = o.dequeue(ctx, op.ID)
	}

	if err != nil {
		o.logger.Err(err).Str("op_id", op.ID).Msg("failed to dequeue synced operation")
		p.result.Errors = append(p.result.Errors, fmt.Sprintf("dequeue %s: %v", op.ID, err))
	}

	p.result.SyncedCount++
	o.metrics.Operation(string(op.Type), "synced")
}

// settleCreate maps the placeholder of a created entity to its authoritative
// id and splices the final record into the cache. op is what was submitted;
// the queued copy may have been edited or dropped by the UI while the request
// was in flight. An edit is requeued as an update of the authoritative record
// and a dropped client create as its delete.
func (o *syncOrchestrator) settleCreate(ctx context.Context, op, resolved models.PendingOperation, authoritative models.ID, p *pass) error {
	subject := op.SubjectID()
	kind := op.Type.Kind()
	log := o.logger.With().
		Str("op_id", op.ID).
		Stringer("placeholder", subject).
		Stringer("authoritative", authoritative).
		Logger()

	if err := o.mapper.AddMapping(subject, authoritative, kind); err != nil {
		log.Err(err).Msg("failed to record identity mapping")
		p.result.Errors = append(p.result.Errors, err.Error())
	}

	return o.cache.Exclusive(func() error {
		queued, ok := findOperation(o.cache.PendingOperations(ctx), op.ID)

		switch {
		case !ok && kind == models.KindClient && !containsID(o.cache.Clients(ctx), subject):
			log.Info().Msg("client deleted while its create was in flight, queueing remote delete")
			return o.requeue(ctx, op.ID, models.PendingOperation{
				ID:         o.opIDs.Generate(),
				Type:       models.OpDeleteClient,
				Payload:    models.OperationPayload{TargetID: authoritative},
				EnqueuedAt: o.now(),
			})

		case !ok || samePayload(op, queued):
			o.splice(ctx, subject, authoritative, resolved, kind)
			return o.dequeue(ctx, op.ID)
		}

		o.splice(ctx, subject, authoritative, o.mapper.ResolveOperation(queued), kind)
		if kind != models.KindClient {
			return o.dequeue(ctx, op.ID)
		}

		patch := models.DiffClient(*op.Payload.Client, *queued.Payload.Client)
		if patch.IsEmpty() {
			return o.dequeue(ctx, op.ID)
		}
		log.Info().Msg("client edited while its create was in flight, queueing update")
		return o.requeue(ctx, op.ID, models.PendingOperation{
			ID:         o.opIDs.Generate(),
			Type:       models.OpUpdateClient,
			Payload:    models.OperationPayload{TargetID: authoritative, Patch: &patch},
			EnqueuedAt: queued.EnqueuedAt,
		})
	})
}

// splice replaces the cached placeholder record with the record carried by op.
func (o *syncOrchestrator) splice(ctx context.Context, placeholder, authoritative models.ID, op models.PendingOperation, kind models.EntityKind) {
	var record models.Referencer = op.Payload.Client
	if kind == models.KindReceipt {
		record = op.Payload.Receipt
	}
	if !o.reconciler.ReplaceEntity(ctx, placeholder, authoritative, record, kind) {
		o.logger.Debug().Stringer("placeholder", placeholder).Msg("created entity is no longer cached")
	}
}

// requeue puts next in place of the operation opID, or appends it when opID
// is no longer queued.
func (o *syncOrchestrator) requeue(ctx context.Context, opID string, next models.PendingOperation) error {
	return o.cache.UpdatePendingOperations(ctx, func(queue []models.PendingOperation) []models.PendingOperation {
		if i := slices.IndexFunc(queue, func(q models.PendingOperation) bool { return q.ID == opID }); i >= 0 {
			queue[i] = next
			return queue
		}
		return append(queue, next)
	})
}

// recordAttempt stores err on the queued op and counts the attempt against
// the ceiling of its outcome: retries against maxRetries, holds against
// maxHolds. The op is removed once it reaches the ceiling; the return value
// reports that removal.
func (o *syncOrchestrator) recordAttempt(ctx context.Context, op models.PendingOperation, cause error, outcome remoteOutcome) (removed bool) {
	err := o.cache.UpdatePendingOperations(ctx, func(queue []models.PendingOperation) []models.PendingOperation {
		i := slices.IndexFunc(queue, func(q models.PendingOperation) bool { return q.ID == op.ID })
		if i < 0 {
			return queue
		}
		queue[i].LastError = cause.Error()

		var exhausted bool
		if outcome == outcomeHold {
			queue[i].HeldCount++
			exhausted = queue[i].HeldCount >= o.maxHolds
		} else {
			queue[i].RetryCount++
			exhausted = queue[i].RetryCount >= o.maxRetries
		}
		if exhausted {
			removed = true
			return slices.Delete(queue, i, i+1)
		}
		return queue
	})
	if err != nil {
		o.logger.Err(err).
			Str("func", "syncOrchestrator.recordAttempt").
			Str("op_id", op.ID).
			Msg("failed to record attempt")
	}
	return removed
}

func (o *syncOrchestrator) discard(ctx context.Context, op models.PendingOperation, p *pass, cause error) {
	if err := o.dequeue(ctx, op.ID); err != nil {
		o.logger.Err(err).
			Str("func", "syncOrchestrator.discard").
			Str("op_id", op.ID).
			Msg("failed to drop operation")
	}
	o.discarded(op, p, cause)
}

func (o *syncOrchestrator) discarded(op models.PendingOperation, p *pass, cause error) {
	if op.Type.IsCreate() {
		delete(p.creates, op.SubjectID())
	}

	err := fmt.Errorf("%w: %s %s: %w", ErrOperationDiscarded, op.Type, op.SubjectID(), cause)
	o.logger.Error().Err(err).
		Str("op_id", op.ID).
		Int("retries", op.RetryCount).
		Int("holds", op.HeldCount).
		Msg("pending operation discarded")

	p.result.FailedCount++
	p.result.DiscardedCount++
	p.result.Errors = append(p.result.Errors, err.Error())
	o.metrics.Operation(string(op.Type), "discarded")
}

func (o *syncOrchestrator) dequeue(ctx context.Context, opID string) error {
	return o.cache.UpdatePendingOperations(ctx, func(queue []models.PendingOperation) []models.PendingOperation {
		return slices.DeleteFunc(queue, func(q models.PendingOperation) bool { return q.ID == opID })
	})
}

// reconcile folds the pass's mappings into the cache and reports what could
// not be fixed. Nothing here aborts the pass.
func (o *syncOrchestrator) reconcile(ctx context.Context, p *pass) {
	if updates := o.mapper.GenerateBatchUpdates(); len(updates) > 0 {
		report := o.reconciler.ApplyIDMappingUpdates(ctx, updates)
		p.result.CacheUpdates = &report
		p.result.Errors = append(p.result.Errors, report.Errors...)
	}

	o.reconciler.CleanupTempEntries(ctx)

	consistency := o.reconciler.VerifyCacheConsistency(ctx)
	for _, issue := range consistency.Issues {
		if issue.Fixed {
			continue
		}
		msg := fmt.Sprintf("cache %s: %s %s", issue.Kind, issue.Collection, issue.EntityID)
		if !issue.Reference.IsZero() {
			msg += " -> " + issue.Reference.String()
		}
		p.result.Errors = append(p.result.Errors, msg)
	}

	for _, err := range o.mapper.ValidateMappings() {
		o.logger.Warn().Err(err).Msg("identity mapping validation failed")
		p.result.Errors = append(p.result.Errors, err.Error())
	}
}

func (o *syncOrchestrator) notify(result models.SyncResult) {
	o.mu.Lock()
	last := result
	o.lastResult = &last
	listeners := make([]SyncListener, 0, len(o.listeners))
	ids := make([]uint64, 0, len(o.listeners))
	for id := range o.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		listeners = append(listeners, o.listeners[id])
	}
	o.mu.Unlock()

	for _, l := range listeners {
		l(result)
	}

	if summary := summarize(result); summary != "" && o.notifier != nil {
		o.notifier.Notify(summary)
	}
}

func (o *syncOrchestrator) Status(ctx context.Context) models.SyncStatus {
	pending := len(o.cache.PendingOperations(ctx))

	o.mu.Lock()
	defer o.mu.Unlock()

	status := models.SyncStatus{
		State:        o.state,
		IsSyncing:    o.state != models.SyncIdle,
		PendingCount: pending,
	}
	if o.lastResult != nil {
		last := *o.lastResult
		status.LastResult = &last
	}
	return status
}

func (o *syncOrchestrator) OnComplete(listener SyncListener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.listeners[id] = listener

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.listeners, id)
	}
}

// begin moves the orchestrator out of Idle. It fails when a pass is already
// running.
func (o *syncOrchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != models.SyncIdle {
		return false
	}
	o.state = models.SyncChecking
	return true
}

func (o *syncOrchestrator) setState(state models.SyncState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// summarize builds the single user-facing message of a pass. A pass that
// neither synced nor failed anything stays silent.
func summarize(result models.SyncResult) string {
	var parts []string
	if result.SyncedCount > 0 {
		parts = append(parts, fmt.Sprintf("synced %d", result.SyncedCount))
	}
	if result.FailedCount > 0 {
		parts = append(parts, fmt.Sprintf("failed to sync %d", result.FailedCount))
	}
	return strings.Join(parts, ", ")
}

// unresolvedParent returns the first parent reference of op that is still a
// placeholder.
func unresolvedParent(op models.PendingOperation) (models.ID, bool) {
	for _, parent := range op.ParentIDs() {
		if parent.IsPlaceholder() {
			return parent, true
		}
	}
	return models.ID{}, false
}

func findOperation(queue []models.PendingOperation, opID string) (models.PendingOperation, bool) {
	i := slices.IndexFunc(queue, func(q models.PendingOperation) bool { return q.ID == opID })
	if i < 0 {
		return models.PendingOperation{}, false
	}
	return queue[i], true
}

// samePayload compares the stored form of two payloads.
func samePayload(a, b models.PendingOperation) bool {
	x, errA := json.Marshal(a.Payload)
	y, errB := json.Marshal(b.Payload)
	return errA == nil && errB == nil && bytes.Equal(x, y)
}

func hasPayload(op models.PendingOperation) bool {
	switch op.Type {
	case models.OpCreateClient:
		return op.Payload.Client != nil
	case models.OpCreateReceipt:
		return op.Payload.Receipt != nil
	case models.OpUpdateClient:
		return op.Payload.Patch != nil && !op.Payload.TargetID.IsZero()
	case models.OpDeleteClient:
		return !op.Payload.TargetID.IsZero()
	default:
		return false
	}
}

// AnonymousIdentifier keys rate limits of signed-out use on a shared bucket.
const AnonymousIdentifier = "anonymous"

func LimitIdentifier(ownerID string) string {
	if ownerID == "" {
		return AnonymousIdentifier
	}
	return ownerID
}
