// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package ratelimit

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/metrics"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

const (
	defaultFlushInterval    = 30 * time.Second
	defaultSweepInterval    = 5 * time.Minute
	defaultSessionWindow    = 10 * time.Minute
	defaultSessionThreshold = 5
	defaultUserMessage      = "Too many requests. Try again in %s."
)

// Options tune the background behaviour of a [Limiter]. Zero values select
// the defaults.
type Options struct {
	FlushInterval    time.Duration
	SweepInterval    time.Duration
	SessionWindow    time.Duration
	SessionThreshold int
}

type entryKey struct {
	operation   string
	identifier  string
	fingerprint string
}

// Limiter is a fixed-window rate limiter with optional hard blocks.
//
// Call Start once before use: it loads the device fingerprint, restores
// persisted counters and starts the flush and sweep timers. Destroy stops
// them and writes the final state.
type Limiter struct {
	mu          sync.Mutex
	policies    map[string]models.RateLimitPolicy
	entries     map[entryKey]*models.RateLimitEntry
	sessions    map[string][]time.Time
	fingerprint string
	dirty       bool

	store     StateStore
	lifecycle Lifecycle
	metrics   *metrics.SyncMetrics
	logger    *logger.Logger
	opts      Options
	traits    DeviceTraits
	now       func() time.Time

	loopMu      sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
}

// New builds an idle limiter. lifecycle and m may be nil.
func New(st StateStore, lifecycle Lifecycle, opts Options, m *metrics.SyncMetrics, log *logger.Logger) *Limiter {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.SessionWindow <= 0 {
		opts.SessionWindow = defaultSessionWindow
	}
	if opts.SessionThreshold <= 0 {
		opts.SessionThreshold = defaultSessionThreshold
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Limiter{
		policies:  make(map[string]models.RateLimitPolicy),
		entries:   make(map[entryKey]*models.RateLimitEntry),
		sessions:  make(map[string][]time.Time),
		store:     st,
		lifecycle: lifecycle,
		metrics:   m,
		logger:    log,
		opts:      opts,
		traits:    CurrentTraits(),
		now:       time.Now,
	}
}

// RegisterLimit declares the policy of operation, replacing any earlier one.
func (l *Limiter) RegisterLimit(operation string, policy models.RateLimitPolicy) error {
	if operation == "" || policy.MaxAttempts <= 0 || policy.Window <= 0 || policy.BlockDuration < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, operation)
	}

	l.mu.Lock()
	l.policies[operation] = policy
	l.mu.Unlock()
	return nil
}

// Operations returns the registered operation names, sorted.
func (l *Limiter) Operations() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ops := make([]string, 0, len(l.policies))
	for op := range l.policies {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// CheckLimit counts one attempt of operation by identifier and reports
// whether it may proceed. It must be called before the guarded action.
// Denied calls are not counted.
func (l *Limiter) CheckLimit(operation, identifier string) (result models.RateLimitResult) {
	defer l.failOpen("CheckLimit", operation, &result)

	l.mu.Lock()
	defer l.mu.Unlock()

	policy, ok := l.policies[operation]
	if !ok {
		l.logger.Warn().Str("operation", operation).Msg("rate limit check for unregistered operation")
		return allowUnlimited()
	}

	now := l.now()
	key := l.key(operation, identifier)
	e := l.entries[key]

	if e != nil && now.Before(e.BlockedUntil) {
		result = l.denied(policy, e.BlockedUntil, e.BlockedUntil.Sub(now))
		l.metrics.RateLimitDecision(operation, false)
		return result
	}

	if e == nil || !now.Before(e.WindowResetAt) || !e.BlockedUntil.IsZero() {
		e = &models.RateLimitEntry{
			Operation:     operation,
			Identifier:    identifier,
			Fingerprint:   l.fingerprint,
			WindowResetAt: now.Add(policy.Window),
		}
		l.entries[key] = e
	}

	if e.Count >= policy.MaxAttempts {
		if policy.BlockDuration > 0 {
			e.BlockedUntil = now.Add(policy.BlockDuration)
			l.dirty = true
			l.logger.Warn().
				Str("operation", operation).
				Str("identifier", identifier).
				Time("blocked_until", e.BlockedUntil).
				Msg("rate limit exceeded, key blocked")
			result = l.denied(policy, e.BlockedUntil, policy.BlockDuration)
		} else {
			result = l.denied(policy, e.WindowResetAt, e.WindowResetAt.Sub(now))
		}
		l.metrics.RateLimitDecision(operation, false)
		return result
	}

	e.Count++
	l.dirty = true
	l.metrics.RateLimitDecision(operation, true)

	return models.RateLimitResult{
		Allowed:   true,
		Remaining: policy.MaxAttempts - e.Count,
		ResetAt:   e.WindowResetAt,
	}
}

// GetStatus reports what CheckLimit would decide without counting.
func (l *Limiter) GetStatus(operation, identifier string) (result models.RateLimitResult) {
	defer l.failOpen("GetStatus", operation, &result)

	l.mu.Lock()
	defer l.mu.Unlock()

	policy, ok := l.policies[operation]
	if !ok {
		return allowUnlimited()
	}

	now := l.now()
	e := l.entries[l.key(operation, identifier)]

	switch {
	case e != nil && now.Before(e.BlockedUntil):
		return l.denied(policy, e.BlockedUntil, e.BlockedUntil.Sub(now))
	case e == nil || !now.Before(e.WindowResetAt) || !e.BlockedUntil.IsZero():
		return models.RateLimitResult{Allowed: true, Remaining: policy.MaxAttempts, ResetAt: now.Add(policy.Window)}
	case e.Count >= policy.MaxAttempts:
		if policy.BlockDuration > 0 {
			return l.denied(policy, now.Add(policy.BlockDuration), policy.BlockDuration)
		}
		return l.denied(policy, e.WindowResetAt, e.WindowResetAt.Sub(now))
	default:
		return models.RateLimitResult{Allowed: true, Remaining: policy.MaxAttempts - e.Count, ResetAt: e.WindowResetAt}
	}
}

// Reset forgets the counter of one key.
func (l *Limiter) Reset(operation, identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, l.key(operation, identifier))
	l.dirty = true
}

// RecordSession notes that identifier opened a new session and reports
// whether the number of sessions inside the session window is anomalous.
// Anomalies are reported, never enforced. Session marks are persisted with
// the counters, so churn across restarts is seen too.
func (l *Limiter) RecordSession(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.opts.SessionWindow)
	marks := slices.DeleteFunc(l.sessions[identifier], func(t time.Time) bool { return t.Before(cutoff) })
	marks = append(marks, now)
	l.sessions[identifier] = marks
	l.dirty = true

	if len(marks) > l.opts.SessionThreshold {
		l.logger.Debug().
			Str("identifier", identifier).
			Int("sessions", len(marks)).
			Dur("window", l.opts.SessionWindow).
			Msg("anomalous session churn")
		return true
	}
	return false
}

// Sweep drops entries whose window and block have both lapsed and returns
// how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, e := range l.entries {
		if e.Expired(now) {
			delete(l.entries, k)
			removed++
		}
	}

	cutoff := now.Add(-l.opts.SessionWindow)
	for id, marks := range l.sessions {
		marks = slices.DeleteFunc(marks, func(t time.Time) bool { return t.Before(cutoff) })
		if len(marks) == 0 {
			delete(l.sessions, id)
		} else {
			l.sessions[id] = marks
		}
	}

	if removed > 0 {
		l.dirty = true
	}
	return removed
}

// Flush writes the live entries and session marks to the state store.
func (l *Limiter) Flush(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	snapshot := make([]models.RateLimitEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.Expired(now) {
			snapshot = append(snapshot, *e)
		}
	}
	sessions := l.sessionSnapshot(now)
	l.dirty = false
	l.mu.Unlock()

	err := l.store.Put(ctx, store.KeyRateLimits, snapshot)
	if err == nil {
		err = l.store.Put(ctx, store.KeySessionMarks, sessions)
	}
	if err != nil {
		l.logger.Err(err).Str("func", "Limiter.Flush").Msg("failed to persist rate limit state")
		l.mu.Lock()
		l.dirty = true
		l.mu.Unlock()
		return fmt.Errorf("persist rate limits: %w", err)
	}
	return nil
}

// sessionSnapshot returns the marks still inside the session window. l.mu must
// be held.
func (l *Limiter) sessionSnapshot(now time.Time) []models.SessionMarks {
	cutoff := now.Add(-l.opts.SessionWindow)
	ids := make([]string, 0, len(l.sessions))
	for id := range l.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]models.SessionMarks, 0, len(ids))
	for _, id := range ids {
		marks := slices.DeleteFunc(slices.Clone(l.sessions[id]), func(t time.Time) bool { return t.Before(cutoff) })
		if len(marks) == 0 {
			continue
		}
		out = append(out, models.SessionMarks{Identifier: id, Fingerprint: l.fingerprint, Marks: marks})
	}
	return out
}

// Start loads the fingerprint, restores persisted entries, subscribes to
// lifecycle signals and launches the flush and sweep timers. Calling Start
// again restarts the timers.
func (l *Limiter) Start(ctx context.Context) {
	l.stopLoop()

	persistCtx := context.WithoutCancel(ctx)
	fp := LoadFingerprint(persistCtx, l.store, l.traits)

	l.mu.Lock()
	l.fingerprint = fp
	l.mu.Unlock()
	l.restore(persistCtx)

	l.loopMu.Lock()
	if l.lifecycle != nil && l.unsubscribe == nil {
		l.unsubscribe = l.lifecycle.Subscribe(func(sig Signal) {
			l.logger.Debug().Str("signal", sig.String()).Msg("flushing rate limits on lifecycle signal")
			_ = l.Flush(persistCtx)
		})
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.wg.Add(1)
	l.loopMu.Unlock()

	go l.loop(loopCtx, persistCtx)
}

func (l *Limiter) loop(ctx, persistCtx context.Context) {
	defer l.wg.Done()

	flush := time.NewTicker(l.opts.FlushInterval)
	defer flush.Stop()
	sweep := time.NewTicker(l.opts.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-flush.C:
			l.mu.Lock()
			dirty := l.dirty
			l.mu.Unlock()
			if dirty {
				_ = l.Flush(persistCtx)
			}
		case <-sweep.C:
			if n := l.Sweep(); n > 0 {
				l.logger.Debug().Int("removed", n).Msg("swept expired rate limit entries")
			}
		}
	}
}

// Destroy stops the timers, detaches the lifecycle listener and writes the
// final state. It is safe to call more than once.
func (l *Limiter) Destroy(ctx context.Context) error {
	l.stopLoop()

	l.loopMu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.loopMu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	return l.Flush(ctx)
}

func (l *Limiter) stopLoop() {
	l.loopMu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.loopMu.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

// restore loads persisted entries and session marks that belong to this
// device and are still live. Corrupt or foreign state is ignored.
func (l *Limiter) restore(ctx context.Context) {
	var (
		persisted []models.RateLimitEntry
		sessions  []models.SessionMarks
	)
	hasEntries := l.store.Get(ctx, store.KeyRateLimits, &persisted)
	hasSessions := l.store.Get(ctx, store.KeySessionMarks, &sessions)
	if !hasEntries && !hasSessions {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	restored := 0
	for _, e := range persisted {
		if e.Fingerprint != l.fingerprint || e.Expired(now) {
			continue
		}
		entry := e
		l.entries[entryKey{e.Operation, e.Identifier, e.Fingerprint}] = &entry
		restored++
	}

	cutoff := now.Add(-l.opts.SessionWindow)
	for _, s := range sessions {
		if s.Fingerprint != l.fingerprint {
			continue
		}
		marks := slices.DeleteFunc(slices.Clone(s.Marks), func(t time.Time) bool { return t.Before(cutoff) })
		if len(marks) == 0 {
			continue
		}
		l.sessions[s.Identifier] = append(marks, l.sessions[s.Identifier]...)
		slices.SortFunc(l.sessions[s.Identifier], time.Time.Compare)
	}

	l.logger.Debug().
		Int("restored", restored).
		Int("persisted", len(persisted)).
		Int("session_owners", len(sessions)).
		Msg("rate limit state restored")
}

func (l *Limiter) key(operation, identifier string) entryKey {
	return entryKey{operation: operation, identifier: identifier, fingerprint: l.fingerprint}
}

func (l *Limiter) denied(policy models.RateLimitPolicy, resetAt time.Time, retryAfter time.Duration) models.RateLimitResult {
	return models.RateLimitResult{
		Allowed:    false,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
		Message:    userMessage(policy.UserMessage, retryAfter),
	}
}

// failOpen turns a panic inside a decision into an allowed result.
func (l *Limiter) failOpen(fn, operation string, result *models.RateLimitResult) {
	if r := recover(); r != nil {
		l.logger.Error().
			Str("func", "Limiter."+fn).
			Str("operation", operation).
			Interface("panic", r).
			Msg("rate limiter failed, allowing call")
		*result = allowUnlimited()
	}
}

// allowUnlimited is returned for calls the limiter does not govern.
// Remaining is -1.
func allowUnlimited() models.RateLimitResult {
	return models.RateLimitResult{Allowed: true, Remaining: -1}
}

func userMessage(template string, retryAfter time.Duration) string {
	if template == "" {
		template = defaultUserMessage
	}
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, humanDuration(retryAfter))
}

// humanDuration rounds d up to whole seconds, or minutes past one minute.
func humanDuration(d time.Duration) string {
	if d <= time.Minute {
		secs := int((d + time.Second - 1) / time.Second)
		if secs <= 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%d minutes", mins)
}

// RegisterAll registers every policy of the table.
func (l *Limiter) RegisterAll(policies map[string]models.RateLimitPolicy) error {
	for op, p := range policies {
		if err := l.RegisterLimit(op, p); err != nil {
			return err
		}
	}
	return nil
}
