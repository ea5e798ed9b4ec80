// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/MKhiriev/go-receipt-keeper/internal/validators"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

type idGenerator interface {
	Generate() string
}

// clientRecordService is what the UI talks to. Every mutation is applied to
// the cache first and queued for the next sync pass, both under the cache's
// exclusive lock so that a sync pass never observes one without the other.
type clientRecordService struct {
	cache     store.LocalCache
	limiter   ratelimit.Checker
	validator validators.Validator
	opIDs     idGenerator
	logger    *logger.Logger
	now       func() time.Time
}

// NewClientRecordService returns the record service. limiter may be nil.
func NewClientRecordService(cache store.LocalCache, limiter ratelimit.Checker, log *logger.Logger) ClientRecordService {
	return newClientRecordService(cache, limiter, log)
}

func newClientRecordService(cache store.LocalCache, limiter ratelimit.Checker, log *logger.Logger) *clientRecordService {
	if log == nil {
		log = logger.Nop()
	}
	return &clientRecordService{
		cache:     cache,
		limiter:   limiter,
		validator: validators.NewRecordValidator(),
		opIDs:     utils.NewUUIDGenerator(),
		logger:    log,
		now:       time.Now,
	}
}

func (s *clientRecordService) CreateClient(ctx context.Context, ownerID string, c models.Client) (models.ID, error) {
	c.ID = models.NewPlaceholderID(models.KindClient)
	if ownerID != "" {
		c.UserID = models.AuthoritativeID(ownerID)
	}
	c.CreatedAt = s.now()

	if err := s.validator.Validate(ctx, c); err != nil {
		return models.ID{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}
	if err := s.checkLimit(config.OpClientCreate, ownerID); err != nil {
		return models.ID{}, err
	}

	err := s.cache.Exclusive(func() error {
		if err := s.cache.UpdateClients(ctx, func(clients []models.Client) []models.Client {
			return append(clients, c)
		}); err != nil {
			return fmt.Errorf("cache client: %w", err)
		}

		if err := s.enqueue(ctx, models.OpCreateClient, models.OperationPayload{Client: &c}); err != nil {
			s.rollback(ctx, c.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return models.ID{}, err
	}

	s.logger.Debug().Stringer("id", c.ID).Msg("client created locally")
	return c.ID, nil
}

func (s *clientRecordService) CreateReceipt(ctx context.Context, ownerID string, r models.Receipt) (models.ID, error) {
	r = r.Clone()
	r.ID = models.NewPlaceholderID(models.KindReceipt)
	if ownerID != "" {
		r.UserID = models.AuthoritativeID(ownerID)
	}
	for i := range r.Items {
		r.Items[i].ReceiptID = r.ID
	}
	if r.Total == 0 {
		r.Total = r.ComputeTotal()
	}
	r.CreatedAt = s.now()

	if err := s.validator.Validate(ctx, r); err != nil {
		return models.ID{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	err := s.cache.Exclusive(func() error {
		if !containsID(s.cache.Clients(ctx), r.ClientID) {
			return fmt.Errorf("%w: client %s", ErrEntityNotFound, r.ClientID)
		}
		if err := s.checkLimit(config.OpReceiptCreate, ownerID); err != nil {
			return err
		}

		if err := s.cache.UpdateReceipts(ctx, func(receipts []models.Receipt) []models.Receipt {
			return append(receipts, r)
		}); err != nil {
			return fmt.Errorf("cache receipt: %w", err)
		}

		if err := s.enqueue(ctx, models.OpCreateReceipt, models.OperationPayload{Receipt: &r}); err != nil {
			s.rollback(ctx, r.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return models.ID{}, err
	}
	return r.ID, nil
}

func (s *clientRecordService) UpdateClient(ctx context.Context, ownerID string, id models.ID, patch models.ClientPatch) (models.ID, error) {
	if id.IsZero() {
		return models.ID{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, validators.ErrInvalidID)
	}
	if err := s.validator.Validate(ctx, patch); err != nil {
		return models.ID{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	err := s.cache.Exclusive(func() error {
		if !containsID(s.cache.Clients(ctx), id) {
			return fmt.Errorf("%w: client %s", ErrEntityNotFound, id)
		}
		if err := s.checkLimit(config.OpClientUpdate, ownerID); err != nil {
			return err
		}
		return s.updateClient(ctx, id, patch)
	})
	if err != nil {
		return models.ID{}, err
	}
	return id, nil
}

func (s *clientRecordService) updateClient(ctx context.Context, id models.ID, patch models.ClientPatch) error {
	updatedAt := s.now()
	if err := s.cache.UpdateClients(ctx, func(clients []models.Client) []models.Client {
		for i := range clients {
			if clients[i].ID == id {
				patch.Apply(&clients[i])
				clients[i].UpdatedAt = updatedAt
			}
		}
		return clients
	}); err != nil {
		return fmt.Errorf("cache client update: %w", err)
	}

	merged := false
	if id.IsPlaceholder() {
		err := s.cache.UpdatePendingOperations(ctx, func(queue []models.PendingOperation) []models.PendingOperation {
			for i := range queue {
				if queue[i].Type == models.OpCreateClient && queue[i].SubjectID() == id {
					c := *queue[i].Payload.Client
					patch.Apply(&c)
					c.UpdatedAt = updatedAt
					queue[i].Payload.Client = &c
					merged = true
				}
			}
			return queue
		})
		if err != nil {
			return fmt.Errorf("merge update into queued create: %w", err)
		}
	}

	if merged {
		return nil
	}
	return s.enqueue(ctx, models.OpUpdateClient, models.OperationPayload{TargetID: id, Patch: &patch})
}

func (s *clientRecordService) DeleteClient(ctx context.Context, ownerID string, id models.ID) error {
	if id.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidDataProvided, validators.ErrInvalidID)
	}

	return s.cache.Exclusive(func() error {
		if !containsID(s.cache.Clients(ctx), id) {
			return fmt.Errorf("%w: client %s", ErrEntityNotFound, id)
		}
		if err := s.checkLimit(config.OpClientDelete, ownerID); err != nil {
			return err
		}
		return s.deleteClient(ctx, id)
	})
}

func (s *clientRecordService) deleteClient(ctx context.Context, id models.ID) error {
	if err := s.cache.UpdateClients(ctx, func(clients []models.Client) []models.Client {
		clients, _ = removeByID(clients, id)
		return clients
	}); err != nil {
		return fmt.Errorf("cache client delete: %w", err)
	}

	if err := s.cache.UpdateReceipts(ctx, func(receipts []models.Receipt) []models.Receipt {
		for i := range receipts {
			if receipts[i].ClientID == id {
				receipts[i].ClientID = models.ID{}
			}
		}
		return receipts
	}); err != nil {
		return fmt.Errorf("detach receipts: %w", err)
	}

	collapsed := false
	err := s.cache.UpdatePendingOperations(ctx, func(queue []models.PendingOperation) []models.PendingOperation {
		if id.IsPlaceholder() {
			queue = slices.DeleteFunc(queue, func(op models.PendingOperation) bool {
				if op.Type == models.OpCreateClient && op.SubjectID() == id {
					collapsed = true
					return true
				}
				return op.Type == models.OpUpdateClient && op.Payload.TargetID == id
			})
		}
		for i := range queue {
			if r := queue[i].Payload.Receipt; r != nil && r.ClientID == id {
				detached := r.Clone()
				detached.ClientID = models.ID{}
				queue[i].Payload.Receipt = &detached
			}
		}
		return queue
	})
	if err != nil {
		return fmt.Errorf("collapse queued client operations: %w", err)
	}

	// A create that is in flight right now is also dropped here; the sync
	// pass that submitted it queues the remote delete once it lands.
	if collapsed {
		s.logger.Debug().Stringer("id", id).Msg("client never reached the server, nothing to delete remotely")
		return nil
	}
	return s.enqueue(ctx, models.OpDeleteClient, models.OperationPayload{TargetID: id})
}

func (s *clientRecordService) ListClients(ctx context.Context) []models.Client {
	return s.cache.Clients(ctx)
}

func (s *clientRecordService) ListReceipts(ctx context.Context) []models.Receipt {
	return s.cache.Receipts(ctx)
}

// ImportCatalog replaces the cached products and categories. Catalog records
// come from the server and carry authoritative ids.
func (s *clientRecordService) ImportCatalog(ctx context.Context, products []models.Product, categories []models.Category) error {
	for _, c := range categories {
		if err := s.validator.Validate(ctx, c); err != nil {
			return fmt.Errorf("%w: category %s: %w", ErrInvalidDataProvided, c.ID, err)
		}
	}
	for _, p := range products {
		if err := s.validator.Validate(ctx, p); err != nil {
			return fmt.Errorf("%w: product %s: %w", ErrInvalidDataProvided, p.ID, err)
		}
	}

	if err := s.cache.SaveCategories(ctx, categories); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	if err := s.cache.SaveProducts(ctx, products); err != nil {
		return fmt.Errorf("save products: %w", err)
	}

	s.logger.Info().
		Int("products", len(products)).
		Int("categories", len(categories)).
		Msg("catalog imported")
	return nil
}

func (s *clientRecordService) PendingCount(ctx context.Context) int {
	return len(s.cache.PendingOperations(ctx))
}

func (s *clientRecordService) checkLimit(operation, ownerID string) error {
	if s.limiter == nil {
		return nil
	}
	decision := s.limiter.CheckLimit(operation, LimitIdentifier(ownerID))
	if decision.Allowed {
		return nil
	}
	return &RateLimitError{
		Operation:  operation,
		Message:    decision.Message,
		RetryAfter: decision.RetryAfter,
	}
}

// rollback drops a freshly cached record whose create could not be queued.
func (s *clientRecordService) rollback(ctx context.Context, id models.ID) {
	var err error
	switch id.Kind() {
	case models.KindClient:
		err = s.cache.UpdateClients(ctx, func(clients []models.Client) []models.Client {
			clients, _ = removeByID(clients, id)
			return clients
		})
	case models.KindReceipt:
		err = s.cache.UpdateReceipts(ctx, func(receipts []models.Receipt) []models.Receipt {
			receipts, _ = removeByID(receipts, id)
			return receipts
		})
	}
	if err != nil {
		s.logger.Err(err).
			Str("func", "clientRecordService.rollback").
			Stringer("id", id).
			Msg("failed to drop record after queueing failed")
	}
}

func (s *clientRecordService) enqueue(ctx context.Context, opType models.OperationType, payload models.OperationPayload) error {
	op := models.PendingOperation{
		ID:         s.opIDs.Generate(),
		Type:       opType,
		Payload:    payload,
		EnqueuedAt: s.now(),
	}
	if err := s.cache.UpdatePendingOperations(ctx, func(queue []models.PendingOperation) []models.PendingOperation {
		return append(queue, op)
	}); err != nil {
		s.logger.Err(err).
			Str("func", "clientRecordService.enqueue").
			Str("op_type", string(opType)).
			Msg("failed to queue operation")
		return fmt.Errorf("enqueue %s: %w", opType, err)
	}
	return nil
}
