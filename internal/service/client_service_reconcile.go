// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
	"github.com/MKhiriev/go-receipt-keeper/models"
)

type cacheReconciler struct {
	cache  store.LocalCache
	logger *logger.Logger
}

// NewCacheReconciler returns a reconciler over cache.
func NewCacheReconciler(cache store.LocalCache, log *logger.Logger) CacheReconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &cacheReconciler{cache: cache, logger: log}
}

// referencer is satisfied by the pointer types of every cached entity.
type referencer[T any] interface {
	*T
	models.Referencer
}

// rewriteRefs replaces every reference found in ids. refs[0] is the
// record's own id.
func rewriteRefs(refs []*models.ID, ids map[models.ID]models.ID) (self, other bool) {
	for i, ref := range refs {
		next, ok := ids[*ref]
		if !ok {
			continue
		}
		*ref = next
		if i == 0 {
			self = true
		} else {
			other = true
		}
	}
	return self, other
}

// rewriteAll rewrites items in place and counts records whose own id and
// whose parent references changed.
func rewriteAll[T any, PT referencer[T]](items []T, ids map[models.ID]models.ID) (parents, children int) {
	for i := range items {
		self, other := rewriteRefs(PT(&items[i]).References(), ids)
		if self {
			parents++
		}
		if other {
			children++
		}
	}
	return parents, children
}

func (r *cacheReconciler) ApplyIDMappingUpdates(ctx context.Context, updates []models.BatchUpdate) models.CacheUpdateReport {
	report := models.CacheUpdateReport{}
	if len(updates) == 0 {
		return report
	}

	ids := make(map[models.ID]models.ID, len(updates))
	for _, u := range updates {
		if u.OldParentID.IsZero() || u.NewParentID.IsZero() || u.OldParentID == u.NewParentID {
			report.Errors = append(report.Errors, fmt.Sprintf("invalid batch update %s -> %s", u.OldParentID, u.NewParentID))
			continue
		}
		ids[u.OldParentID] = u.NewParentID
	}
	if len(ids) == 0 {
		return report
	}

	collect := func(collection string, parents, children int, err error) {
		if err != nil {
			r.logger.Err(err).
				Str("func", "cacheReconciler.ApplyIDMappingUpdates").
				Str("collection", collection).
				Msg("failed to write reconciled collection")
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", collection, err))
			return
		}
		report.UpdatedParents += parents
		report.UpdatedChildren += children
	}

	// Each collection is read once, rewritten in memory and written back
	// only when something changed.
	if p, c := rewriteAll(r.cache.Clients(ctx), ids); p+c > 0 {
		err := r.cache.UpdateClients(ctx, func(fresh []models.Client) []models.Client {
			rewriteAll(fresh, ids)
			return fresh
		})
		collect(models.CollectionClients, p, c, err)
	}

	if p, c := rewriteAll(r.cache.Receipts(ctx), ids); p+c > 0 {
		err := r.cache.UpdateReceipts(ctx, func(fresh []models.Receipt) []models.Receipt {
			rewriteAll(fresh, ids)
			return fresh
		})
		collect(models.CollectionReceipts, p, c, err)
	}

	products := r.cache.Products(ctx)
	if p, c := rewriteAll(products, ids); p+c > 0 {
		collect(models.CollectionProducts, p, c, r.cache.SaveProducts(ctx, products))
	}

	categories := r.cache.Categories(ctx)
	if p, c := rewriteAll(categories, ids); p+c > 0 {
		collect(models.CollectionCategories, p, c, r.cache.SaveCategories(ctx, categories))
	}

	// Operations still queued must not keep pointing at ids that are now
	// known, the mapping is gone by the next pass.
	ops := r.cache.PendingOperations(ctx)
	if changed := rewriteOperations(ops, ids); changed > 0 {
		err := r.cache.UpdatePendingOperations(ctx, func(fresh []models.PendingOperation) []models.PendingOperation {
			rewriteOperations(fresh, ids)
			return fresh
		})
		collect(models.CollectionPendingOperations, 0, changed, err)
	}

	return report
}

func rewriteOperations(ops []models.PendingOperation, ids map[models.ID]models.ID) int {
	changed := 0
	for i := range ops {
		if self, other := rewriteRefs(ops[i].References(), ids); self || other {
			changed++
		}
	}
	return changed
}

func (r *cacheReconciler) ReplaceEntity(ctx context.Context, placeholder, authoritative models.ID, record models.Referencer, kind models.EntityKind) bool {
	log := r.logger.With().
		Str("func", "cacheReconciler.ReplaceEntity").
		Stringer("placeholder", placeholder).
		Stringer("authoritative", authoritative).
		Logger()

	var (
		found bool
		err   error
	)

	switch rec := record.(type) {
	case *models.Client:
		if kind != models.KindClient || !containsID(r.cache.Clients(ctx), placeholder) {
			return false
		}
		final := *rec
		final.ID = authoritative
		err = r.cache.UpdateClients(ctx, func(clients []models.Client) []models.Client {
			found = replaceByID(clients, placeholder, final)
			return clients
		})

	case *models.Receipt:
		if kind != models.KindReceipt || !containsID(r.cache.Receipts(ctx), placeholder) {
			return false
		}
		final := rec.Clone()
		final.ID = authoritative
		for i := range final.Items {
			if final.Items[i].ReceiptID == placeholder {
				final.Items[i].ReceiptID = authoritative
			}
		}
		err = r.cache.UpdateReceipts(ctx, func(receipts []models.Receipt) []models.Receipt {
			found = replaceByID(receipts, placeholder, final)
			return receipts
		})

	default:
		log.Warn().Str("kind", string(kind)).Msg("unsupported record type")
		return false
	}

	if err != nil {
		log.Err(err).Msg("failed to replace cached entity")
		return false
	}
	return found
}

func (r *cacheReconciler) RemoveEntity(ctx context.Context, id models.ID, kind models.EntityKind) bool {
	var (
		removed bool
		err     error
	)

	switch kind {
	case models.KindClient:
		if !containsID(r.cache.Clients(ctx), id) {
			return false
		}
		err = r.cache.UpdateClients(ctx, func(clients []models.Client) []models.Client {
			clients, removed = removeByID(clients, id)
			return clients
		})
	case models.KindReceipt:
		if !containsID(r.cache.Receipts(ctx), id) {
			return false
		}
		err = r.cache.UpdateReceipts(ctx, func(receipts []models.Receipt) []models.Receipt {
			receipts, removed = removeByID(receipts, id)
			return receipts
		})
	case models.KindProduct:
		var products []models.Product
		if products, removed = removeByID(r.cache.Products(ctx), id); removed {
			err = r.cache.SaveProducts(ctx, products)
		}
	case models.KindCategory:
		var categories []models.Category
		if categories, removed = removeByID(r.cache.Categories(ctx), id); removed {
			err = r.cache.SaveCategories(ctx, categories)
		}
	}

	if err != nil {
		r.logger.Err(err).
			Str("func", "cacheReconciler.RemoveEntity").
			Stringer("id", id).
			Msg("failed to remove cached entity")
		return false
	}
	return removed
}

func (r *cacheReconciler) CleanupTempEntries(ctx context.Context) int {
	queued := queuedCreates(r.cache.PendingOperations(ctx))
	abandoned := func(id models.ID) bool {
		return id.IsPlaceholder() && !queued[id]
	}

	removed := 0
	fail := func(collection string, err error) {
		r.logger.Err(err).
			Str("func", "cacheReconciler.CleanupTempEntries").
			Str("collection", collection).
			Msg("failed to remove temporary entries")
	}

	if n := countIDs(r.cache.Clients(ctx), abandoned); n > 0 {
		err := r.cache.UpdateClients(ctx, func(clients []models.Client) []models.Client {
			return filterIDs(clients, abandoned)
		})
		if err != nil {
			fail(models.CollectionClients, err)
		} else {
			removed += n
		}
	}

	if n := countIDs(r.cache.Receipts(ctx), abandoned); n > 0 {
		err := r.cache.UpdateReceipts(ctx, func(receipts []models.Receipt) []models.Receipt {
			return filterIDs(receipts, abandoned)
		})
		if err != nil {
			fail(models.CollectionReceipts, err)
		} else {
			removed += n
		}
	}

	if products := r.cache.Products(ctx); countIDs(products, abandoned) > 0 {
		kept := filterIDs(products, abandoned)
		if err := r.cache.SaveProducts(ctx, kept); err != nil {
			fail(models.CollectionProducts, err)
		} else {
			removed += len(products) - len(kept)
		}
	}

	if categories := r.cache.Categories(ctx); countIDs(categories, abandoned) > 0 {
		kept := filterIDs(categories, abandoned)
		if err := r.cache.SaveCategories(ctx, kept); err != nil {
			fail(models.CollectionCategories, err)
		} else {
			removed += len(categories) - len(kept)
		}
	}

	if removed > 0 {
		r.logger.Info().Int("removed", removed).Msg("removed temporary entries without a queued create")
	}
	return removed
}

func (r *cacheReconciler) VerifyCacheConsistency(ctx context.Context) models.ConsistencyReport {
	clients := r.cache.Clients(ctx)
	receipts := r.cache.Receipts(ctx)
	products := r.cache.Products(ctx)
	categories := r.cache.Categories(ctx)
	queued := queuedCreates(r.cache.PendingOperations(ctx))

	report := models.ConsistencyReport{}
	add := func(issue models.ConsistencyIssue) {
		report.Issues = append(report.Issues, issue)
		if issue.Fixed {
			report.Fixed++
		}
	}

	clientIDs := checkIdentities(models.CollectionClients, clients, queued, add)
	checkIdentities(models.CollectionReceipts, receipts, queued, add)
	productIDs := checkIdentities(models.CollectionProducts, products, queued, add)
	categoryIDs := checkIdentities(models.CollectionCategories, categories, queued, add)

	// check classifies one parent reference. It returns true when the
	// reference points at a missing authoritative parent and must be cleared.
	check := func(collection string, entity, ref models.ID, parents map[models.ID]bool) bool {
		switch {
		case ref.IsZero():
			return false
		case ref.IsPlaceholder():
			if !queued[ref] {
				add(models.ConsistencyIssue{
					Kind:       models.IssueDanglingPlaceholder,
					Collection: collection,
					EntityID:   entity,
					Reference:  ref,
				})
			}
			return false
		case parents[ref]:
			return false
		default:
			add(models.ConsistencyIssue{
				Kind:       models.IssueOrphanedReference,
				Collection: collection,
				EntityID:   entity,
				Reference:  ref,
				Fixed:      true,
			})
			return true
		}
	}

	orphanClients := map[models.ID]bool{}
	orphanProducts := map[models.ID]bool{}
	for _, rc := range receipts {
		if check(models.CollectionReceipts, rc.ID, rc.ClientID, clientIDs) {
			orphanClients[rc.ClientID] = true
		}
		// Products are only checked against a loaded catalog.
		if len(products) == 0 {
			continue
		}
		for _, it := range rc.Items {
			if check(models.CollectionReceipts, rc.ID, it.ProductID, productIDs) {
				orphanProducts[it.ProductID] = true
			}
		}
	}

	orphanCategories := map[models.ID]bool{}
	if len(categories) > 0 {
		for _, p := range products {
			if check(models.CollectionProducts, p.ID, p.CategoryID, categoryIDs) {
				orphanCategories[p.CategoryID] = true
			}
		}
	}

	if len(orphanClients)+len(orphanProducts) > 0 {
		err := r.cache.UpdateReceipts(ctx, func(fresh []models.Receipt) []models.Receipt {
			for i := range fresh {
				if orphanClients[fresh[i].ClientID] {
					fresh[i].ClientID = models.ID{}
				}
				for j := range fresh[i].Items {
					if orphanProducts[fresh[i].Items[j].ProductID] {
						fresh[i].Items[j].ProductID = models.ID{}
					}
				}
			}
			return fresh
		})
		if err != nil {
			r.logger.Err(err).Str("func", "cacheReconciler.VerifyCacheConsistency").Msg("failed to clear orphaned receipt references")
			unfix(&report, models.CollectionReceipts)
		}
	}

	if len(orphanCategories) > 0 {
		for i := range products {
			if orphanCategories[products[i].CategoryID] {
				products[i].CategoryID = models.ID{}
			}
		}
		if err := r.cache.SaveProducts(ctx, products); err != nil {
			r.logger.Err(err).Str("func", "cacheReconciler.VerifyCacheConsistency").Msg("failed to clear orphaned product references")
			unfix(&report, models.CollectionProducts)
		}
	}

	report.IsConsistent = true
	for _, issue := range report.Issues {
		if !issue.Fixed {
			report.IsConsistent = false
			break
		}
	}

	if len(report.Issues) > 0 {
		r.logger.Warn().
			Int("issues", len(report.Issues)).
			Int("fixed", report.Fixed).
			Bool("consistent", report.IsConsistent).
			Msg("cache consistency issues found")
	}
	return report
}

// unfix marks the fixes of collection as not applied after a failed write.
func unfix(report *models.ConsistencyReport, collection string) {
	for i := range report.Issues {
		if report.Issues[i].Collection == collection && report.Issues[i].Fixed {
			report.Issues[i].Fixed = false
			report.Fixed--
		}
	}
}

// checkIdentities reports duplicate ids and placeholders nobody will create,
// and returns the set of ids present in the collection.
func checkIdentities[T any, PT referencer[T]](collection string, items []T, queued map[models.ID]bool, add func(models.ConsistencyIssue)) map[models.ID]bool {
	ids := make(map[models.ID]bool, len(items))
	for i := range items {
		id := *PT(&items[i]).References()[0]
		if ids[id] {
			add(models.ConsistencyIssue{Kind: models.IssueDuplicateID, Collection: collection, EntityID: id})
			continue
		}
		ids[id] = true

		if id.IsPlaceholder() && !queued[id] {
			add(models.ConsistencyIssue{Kind: models.IssueUnresolvedPlaceholder, Collection: collection, EntityID: id})
		}
	}
	return ids
}

// queuedCreates returns the ids that a queued create operation will mint.
func queuedCreates(ops []models.PendingOperation) map[models.ID]bool {
	out := make(map[models.ID]bool, len(ops))
	for _, op := range ops {
		if op.Type.IsCreate() {
			out[op.SubjectID()] = true
		}
	}
	return out
}

func containsID[T any, PT referencer[T]](items []T, id models.ID) bool {
	for i := range items {
		if *PT(&items[i]).References()[0] == id {
			return true
		}
	}
	return false
}

func replaceByID[T any, PT referencer[T]](items []T, id models.ID, next T) bool {
	for i := range items {
		if *PT(&items[i]).References()[0] == id {
			items[i] = next
			return true
		}
	}
	return false
}

func removeByID[T any, PT referencer[T]](items []T, id models.ID) ([]T, bool) {
	for i := range items {
		if *PT(&items[i]).References()[0] == id {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}

func countIDs[T any, PT referencer[T]](items []T, match func(models.ID) bool) int {
	n := 0
	for i := range items {
		if match(*PT(&items[i]).References()[0]) {
			n++
		}
	}
	return n
}

func filterIDs[T any, PT referencer[T]](items []T, drop func(models.ID) bool) []T {
	kept := items[:0]
	for i := range items {
		if !drop(*PT(&items[i]).References()[0]) {
			kept = append(kept, items[i])
		}
	}
	return kept
}
