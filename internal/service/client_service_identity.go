// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/MKhiriev/go-receipt-keeper/models"
)

var (
	// ErrDuplicateAuthoritativeID means two placeholders were mapped to the
	// same server id.
	ErrDuplicateAuthoritativeID = errors.New("authoritative id mapped from more than one placeholder")

	// ErrOrphanedDependency means a child depends on a placeholder whose
	// creation never succeeded in this pass.
	ErrOrphanedDependency = errors.New("dependency on unmapped placeholder")

	ErrNotAPlaceholder = errors.New("id is not a placeholder")
)

type identityMapper struct {
	mu sync.Mutex

	mappings   map[models.ID]models.IdentityMapping
	order      []models.ID
	dependents map[models.ID][]models.ID
}

// NewIdentityMapper returns an empty mapper.
func NewIdentityMapper() IdentityMapper {
	return &identityMapper{
		mappings:   make(map[models.ID]models.IdentityMapping),
		dependents: make(map[models.ID][]models.ID),
	}
}

func (m *identityMapper) AddMapping(placeholder, authoritative models.ID, kind models.EntityKind) error {
	if !placeholder.IsPlaceholder() {
		return fmt.Errorf("%w: %s", ErrNotAPlaceholder, placeholder)
	}
	if authoritative.IsZero() || authoritative.IsPlaceholder() {
		return fmt.Errorf("%w: invalid authoritative id %q", ErrNotAPlaceholder, authoritative)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mappings[placeholder]; !ok {
		m.order = append(m.order, placeholder)
	}
	m.mappings[placeholder] = models.IdentityMapping{
		PlaceholderID:   placeholder,
		AuthoritativeID: authoritative,
		Kind:            kind,
	}
	return nil
}

func (m *identityMapper) GetAuthoritativeID(placeholder models.ID) (models.ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mapping, ok := m.mappings[placeholder]
	return mapping.AuthoritativeID, ok
}

func (m *identityMapper) IsPlaceholder(id models.ID) bool {
	return id.IsPlaceholder()
}

func (m *identityMapper) AddDependency(child, parent models.ID) {
	if !parent.IsPlaceholder() || child.IsZero() || child == parent {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.Contains(m.dependents[parent], child) {
		return
	}
	m.dependents[parent] = append(m.dependents[parent], child)
}

func (m *identityMapper) GetDependents(parent models.ID) []models.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.dependents[parent])
}

func (m *identityMapper) ResolveReferences(rec models.Referencer) int {
	if rec == nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := 0
	for _, ref := range rec.References() {
		if !ref.IsPlaceholder() {
			continue
		}
		if mapping, ok := m.mappings[*ref]; ok {
			*ref = mapping.AuthoritativeID
			replaced++
		}
	}
	return replaced
}

func (m *identityMapper) ResolveOperation(op models.PendingOperation) models.PendingOperation {
	resolved := op.Clone()
	m.ResolveReferences(&resolved)
	return resolved
}

func (m *identityMapper) GenerateBatchUpdates() []models.BatchUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	updates := make([]models.BatchUpdate, 0, len(m.order))
	for _, placeholder := range m.order {
		mapping := m.mappings[placeholder]
		updates = append(updates, models.BatchUpdate{
			OldParentID:       mapping.PlaceholderID,
			NewParentID:       mapping.AuthoritativeID,
			Kind:              mapping.Kind,
			DependentChildIDs: slices.Clone(m.dependents[placeholder]),
		})
	}
	return updates
}

func (m *identityMapper) ValidateMappings() []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error

	seen := make(map[models.ID]models.ID, len(m.mappings))
	for _, placeholder := range m.order {
		mapping := m.mappings[placeholder]
		if first, ok := seen[mapping.AuthoritativeID]; ok {
			errs = append(errs, fmt.Errorf("%w: %s from %s and %s",
				ErrDuplicateAuthoritativeID, mapping.AuthoritativeID, first, placeholder))
			continue
		}
		seen[mapping.AuthoritativeID] = placeholder
	}

	parents := make([]models.ID, 0, len(m.dependents))
	for parent := range m.dependents {
		parents = append(parents, parent)
	}
	slices.SortFunc(parents, func(a, b models.ID) int { return strings.Compare(a.String(), b.String()) })

	for _, parent := range parents {
		if _, ok := m.mappings[parent]; ok {
			continue
		}
		for _, child := range m.dependents[parent] {
			errs = append(errs, fmt.Errorf("%w: %s -> %s", ErrOrphanedDependency, child, parent))
		}
	}
	return errs
}

func (m *identityMapper) Mappings() []models.IdentityMapping {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.IdentityMapping, 0, len(m.order))
	for _, placeholder := range m.order {
		out = append(out, m.mappings[placeholder])
	}
	return out
}

func (m *identityMapper) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mappings = make(map[models.ID]models.IdentityMapping)
	m.dependents = make(map[models.ID][]models.ID)
	m.order = nil
}
