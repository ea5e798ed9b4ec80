// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntityKind names the collection an entity belongs to.
type EntityKind string

const (
	KindClient   EntityKind = "client"
	KindReceipt  EntityKind = "receipt"
	KindProduct  EntityKind = "product"
	KindCategory EntityKind = "category"
)

// Collection returns the storage collection name for the kind.
func (k EntityKind) Collection() string {
	switch k {
	case KindClient:
		return CollectionClients
	case KindReceipt:
		return CollectionReceipts
	case KindProduct:
		return CollectionProducts
	case KindCategory:
		return CollectionCategories
	default:
		return ""
	}
}

const placeholderPrefix = "temp_"

// ID identifies an entity either by a locally minted placeholder or by the
// identity assigned by the remote store. The zero value means "no reference".
//
// Domain code inspects an ID through IsPlaceholder and Kind; the textual form
// (temp_<kind>_<seq> for placeholders) exists only at the persistence and wire
// boundary.
type ID struct {
	value       string
	placeholder bool
}

// PlaceholderID builds a placeholder identity for kind with the given local
// sequence.
func PlaceholderID(kind EntityKind, seq string) ID {
	return ID{value: placeholderPrefix + string(kind) + "_" + seq, placeholder: true}
}

// NewPlaceholderID mints a fresh placeholder for kind. The sequence is the
// base-36 unix millisecond timestamp followed by 8 random hex characters.
func NewPlaceholderID(kind EntityKind) ID {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	seq := strconv.FormatInt(time.Now().UnixMilli(), 36) + hex.EncodeToString(buf)
	return PlaceholderID(kind, seq)
}

// AuthoritativeID wraps an identity assigned by the remote store.
func AuthoritativeID(value string) ID {
	return ID{value: value}
}

// IsPlaceholder reports whether the id was minted locally and is not yet
// known to the remote store.
func (id ID) IsPlaceholder() bool {
	return id.placeholder
}

// IsZero reports whether the id is empty.
func (id ID) IsZero() bool {
	return id.value == ""
}

// Kind returns the entity kind encoded in a placeholder. Authoritative ids
// carry no kind and return "".
func (id ID) Kind() EntityKind {
	if !id.placeholder {
		return ""
	}
	rest := strings.TrimPrefix(id.value, placeholderPrefix)
	kind, _, ok := strings.Cut(rest, "_")
	if !ok {
		return ""
	}
	return EntityKind(kind)
}

func (id ID) String() string {
	return id.value
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. A value in the
// temp_<kind>_<seq> form decodes into a placeholder, anything else into an
// authoritative id.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID decodes the textual form of an ID.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, placeholderPrefix) {
		return AuthoritativeID(s), nil
	}

	kind, seq, ok := strings.Cut(strings.TrimPrefix(s, placeholderPrefix), "_")
	if !ok || kind == "" || seq == "" {
		return ID{}, fmt.Errorf("%w: %q", ErrMalformedPlaceholder, s)
	}
	return PlaceholderID(EntityKind(kind), seq), nil
}

// Referencer is implemented by every value that holds ID references. The
// returned pointers address the live fields, so resolving a placeholder is a
// plain assignment through them.
type Referencer interface {
	References() []*ID
}
