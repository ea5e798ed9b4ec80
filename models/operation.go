// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"time"
)

// OperationType enumerates the mutations that can wait in the offline queue.
type OperationType string

const (
	OpCreateClient  OperationType = "CreateClient"
	OpCreateReceipt OperationType = "CreateReceipt"
	OpUpdateClient  OperationType = "UpdateClient"
	OpDeleteClient  OperationType = "DeleteClient"
)

// IsCreate reports whether the operation creates a new entity.
func (t OperationType) IsCreate() bool {
	return t == OpCreateClient || t == OpCreateReceipt
}

// Kind returns the kind of entity the operation mutates.
func (t OperationType) Kind() EntityKind {
	if t == OpCreateReceipt {
		return KindReceipt
	}
	return KindClient
}

// OperationPayload carries the data of a pending operation. Exactly the
// fields relevant to the operation type are set: Client for CreateClient,
// Receipt for CreateReceipt, TargetID and Patch for UpdateClient, TargetID for
// DeleteClient.
type OperationPayload struct {
	Client   *Client      `json:"client,omitempty"`
	Receipt  *Receipt     `json:"receipt,omitempty"`
	Patch    *ClientPatch `json:"patch,omitempty"`
	TargetID ID           `json:"targetId,omitzero"`
}

// PendingOperation is a mutation recorded while offline (or before the
// remote store acknowledged it). ID doubles as the idempotency key sent to
// the remote store.
type PendingOperation struct {
	ID         string           `json:"id"`
	Type       OperationType    `json:"type"`
	Payload    OperationPayload `json:"payload"`
	EnqueuedAt time.Time        `json:"timestamp"`
	RetryCount int              `json:"retryCount"`
	// HeldCount counts attempts refused for a reason outside the operation,
	// such as an expired session. They do not count as retries.
	HeldCount int    `json:"heldCount,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// SubjectID returns the identity the operation acts on: the id of the entity
// being created, or the target of an update or delete.
func (o PendingOperation) SubjectID() ID {
	switch o.Type {
	case OpCreateClient:
		if o.Payload.Client != nil {
			return o.Payload.Client.ID
		}
	case OpCreateReceipt:
		if o.Payload.Receipt != nil {
			return o.Payload.Receipt.ID
		}
	default:
		return o.Payload.TargetID
	}
	return ID{}
}

// ParentIDs returns the identities this operation depends on being known to
// the remote store before it can be replayed.
func (o PendingOperation) ParentIDs() []ID {
	switch o.Type {
	case OpCreateReceipt:
		if o.Payload.Receipt == nil {
			return nil
		}
		parents := []ID{}
		if !o.Payload.Receipt.ClientID.IsZero() {
			parents = append(parents, o.Payload.Receipt.ClientID)
		}
		for _, it := range o.Payload.Receipt.Items {
			if !it.ProductID.IsZero() {
				parents = append(parents, it.ProductID)
			}
		}
		return parents
	case OpUpdateClient, OpDeleteClient:
		if o.Payload.TargetID.IsZero() {
			return nil
		}
		return []ID{o.Payload.TargetID}
	default:
		return nil
	}
}

// References implements Referencer over the whole payload.
func (o *PendingOperation) References() []*ID {
	var refs []*ID
	if o.Payload.Client != nil {
		refs = append(refs, o.Payload.Client.References()...)
	}
	if o.Payload.Receipt != nil {
		refs = append(refs, o.Payload.Receipt.References()...)
	}
	refs = append(refs, &o.Payload.TargetID)
	return refs
}

// Clone returns a deep copy so callers may rewrite references without
// touching the queued original.
func (o PendingOperation) Clone() PendingOperation {
	if o.Payload.Client != nil {
		c := *o.Payload.Client
		o.Payload.Client = &c
	}
	if o.Payload.Receipt != nil {
		r := o.Payload.Receipt.Clone()
		o.Payload.Receipt = &r
	}
	if o.Payload.Patch != nil {
		p := *o.Payload.Patch
		o.Payload.Patch = &p
	}
	return o
}

// IdentityMapping records that a placeholder was replaced by an
// authoritative id during one sync pass.
type IdentityMapping struct {
	PlaceholderID   ID         `json:"placeholderId"`
	AuthoritativeID ID         `json:"authoritativeId"`
	Kind            EntityKind `json:"kind"`
}

// BatchUpdate describes the rewrite of every cached child that still points
// at OldParentID.
type BatchUpdate struct {
	OldParentID       ID         `json:"oldParentId"`
	NewParentID       ID         `json:"newParentId"`
	Kind              EntityKind `json:"kind"`
	DependentChildIDs []ID       `json:"dependentChildIds"`
}
