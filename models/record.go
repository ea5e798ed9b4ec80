// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// Record is one document held by the remote record store. The store is
// schemaless: Body is the JSON of a client, receipt, product or category as
// sent by the client.
type Record struct {
	Collection     string          `json:"collection"`
	ID             string          `json:"id"`
	OwnerID        string          `json:"ownerId"`
	Body           json.RawMessage `json:"body"`
	IdempotencyKey string          `json:"-"`
	Deleted        bool            `json:"deleted,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CreateRecordResponse is the body of a successful create. Duplicate is set
// when the idempotency key matched an earlier create.
type CreateRecordResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate,omitempty"`
}
