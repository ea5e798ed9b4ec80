// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"slices"
	"time"
)

// Storage collection names. Each collection is persisted as one blob.
const (
	CollectionClients           = "clients"
	CollectionReceipts          = "receipts"
	CollectionProducts          = "products"
	CollectionCategories        = "categories"
	CollectionPendingOperations = "pendingOperations"
)

// Client is a customer of the user's business.
type Client struct {
	ID        ID        `json:"id"`
	UserID    ID        `json:"userId,omitzero"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func (c *Client) References() []*ID {
	return []*ID{&c.ID, &c.UserID}
}

// ClientPatch is a partial update of a client. Nil fields are left unchanged.
type ClientPatch struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Apply copies every set field of p onto c.
func (p ClientPatch) Apply(c *Client) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
}

// Merge returns a patch where fields set in next override those in p.
func (p ClientPatch) Merge(next ClientPatch) ClientPatch {
	if next.Name != nil {
		p.Name = next.Name
	}
	if next.Email != nil {
		p.Email = next.Email
	}
	if next.Phone != nil {
		p.Phone = next.Phone
	}
	if next.Address != nil {
		p.Address = next.Address
	}
	return p
}

// IsEmpty reports whether the patch changes nothing.
func (p ClientPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil
}

// DiffClient returns the patch that turns from into to.
func DiffClient(from, to Client) ClientPatch {
	var p ClientPatch
	if from.Name != to.Name {
		p.Name = &to.Name
	}
	if from.Email != to.Email {
		p.Email = &to.Email
	}
	if from.Phone != to.Phone {
		p.Phone = &to.Phone
	}
	if from.Address != to.Address {
		p.Address = &to.Address
	}
	return p
}

// Receipt is a sale document issued to a client.
type Receipt struct {
	ID        ID            `json:"id"`
	ClientID  ID            `json:"clientId,omitzero"`
	UserID    ID            `json:"userId,omitzero"`
	Number    string        `json:"number,omitempty"`
	Date      time.Time     `json:"date"`
	Items     []ReceiptItem `json:"items,omitempty"`
	Total     float64       `json:"total"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ReceiptItem is one line of a receipt.
type ReceiptItem struct {
	ReceiptID   ID      `json:"receiptId,omitzero"`
	ProductID   ID      `json:"productId,omitzero"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

func (r *Receipt) References() []*ID {
	refs := []*ID{&r.ID, &r.ClientID, &r.UserID}
	for i := range r.Items {
		refs = append(refs, &r.Items[i].ReceiptID, &r.Items[i].ProductID)
	}
	return refs
}

// ComputeTotal sums quantity times unit price across all items.
func (r *Receipt) ComputeTotal() float64 {
	var total float64
	for _, it := range r.Items {
		total += it.Quantity * it.UnitPrice
	}
	return total
}

// Clone returns a deep copy of the receipt.
func (r Receipt) Clone() Receipt {
	r.Items = slices.Clone(r.Items)
	return r
}

// Product is a catalog item that receipt lines may point at.
type Product struct {
	ID         ID      `json:"id"`
	CategoryID ID      `json:"categoryId,omitzero"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
}

func (p *Product) References() []*ID {
	return []*ID{&p.ID, &p.CategoryID}
}

// Category groups products.
type Category struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

func (c *Category) References() []*ID {
	return []*ID{&c.ID}
}
