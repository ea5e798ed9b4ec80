// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/MKhiriev/go-receipt-keeper/internal/config"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/go-resty/resty/v2"
)

// IdempotencyKeyHeader carries the pending operation id of a create.
const IdempotencyKeyHeader = "Idempotency-Key"

type httpRemoteStore struct {
	client *utils.HTTPClient
	hasher *utils.Hasher

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPRemoteStore constructs the HTTP/REST [RemoteStore]. It normalises
// adapterCfg.HTTPAddress into a base URL and signs request bodies with
// appCfg.HashKey when one is set.
//
// Returns an error if the address is empty or not a valid URL.
func NewHTTPRemoteStore(adapterCfg config.ClientAdapter, appCfg config.ClientApp, logger *logger.Logger) (RemoteStore, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	s := &httpRemoteStore{
		client: utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		hasher: utils.NewHasher(appCfg.HashKey),
		logger: logger,
	}
	s.SetToken(appCfg.SessionToken)
	return s, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *httpRemoteStore) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpRemoteStore) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Create implements [RemoteStore]. POST /api/records/{collection}.
func (h *httpRemoteStore) Create(ctx context.Context, collection string, record any, idempotencyKey string) (string, error) {
	req, err := h.jsonRequest(ctx, record)
	if err != nil {
		return "", err
	}
	if idempotencyKey != "" {
		req.SetHeader(IdempotencyKeyHeader, idempotencyKey)
	}

	resp, err := req.
		SetPathParam("collection", collection).
		Post("/api/records/{collection}")
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}

	var created models.CreateRecordResponse
	if err = json.Unmarshal(resp.Body(), &created); err != nil || created.ID == "" {
		return "", fmt.Errorf("%w: create response %q", ErrInvalidResponse, resp.Body())
	}

	if created.Duplicate {
		h.logger.Info().
			Str("collection", collection).
			Str("idempotency_key", idempotencyKey).
			Str("id", created.ID).
			Msg("create replayed, store returned the original record")
	}
	return created.ID, nil
}

// Update implements [RemoteStore]. PATCH /api/records/{collection}/{id}.
func (h *httpRemoteStore) Update(ctx context.Context, collection, id string, patch any) error {
	req, err := h.jsonRequest(ctx, patch)
	if err != nil {
		return err
	}

	resp, err := req.
		SetPathParams(map[string]string{"collection": collection, "id": id}).
		Patch("/api/records/{collection}/{id}")
	if err != nil {
		return fmt.Errorf("%w: update request: %w", ErrUnavailable, err)
	}
	return mapHTTPError(resp)
}

// Delete implements [RemoteStore]. DELETE /api/records/{collection}/{id}.
func (h *httpRemoteStore) Delete(ctx context.Context, collection, id string) error {
	resp, err := h.authedRequest(ctx).
		SetPathParams(map[string]string{"collection": collection, "id": id}).
		Delete("/api/records/{collection}/{id}")
	if err != nil {
		return fmt.Errorf("%w: delete request: %w", ErrUnavailable, err)
	}
	return mapHTTPError(resp)
}

// Ping implements [RemoteStore]. GET /api/health.
func (h *httpRemoteStore) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return mapHTTPError(resp)
}

// jsonRequest marshals body once so the signature covers the exact bytes
// sent.
func (h *httpRemoteStore) jsonRequest(ctx context.Context, body any) (*resty.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload)
	if sig := h.hasher.SumHex(payload); sig != "" {
		req.SetHeader(utils.HashHeader, sig)
	}
	return req, nil
}

func (h *httpRemoteStore) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}
