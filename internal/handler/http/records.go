// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/MKhiriev/go-receipt-keeper/internal/app"
	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/utils"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/go-chi/chi/v5"
)

// IdempotencyKeyHeader carries the client's pending operation id on creates.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxBodyBytes bounds a record body.
const maxBodyBytes = 1 << 20

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	ownerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, app.MsgNoUserIDProvided, http.StatusUnauthorized)
		return
	}

	body, ok := readJSONObject(w, r)
	if !ok {
		return
	}

	resp, err := h.services.RecordService.CreateRecord(r.Context(), models.Record{
		Collection:     chi.URLParam(r, "collection"),
		OwnerID:        ownerID,
		Body:           body,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)),
	})
	if err != nil {
		log.Err(err).Str("func", "*Handler.createRecord").Msg("error creating record")
		h.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	h.writeJSON(w, resp, status)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	ownerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, app.MsgNoUserIDProvided, http.StatusUnauthorized)
		return
	}

	rec, err := h.services.RecordService.GetRecord(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.getRecord").Msg("error reading record")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, rec, http.StatusOK)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	ownerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, app.MsgNoUserIDProvided, http.StatusUnauthorized)
		return
	}

	patch, ok := readJSONObject(w, r)
	if !ok {
		return
	}

	err := h.services.RecordService.UpdateRecord(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), ownerID, patch)
	if err != nil {
		log.Err(err).Str("func", "*Handler.updateRecord").Msg("error updating record")
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	ownerID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, app.MsgNoUserIDProvided, http.StatusUnauthorized)
		return
	}

	err := h.services.RecordService.DeleteRecord(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.deleteRecord").Msg("error deleting record")
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// readJSONObject reads the body and checks it is one JSON object. It writes
// the 400 itself.
func readJSONObject(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.WriteError(w, app.MsgInvalidDataProvided, http.StatusBadRequest)
		return nil, false
	}

	var probe map[string]json.RawMessage
	if err = json.Unmarshal(body, &probe); err != nil || probe == nil {
		utils.WriteError(w, app.MsgInvalidDataProvided+": body must be a JSON object", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	resp := responseFromError(err)
	msg := resp.message
	if resp.status == http.StatusBadRequest {
		msg = err.Error()
	}
	utils.WriteError(w, msg, resp.status)
}

// writeJSON writes data and signs it when a hash key is configured.
func (h *Handler) writeJSON(w http.ResponseWriter, data any, status int) {
	payload, err := json.Marshal(data)
	if err != nil {
		utils.WriteError(w, app.MsgInternalServerError, http.StatusInternalServerError)
		return
	}
	if sig := h.hasher.SumHex(payload); sig != "" {
		w.Header().Set(utils.HashHeader, sig)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
