// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-receipt-keeper/internal/app"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/internal/store"
)

type errorResponse struct {
	status  int
	message string
}

// errorStatusMap is consulted in order; the first match wins.
var errorStatusMap = []struct {
	target error
	errorResponse
}{
	{service.ErrUnknownCollection, errorResponse{http.StatusNotFound, app.MsgUnknownCollection}},
	{service.ErrNoOwner, errorResponse{http.StatusUnauthorized, app.MsgNoUserIDProvided}},
	{service.ErrInvalidDataProvided, errorResponse{http.StatusBadRequest, app.MsgInvalidDataProvided}},
	{service.ErrTokenIsExpiredOrInvalid, errorResponse{http.StatusUnauthorized, app.MsgTokenIsExpiredOrInvalid}},
	{service.ErrVersionIsNotSpecified, errorResponse{http.StatusInternalServerError, app.MsgVersionIsNotSpecified}},

	{store.ErrRecordNotFound, errorResponse{http.StatusNotFound, app.MsgRecordNotFound}},
	{store.ErrRecordNotSaved, errorResponse{http.StatusInternalServerError, app.MsgRecordNotSaved}},
	{store.ErrTransient, errorResponse{http.StatusServiceUnavailable, app.MsgServiceUnavailable}},
}

func responseFromError(err error) errorResponse {
	for _, e := range errorStatusMap {
		if errors.Is(err, e.target) {
			return e.errorResponse
		}
	}
	return errorResponse{http.StatusInternalServerError, app.MsgInternalServerError}
}
