// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used across the
// receipt keeper record server handlers and the client adapter.
//
// All Msg* constants are human-readable message strings that are written into
// HTTP response bodies or log entries to describe the outcome of an operation.
// Keeping them in one place ensures consistent wording on both ends of the
// wire.
package app

const (
	// MsgInvalidDataProvided is returned when the request body cannot be
	// decoded or fails payload validation.
	MsgInvalidDataProvided = "invalid data provided"

	// MsgUnknownCollection is returned when the collection path parameter
	// names no record collection.
	MsgUnknownCollection = "unknown collection"

	// MsgInternalServerError is returned when an unexpected server-side
	// failure occurs that the client cannot resolve.
	MsgInternalServerError = "internal server error"

	// MsgServiceUnavailable is returned when the database failed with a
	// transient error; the client should retry later.
	MsgServiceUnavailable = "service temporarily unavailable"

	// MsgTokenIsExpiredOrInvalid is returned when a JWT bearer token is
	// either expired or cannot be verified (e.g. wrong signature).
	MsgTokenIsExpiredOrInvalid = "token is expired or invalid"

	// MsgNoUserIDProvided is returned when a handler requires an owner id
	// (extracted from the JWT subject) but none is present in the request
	// context.
	MsgNoUserIDProvided = "no user ID provided"

	// MsgRecordNotFound is returned when an update or delete targets a record
	// that does not exist for the caller.
	MsgRecordNotFound = "record not found"

	// MsgRecordNotSaved is returned when the insert persisted nothing.
	MsgRecordNotSaved = "record was not saved"

	// MsgHashMismatch is returned when the HashSHA256 header does not match
	// the request body.
	MsgHashMismatch = "request body hash mismatch"

	// MsgVersionIsNotSpecified is returned when the server was started
	// without a build version.
	MsgVersionIsNotSpecified = "version is not specified"
)
