// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package http is the REST surface of the reference record server.
//
// Clients create, read, patch and delete schemaless records under
// /api/records/{collection}. Every request passes through trace id
// injection, access logging, Prometheus instrumentation and gzip handling;
// record routes additionally require a bearer token and, when a hash key is
// configured, a matching HashSHA256 body signature on writes.
package http
