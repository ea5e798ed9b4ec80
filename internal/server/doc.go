// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package server runs the record server's transports.
//
// It binds the HTTP and gRPC listeners that were configured, serves them
// until SIGTERM, SIGINT or SIGQUIT arrives and then shuts both down
// gracefully.
package server
