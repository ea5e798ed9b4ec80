// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client assembles the offline-capable receipt keeper client.
//
// An [App] owns the encrypted local cache, the rate limiter, the remote store
// adapter and the client services, and runs the background sync job and
// connectivity watcher for interactive sessions. The CLI commands and the
// TUI both drive it.
package client
