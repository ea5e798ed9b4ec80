// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	getKV = `SELECT value FROM kv_store WHERE key = ?;`

	putKV = `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at;`

	deleteKV = `DELETE FROM kv_store WHERE key = ?;`

	clearKV = `DELETE FROM kv_store;`
)
