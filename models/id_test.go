// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlaceholderID(t *testing.T) {
	id := NewPlaceholderID(KindClient)

	assert.True(t, id.IsPlaceholder())
	assert.Equal(t, KindClient, id.Kind())
	assert.True(t, strings.HasPrefix(id.String(), "temp_client_"))
	assert.NotEqual(t, id, NewPlaceholderID(KindClient), "two placeholders must differ")
}

func TestAuthoritativeID(t *testing.T) {
	id := AuthoritativeID("srv-42")

	assert.False(t, id.IsPlaceholder())
	assert.Equal(t, EntityKind(""), id.Kind())
	assert.Equal(t, "srv-42", id.String())
	assert.True(t, ID{}.IsZero())
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		placeholder bool
		kind        EntityKind
		wantErr     bool
	}{
		{name: "authoritative", in: "abc-123"},
		{name: "placeholder client", in: "temp_client_kx1a2b3c4d", placeholder: true, kind: KindClient},
		{name: "placeholder receipt", in: "temp_receipt_1", placeholder: true, kind: KindReceipt},
		{name: "missing sequence", in: "temp_client_", wantErr: true},
		{name: "missing kind", in: "temp_", wantErr: true},
		{name: "empty", in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedPlaceholder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.placeholder, id.IsPlaceholder())
			assert.Equal(t, tt.kind, id.Kind())
			assert.Equal(t, tt.in, id.String())
		})
	}
}

func TestID_JSONBoundary(t *testing.T) {
	c := Client{ID: PlaceholderID(KindClient, "seq1"), UserID: AuthoritativeID("u1"), Name: "Ann"}

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"temp_client_seq1"`)

	var decoded Client
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, c.ID, decoded.ID)
	assert.True(t, decoded.ID.IsPlaceholder())
	assert.Equal(t, c.UserID, decoded.UserID)
}

func TestID_ZeroOmitted(t *testing.T) {
	raw, err := json.Marshal(Receipt{ID: AuthoritativeID("r1")})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "clientId")
}
