// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m mainModel, msg tea.Msg) (mainModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(mainModel)
	require.True(t, ok)
	return mm, cmd
}

// run executes cmd and feeds its message back, as the program loop would.
func run(t *testing.T, m mainModel, cmd tea.Cmd) mainModel {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func typeText(t *testing.T, m mainModel, s string) mainModel {
	t.Helper()
	for _, r := range s {
		m, _ = update(t, m, keyRunes(string(r)))
	}
	return m
}

func loadedModel(t *testing.T, b *fakeBackend) mainModel {
	t.Helper()
	m := newMainModel(context.Background(), b)
	m.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	return run(t, m, m.cmdLoad(false))
}

func TestMainModel_LoadAndNavigate(t *testing.T) {
	b := newFakeBackend()
	b.records.clients = []models.Client{
		{ID: models.AuthoritativeID("c-1"), Name: "Ann"},
		{ID: models.AuthoritativeID("c-2"), Name: "Bob"},
	}
	b.status.Sync.PendingCount = 3

	m := loadedModel(t, b)
	assert.Len(t, m.clients, 2)
	assert.Equal(t, 3, m.pending)
	assert.Contains(t, m.header, "3 pending")
	assert.Contains(t, m.header, "owner-1")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.idx)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.idx, "cursor stops at the last row")
	m, _ = update(t, m, keyRunes("k"))
	assert.Equal(t, 0, m.idx)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabReceipts, m.tab)
	assert.Contains(t, m.View(), "Receipts (0)")
}

func TestMainModel_CreateClientThroughForm(t *testing.T) {
	b := newFakeBackend()
	m := loadedModel(t, b)

	m, _ = update(t, m, keyRunes("n"))
	require.NotNil(t, m.form)
	assert.Equal(t, formNewClient, m.form.kind)

	m = typeText(t, m, "Jane")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "jane@example.com")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd = update(t, m, cmd())
	assert.Nil(t, m.form)
	assert.Contains(t, m.status, "temp_client_")

	m = run(t, m, cmd)
	require.Len(t, m.clients, 1)
	assert.Equal(t, "Jane", m.clients[0].Name)
	assert.Equal(t, "jane@example.com", m.clients[0].Email)
	assert.Contains(t, m.View(), "Jane")
}

func TestMainModel_FormErrorShowsOverlay(t *testing.T) {
	b := newFakeBackend()
	b.records.err = errors.New("name is required")
	m := loadedModel(t, b)

	m, _ = update(t, m, keyRunes("n"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	require.NotNil(t, m.overlay)
	assert.NotNil(t, m.form, "form stays open so the input can be fixed")
	assert.Contains(t, m.View(), "name is required")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.overlay)
	assert.NotNil(t, m.form)
}

func TestMainModel_EditSendsOnlyChangedFields(t *testing.T) {
	b := newFakeBackend()
	b.records.clients = []models.Client{{ID: models.AuthoritativeID("c-1"), Name: "Ann", Email: "ann@example.com"}}
	m := loadedModel(t, b)

	m, _ = update(t, m, keyRunes("e"))
	require.NotNil(t, m.form)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, ".org")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	cmd()

	require.Len(t, b.records.patches, 1)
	p := b.records.patches[0]
	assert.Nil(t, p.Name)
	require.NotNil(t, p.Email)
	assert.Equal(t, "ann@example.com.org", *p.Email)
}

func TestMainModel_EditWithoutChangesQueuesNothing(t *testing.T) {
	b := newFakeBackend()
	b.records.clients = []models.Client{{ID: models.AuthoritativeID("c-1"), Name: "Ann"}}
	m := loadedModel(t, b)

	m, _ = update(t, m, keyRunes("e"))
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()

	assert.Empty(t, b.records.patches)
	assert.Equal(t, mutationDoneMsg{status: "Nothing changed"}, msg)
}

func TestMainModel_NewReceipt(t *testing.T) {
	b := newFakeBackend()
	client := models.Client{ID: models.NewPlaceholderID(models.KindClient), Name: "Ann"}
	b.records.clients = []models.Client{client}
	m := loadedModel(t, b)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, tabReceipts, m.tab)
	m, _ = update(t, m, keyRunes("n"))
	require.NotNil(t, m.form)
	require.Equal(t, formNewReceipt, m.form.kind)

	m = typeText(t, m, "Repair")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "2")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "12.5")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msg, ok := cmd().(mutationDoneMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	require.Len(t, b.records.receipts, 1)
	r := b.records.receipts[0]
	assert.Equal(t, client.ID, r.ClientID)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Repair", r.Items[0].Description)
	assert.Equal(t, 12.0, r.Items[0].Quantity, "typed after the default quantity")
	assert.Equal(t, 12.5, r.Items[0].UnitPrice)
}

func TestMainModel_NewReceiptNeedsClient(t *testing.T) {
	m := loadedModel(t, newFakeBackend())
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = update(t, m, keyRunes("n"))

	assert.Nil(t, m.form)
	assert.Equal(t, "Add a client first", m.errMsg)
}

func TestMainModel_DeleteAsksFirst(t *testing.T) {
	b := newFakeBackend()
	id := models.AuthoritativeID("c-1")
	b.records.clients = []models.Client{{ID: id, Name: "Ann"}}
	m := loadedModel(t, b)

	m, _ = update(t, m, keyRunes("d"))
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), "Delete \"Ann\"?")

	m, _ = update(t, m, keyRunes("n"))
	assert.Nil(t, m.confirm)
	assert.Empty(t, b.records.deleted)

	m, _ = update(t, m, keyRunes("d"))
	_, cmd := update(t, m, keyRunes("y"))
	cmd()
	assert.Equal(t, []models.ID{id}, b.records.deleted)
}

func TestMainModel_Sync(t *testing.T) {
	b := newFakeBackend()
	b.syncRes = models.SyncResult{Success: true, SyncedCount: 4}
	m := loadedModel(t, b)

	m, cmd := update(t, m, keyRunes("s"))
	assert.True(t, m.syncing)

	_, again := update(t, m, keyRunes("s"))
	assert.Nil(t, again, "second press while syncing is ignored")

	m, _ = update(t, m, cmd())
	assert.False(t, m.syncing)
	assert.Equal(t, 1, b.syncRuns)
	assert.Equal(t, "Sync finished: 4 synced, 0 failed", m.status)
}

func TestMainModel_SyncError(t *testing.T) {
	m := loadedModel(t, newFakeBackend())
	m, _ = update(t, m, syncDoneMsg{err: errors.New("dial tcp 127.0.0.1:1: connection refused")})
	assert.Equal(t, "No network or the server is unreachable", m.errMsg)
}

func TestMainModel_Notifications(t *testing.T) {
	b := newFakeBackend()
	m := loadedModel(t, b)

	b.notes <- "Synced 2 operations"
	msg := m.cmdWaitNotification()()
	assert.Equal(t, notificationMsg("Synced 2 operations"), msg)

	m, cmd := update(t, m, msg)
	assert.Equal(t, "Synced 2 operations", m.status)
	assert.NotNil(t, cmd)
}

func TestMainModel_NotificationWaitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newMainModel(ctx, newFakeBackend())
	cancel()
	assert.Nil(t, m.cmdWaitNotification()())
}

func TestMainModel_BlurEmitsHidden(t *testing.T) {
	b := newFakeBackend()
	var got []ratelimit.Signal
	b.hub.Subscribe(func(s ratelimit.Signal) { got = append(got, s) })

	m := loadedModel(t, b)
	update(t, m, tea.BlurMsg{})

	assert.Equal(t, []ratelimit.Signal{ratelimit.SignalHidden}, got)
}

func TestMainModel_CopyID(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { writeClipboard = orig })

	b := newFakeBackend()
	b.records.clients = []models.Client{{ID: models.AuthoritativeID("c-9"), Name: "Ann"}}
	m := loadedModel(t, b)

	_, cmd := update(t, m, keyRunes("c"))
	m, _ = update(t, m, cmd())
	assert.Equal(t, "c-9", copied)
	assert.Equal(t, "Copied c-9", m.status)
}

func TestMainModel_BuildInfo(t *testing.T) {
	m := loadedModel(t, newFakeBackend())
	m, _ = update(t, m, keyRunes("v"))
	assert.True(t, m.showBuildInfo)
	assert.Contains(t, m.View(), "v1.2.3")
	assert.Contains(t, m.View(), "abc123")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showBuildInfo)
}

func TestMainModel_Quit(t *testing.T) {
	m := loadedModel(t, newFakeBackend())
	_, cmd := update(t, m, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestMainModel_ReloadClampsCursor(t *testing.T) {
	b := newFakeBackend()
	b.records.clients = []models.Client{{ID: models.AuthoritativeID("a")}, {ID: models.AuthoritativeID("b")}}
	m := loadedModel(t, b)
	m.idx = 1

	b.records.clients = b.records.clients[:1]
	m = run(t, m, m.cmdLoad(false))
	assert.Equal(t, 0, m.idx)
}
