// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/internal/ratelimit"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type tab int

const (
	tabClients tab = iota
	tabReceipts
)

// writeClipboard is swapped in tests.
var writeClipboard = clipboard.WriteAll

type mainModel struct {
	ctx     context.Context
	backend Backend
	now     func() time.Time

	clients  []models.Client
	receipts []models.Receipt
	header   string
	pending  int
	online   bool

	tab     tab
	idx     int
	syncing bool
	status  string
	errMsg  string

	form          *formModel
	confirm       *confirmModel
	overlay       *errorOverlayModel
	showBuildInfo bool

	spinner spinner.Model
	help    help.Model
}

func newMainModel(ctx context.Context, backend Backend) mainModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	return mainModel{
		ctx:     ctx,
		backend: backend,
		now:     time.Now,
		spinner: s,
		help:    help.New(),
	}
}

func (m mainModel) Init() tea.Cmd {
	return tea.Batch(m.cmdLoad(false), m.cmdWaitNotification(), m.cmdTick(), m.spinner.Tick)
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dataLoadedMsg:
		m.clients = msg.clients
		m.receipts = msg.receipts
		m.pending = msg.status.Sync.PendingCount
		m.online = msg.status.Online
		m.syncing = m.syncing || msg.status.Sync.IsSyncing
		m.header = renderStatusLine(msg.status.Owner, m.online, m.pending, msg.status.Sync.LastResult)
		m.idx = clampIndex(m.idx, m.rows())
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.errMsg = humanizeError(msg.err)
		} else {
			m.errMsg = ""
			m.status = fmt.Sprintf("Sync finished: %d synced, %d failed", msg.result.SyncedCount, msg.result.FailedCount)
		}
		return m, m.cmdLoad(false)

	case mutationDoneMsg:
		if msg.err != nil {
			m.overlay = &errorOverlayModel{message: humanizeError(msg.err)}
			return m, nil
		}
		m.form = nil
		m.status = msg.status
		m.errMsg = ""
		return m, m.cmdLoad(false)

	case notificationMsg:
		m.status = string(msg)
		return m, tea.Batch(m.cmdLoad(false), m.cmdWaitNotification())

	case copiedMsg:
		if msg.err != nil {
			m.errMsg = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Copied " + msg.id
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.cmdLoad(false), m.cmdTick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.BlurMsg:
		m.backend.Lifecycle().Emit(ratelimit.SignalHidden)
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.form != nil {
			f, cmd := m.form.Update(msg)
			m.form = &f
			return m, cmd
		}
		return m, nil
	}

	if k.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch {
	case m.overlay != nil:
		if key.Matches(k, keys.enter, keys.esc) {
			m.overlay = nil
		}
		return m, nil
	case m.confirm != nil:
		return m.updateConfirm(k)
	case m.form != nil:
		return m.updateForm(k)
	case m.showBuildInfo:
		if key.Matches(k, keys.esc, keys.version) {
			m.showBuildInfo = false
		}
		return m, nil
	}

	return m.updateList(k)
}

func (m mainModel) updateList(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, keys.quit):
		return m, tea.Quit
	case key.Matches(k, keys.up):
		if m.idx > 0 {
			m.idx--
		}
	case key.Matches(k, keys.down):
		if m.idx < m.rows()-1 {
			m.idx++
		}
	case key.Matches(k, keys.tab), key.Matches(k, keys.backtab):
		m.tab = 1 - m.tab
		m.idx = 0
	case key.Matches(k, keys.sync):
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.status = "Syncing..."
		return m, m.cmdSync()
	case key.Matches(k, keys.refresh):
		return m, m.cmdLoad(true)
	case key.Matches(k, keys.version):
		m.showBuildInfo = true
	case key.Matches(k, keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(k, keys.newItem):
		if m.tab == tabClients {
			f := newClientForm()
			m.form = &f
			return m, nil
		}
		c, ok := m.receiptTarget()
		if !ok {
			m.errMsg = "Add a client first"
			return m, nil
		}
		f := newReceiptForm(c)
		m.form = &f
	case key.Matches(k, keys.edit):
		if c, ok := m.selectedClient(); ok {
			f := editClientForm(c)
			m.form = &f
		}
	case key.Matches(k, keys.delete):
		if c, ok := m.selectedClient(); ok {
			m.confirm = &confirmModel{message: c.Name}
		}
	case key.Matches(k, keys.copy):
		if id, ok := m.selectedID(); ok {
			return m, cmdCopy(id.String())
		}
	}
	return m, nil
}

func (m mainModel) updateConfirm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, keys.yes):
		m.confirm = nil
		c, ok := m.selectedClient()
		if !ok {
			return m, nil
		}
		return m, m.cmdDeleteClient(c)
	case key.Matches(k, keys.no):
		m.confirm = nil
	}
	return m, nil
}

func (m mainModel) updateForm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, keys.esc):
		m.form = nil
		return m, nil
	case key.Matches(k, keys.enter):
		return m, m.cmdSubmit(*m.form)
	}
	f, cmd := m.form.Update(k)
	m.form = &f
	return m, cmd
}

func (m mainModel) rows() int {
	if m.tab == tabClients {
		return len(m.clients)
	}
	return len(m.receipts)
}

func (m mainModel) selectedClient() (models.Client, bool) {
	if m.tab != tabClients || m.idx < 0 || m.idx >= len(m.clients) {
		return models.Client{}, false
	}
	return m.clients[m.idx], true
}

// receiptTarget is the client a new receipt is issued to: the one selected
// on the clients tab, or the client of the selected receipt.
func (m mainModel) receiptTarget() (models.Client, bool) {
	if c, ok := m.selectedClient(); ok {
		return c, true
	}
	if m.tab == tabReceipts && m.idx < len(m.receipts) {
		for _, c := range m.clients {
			if c.ID == m.receipts[m.idx].ClientID {
				return c, true
			}
		}
	}
	if len(m.clients) > 0 {
		return m.clients[0], true
	}
	return models.Client{}, false
}

func (m mainModel) selectedID() (models.ID, bool) {
	if c, ok := m.selectedClient(); ok {
		return c.ID, true
	}
	if m.tab == tabReceipts && m.idx >= 0 && m.idx < len(m.receipts) {
		return m.receipts[m.idx].ID, true
	}
	return models.ID{}, false
}

func (m mainModel) cmdLoad(probe bool) tea.Cmd {
	return func() tea.Msg {
		records := m.backend.Records()
		return dataLoadedMsg{
			clients:  records.ListClients(m.ctx),
			receipts: records.ListReceipts(m.ctx),
			status:   m.backend.Status(m.ctx, probe),
		}
	}
}

func (m mainModel) cmdSync() tea.Cmd {
	return func() tea.Msg {
		res, err := m.backend.TriggerSync(m.ctx)
		return syncDoneMsg{result: res, err: err}
	}
}

func (m mainModel) cmdSubmit(f formModel) tea.Cmd {
	owner := m.backend.OwnerID()
	records := m.backend.Records()
	now := m.now()

	return func() tea.Msg {
		switch f.kind {
		case formNewClient:
			id, err := records.CreateClient(m.ctx, owner, f.client())
			return mutationDoneMsg{status: "Client saved as " + id.String(), err: err}
		case formEditClient:
			p := f.patch()
			if p.IsEmpty() {
				return mutationDoneMsg{status: "Nothing changed"}
			}
			_, err := records.UpdateClient(m.ctx, owner, f.targetID, p)
			return mutationDoneMsg{status: "Client updated", err: err}
		default:
			r, err := f.receipt(now)
			if err != nil {
				return mutationDoneMsg{err: err}
			}
			id, err := records.CreateReceipt(m.ctx, owner, r)
			return mutationDoneMsg{status: "Receipt saved as " + id.String(), err: err}
		}
	}
}

func (m mainModel) cmdDeleteClient(c models.Client) tea.Cmd {
	owner := m.backend.OwnerID()
	return func() tea.Msg {
		err := m.backend.Records().DeleteClient(m.ctx, owner, c.ID)
		return mutationDoneMsg{status: "Deleted " + c.Name, err: err}
	}
}

func (m mainModel) cmdWaitNotification() tea.Cmd {
	ch := m.backend.Notifications()
	return func() tea.Msg {
		select {
		case s, ok := <-ch:
			if !ok {
				return nil
			}
			return notificationMsg(s)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m mainModel) cmdTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func cmdCopy(id string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{id: id, err: writeClipboard(id)}
	}
}

func clampIndex(idx, n int) int {
	if idx >= n {
		idx = n - 1
	}
	return max(idx, 0)
}

func renderStatusLine(owner string, online bool, pending int, last *models.SyncResult) string {
	parts := []string{}
	if owner == "" {
		parts = append(parts, "local only")
	} else {
		parts = append(parts, owner)
	}
	if online {
		parts = append(parts, okStyle.Render("online"))
	} else {
		parts = append(parts, errorStyle.Render("offline"))
	}
	if pending > 0 {
		parts = append(parts, pendingStyle.Render(fmt.Sprintf("%d pending", pending)))
	} else {
		parts = append(parts, "all synced")
	}
	if last != nil && !last.FinishedAt.IsZero() {
		parts = append(parts, "last sync "+last.FinishedAt.Local().Format("15:04:05"))
	}
	return strings.Join(parts, " · ")
}

func (m mainModel) View() string {
	switch {
	case m.showBuildInfo:
		return appStyle.Render(renderBuildInfoWindow(m.backend.BuildInfo()))
	case m.overlay != nil:
		return appStyle.Render(m.overlay.View())
	case m.confirm != nil:
		return appStyle.Render(m.confirm.View())
	case m.form != nil:
		return appStyle.Render(m.form.View())
	}

	var b strings.Builder
	title := "RECEIPT KEEPER"
	if m.syncing {
		title += " " + m.spinner.View()
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.header))
	b.WriteString("\n\n")

	clientsTab, receiptsTab := tabStyle, tabStyle
	if m.tab == tabClients {
		clientsTab = activeTabStyle
	} else {
		receiptsTab = activeTabStyle
	}
	b.WriteString(clientsTab.Render(fmt.Sprintf("Clients (%d)", len(m.clients))))
	b.WriteString("   ")
	b.WriteString(receiptsTab.Render(fmt.Sprintf("Receipts (%d)", len(m.receipts))))
	b.WriteString("\n\n")

	if m.rows() == 0 {
		b.WriteString("  nothing here yet, press n to add\n")
	}
	if m.tab == tabClients {
		for i, c := range m.clients {
			b.WriteString(listRow(i == m.idx, c.ID, fmt.Sprintf("%-24s %s", fitText(c.Name, 24), orDash(c.Email))))
		}
	} else {
		names := make(map[models.ID]string, len(m.clients))
		for _, c := range m.clients {
			names[c.ID] = c.Name
		}
		for i, r := range m.receipts {
			line := fmt.Sprintf("%s  %-20s %10.2f", r.Date.Local().Format("2006-01-02"), fitText(orDash(names[r.ClientID]), 20), r.Total)
			b.WriteString(listRow(i == m.idx, r.ID, line))
		}
	}

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString("\n" + m.help.View(keys))

	return appStyle.Render(b.String())
}

func listRow(selected bool, id models.ID, text string) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}
	marker := " "
	if id.IsPlaceholder() {
		marker = pendingStyle.Render("*")
	}
	return cursor + marker + " " + text + "\n"
}
