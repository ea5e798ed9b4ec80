// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up      key.Binding
	down    key.Binding
	tab     key.Binding
	backtab key.Binding
	enter   key.Binding
	esc     key.Binding
	quit    key.Binding
	newItem key.Binding
	edit    key.Binding
	delete  key.Binding
	sync    key.Binding
	copy    key.Binding
	refresh key.Binding
	version key.Binding
	help    key.Binding
	yes     key.Binding
	no      key.Binding
}

var keys = keyMap{
	up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch list")),
	backtab: key.NewBinding(key.WithKeys("shift+tab")),
	enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
	esc:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	newItem: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit client")),
	delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete client")),
	sync:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync now")),
	copy:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy id")),
	refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	version: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "version")),
	help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	yes:     key.NewBinding(key.WithKeys("y")),
	no:      key.NewBinding(key.WithKeys("n", "esc")),
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.newItem, k.sync, k.tab, k.help, k.quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.tab},
		{k.newItem, k.edit, k.delete},
		{k.sync, k.refresh, k.copy},
		{k.version, k.help, k.quit},
	}
}
