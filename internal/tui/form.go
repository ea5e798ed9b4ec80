// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKind int

const (
	formNewClient formKind = iota
	formEditClient
	formNewReceipt
)

// formModel is a column of labelled text inputs. Tab and shift+tab move the
// focus; the parent reads the values on enter.
type formModel struct {
	kind     formKind
	title    string
	labels   []string
	inputs   []textinput.Model
	focus    int
	targetID models.ID
	original models.Client
}

func newFormModel(kind formKind, title string, labels ...string) formModel {
	inputs := make([]textinput.Model, len(labels))
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 40
		inputs[i].CharLimit = 256
	}
	inputs[0].Focus()
	return formModel{kind: kind, title: title, labels: labels, inputs: inputs}
}

func newClientForm() formModel {
	return newFormModel(formNewClient, "New client", "Name", "Email", "Phone", "Address")
}

func editClientForm(c models.Client) formModel {
	f := newFormModel(formEditClient, "Edit "+c.Name, "Name", "Email", "Phone", "Address")
	f.targetID = c.ID
	f.original = c
	f.setValue(0, c.Name)
	f.setValue(1, c.Email)
	f.setValue(2, c.Phone)
	f.setValue(3, c.Address)
	return f
}

func newReceiptForm(c models.Client) formModel {
	f := newFormModel(formNewReceipt, "New receipt for "+c.Name, "Description", "Quantity", "Unit price", "Notes")
	f.targetID = c.ID
	f.setValue(1, "1")
	return f
}

func (f formModel) setValue(i int, v string) {
	f.inputs[i].SetValue(v)
	f.inputs[i].CursorEnd()
}

func (f formModel) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "down":
			return f.moveFocus(1), nil
		case "shift+tab", "up":
			return f.moveFocus(-1), nil
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f formModel) moveFocus(delta int) formModel {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
	return f
}

func (f formModel) client() models.Client {
	return models.Client{
		Name:    f.value(0),
		Email:   f.value(1),
		Phone:   f.value(2),
		Address: f.value(3),
	}
}

// patch returns only the fields that differ from the client being edited.
func (f formModel) patch() models.ClientPatch {
	var p models.ClientPatch
	changed := func(now, was string) *string {
		if now == was {
			return nil
		}
		return &now
	}
	p.Name = changed(f.value(0), f.original.Name)
	p.Email = changed(f.value(1), f.original.Email)
	p.Phone = changed(f.value(2), f.original.Phone)
	p.Address = changed(f.value(3), f.original.Address)
	return p
}

func (f formModel) receipt(now time.Time) (models.Receipt, error) {
	qty, err := strconv.ParseFloat(f.value(1), 64)
	if err != nil {
		return models.Receipt{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := strconv.ParseFloat(f.value(2), 64)
	if err != nil {
		return models.Receipt{}, fmt.Errorf("unit price: %w", err)
	}
	return models.Receipt{
		ClientID: f.targetID,
		Date:     now,
		Items:    []models.ReceiptItem{{Description: f.value(0), Quantity: qty, UnitPrice: price}},
		Notes:    f.value(3),
	}, nil
}

func (f formModel) View() string {
	width := 0
	for _, l := range f.labels {
		width = max(width, len(l))
	}

	var b strings.Builder
	for i, l := range f.labels {
		fmt.Fprintf(&b, "%-*s [%s]\n", width+1, l+":", f.inputs[i].View())
	}
	return renderPage(f.title, b.String(), "tab: next field  enter: save  esc: cancel")
}
