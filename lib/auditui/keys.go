// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import "github.com/charmbracelet/bubbles/key"

// pageStep is how many rows PageUp and PageDown move.
const pageStep = 5

// KeyMap defines the explorer's key bindings.
type KeyMap struct {
	// Record table navigation.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Detail pane scrolling. Never moves the selection.
	ScrollUp   key.Binding
	ScrollDown key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in binding set. Arrow keys move through
// records; j/k scroll the request and response panes.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "up 5"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "down 5"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("k"),
		key.WithHelp("k", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("j"),
		key.WithHelp("j", "scroll down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("q/Esc", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Down, keys.PageUp, keys.PageDown, keys.ScrollDown, keys.ScrollUp, keys.Quit}
}

// FullHelp implements help.KeyMap.
func (keys KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.Up, keys.Down, keys.PageUp, keys.PageDown},
		{keys.ScrollDown, keys.ScrollUp},
		{keys.Quit},
	}
}
