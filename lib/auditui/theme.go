// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import "github.com/charmbracelet/lipgloss"

// Theme defines the explorer's color palette. All colors are ANSI
// 256-color codes.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected table row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Verb classes: reads, writes, deletions.
	VerbRead   lipgloss.Color
	VerbWrite  lipgloss.Color
	VerbDelete lipgloss.Color

	// Info slot severity.
	InfoNotice lipgloss.Color
	InfoError  lipgloss.Color

	// UI chrome.
	TitleForeground  lipgloss.Color
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ScrollbarThumb   lipgloss.Color
}

// VerbColor returns the color for an API verb. Unknown verbs (custom
// subresource verbs, proxy) use NormalText.
func (theme Theme) VerbColor(verb string) lipgloss.Color {
	switch verb {
	case "get", "list", "watch":
		return theme.VerbRead
	case "create", "update", "patch", "apply":
		return theme.VerbWrite
	case "delete", "deletecollection":
		return theme.VerbDelete
	default:
		return theme.NormalText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("250"),
	SelectedForeground: lipgloss.Color("16"),

	VerbRead:   lipgloss.Color("114"), // green
	VerbWrite:  lipgloss.Color("220"), // amber
	VerbDelete: lipgloss.Color("196"), // red

	InfoNotice: lipgloss.Color("75"),  // blue
	InfoError:  lipgloss.Color("208"), // orange

	TitleForeground:  lipgloss.Color("255"),
	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	ScrollbarThumb:   lipgloss.Color("220"),
}
