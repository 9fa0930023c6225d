// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/kale/lib/auditsource"
)

// Title is shown in the top border of the frame.
const Title = "Kubernetes Audit Log Explorer (KALE)"

// Table column widths. The path column takes the remaining width.
const (
	timestampColumnWidth = 30
	verbColumnWidth      = 8
	columnGap            = 1
)

// topVerbCount is how many verbs the header summarises.
const topVerbCount = 3

// fixedBodyLines counts the body lines that are not table rows or
// payload lines: the table header, three section rules, the Request
// Info section, and the info slot.
const fixedBodyLines = 1 + 3 + infoLineCount + 1

// View implements tea.Model. Reads Model state and renders it; never
// mutates.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}
	if model.width < 4 || model.height < 3 {
		return ""
	}

	inner := model.innerWidth()
	innerHeight := model.height - 2
	paneHeight := innerHeight - fixedBodyLines - model.navigator.Height()

	var lines []string
	lines = append(lines, model.ruleLine("╭", "╮", Title, model.headerStatus()))
	for _, line := range model.tableLines(inner) {
		lines = append(lines, model.framed(line))
	}

	lines = append(lines, model.ruleLine("├", "┤", "Request Info", model.detail.summary))
	for index := range infoLineCount {
		line := ""
		if index < len(model.detail.info) {
			line = model.detail.info[index]
		}
		lines = append(lines, model.framed(line))
	}

	if paneHeight > 0 {
		scrollStatus := ""
		if scroll := model.navigator.Scroll(); scroll > 0 {
			scrollStatus = fmt.Sprintf("scrolled %d", scroll)
		}
		lines = append(lines, model.ruleLine("├", "┤", "Request Body │ Response Body", scrollStatus))
		for _, line := range model.payloadLines(paneHeight) {
			lines = append(lines, model.framed(line))
		}
	}

	lines = append(lines, model.ruleLine("├", "┤", "Info", ""))
	lines = append(lines, model.framed(model.infoLine()))

	helpModel := model.help
	helpModel.Width = max(inner-4, 0)
	lines = append(lines, model.ruleLine("╰", "╯", helpModel.View(model.keys), ""))

	if len(lines) > model.height {
		lines = lines[:model.height]
	}
	return strings.Join(lines, "\n")
}

// innerWidth is the width inside the frame's side borders.
func (model Model) innerWidth() int {
	return max(model.width-2, 0)
}

// headerStatus summarises ingestion for the top border.
func (model Model) headerStatus() string {
	stats := model.index.Stats()
	feedStats := model.feed.Stats()

	parts := []string{fmt.Sprintf("%d records", stats.Records)}
	if feedStats.Filtered > 0 {
		parts = append(parts, fmt.Sprintf("%d filtered", feedStats.Filtered))
	}
	if verbs := topVerbs(stats.Verbs, topVerbCount); verbs != "" {
		parts = append(parts, verbs)
	}
	if !model.lastRecord.IsZero() {
		since := model.clock.Now().Sub(model.lastRecord).Truncate(time.Second)
		parts = append(parts, fmt.Sprintf("last record %s ago", max(since, 0)))
	}
	if feedStats.Compression != auditsource.CompressionNone {
		parts = append(parts, feedStats.Compression.String())
	}
	switch model.ingest {
	case ingestRunning:
		parts = append(parts, "ingesting")
	case ingestEnded:
		parts = append(parts, "input ended")
	case ingestFailed:
		parts = append(parts, "ingestion stopped")
	}
	return strings.Join(parts, " · ")
}

// topVerbs formats the most frequent verbs as "get 12, list 3". Ties
// are ordered by name.
func topVerbs(counts map[string]int, limit int) string {
	type verbCount struct {
		verb  string
		count int
	}
	ranked := make([]verbCount, 0, len(counts))
	for verb, count := range counts {
		ranked = append(ranked, verbCount{verb, count})
	}
	slices.SortFunc(ranked, func(a, b verbCount) int {
		if byCount := cmp.Compare(b.count, a.count); byCount != 0 {
			return byCount
		}
		return cmp.Compare(a.verb, b.verb)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	formatted := make([]string, len(ranked))
	for index, entry := range ranked {
		formatted[index] = fmt.Sprintf("%s %d", entry.verb, entry.count)
	}
	return strings.Join(formatted, ", ")
}

// ruleLine renders a full-width horizontal border line with a title on
// the left and an optional status on the right. The status is dropped
// first when the width is too small for both.
func (model Model) ruleLine(leftCorner, rightCorner, title, status string) string {
	border := lipgloss.NewStyle().Foreground(model.theme.BorderColor)
	titleStyle := lipgloss.NewStyle().Foreground(model.theme.TitleForeground).Bold(true)
	statusStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	inner := model.innerWidth()
	titleWidth := ansi.StringWidth(title)
	statusWidth := ansi.StringWidth(status)

	// "─ " title " " fill " " status " ─"
	fill := inner - titleWidth - statusWidth - 6
	if status == "" || fill < 1 {
		status = ""
		fill = inner - titleWidth - 3
	}
	if fill < 0 {
		title = ansi.Truncate(title, max(inner-3, 0), "…")
		fill = max(inner-ansi.StringWidth(title)-3, 0)
	}

	var builder strings.Builder
	builder.WriteString(border.Render(leftCorner + "─ "))
	builder.WriteString(titleStyle.Render(title))
	builder.WriteString(border.Render(" " + strings.Repeat("─", fill)))
	if status != "" {
		builder.WriteString(" ")
		builder.WriteString(statusStyle.Render(status))
		builder.WriteString(border.Render(" ─"))
	}
	builder.WriteString(border.Render(rightCorner))
	return builder.String()
}

// framed wraps a body line in the side borders, padded or truncated to
// the inner width.
func (model Model) framed(line string) string {
	border := lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render("│")
	return border + fitWidth(line, model.innerWidth()) + border
}

// fitWidth truncates or pads line to exactly width cells.
func fitWidth(line string, width int) string {
	if width <= 0 {
		return ""
	}
	line = ansi.Truncate(line, width, "…")
	if padding := width - ansi.StringWidth(line); padding > 0 {
		line += strings.Repeat(" ", padding)
	}
	return line
}

// tableLines renders the table header and exactly Height() record rows
// with a scrollbar in the last column.
func (model Model) tableLines(width int) []string {
	height := model.navigator.Height()
	tableWidth := max(width-1, 0)
	pathWidth := max(tableWidth-timestampColumnWidth-verbColumnWidth-2*columnGap, 0)
	gap := strings.Repeat(" ", columnGap)

	headerStyle := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true)
	header := fitWidth("Timestamp", timestampColumnWidth) + gap +
		fitWidth("Verb", verbColumnWidth) + gap +
		fitWidth("Request URI", pathWidth)
	lines := []string{headerStyle.Render(fitWidth(header, width))}

	rows := make([]string, 0, height)
	if model.index.Len() == 0 {
		placeholder := "Waiting for audit records..."
		if model.ingest != ingestRunning {
			placeholder = "No audit records in the input."
		}
		rows = append(rows, lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(placeholder))
	}

	viewed, hasSelection := model.navigator.Viewed()
	selectedStyle := lipgloss.NewStyle().
		Background(model.theme.SelectedBackground).
		Foreground(model.theme.SelectedForeground).
		Bold(true)
	normalStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)

	for position, entry := range model.index.Window(model.navigator.Start(), height) {
		timestamp := fitWidth(entry.Row[0], timestampColumnWidth)
		verb := fitWidth(entry.Row[1], verbColumnWidth)
		path := fitWidth(entry.Row[2], pathWidth)

		if hasSelection && position == viewed {
			rows = append(rows, selectedStyle.Render(fitWidth(timestamp+gap+verb+gap+path, tableWidth)))
			continue
		}
		verbStyle := lipgloss.NewStyle().Foreground(model.theme.VerbColor(entry.Row[1]))
		rows = append(rows, normalStyle.Render(timestamp)+gap+verbStyle.Render(verb)+gap+normalStyle.Render(path))
	}

	scrollbar := renderScrollbar(model.theme, height, model.index.Len(), height, model.navigator.Start())
	for index := range height {
		row := ""
		if index < len(rows) {
			row = rows[index]
		}
		lines = append(lines, fitWidth(row, tableWidth)+scrollbar[index])
	}
	return lines
}

// payloadLines renders the request and response panes side by side,
// scrolled by the navigator's detail offset and clipped to height.
func (model Model) payloadLines(height int) []string {
	left, right := paneWidths(model.innerWidth())
	separator := lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render("│")
	scroll := model.navigator.Scroll()

	lines := make([]string, height)
	for index := range lines {
		lines[index] = fitWidth(lineAt(model.detail.request, scroll+index), left) +
			separator +
			fitWidth(lineAt(model.detail.response, scroll+index), right)
	}
	return lines
}

func lineAt(lines []string, index int) string {
	if index < 0 || index >= len(lines) {
		return ""
	}
	return lines[index]
}

// infoLine renders the single info slot. Warnings and errors use the
// error color.
func (model Model) infoLine() string {
	if model.info.text == "" {
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("No messages.")
	}
	color := model.theme.InfoNotice
	if model.info.level >= slog.LevelWarn {
		color = model.theme.InfoError
	}
	text := strings.ReplaceAll(model.info.text, "\n", " ")
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

// renderScrollbar produces one scrollbar cell per line. The thumb marks
// the visible window within the total; when everything fits the thumb
// fills the track.
func renderScrollbar(theme Theme, height, totalItems, visibleItems, scrollOffset int) []string {
	if height <= 0 {
		return nil
	}
	trackStyle := lipgloss.NewStyle().Foreground(theme.BorderColor)
	thumbStyle := lipgloss.NewStyle().Foreground(theme.ScrollbarThumb)

	lines := make([]string, height)
	if totalItems <= visibleItems {
		for index := range lines {
			lines[index] = thumbStyle.Render("┃")
		}
		return lines
	}

	thumbSize := max(height*visibleItems/totalItems, 1)
	scrollableRange := totalItems - visibleItems
	trackRange := height - thumbSize
	thumbOffset := 0
	if trackRange > 0 {
		thumbOffset = min(scrollOffset*trackRange/scrollableRange, trackRange)
	}

	for index := range lines {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			lines[index] = thumbStyle.Render("┃")
		} else {
			lines[index] = trackStyle.Render("│")
		}
	}
	return lines
}
