// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/kale/lib/schema/audit"
)

// infoLineCount is the fixed height of the Request Info section.
const infoLineCount = 7

// notAvailable fills Request Info fields the record does not carry.
const notAvailable = "N/A"

// detailView is the rendered content below the table for one record at
// one width. Rebuilt in Update when either changes so View stays cheap.
type detailView struct {
	event *audit.Event
	width int

	// summary is the record's stage, level, and response code, shown
	// in the Request Info rule.
	summary string

	// info holds exactly infoLineCount lines.
	info []string

	// request and response are the payload panes, already
	// highlighted and wrapped to their column width.
	request  []string
	response []string
}

// renderDetail renders the detail panes for event. width is the inner
// width of the frame.
func renderDetail(event *audit.Event, width int, theme Theme) detailView {
	detail := detailView{
		event:   event,
		width:   width,
		summary: recordSummary(event),
		info:    requestInfo(event, theme),
	}
	left, right := paneWidths(width)
	detail.request = renderPayload(event.RequestObject, left)
	detail.response = renderPayload(event.ResponseObject, right)
	return detail
}

// paneWidths splits width between the request and response panes,
// leaving one column for the separator.
func paneWidths(width int) (left, right int) {
	usable := max(width-1, 2)
	left = usable / 2
	return left, usable - left
}

func recordSummary(event *audit.Event) string {
	parts := []string{string(event.Stage), string(event.Level)}
	if event.ResponseStatus != nil && event.ResponseStatus.Code != 0 {
		parts = append(parts, fmt.Sprintf("%d", event.ResponseStatus.Code))
	}
	return strings.Join(parts, " · ")
}

// requestInfo formats the Request Info section.
func requestInfo(event *audit.Event, theme Theme) []string {
	label := lipgloss.NewStyle().Foreground(theme.FaintText)
	value := lipgloss.NewStyle().Foreground(theme.NormalText)

	objectRef := notAvailable
	if event.ObjectRef != nil {
		objectRef = event.ObjectRef.String()
	}
	impersonated := notAvailable
	if event.ImpersonatedUser != nil {
		impersonated = formatUser(*event.ImpersonatedUser)
	}

	fields := [infoLineCount][2]string{
		{"Request URI", event.RequestURI},
		{"Audit ID", event.AuditID},
		{"Object Ref", objectRef},
		{"User", formatUser(event.User)},
		{"Impersonated User", impersonated},
		{"User Agent", orNotAvailable(event.UserAgent)},
		{"Source IPs", orNotAvailable(strings.Join(event.SourceIPs, ", "))},
	}

	lines := make([]string, 0, infoLineCount)
	for _, field := range fields {
		lines = append(lines, label.Render(fmt.Sprintf("%-18s", field[0]+":"))+value.Render(field[1]))
	}
	return lines
}

func formatUser(user audit.UserInfo) string {
	if user.Username == "" {
		return notAvailable
	}
	if len(user.Groups) == 0 {
		return user.Username
	}
	return fmt.Sprintf("%s [%s]", user.Username, strings.Join(user.Groups, ", "))
}

func orNotAvailable(value string) string {
	if value == "" {
		return notAvailable
	}
	return value
}

// renderPayload pretty-prints an opaque request or response body as
// highlighted JSON, hard-wrapped to width. A nil body renders as a
// single faint placeholder line.
func renderPayload(value any, width int) []string {
	if value == nil {
		return []string{lipgloss.NewStyle().Faint(true).Render("(none)")}
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return []string{fmt.Sprintf("(unprintable body: %v)", err)}
	}
	text := highlightJSON(strings.TrimRight(buffer.String(), "\n"))
	return strings.Split(ansi.Hardwrap(text, max(width, 1), true), "\n")
}

// highlightJSON applies terminal syntax highlighting. Falls back to the
// plain text if the highlighter fails.
func highlightJSON(source string) string {
	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, source, "json", "terminal256", "monokai"); err != nil {
		return source
	}
	return strings.TrimRight(highlighted.String(), "\n")
}
