// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a log record to the model's info slot.
type logRecordMsg struct {
	Summary string
	Level   slog.Level
}

// messageSender is the part of *tea.Program the handler needs.
type messageSender interface {
	Send(message tea.Msg)
}

// TUILogHandler is a slog.Handler that routes records into the running
// explorer, where they replace the info slot message. Background
// goroutines log through it instead of writing to stderr, which would
// corrupt the alt-screen display.
//
// Records arriving before SetProgram is called are dropped. Handlers
// derived via WithAttrs/WithGroup share the program pointer.
type TUILogHandler struct {
	level  slog.Level
	sender *atomic.Pointer[messageSender]
	attrs  []slog.Attr
	groups []string
}

// NewTUILogHandler creates a handler that forwards records at or above
// level once SetProgram has been called.
func NewTUILogHandler(level slog.Level) *TUILogHandler {
	return &TUILogHandler{
		level:  level,
		sender: &atomic.Pointer[messageSender]{},
	}
}

// SetProgram connects the handler to the running program. Safe to
// call from any goroutine.
func (handler *TUILogHandler) SetProgram(program *tea.Program) {
	handler.setSender(program)
}

func (handler *TUILogHandler) setSender(sender messageSender) {
	handler.sender.Store(&sender)
}

// Enabled reports whether records at level are forwarded.
func (handler *TUILogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as "message (key=value, ...)" and sends
// it to the program.
func (handler *TUILogHandler) Handle(_ context.Context, record slog.Record) error {
	sender := handler.sender.Load()
	if sender == nil {
		return nil
	}

	prefix := ""
	if len(handler.groups) > 0 {
		prefix = strings.Join(handler.groups, ".") + "."
	}
	var parts []string
	for _, attr := range handler.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	})

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	(*sender).Send(logRecordMsg{Summary: summary, Level: record.Level})
	return nil
}

// WithAttrs returns a derived handler that prepends attrs to every
// record.
func (handler *TUILogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TUILogHandler{
		level:  handler.level,
		sender: handler.sender,
		attrs:  append(sliceClone(handler.attrs), attrs...),
		groups: sliceClone(handler.groups),
	}
}

// WithGroup returns a derived handler that qualifies record attribute
// keys with name.
func (handler *TUILogHandler) WithGroup(name string) slog.Handler {
	return &TUILogHandler{
		level:  handler.level,
		sender: handler.sender,
		attrs:  sliceClone(handler.attrs),
		groups: append(sliceClone(handler.groups), name),
	}
}

// sliceClone returns a shallow copy of a slice so derived handlers
// never share backing arrays.
func sliceClone[T any](source []T) []T {
	if source == nil {
		return nil
	}
	result := make([]T, len(source))
	copy(result, source)
	return result
}
