// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditui is the interactive terminal explorer for Kubernetes
// audit records.
//
// [Model] is a bubbletea model. Three independently paced sources feed
// its Update loop: records from a [Feed], key presses read from the
// terminal, and a redraw clock. Each source delivers one message per
// wakeup and is re-armed after Update applies it, so all state changes
// are serialized through Update and View only reads.
//
// [Navigator] is the selection state machine over the ordered record
// index: a selected row inside a fixed-height window, the window's
// offset into the index, and the scroll offset of the detail panes.
// It is a plain value with no I/O and is tested on its own.
//
// [TUILogHandler] routes slog records from background goroutines into
// the explorer's info slot, since nothing may write to the terminal
// while the explorer owns it.
package auditui
