// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

// detailScrollStep is how many lines one detail scroll key moves.
const detailScrollStep = 3

// Navigator tracks which record is selected in a fixed-height window
// over an ordered sequence that only grows.
//
// The selected record is at absolute position Start()+row. The row
// moves first; the window only slides once the row is pinned at the
// top or bottom edge. Once a selection exists, Start()+row is always a
// valid position for the length most recently passed to MoveDown (and
// any later, larger length).
//
// Navigator holds no reference to the records; callers pass the
// current length where it matters.
type Navigator struct {
	height       int
	row          int
	hasSelection bool
	start        int
	scroll       int
}

// NewNavigator returns a Navigator for a window of height rows, with
// no selection. Heights below 1 are raised to 1.
func NewNavigator(height int) Navigator {
	return Navigator{height: max(height, 1)}
}

// Height returns the window height in rows.
func (navigator Navigator) Height() int { return navigator.height }

// Row returns the selected row within the window. ok is false until
// the first record has been selected.
func (navigator Navigator) Row() (row int, ok bool) {
	return navigator.row, navigator.hasSelection
}

// Start returns the absolute position of the first row of the window.
func (navigator Navigator) Start() int { return navigator.start }

// Scroll returns the detail pane scroll offset in lines.
func (navigator Navigator) Scroll() int { return navigator.scroll }

// Viewed returns the absolute position of the selected record.
func (navigator Navigator) Viewed() (position int, ok bool) {
	if !navigator.hasSelection {
		return 0, false
	}
	return navigator.start + navigator.row, true
}

// SelectFirst selects the first row if nothing is selected yet. The
// caller invokes it after each insert; only the first call has an
// effect.
func (navigator *Navigator) SelectFirst() {
	if navigator.hasSelection {
		return
	}
	navigator.hasSelection = true
	navigator.row = 0
	navigator.start = 0
	navigator.scroll = 0
}

// MoveUp moves the selection up by count rows. Within the window the
// row moves; from the top row the window slides up instead, stopping
// at the first record.
func (navigator *Navigator) MoveUp(count int) {
	if !navigator.hasSelection || count <= 0 {
		return
	}
	if navigator.row > 0 {
		navigator.row -= min(count, navigator.row)
	} else {
		navigator.start -= min(count, navigator.start)
	}
	navigator.scroll = 0
}

// MoveDown moves the selection down by count rows over a sequence of
// length records, one step at a time. Each step moves the row until it
// reaches the bottom of the window (or the last record); after that
// each step slides the window, never past the point where the window
// would extend beyond the last record.
func (navigator *Navigator) MoveDown(count, length int) {
	if !navigator.hasSelection || count <= 0 || length <= 0 {
		return
	}
	limit := max(0, length-navigator.height)
	for range count {
		if navigator.row < navigator.height-1 {
			navigator.row = min(navigator.row+1, length-1)
		} else {
			navigator.start = min(navigator.start+1, limit)
		}
	}
	navigator.scroll = 0
}

// ScrollDetailUp scrolls the detail panes up, stopping at the top.
// The selection does not change.
func (navigator *Navigator) ScrollDetailUp() {
	if !navigator.hasSelection {
		return
	}
	navigator.scroll = max(0, navigator.scroll-detailScrollStep)
}

// ScrollDetailDown scrolls the detail panes down. There is no upper
// bound here; rendering clips against the content.
func (navigator *Navigator) ScrollDetailDown() {
	if !navigator.hasSelection {
		return
	}
	navigator.scroll += detailScrollStep
}
