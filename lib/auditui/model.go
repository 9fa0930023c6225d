// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/kale/lib/auditindex"
	"github.com/bureau-foundation/kale/lib/auditsource"
	"github.com/bureau-foundation/kale/lib/clock"
)

const (
	// DefaultRows is the number of records visible in the table.
	DefaultRows = 12

	// redrawInterval is the cadence of forced repaints, independent
	// of input and ingestion.
	redrawInterval = 100 * time.Millisecond
)

// Feed is the ingestion side of the explorer. *auditsource.Stream
// implements it.
type Feed interface {
	// Items delivers records and, last, the error that ended
	// ingestion. Closed afterwards.
	Items() <-chan auditsource.Item

	// Stats reports ingestion counters. Called from View, so it must
	// be safe to call concurrently with the producer.
	Stats() auditsource.Stats
}

// Options configures a Model.
type Options struct {
	// Rows is the table height. Zero means DefaultRows.
	Rows int

	// Clock drives the redraw cadence. Nil means clock.Real().
	Clock clock.Clock
}

// ingestState describes where ingestion stands.
type ingestState int

const (
	ingestRunning ingestState = iota
	ingestEnded
	ingestFailed
)

// ingestMsg carries one item from the feed into the event loop.
type ingestMsg struct {
	item auditsource.Item
}

// ingestClosedMsg reports that the feed channel closed without a
// terminal error item (the stream was cancelled).
type ingestClosedMsg struct{}

// redrawTickMsg forces a repaint. A new tick is scheduled after each.
type redrawTickMsg struct {
	at time.Time
}

// InputErrorMsg reports a failure reading the input device. The
// explorer shows it in the info slot and keeps running.
//
// bubbletea itself ends Run when reading the terminal fails, so the
// kale binary never sends this. It exists for programs that embed the
// Model and read input themselves.
type InputErrorMsg struct {
	Err error
}

// infoMessage is the single most recent notice or error. Each new one
// replaces the last; there is no history.
type infoMessage struct {
	text  string
	level slog.Level
}

// Model is the explorer's application state and its bubbletea event
// loop. Every mutation happens in Update, one message at a time, so
// the index and navigator need no locking. View only reads.
type Model struct {
	feed      Feed
	items     <-chan auditsource.Item
	clock     clock.Clock
	index     *auditindex.Index
	navigator Navigator
	info      infoMessage
	ingest    ingestState

	theme Theme
	keys  KeyMap
	help  help.Model

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// detail is the rendered content of the info and payload panes
	// for the viewed record at the current width.
	detail detailView

	// lastRecord is when the most recent record was ingested.
	lastRecord time.Time

	// quitting is set by the quit key. Every later message is
	// answered with tea.Quit and otherwise ignored.
	quitting bool
}

// NewModel creates a Model that ingests from feed.
func NewModel(feed Feed, options Options) Model {
	rows := options.Rows
	if rows <= 0 {
		rows = DefaultRows
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}

	helpModel := help.New()
	helpModel.ShortSeparator = " • "

	return Model{
		feed:      feed,
		items:     feed.Items(),
		clock:     clk,
		index:     auditindex.NewIndex(),
		navigator: NewNavigator(rows),
		theme:     DefaultTheme,
		keys:      DefaultKeyMap,
		help:      helpModel,
	}
}

// Init implements tea.Model. Starts listening on the feed and starts
// the redraw clock.
func (model Model) Init() tea.Cmd {
	return tea.Batch(listenForItem(model.items), scheduleRedraw(model.clock))
}

// listenForItem returns a tea.Cmd that blocks until the feed delivers
// one item. Update re-arms it after applying the item, so at most one
// ingestion effect is in flight at a time.
func listenForItem(items <-chan auditsource.Item) tea.Cmd {
	return func() tea.Msg {
		item, ok := <-items
		if !ok {
			return ingestClosedMsg{}
		}
		return ingestMsg{item: item}
	}
}

// scheduleRedraw returns a tea.Cmd that delivers a redrawTickMsg after
// the redraw interval.
func scheduleRedraw(clk clock.Clock) tea.Cmd {
	return func() tea.Msg {
		return redrawTickMsg{at: <-clk.After(redrawInterval)}
	}
}

// Update implements tea.Model. Applies exactly one effect per message;
// bubbletea repaints after each call.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	if model.quitting {
		return model, tea.Quit
	}

	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case ingestMsg:
		return model.handleIngest(message.item)

	case ingestClosedMsg:
		if model.ingest == ingestRunning {
			model.ingest = ingestEnded
		}

	case redrawTickMsg:
		return model, scheduleRedraw(model.clock)

	case InputErrorMsg:
		model.setInfo(fmt.Sprintf("input device error: %v", message.Err), slog.LevelWarn)

	case logRecordMsg:
		model.setInfo(message.Summary, message.Level)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.help.Width = message.Width
		model.syncDetail()
	}
	return model, nil
}

// handleKey applies a key press. Unbound keys are ignored.
func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		model.quitting = true
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		model.navigator.MoveUp(1)
	case key.Matches(message, model.keys.PageUp):
		model.navigator.MoveUp(pageStep)
	case key.Matches(message, model.keys.Down):
		model.navigator.MoveDown(1, model.index.Len())
	case key.Matches(message, model.keys.PageDown):
		model.navigator.MoveDown(pageStep, model.index.Len())
	case key.Matches(message, model.keys.ScrollUp):
		model.navigator.ScrollDetailUp()
	case key.Matches(message, model.keys.ScrollDown):
		model.navigator.ScrollDetailDown()

	default:
		return model, nil
	}

	model.syncDetail()
	return model, nil
}

// handleIngest applies one item from the feed. Records are indexed and
// the listener re-armed; an error ends ingestion and is shown.
func (model Model) handleIngest(item auditsource.Item) (tea.Model, tea.Cmd) {
	if item.Err != nil {
		if errors.Is(item.Err, auditsource.ErrEndOfInput) {
			model.ingest = ingestEnded
			model.setInfo(item.Err.Error(), slog.LevelInfo)
		} else {
			model.ingest = ingestFailed
			model.setInfo(item.Err.Error(), slog.LevelError)
		}
		return model, nil
	}

	model.index.Insert(item.Record)
	model.navigator.SelectFirst()
	model.lastRecord = model.clock.Now()
	model.syncDetail()
	return model, listenForItem(model.items)
}

// setInfo replaces the info slot.
func (model *Model) setInfo(text string, level slog.Level) {
	model.info = infoMessage{text: text, level: level}
}

// syncDetail re-renders the detail panes if the viewed record or the
// width changed, and reports a viewed position that is out of range.
func (model *Model) syncDetail() {
	position, ok := model.navigator.Viewed()
	if !ok {
		model.detail = detailView{}
		return
	}
	entry, ok := model.index.At(position)
	if !ok {
		model.setInfo(fmt.Sprintf("attempted to access record #%d which is not in the index", position), slog.LevelWarn)
		model.detail = detailView{}
		return
	}
	if model.detail.event == entry.Event && model.detail.width == model.innerWidth() {
		return
	}
	model.detail = renderDetail(entry.Event, model.innerWidth(), model.theme)
}

// Quitting reports whether the quit key has been pressed.
func (model Model) Quitting() bool {
	return model.quitting
}
