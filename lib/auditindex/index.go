// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditindex

import (
	"iter"
	"slices"
	"time"

	"github.com/bureau-foundation/kale/lib/schema/audit"
)

// RowTimeLayout formats the timestamp column of a display row.
const RowTimeLayout = "2006-01-02 15:04:05.000000 UTC"

// Row is the precomputed three-column table row for a record:
// timestamp, verb, and request path without its query string.
type Row [3]string

// Entry is one indexed record and its display row.
type Entry struct {
	Event *audit.Event
	Row   Row
}

// Key returns the ordering timestamp of the entry.
func (entry Entry) Key() time.Time {
	return entry.Event.RequestReceivedTimestamp
}

// Index is the ordered record store.
type Index struct {
	entries []Entry
	verbs   map[string]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{verbs: make(map[string]int)}
}

// Len returns the number of records held.
func (index *Index) Len() int {
	return len(index.entries)
}

// Insert stores event after every record whose timestamp is earlier
// than or equal to its own, and returns the position it landed at.
// Audit logs arrive almost sorted, so the common case is an append.
func (index *Index) Insert(event *audit.Event) int {
	entry := Entry{Event: event, Row: NewRow(event)}
	index.verbs[event.Verb]++

	key := entry.Key()
	last := len(index.entries) - 1
	if last < 0 || !key.Before(index.entries[last].Key()) {
		index.entries = append(index.entries, entry)
		return last + 1
	}

	// First position whose timestamp is strictly later than key.
	position, _ := slices.BinarySearchFunc(index.entries, key, func(existing Entry, target time.Time) int {
		if existing.Key().After(target) {
			return 1
		}
		return -1
	})
	index.entries = slices.Insert(index.entries, position, entry)
	return position
}

// At returns the entry at position, or false when position is out of
// range.
func (index *Index) At(position int) (Entry, bool) {
	if position < 0 || position >= len(index.entries) {
		return Entry{}, false
	}
	return index.entries[position], true
}

// Window yields up to count entries in ascending timestamp order,
// starting at offset, paired with their absolute positions. An offset
// at or past the end yields nothing. The sequence reads the index at
// iteration time and may be ranged over again.
func (index *Index) Window(offset, count int) iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		if offset < 0 || count <= 0 || offset >= len(index.entries) {
			return
		}
		end := offset + min(count, len(index.entries)-offset)
		for position := offset; position < end; position++ {
			if !yield(position, index.entries[position]) {
				return
			}
		}
	}
}

// Stats summarises the index for the explorer's header.
type Stats struct {
	Records  int
	Earliest time.Time
	Latest   time.Time

	// Verbs counts records per verb.
	Verbs map[string]int
}

// Stats returns a snapshot of the index summary. The Verbs map is a
// copy owned by the caller.
func (index *Index) Stats() Stats {
	stats := Stats{
		Records: len(index.entries),
		Verbs:   make(map[string]int, len(index.verbs)),
	}
	for verb, count := range index.verbs {
		stats.Verbs[verb] = count
	}
	if len(index.entries) > 0 {
		stats.Earliest = index.entries[0].Key()
		stats.Latest = index.entries[len(index.entries)-1].Key()
	}
	return stats
}

// NewRow builds the display row for event.
func NewRow(event *audit.Event) Row {
	return Row{
		event.RequestReceivedTimestamp.UTC().Format(RowTimeLayout),
		event.Verb,
		event.Path(),
	}
}
