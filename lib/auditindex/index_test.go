// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditindex

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/bureau-foundation/kale/lib/schema/audit"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testEvent(id string, offset time.Duration) *audit.Event {
	return &audit.Event{
		AuditID:                  id,
		Verb:                     "get",
		RequestURI:               "/api/v1/namespaces/default/pods/" + id + "?watch=true",
		RequestReceivedTimestamp: base.Add(offset),
	}
}

func collect(index *Index, offset, count int) []string {
	var ids []string
	for _, entry := range index.Window(offset, count) {
		ids = append(ids, entry.Event.AuditID)
	}
	return ids
}

func TestInsertIncreasingKeepsInsertionOrder(t *testing.T) {
	index := NewIndex()
	var want []string
	for step := range 50 {
		id := fmt.Sprintf("event-%02d", step)
		want = append(want, id)
		if position := index.Insert(testEvent(id, time.Duration(step)*time.Millisecond)); position != step {
			t.Fatalf("Insert(%s) position = %d, want %d", id, position, step)
		}
	}

	got := collect(index, 0, 50)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Window(0, 50) = %v, want %v", got, want)
	}
}

func TestInsertOrdersLateArrivals(t *testing.T) {
	index := NewIndex()
	index.Insert(testEvent("b", 2*time.Second))
	index.Insert(testEvent("d", 4*time.Second))
	if position := index.Insert(testEvent("a", time.Second)); position != 0 {
		t.Errorf("late earliest record landed at %d, want 0", position)
	}
	if position := index.Insert(testEvent("c", 3*time.Second)); position != 2 {
		t.Errorf("late middle record landed at %d, want 2", position)
	}

	if got := fmt.Sprint(collect(index, 0, 10)); got != "[a b c d]" {
		t.Errorf("order = %s, want [a b c d]", got)
	}
}

func TestInsertEqualTimestampsKeepArrivalOrder(t *testing.T) {
	index := NewIndex()
	index.Insert(testEvent("first", 0))
	index.Insert(testEvent("later", time.Second))
	index.Insert(testEvent("second", 0))
	index.Insert(testEvent("third", 0))

	if got := fmt.Sprint(collect(index, 0, 10)); got != "[first second third later]" {
		t.Errorf("order = %s, want ties in arrival order before the later record", got)
	}
	if index.Len() != 4 {
		t.Errorf("Len = %d, no record may be overwritten by an equal key", index.Len())
	}
}

func TestWindowBounds(t *testing.T) {
	index := NewIndex()
	for step := range 5 {
		index.Insert(testEvent(fmt.Sprint(step), time.Duration(step)*time.Second))
	}

	cases := []struct {
		offset, count int
		want          string
	}{
		{0, 3, "[0 1 2]"},
		{3, 12, "[3 4]"},
		{4, 1, "[4]"},
		{5, 12, "[]"},
		{9, 12, "[]"},
		{0, 0, "[]"},
		{2, math.MaxInt, "[2 3 4]"},
		{0, math.MaxInt, "[0 1 2 3 4]"},
	}
	for _, test := range cases {
		got := collect(index, test.offset, test.count)
		if fmt.Sprint(got) != test.want {
			t.Errorf("Window(%d, %d) = %v, want %s", test.offset, test.count, got, test.want)
		}
	}
}

func TestWindowIsRestartableAndPositioned(t *testing.T) {
	index := NewIndex()
	for step := range 4 {
		index.Insert(testEvent(fmt.Sprint(step), time.Duration(step)*time.Second))
	}

	window := index.Window(1, 2)
	for pass := range 2 {
		var positions []int
		for position := range window {
			positions = append(positions, position)
		}
		if fmt.Sprint(positions) != "[1 2]" {
			t.Errorf("pass %d positions = %v, want [1 2]", pass, positions)
		}
	}

	// Breaking out early must stop iteration cleanly.
	seen := 0
	for range index.Window(0, 4) {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("early break visited %d entries", seen)
	}
}

func TestAt(t *testing.T) {
	index := NewIndex()
	if _, ok := index.At(0); ok {
		t.Error("At(0) on an empty index should report false")
	}
	index.Insert(testEvent("only", 0))
	if entry, ok := index.At(0); !ok || entry.Event.AuditID != "only" {
		t.Errorf("At(0) = %+v, %v", entry, ok)
	}
	for _, position := range []int{-1, 1} {
		if _, ok := index.At(position); ok {
			t.Errorf("At(%d) should be out of range", position)
		}
	}
}

func TestRowStripsQuery(t *testing.T) {
	row := NewRow(testEvent("abc", 1500*time.Microsecond))
	want := Row{"2026-03-01 10:00:00.001500 UTC", "get", "/api/v1/namespaces/default/pods/abc"}
	if row != want {
		t.Errorf("NewRow = %q, want %q", row, want)
	}
}

func TestStats(t *testing.T) {
	index := NewIndex()
	if stats := index.Stats(); stats.Records != 0 || !stats.Earliest.IsZero() {
		t.Errorf("empty Stats = %+v", stats)
	}

	index.Insert(testEvent("b", 2*time.Second))
	late := testEvent("a", time.Second)
	late.Verb = "delete"
	index.Insert(late)

	stats := index.Stats()
	if stats.Records != 2 {
		t.Errorf("Records = %d, want 2", stats.Records)
	}
	if !stats.Earliest.Equal(base.Add(time.Second)) || !stats.Latest.Equal(base.Add(2*time.Second)) {
		t.Errorf("range = %v..%v", stats.Earliest, stats.Latest)
	}
	if stats.Verbs["get"] != 1 || stats.Verbs["delete"] != 1 {
		t.Errorf("Verbs = %v", stats.Verbs)
	}
}
