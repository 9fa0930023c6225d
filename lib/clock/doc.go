// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The explorer's redraw cadence and its "last received" display read
// time through a Clock rather than the time package, so tests can
// step the cadence deterministically:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go func() { <-fake.After(100 * time.Millisecond); done <- struct{}{} }()
//	fake.WaitForTimers(1)
//	fake.Advance(100 * time.Millisecond)
package clock
