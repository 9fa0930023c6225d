// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the timeout safety valve
// (select with a time.After fallback) so tests that wait on the
// ingestion stream or on goroutines parked on a fake clock never hang
// the suite. They are the only place in the tests where a real
// wall-clock timeout is used.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil
