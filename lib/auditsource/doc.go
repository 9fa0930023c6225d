// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditsource turns a byte stream of audit events into a
// channel of validated records for the explorer.
//
// A [Stream] owns two goroutines. The reader goroutine sniffs the
// input for compression, decodes one event at a time, validates it,
// and drops events that do not address cluster resources. The queue
// goroutine buffers decoded items without bound so that a slow
// consumer never stalls decoding and a fast producer never blocks on
// the consumer:
//
//	[stdin / file] -> reader goroutine -> queue goroutine -> Items()
//
// Ingestion ends at the first failure. Both a decode failure and the
// end of the input are delivered as an [Item] carrying an error; the
// two are told apart with errors.Is(err, [ErrEndOfInput]) or by their
// text. After that item the Items channel is closed.
package auditsource
