// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/kale/lib/schema/audit"
)

// ErrEndOfInput is delivered as the final item when the input ends
// cleanly. It is an ingestion failure like any other: the explorer
// shows it and stops expecting records.
var ErrEndOfInput = errors.New("reached the end of the input")

// DecodeError reports a record that could not be decoded or failed
// validation. Record is the 1-based ordinal of the value in the input,
// counting filtered records.
type DecodeError struct {
	Record int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("input failed to decode at record #%d, ingestion stopped: %v", e.Record, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Item is one delivery from a Stream: either a validated record or the
// error that ended ingestion. Exactly one of Record and Err is set.
type Item struct {
	Record *audit.Event
	Err    error
}

// Stats counts what the reader goroutine has seen so far.
type Stats struct {
	// Accepted is the number of records delivered to the queue.
	Accepted int64

	// Filtered is the number of valid records dropped because they
	// do not address cluster resources.
	Filtered int64

	// Compression is the container the input arrived in. Meaningful
	// once the first record has been read.
	Compression Compression
}

// Options configures a Stream.
type Options struct {
	// Format selects the event encoding. Empty means FormatJSON.
	Format Format

	// Logger receives ingestion progress. Nil discards it.
	Logger *slog.Logger

	// BacklogWarning is the number of undelivered records at which a
	// warning is logged. Zero means DefaultBacklogWarning; negative
	// disables the warning.
	BacklogWarning int
}

// Stream decodes audit events from an input in the background and
// delivers them through Items.
type Stream struct {
	format Format
	logger *slog.Logger
	items  chan Item
	cancel context.CancelFunc

	accepted    atomic.Int64
	filtered    atomic.Int64
	compression atomic.Uint32
}

// Start begins reading input and returns immediately. All blocking
// reads happen on the Stream's own goroutine. Cancelling ctx or
// calling Close stops delivery; a reader blocked inside input.Read is
// abandoned rather than interrupted.
func Start(ctx context.Context, input io.Reader, options Options) *Stream {
	format := options.Format
	if format == "" {
		format = FormatJSON
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	backlogWarning := options.BacklogWarning
	if backlogWarning == 0 {
		backlogWarning = DefaultBacklogWarning
	}

	ctx, cancel := context.WithCancel(ctx)
	stream := &Stream{
		format: format,
		logger: logger,
		items:  make(chan Item),
		cancel: cancel,
	}

	inbound := make(chan Item)
	go stream.read(ctx, input, inbound)
	go forward(ctx, inbound, stream.items, newBacklogMonitor(logger.With("component", "queue"), backlogWarning))
	return stream
}

// Items returns the delivery channel. It is closed after the item
// carrying the terminal error, or after Close.
func (stream *Stream) Items() <-chan Item {
	return stream.items
}

// Stats returns a snapshot of the ingestion counters. Safe to call
// from any goroutine.
func (stream *Stream) Stats() Stats {
	return Stats{
		Accepted:    stream.accepted.Load(),
		Filtered:    stream.filtered.Load(),
		Compression: Compression(stream.compression.Load()),
	}
}

// Close stops delivery and releases the queue goroutine.
func (stream *Stream) Close() {
	stream.cancel()
}

// read is the reader goroutine. It closes inbound when it returns so
// the queue goroutine can drain and close Items.
func (stream *Stream) read(ctx context.Context, input io.Reader, inbound chan<- Item) {
	defer close(inbound)

	reader, compression, release, err := decompress(input)
	if err != nil {
		stream.deliver(ctx, inbound, Item{Err: &DecodeError{Record: 1, Err: err}})
		return
	}
	defer release()
	stream.compression.Store(uint32(compression))
	if compression != CompressionNone {
		stream.logger.Info("decompressing input", "compression", compression.String())
	}

	decoder := newEventDecoder(stream.format, reader)
	for ordinal := 1; ; ordinal++ {
		var event audit.Event
		err := decoder.Decode(&event)
		if errors.Is(err, io.EOF) {
			stream.logger.Info("input ended",
				"records", ordinal-1,
				"accepted", stream.accepted.Load(),
				"filtered", stream.filtered.Load(),
			)
			stream.deliver(ctx, inbound, Item{Err: ErrEndOfInput})
			return
		}
		if err == nil {
			err = event.Validate()
		}
		if err != nil {
			stream.logger.Info("ingestion stopped", "record", ordinal, "error", err)
			stream.deliver(ctx, inbound, Item{Err: &DecodeError{Record: ordinal, Err: err}})
			return
		}

		if !event.IsResourceRequest() {
			stream.filtered.Add(1)
			stream.logger.Debug("dropping non-resource request",
				"audit_id", event.AuditID,
				"request_uri", event.RequestURI,
			)
			continue
		}

		stream.accepted.Add(1)
		if !stream.deliver(ctx, inbound, Item{Record: &event}) {
			return
		}
	}
}

// deliver hands item to the queue goroutine. Returns false if the
// stream was cancelled first.
func (stream *Stream) deliver(ctx context.Context, inbound chan<- Item, item Item) bool {
	select {
	case inbound <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
