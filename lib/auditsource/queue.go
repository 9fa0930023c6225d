// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package auditsource

import (
	"context"
	"log/slog"
)

// DefaultBacklogWarning is the number of undelivered items at which the
// queue first logs a warning.
const DefaultBacklogWarning = 10000

// forward moves items from inbound to outbound in order, holding any
// that the consumer has not taken yet in an unbounded buffer. Receiving
// from inbound is always one of the select cases, so the producer never
// waits on the consumer.
//
// outbound is closed once inbound has been closed and every buffered
// item delivered, or when ctx is cancelled (buffered items are then
// discarded). A nil monitor disables backlog warnings.
func forward(ctx context.Context, inbound <-chan Item, outbound chan<- Item, monitor *backlogMonitor) {
	defer close(outbound)

	var pending []Item
	for inbound != nil || len(pending) > 0 {
		// A nil send channel disables that case while nothing is
		// buffered; a nil inbound disables receiving after close.
		var send chan<- Item
		var next Item
		if len(pending) > 0 {
			send = outbound
			next = pending[0]
		}

		select {
		case item, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			pending = append(pending, item)

		case send <- next:
			pending[0] = Item{}
			pending = pending[1:]
			if len(pending) == 0 {
				pending = nil
			}

		case <-ctx.Done():
			return
		}
		monitor.observe(len(pending))
	}
}

// backlogMonitor warns when undelivered items pile up: once at the
// threshold and again each time the backlog doubles. Draining the
// backlog completely re-arms the first warning.
type backlogMonitor struct {
	logger    *slog.Logger
	threshold int
	next      int
}

func newBacklogMonitor(logger *slog.Logger, threshold int) *backlogMonitor {
	if threshold <= 0 {
		return nil
	}
	return &backlogMonitor{logger: logger, threshold: threshold, next: threshold}
}

func (monitor *backlogMonitor) observe(pending int) {
	if monitor == nil {
		return
	}
	if pending == 0 {
		monitor.next = monitor.threshold
		return
	}
	if pending >= monitor.next {
		monitor.logger.Warn("records are arriving faster than the explorer takes them",
			"pending", pending)
		monitor.next *= 2
	}
}
