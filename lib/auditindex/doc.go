// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditindex holds every ingested audit record in request
// timestamp order.
//
// The index only grows: there is no removal and no eviction, so a
// position stays valid for the life of the process (though the record
// at it shifts when an earlier-timestamped record arrives late).
// Records with equal timestamps keep their arrival order.
//
// Index is not safe for concurrent use. The explorer mutates it only
// from its event loop.
package auditindex
