// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit defines the Kubernetes audit event (audit.k8s.io/v1
// Event) as read by kale, together with the validation applied to
// every decoded record before it reaches the explorer.
//
// The types mirror the upstream schema field for field so that strict
// decoders (unknown fields rejected) accept every well-formed event.
// Opaque request and response bodies stay as generic decoded values;
// kale only pretty-prints them.
package audit
