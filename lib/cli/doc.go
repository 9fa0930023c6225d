// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the error vocabulary shared by kale's command
// entry point: categorized errors with optional remediation hints, and
// the mapping from those categories to process exit codes.
package cli
