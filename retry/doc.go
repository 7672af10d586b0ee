/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry provides bounded exponential backoff for operations that talk
// to a git remote. Each attempt runs under its own deadline, and by default
// only errors that Transient accepts are retried.
package retry
