/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package simulator generates synthetic git traffic against a single remote.
//
// A Session owns a scratch working copy created at startup. New initializes
// it, registers the remote as origin, fetches once and materializes a local
// branch for every remote-tracking branch. Each call to Session.Tick then makes
// a handful of seeded random draws and:
//   - idles, or
//   - force-checks-out an existing branch, or a new bot branch started at a
//     random reachable commit,
//   - adds zero, one or two (possibly empty) commits,
//   - and pushes the branch when it gained commits.
//
// Run drives Tick on a fixed interval until its context is cancelled, logging
// and swallowing tick failures. Close releases the repository and deletes the
// working copy; it is safe to call more than once.
//
// Given the same seed and the same initial remote branches, the sequence of
// actions a Session takes is reproducible. Branch-name suffixes are random by
// default; use WithSuffixSource(SeededSuffix(n)) to make them reproducible too.
package simulator
