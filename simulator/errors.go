/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import "errors"

var (
	// ErrNoBranches is returned by a tick that wants to reuse a branch when
	// none exist.
	ErrNoBranches = errors.New("no branches to choose from")
	// ErrNoCommits is returned by a tick that wants to start a branch when no
	// local branch has any history.
	ErrNoCommits = errors.New("no commits to start a branch from")
	// ErrClosed is returned when a closed Session is used.
	ErrClosed = errors.New("session is closed")
)

// Tick stages, used to label failures.
const (
	StageSelect   = "select"
	StageCheckout = "checkout"
	StageCommit   = "commit"
	StagePush     = "push"
)
