/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/gitsim/credentials"
	"chainguard.dev/gitsim/metrics"
	"chainguard.dev/gitsim/retry"
	"github.com/go-git/go-git/v5"
)

const (
	// RemoteName is the name the configured remote is registered under.
	RemoteName = "origin"

	// DefaultSeed seeds the action generator when the caller has no opinion.
	DefaultSeed uint64 = 17

	// DefaultCommitMessage is used for every simulated commit.
	DefaultCommitMessage = "Another one hits the dust!"

	tempDirPrefix = "gitsim-"
)

// ContentMode controls what a simulated commit contains.
type ContentMode string

const (
	// ContentEmpty produces commits with no changes.
	ContentEmpty ContentMode = "empty"
	// ContentFiles creates, alters or drops one file per commit.
	ContentFiles ContentMode = "files"
)

// Identity is the author and committer of simulated commits.
type Identity struct {
	Name  string
	Email string
}

// Config describes one simulation run.
type Config struct {
	// RemoteURL is the repository traffic is generated against.
	RemoteURL string
	// Identity authors and commits every simulated commit.
	Identity Identity
	// BotIdentifier prefixes the names of created branches. It defaults to
	// Identity.Name.
	BotIdentifier string
	// Seed seeds the action generator.
	Seed uint64
	// CommitMessage defaults to DefaultCommitMessage.
	CommitMessage string
	// Content defaults to ContentEmpty.
	Content ContentMode
	// Retry bounds retries of fetch and push. The zero value makes a single
	// attempt.
	Retry retry.Config
	// NetworkTimeout, when positive, caps each fetch and push attempt unless
	// Retry.AttemptTimeout is set.
	NetworkTimeout time.Duration
}

func (c *Config) validate() error {
	switch {
	case strings.TrimSpace(c.Identity.Name) == "":
		return errors.New("committer name cannot be empty")
	case strings.TrimSpace(c.RemoteURL) == "":
		return errors.New("remote url cannot be empty")
	case c.NetworkTimeout < 0:
		return errors.New("network timeout cannot be negative")
	}

	switch c.Content {
	case "":
		c.Content = ContentEmpty
	case ContentEmpty, ContentFiles:
	default:
		return fmt.Errorf("unsupported content mode %q", c.Content)
	}

	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Retry.AttemptTimeout == 0 {
		c.Retry.AttemptTimeout = c.NetworkTimeout
	}

	c.BotIdentifier = strings.TrimSpace(c.BotIdentifier)
	if c.BotIdentifier == "" {
		c.BotIdentifier = strings.TrimSpace(c.Identity.Name)
	}
	if c.CommitMessage == "" {
		c.CommitMessage = DefaultCommitMessage
	}
	return nil
}

// Option customizes a Session.
type Option func(*Session)

// WithCredentials sets the auth used for fetch and push. Sessions default to
// credentials.None.
func WithCredentials(p credentials.Provider) Option {
	return func(s *Session) { s.creds = p }
}

// WithSuffixSource sets where branch-name suffixes come from.
func WithSuffixSource(src SuffixSource) Option {
	return func(s *Session) { s.suffixes = src }
}

// WithSigner signs every simulated commit.
func WithSigner(signer git.Signer) Option {
	return func(s *Session) { s.signer = signer }
}

// WithClock overrides the time source used for commit signatures.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithMetrics sets the activity recorder.
func WithMetrics(m *metrics.Activity) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTempRoot creates the working copy under root instead of the system
// temporary directory.
func WithTempRoot(root string) Option {
	return func(s *Session) { s.tempRoot = root }
}
