/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"chainguard.dev/gitsim/cleanup"
	"chainguard.dev/gitsim/credentials"
	"chainguard.dev/gitsim/metrics"
	"chainguard.dev/gitsim/retry"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

const remoteRefPrefix = "refs/remotes/" + RemoteName + "/"

// chooser is the slice of *rand.Rand the generator draws from.
type chooser interface {
	IntN(n int) int
	Uint32() uint32
	Uint64() uint64
}

// Session owns the scratch working copy a simulation runs in, together with
// the generator that decides what each tick does. A Session is not meant to
// be shared; its methods are serialized only so that Close can safely race a
// running tick during shutdown.
type Session struct {
	cfg      Config
	creds    credentials.Provider
	suffixes SuffixSource
	signer   git.Signer
	now      func() time.Time
	metrics  *metrics.Activity
	tempRoot string

	// removeDir deletes the working copy at teardown.
	removeDir func(context.Context, string) cleanup.Report

	mu   sync.Mutex
	rng  chooser
	dir  string
	repo *git.Repository
}

// New creates the working copy, registers the remote, fetches from it and
// creates a local branch for every remote-tracking branch. Any failure is
// returned and leaves nothing behind on disk.
func New(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		creds:     credentials.None(),
		suffixes:  RandomSuffix(),
		now:       time.Now,
		removeDir: cleanup.RemoveAll,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewActivity("chainguard.dev/gitsim")
	}

	if err := s.initialize(ctx); err != nil {
		return nil, err
	}

	if err := s.start(ctx); err != nil {
		clog.FromContext(ctx).Warnf("Discarding working copy after startup failure: %v", err)
		s.removeDir(ctx, s.dir)
		s.repo, s.dir = nil, ""
		return nil, err
	}

	return s, nil
}

func (s *Session) initialize(ctx context.Context) error {
	dir, err := os.MkdirTemp(s.tempRoot, tempDirPrefix)
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		s.removeDir(ctx, dir)
		return fmt.Errorf("initializing repository: %w", err)
	}

	s.dir, s.repo = dir, repo
	clog.FromContext(ctx).Infof("Repository initialized at %s", dir)
	return nil
}

func (s *Session) start(ctx context.Context) error {
	if err := s.setUpRemote(ctx); err != nil {
		return err
	}
	if err := s.fetch(ctx); err != nil {
		return err
	}
	return s.materializeLocalBranches(ctx)
}

func (s *Session) setUpRemote(ctx context.Context) error {
	if _, err := s.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: RemoteName,
		URLs: []string{s.cfg.RemoteURL},
	}); err != nil {
		return fmt.Errorf("configuring remote: %w", err)
	}

	clog.FromContext(ctx).Infof("Remote %s configured with %s", RemoteName, s.cfg.RemoteURL)
	return nil
}

func (s *Session) fetch(ctx context.Context) error {
	auth, err := s.creds.AuthFor(ctx, s.cfg.RemoteURL)
	if err != nil {
		return fmt.Errorf("resolving credentials: %w", err)
	}

	err = retry.Run(ctx, s.cfg.Retry, "fetch", retry.Transient, func(ctx context.Context) error {
		return s.repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: RemoteName,
			Auth:       auth,
		})
	})

	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		clog.FromContext(ctx).Infof("Fetched from %s", RemoteName)
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		clog.FromContext(ctx).Infof("Remote %s is empty, nothing fetched", RemoteName)
	default:
		return fmt.Errorf("fetching from %s: %w", RemoteName, err)
	}
	return nil
}

// materializeLocalBranches mirrors every remote-tracking branch as a local
// branch of the same name pointing at the same commit.
func (s *Session) materializeLocalBranches(ctx context.Context) error {
	remotes, err := s.references(func(ref *plumbing.Reference) bool {
		return strings.HasPrefix(ref.Name().String(), remoteRefPrefix)
	})
	if err != nil {
		return fmt.Errorf("listing remote branches: %w", err)
	}

	for _, ref := range remotes {
		name := strings.TrimPrefix(ref.Name().String(), remoteRefPrefix)
		if err := s.createLocalBranch(name, ref.Hash()); err != nil {
			return fmt.Errorf("creating local branch %s: %w", name, err)
		}
		clog.FromContext(ctx).Infof("Created local branch %s", name)
	}
	return nil
}

// createLocalBranch points refs/heads/<name> at hash and configures it to
// track the same-named branch on origin.
func (s *Session) createLocalBranch(name string, hash plumbing.Hash) error {
	refName := plumbing.NewBranchReferenceName(name)
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName, hash)); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}

	err := s.repo.CreateBranch(&gitconfig.Branch{
		Name:   name,
		Remote: RemoteName,
		Merge:  refName,
	})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		return fmt.Errorf("configuring branch tracking: %w", err)
	}
	return nil
}

// references returns the hash references accepted by keep, sorted by name.
// Symbolic references such as refs/remotes/origin/HEAD are skipped.
func (s *Session) references(keep func(*plumbing.Reference) bool) ([]*plumbing.Reference, error) {
	iter, err := s.repo.References()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var refs []*plumbing.Reference
	if err := iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference && keep(ref) {
			refs = append(refs, ref)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Name().String() < refs[j].Name().String()
	})
	return refs, nil
}

// Dir returns the working copy path, or "" once the Session is closed.
func (s *Session) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// Repository returns the open repository, or nil once the Session is closed.
func (s *Session) Repository() *git.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo
}

// Identity returns the author of simulated commits.
func (s *Session) Identity() Identity {
	return s.cfg.Identity
}

// Close releases the repository and deletes the working copy. Deletion is
// best effort and never reported as an error. Calling Close again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil
	}

	var err error
	if c, ok := s.repo.Storer.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			err = fmt.Errorf("closing repository storage: %w", cerr)
		}
	}
	s.repo = nil

	dir := s.dir
	s.dir = ""
	report := s.removeDir(ctx, dir)
	clog.FromContext(ctx).Infof("Removed working copy %s (%d entries removed, %d failed)", dir, report.Removed, report.Failed)

	return err
}
