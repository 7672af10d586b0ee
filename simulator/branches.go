/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
)

// SuffixLength is the number of characters in a branch-name suffix.
const SuffixLength = 7

// SuffixSource produces the random part of created branch names.
type SuffixSource interface {
	Suffix() (string, error)
}

type uuidSuffix struct {
	mu sync.Mutex
	r  io.Reader // nil means crypto/rand
}

// RandomSuffix returns suffixes cut from random UUIDs. They differ between
// runs even when the action generator is seeded.
func RandomSuffix() SuffixSource {
	return &uuidSuffix{}
}

// SeededSuffix returns a reproducible suffix sequence for seed.
func SeededSuffix(seed uint64) SuffixSource {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return &uuidSuffix{r: rand.NewChaCha8(key)}
}

func (u *uuidSuffix) Suffix() (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var (
		id  uuid.UUID
		err error
	)
	if u.r == nil {
		id, err = uuid.NewRandom()
	} else {
		id, err = uuid.NewRandomFromReader(u.r)
	}
	if err != nil {
		return "", fmt.Errorf("generating branch suffix: %w", err)
	}
	return id.String()[:SuffixLength], nil
}

// BranchName returns the name of a simulator branch: <bot>/branch-<suffix>.
// Whitespace in the bot identifier is collapsed to dashes so the result is a
// valid reference name.
func BranchName(botIdentifier, suffix string) string {
	return fmt.Sprintf("%s/branch-%s", strings.Join(strings.Fields(botIdentifier), "-"), suffix)
}

// branches lists local branches and origin's remote-tracking branches.
func (s *Session) branches() ([]*plumbing.Reference, error) {
	return s.references(func(ref *plumbing.Reference) bool {
		return ref.Name().IsBranch() || strings.HasPrefix(ref.Name().String(), remoteRefPrefix)
	})
}

// pickExistingBranch chooses uniformly among all branches. Picking a
// remote-tracking branch selects its local counterpart, creating it at the
// tracking tip when needed, so that commits land on a pushable branch.
func (s *Session) pickExistingBranch(ctx context.Context) (plumbing.ReferenceName, error) {
	refs, err := s.branches()
	if err != nil {
		return "", fmt.Errorf("listing branches: %w", err)
	}
	if len(refs) == 0 {
		return "", ErrNoBranches
	}

	ref := refs[s.rng.IntN(len(refs))]
	if ref.Name().IsBranch() {
		return ref.Name(), nil
	}

	name := strings.TrimPrefix(ref.Name().String(), remoteRefPrefix)
	local := plumbing.NewBranchReferenceName(name)
	switch _, err := s.repo.Reference(local, false); {
	case err == nil:
		return local, nil
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		if err := s.createLocalBranch(name, ref.Hash()); err != nil {
			return "", err
		}
		clog.FromContext(ctx).Infof("Created local branch %s", name)
		return local, nil
	default:
		return "", fmt.Errorf("looking up %s: %w", local, err)
	}
}

// createBranch starts a new bot branch at a random commit reachable from any
// local branch, tracking the same name on origin.
func (s *Session) createBranch(ctx context.Context) (plumbing.ReferenceName, error) {
	commits, err := s.reachableCommits()
	if err != nil {
		return "", fmt.Errorf("listing commits: %w", err)
	}
	if len(commits) == 0 {
		return "", ErrNoCommits
	}

	start := commits[s.rng.IntN(len(commits))]

	suffix, err := s.suffixes.Suffix()
	if err != nil {
		return "", err
	}
	name := BranchName(s.cfg.BotIdentifier, suffix)

	if err := s.createLocalBranch(name, start); err != nil {
		return "", err
	}

	clog.FromContext(ctx).Infof("Created branch %s", name)
	s.metrics.RecordBranchCreated()
	return plumbing.NewBranchReferenceName(name), nil
}

// reachableCommits returns every commit reachable from a local branch head,
// once each, ordered by hash.
func (s *Session) reachableCommits() ([]plumbing.Hash, error) {
	heads, err := s.references(func(ref *plumbing.Reference) bool {
		return ref.Name().IsBranch()
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[plumbing.Hash]struct{})
	for _, head := range heads {
		if _, ok := seen[head.Hash()]; ok {
			continue
		}
		iter, err := s.repo.Log(&git.LogOptions{From: head.Hash()})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", head.Name().Short(), err)
		}
		err = iter.ForEach(func(c *object.Commit) error {
			seen[c.Hash] = struct{}{}
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", head.Name().Short(), err)
		}
	}

	hashes := make([]plumbing.Hash, 0, len(seen))
	for h := range seen {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].String() < hashes[j].String()
	})
	return hashes, nil
}
