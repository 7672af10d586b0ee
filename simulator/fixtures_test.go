/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

const readme = "# fixture\n"

// initRemote creates a bare repository holding the given branches. The first
// branch carries a single commit adding README.md; every other branch adds one
// empty commit on top of it.
func initRemote(t *testing.T, branches ...string) string {
	t.Helper()

	remoteDir := filepath.Join(t.TempDir(), "remote.git")
	if _, err := git.PlainInit(remoteDir, true); err != nil {
		t.Fatalf("PlainInit remote: %v", err)
	}
	if len(branches) == 0 {
		return remoteDir
	}

	seedDir := t.TempDir()
	repo, err := git.PlainInit(seedDir, false)
	if err != nil {
		t.Fatalf("PlainInit seed: %v", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branches[0]))); err != nil {
		t.Fatalf("SetReference: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(seedDir, "README.md"), []byte(readme), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	sig := &object.Signature{Name: "Fixture", Email: "fixture@example.com", When: fixedTime}
	base, err := wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	for _, b := range branches[1:] {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(b), Hash: base, Create: true}); err != nil {
			t.Fatalf("Checkout %s: %v", b, err)
		}
		if _, err := wt.Commit("work on "+b, &git.CommitOptions{Author: sig, Committer: sig, AllowEmptyCommits: true}); err != nil {
			t.Fatalf("Commit %s: %v", b, err)
		}
	}

	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remoteDir}}); err != nil {
		t.Fatalf("CreateRemote: %v", err)
	}
	if err := repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{"refs/heads/*:refs/heads/*"},
	}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	return remoteDir
}

func testConfig(remote string) Config {
	return Config{
		RemoteURL: remote,
		Identity:  Identity{Name: "gitsim-bot", Email: "bot@example.com"},
		Seed:      DefaultSeed,
	}
}

func newTestSession(t *testing.T, cfg Config, opts ...Option) *Session {
	t.Helper()
	ctx := context.Background()

	base := []Option{
		WithTempRoot(t.TempDir()),
		WithClock(func() time.Time { return fixedTime }),
	}
	s, err := New(ctx, cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s
}

// script is a chooser that replays fixed IntN answers.
type script struct {
	t    *testing.T
	ints []int
	u32  uint32
	u64  uint64
}

func (s *script) IntN(n int) int {
	s.t.Helper()
	if len(s.ints) == 0 {
		s.t.Fatalf("script exhausted drawing IntN(%d)", n)
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v < 0 || v >= n {
		s.t.Fatalf("scripted value %d out of range for IntN(%d)", v, n)
	}
	return v
}

func (s *script) Uint32() uint32 { return s.u32 }
func (s *script) Uint64() uint64 { return s.u64 }

func (s *script) push(ints ...int) {
	s.ints = append(s.ints, ints...)
}

func scripted(t *testing.T, sess *Session) *script {
	sc := &script{t: t, u32: 0xabc, u64: 42}
	sess.rng = sc
	return sc
}

func refHash(t *testing.T, repo *git.Repository, name plumbing.ReferenceName) plumbing.Hash {
	t.Helper()
	ref, err := repo.Reference(name, true)
	if err != nil {
		t.Fatalf("Reference(%s): %v", name, err)
	}
	return ref.Hash()
}

func openRemote(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	return repo
}

func describe(out *Outcome) string {
	if out == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s created=%t commits=%d pushed=%t", out.Action, out.Branch, out.Created, out.Commits, out.Pushed)
}
