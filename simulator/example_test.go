/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chainguard.dev/gitsim/simulator"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func ExampleSession_Tick() {
	ctx := context.Background()

	remote, cleanup, err := exampleRemote()
	if err != nil {
		fmt.Println("error creating remote:", err)
		return
	}
	defer cleanup()

	sess, err := simulator.New(ctx, simulator.Config{
		RemoteURL: remote,
		Identity:  simulator.Identity{Name: "activity-bot", Email: "bot@example.com"},
		Seed:      simulator.DefaultSeed,
	})
	if err != nil {
		fmt.Println("error starting session:", err)
		return
	}
	defer sess.Close(ctx)

	failures := 0
	for range 10 {
		if _, err := sess.Tick(ctx); err != nil {
			failures++
		}
	}
	fmt.Println("failed ticks:", failures)

	dir := sess.Dir()
	if err := sess.Close(ctx); err != nil {
		fmt.Println("close error:", err)
		return
	}
	_, err = os.Stat(dir)
	fmt.Println("working copy removed:", os.IsNotExist(err))

	// Output:
	// failed ticks: 0
	// working copy removed: true
}

// exampleRemote builds a bare repository with a single commit on main.
func exampleRemote() (string, func(), error) {
	root, err := os.MkdirTemp("", "gitsim-example-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(root) }

	remote := filepath.Join(root, "remote.git")
	if _, err := git.PlainInit(remote, true); err != nil {
		cleanup()
		return "", nil, err
	}

	seed := filepath.Join(root, "seed")
	repo, err := git.PlainInit(seed, false)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		cleanup()
		return "", nil, err
	}
	sig := &object.Signature{Name: "Example", Email: "example@example.com", When: time.Now()}
	if _, err := wt.Commit("initial", &git.CommitOptions{Author: sig, AllowEmptyCommits: true}); err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remote}}); err != nil {
		cleanup()
		return "", nil, err
	}
	if err := repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{"refs/heads/*:refs/heads/*"},
	}); err != nil {
		cleanup()
		return "", nil, err
	}
	return remote, cleanup, nil
}
