/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/gitsim/metrics"
	"chainguard.dev/gitsim/retry"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("chainguard.dev/gitsim/simulator")

// Action is what a tick decided to do.
type Action string

const (
	ActionReuseBranch Action = "reuse-branch"
	ActionNewBranch   Action = "new-branch"
	ActionIdle        Action = "idle"
)

// actions is indexed by the first draw of every tick.
var actions = [...]Action{ActionReuseBranch, ActionNewBranch, ActionIdle}

// commitPlan is indexed by the commit draw. A draw that adds no commits also
// skips the push.
var commitPlan = [...]int{1, 2, 0}

// Outcome describes what a tick did. It is returned even when the tick fails
// part way, reflecting the work done before the failure.
type Outcome struct {
	Action  Action
	Branch  string
	Created bool
	Commits int
	Hashes  []plumbing.Hash
	Pushed  bool
}

// Tick performs one randomized activity step.
func (s *Session) Tick(ctx context.Context) (out *Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return nil, ErrClosed
	}

	ctx, span := tracer.Start(ctx, "gitsim.Tick")
	defer func() {
		if out != nil {
			span.SetAttributes(
				attribute.String("gitsim.action", string(out.Action)),
				attribute.String("gitsim.branch", out.Branch),
				attribute.Int("gitsim.commits", out.Commits),
				attribute.Bool("gitsim.pushed", out.Pushed),
			)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := clog.FromContext(ctx)

	out = &Outcome{Action: actions[s.rng.IntN(len(actions))]}
	s.metrics.RecordTick(string(out.Action))

	var branch plumbing.ReferenceName
	switch out.Action {
	case ActionReuseBranch:
		branch, err = s.pickExistingBranch(ctx)
	case ActionNewBranch:
		branch, err = s.createBranch(ctx)
		out.Created = err == nil
	default:
		log.Info("Watching YouTube videos")
		return out, nil
	}
	if err != nil {
		s.metrics.RecordTickError(StageSelect)
		return out, fmt.Errorf("choosing branch: %w", err)
	}
	out.Branch = branch.Short()

	wt, err := s.repo.Worktree()
	if err != nil {
		s.metrics.RecordTickError(StageCheckout)
		return out, fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branch, Force: true}); err != nil {
		s.metrics.RecordTickError(StageCheckout)
		return out, fmt.Errorf("checking out %s: %w", out.Branch, err)
	}
	log.Infof("Checked branch %s out", out.Branch)

	n := commitPlan[s.rng.IntN(len(commitPlan))]
	if n == 0 {
		log.Info("Coffee time.")
		return out, nil
	}

	for range n {
		hash, err := s.commit(ctx, wt)
		if err != nil {
			s.metrics.RecordCommits(out.Commits)
			s.metrics.RecordTickError(StageCommit)
			return out, fmt.Errorf("committing on %s: %w", out.Branch, err)
		}
		out.Hashes = append(out.Hashes, hash)
		out.Commits++
		log.Info("Added one commit")
	}
	s.metrics.RecordCommits(out.Commits)

	if err := s.push(ctx, branch, out.Commits); err != nil {
		s.metrics.RecordPush(ctx, metrics.PushFailed, out.Commits)
		s.metrics.RecordTickError(StagePush)
		return out, fmt.Errorf("pushing %s: %w", out.Branch, err)
	}
	out.Pushed = true
	return out, nil
}

func (s *Session) commit(ctx context.Context, wt *git.Worktree) (plumbing.Hash, error) {
	if s.cfg.Content == ContentFiles {
		if err := s.mutate(ctx, wt); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("changing content: %w", err)
		}
	}

	sig := &object.Signature{
		Name:  s.cfg.Identity.Name,
		Email: s.cfg.Identity.Email,
		When:  s.now(),
	}
	return wt.Commit(s.cfg.CommitMessage, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
		Signer:            s.signer,
	})
}

func (s *Session) push(ctx context.Context, branch plumbing.ReferenceName, commits int) error {
	log := clog.FromContext(ctx)

	auth, err := s.creds.AuthFor(ctx, s.cfg.RemoteURL)
	if err != nil {
		return fmt.Errorf("resolving credentials: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", branch, branch))
	err = retry.Run(ctx, s.cfg.Retry, "push", retry.Transient, func(ctx context.Context) error {
		return s.repo.PushContext(ctx, &git.PushOptions{
			RemoteName: RemoteName,
			RefSpecs:   []gitconfig.RefSpec{refSpec},
			Auth:       auth,
		})
	})
	switch {
	case err == nil:
		s.metrics.RecordPush(ctx, metrics.PushOK, commits)
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		s.metrics.RecordPush(ctx, metrics.PushUpToDate, 0)
		log.Infof("Branch %s already up to date", branch.Short())
		return nil
	default:
		return err
	}

	log.Infof("Pushed branch %s", branch.Short())
	return nil
}
