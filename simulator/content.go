/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package simulator

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
)

type mutation int

const (
	mutateCreate mutation = iota
	mutateAlter
	mutateDrop
)

// mutate applies one random change to the worktree and stages it.
func (s *Session) mutate(ctx context.Context, wt *git.Worktree) error {
	files, err := listFiles(wt.Filesystem, "")
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	op := mutation(s.rng.IntN(3))
	if len(files) == 0 {
		op = mutateCreate
	}

	log := clog.FromContext(ctx)
	switch op {
	case mutateCreate:
		name := s.newFileName()
		if !isWithin(name) {
			return fmt.Errorf("path %q escapes worktree", name)
		}
		if err := util.WriteFile(wt.Filesystem, name, s.contentLine(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			return fmt.Errorf("staging %s: %w", name, err)
		}
		log.Debugf("Created file %s", name)

	case mutateAlter:
		name := files[s.rng.IntN(len(files))]
		if !isWithin(name) {
			return fmt.Errorf("path %q escapes worktree", name)
		}
		if err := appendFile(wt.Filesystem, name, s.contentLine()); err != nil {
			return fmt.Errorf("altering %s: %w", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			return fmt.Errorf("staging %s: %w", name, err)
		}
		log.Debugf("Altered file %s", name)

	case mutateDrop:
		name := files[s.rng.IntN(len(files))]
		if !isWithin(name) {
			return fmt.Errorf("path %q escapes worktree", name)
		}
		// Remove deletes the file and stages the deletion.
		if _, err := wt.Remove(name); err != nil {
			return fmt.Errorf("dropping %s: %w", name, err)
		}
		log.Debugf("Dropped file %s", name)
	}
	return nil
}

// newFileName picks a path at the root or one or two folders deep.
func (s *Session) newFileName() string {
	base := fmt.Sprintf("activity-%08x.txt", s.rng.Uint32())
	switch depth := s.rng.IntN(3); depth {
	case 0:
		return base
	case 1:
		return path.Join("activity", base)
	default:
		return path.Join("activity", fmt.Sprintf("%02d", s.rng.IntN(16)), base)
	}
}

func (s *Session) contentLine() []byte {
	return fmt.Appendf(nil, "%s %016x\n", s.now().UTC().Format(time.RFC3339), s.rng.Uint64())
}

func appendFile(fs billy.Filesystem, name string, data []byte) error {
	f, err := fs.OpenFile(name, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// listFiles returns the slash-separated paths of regular files under dir,
// sorted, skipping the .git directory.
func listFiles(fs billy.Filesystem, dir string) ([]string, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if dir == "" && name == git.GitDirName {
			continue
		}
		p := path.Join(dir, name)
		switch {
		case e.IsDir():
			sub, err := listFiles(fs, p)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		case e.Mode().IsRegular():
			files = append(files, p)
		}
	}

	sort.Strings(files)
	return files, nil
}

// isWithin reports whether a slash path stays inside the worktree root.
func isWithin(p string) bool {
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../") && !path.IsAbs(clean) &&
		clean != git.GitDirName && !strings.HasPrefix(clean, git.GitDirName+"/")
}
