/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cleanup removes scratch directory trees on a best-effort basis.
//
// Removal never fails the caller: entries that cannot be deleted, typically
// because another process (an indexer, antivirus, an editor) still holds a
// handle on them, are logged and skipped. Before each entry is removed its
// permissions are widened so read-only files and directories do not block the
// walk.
package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Report summarizes a RemoveAll call.
type Report struct {
	// Removed counts files and directories that were deleted.
	Removed int
	// Failed counts entries that could not be deleted.
	Failed int
	// Missing is set when the target did not exist.
	Missing bool
}

// RemoveAll deletes path and everything beneath it, depth first. Files in a
// directory go first, then its subdirectories, then the directory itself.
func RemoveAll(ctx context.Context, path string) Report {
	if path == "" {
		clog.FromContext(ctx).Warn("Refusing to remove an empty path")
		return Report{Missing: true}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	return RemoveAllFS(ctx, osfs.New(filepath.Dir(abs)), filepath.Base(abs))
}

// RemoveAllFS is RemoveAll over an arbitrary billy filesystem, with name
// relative to its root.
func RemoveAllFS(ctx context.Context, bfs billy.Filesystem, name string) Report {
	var r Report

	if _, err := bfs.Lstat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			clog.FromContext(ctx).Infof("Directory %q is missing and can't be removed.", displayPath(bfs, name))
			r.Missing = true
			return r
		}
		clog.FromContext(ctx).Warnf("Unable to stat %q: %v", displayPath(bfs, name), err)
		r.Failed++
		return r
	}

	removeDir(ctx, bfs, name, &r)
	return r
}

func removeDir(ctx context.Context, bfs billy.Filesystem, dir string, r *Report) {
	log := clog.FromContext(ctx)

	makeWritable(bfs, dir, true, 0)

	entries, err := bfs.ReadDir(dir)
	if err != nil {
		log.Warnf("Unable to list %q: %v", displayPath(bfs, dir), err)
	}

	var subdirs []string
	for _, e := range entries {
		p := bfs.Join(dir, e.Name())
		if e.IsDir() {
			subdirs = append(subdirs, p)
			continue
		}
		makeWritable(bfs, p, false, e.Mode())
		if err := bfs.Remove(p); err != nil {
			log.Warnf("Unable to remove file %q: %v", displayPath(bfs, p), err)
			r.Failed++
			continue
		}
		r.Removed++
	}

	for _, sub := range subdirs {
		removeDir(ctx, bfs, sub, r)
	}

	if err := bfs.Remove(dir); err != nil {
		log.Warnf("The directory %q could not be deleted: %v. "+
			"This is usually caused by an external process (search indexer, antivirus) "+
			"keeping a handle on files inside it.", displayPath(bfs, dir), err)
		r.Failed++
		return
	}
	r.Removed++
}

// makeWritable restores owner write access on p when the filesystem supports
// permission changes. Symlinks are left alone.
func makeWritable(bfs billy.Filesystem, p string, isDir bool, mode os.FileMode) {
	ch, ok := bfs.(billy.Change)
	if !ok || mode&os.ModeSymlink != 0 {
		return
	}
	if isDir {
		_ = ch.Chmod(p, 0o700)
		return
	}
	_ = ch.Chmod(p, mode.Perm()|0o600)
}

func displayPath(bfs billy.Filesystem, name string) string {
	return filepath.Join(bfs.Root(), name)
}
