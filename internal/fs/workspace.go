// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

// Package fs scopes filesystem paths to the configured root directory.
// Session working directories and quick-access directories are validated
// here so a remote client can never point a shell outside the root.
package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// Workspace provides scoped directory resolution under a root path.
type Workspace struct {
	root string
}

// NewWorkspace creates a workspace rooted at the given path.
func NewWorkspace(root string) *Workspace {
	// Resolve symlinks in root to ensure consistent path comparisons
	// (e.g., on macOS /var -> /private/var)
	absRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		absRoot, _ = filepath.Abs(root)
	}
	return &Workspace{root: absRoot}
}

// Root returns the workspace root path.
func (w *Workspace) Root() string {
	return w.root
}

// ResolveDir validates a requested working directory. It returns the resolved
// absolute path when the path is an existing directory inside the root;
// anything else (empty, missing, traversal, symlink escape, not a directory)
// falls back to the root itself.
func (w *Workspace) ResolveDir(path string) string {
	if path == "" {
		return w.root
	}
	if strings.Contains(path, "..") {
		return w.root
	}

	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(w.root, cleaned)
	}

	// Resolve symlinks to prevent symlink-based escapes
	resolved, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		return w.root
	}

	if !w.Contains(resolved) {
		return w.root
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return w.root
	}
	return resolved
}

// Contains reports whether the given resolved path lies inside the root.
func (w *Workspace) Contains(path string) bool {
	if path == w.root {
		return true
	}
	return strings.HasPrefix(path, w.root+string(filepath.Separator)) || w.root == "/"
}

// FilterDirs returns the subset of the given directories that resolve to
// existing directories inside the root. Used for the quick-access list.
func (w *Workspace) FilterDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		resolved := w.ResolveDir(d)
		if resolved == w.root && filepath.Clean(d) != w.root {
			continue
		}
		out = append(out, resolved)
	}
	return out
}
