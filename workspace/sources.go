/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package workspace

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/go-git/go-git/v5"
)

// Sources lists the files belonging to pkg, as slash-separated paths
// relative to the package root, sorted.
//
// Inside a git repository these are the files tracked in the index that
// still exist on disk plus untracked files that are not ignored. Outside a
// repository every regular file is listed, hidden directories excluded.
// Files of nested packages, ignored directories and the manifest's
// `sources.exclude` patterns are always left out. The manifest itself is
// listed like any other file.
func (ws *Workspace) Sources(ctx context.Context, pkg *Package) ([]string, error) {
	files, err := gitSources(ctx, pkg.Root)
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		logging.DebugContext(ctx, "%s is not in a git repository, listing files from disk", pkg.Root)
		files, err = diskSources(ctx, pkg.Root)
	}
	if err != nil {
		return nil, errors.New(errors.IoError, "failed to list package sources").
			WithCause(err).
			WithExplanation("Could not enumerate the files of package %s in %s.", pkg.Name(), pkg.Root)
	}

	excluded := ws.nestedRoots(pkg)
	for _, dir := range ws.ignored {
		if rel, err := filepath.Rel(pkg.Root, dir); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			excluded = append(excluded, filepath.ToSlash(rel))
		}
	}

	kept := files[:0]
	for _, f := range files {
		if underAny(f, excluded) || matchesAny(f, pkg.Manifest.Sources.Exclude) {
			continue
		}
		kept = append(kept, f)
	}

	sort.Strings(kept)
	return kept, nil
}

func gitSources(ctx context.Context, root string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	repoRoot := wt.Filesystem.Root()
	prefix, err := filepath.Rel(repoRoot, root)
	if err != nil {
		return nil, err
	}
	prefix = filepath.ToSlash(prefix)

	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	add := func(name string) {
		rel, ok := relativeTo(prefix, name)
		if !ok || seen[rel] {
			return
		}
		seen[rel] = true
		files = append(files, rel)
	}

	for _, entry := range idx.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Deleted but not yet staged.
		if _, err := os.Lstat(filepath.Join(repoRoot, filepath.FromSlash(entry.Name))); err != nil {
			continue
		}
		add(entry.Name)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	for name, st := range status {
		if st.Worktree == git.Untracked {
			add(name)
		}
	}

	return files, nil
}

func relativeTo(prefix, name string) (string, bool) {
	if prefix == "." || prefix == "" {
		return name, true
	}
	if !strings.HasPrefix(name, prefix+"/") {
		return "", false
	}
	return strings.TrimPrefix(name, prefix+"/"), true
}

func diskSources(ctx context.Context, root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if p != root && d.Name() != "testdata" && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})

	return files, err
}

func underAny(file string, dirs []string) bool {
	for _, dir := range dirs {
		if file == dir || strings.HasPrefix(file, dir+"/") {
			return true
		}
	}
	return false
}

func matchesAny(file string, patterns []string) bool {
	for _, pattern := range patterns {
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			if file == dir || strings.HasPrefix(file, dir+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, file); ok {
			return true
		}
		// Patterns without a slash also match base names, like .gitignore.
		if !strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, path.Base(file)); ok {
				return true
			}
		}
	}
	return false
}
