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

// Package workspace finds the packages of a Go workspace that declare a
// dist.yaml manifest, and lists the files that belong to each of them.
package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// rootMarkers identify a workspace root, in order of preference.
var rootMarkers = []string{"go.work", "go.mod"}

// skippedDirs are never searched for manifests or sources.
var skippedDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
}

// Package is one distributable package.
type Package struct {
	// Root is the absolute directory holding the manifest.
	Root string
	// ManifestPath is the absolute path of dist.yaml.
	ManifestPath string
	Manifest     *Manifest
}

// Name returns the package name.
func (p *Package) Name() string {
	return p.Manifest.Name
}

// Version returns the package version.
func (p *Package) Version() string {
	return p.Manifest.Version
}

// String returns "name@version".
func (p *Package) String() string {
	return p.Manifest.Name + "@" + p.Manifest.Version
}

// Workspace is a set of packages under a common root.
type Workspace struct {
	Root     string
	Packages []*Package
	// ignored holds absolute directories excluded from discovery and
	// source listing, such as the build output directory.
	ignored []string
}

// FindRoot walks up from start to the nearest directory containing go.work,
// falling back to the nearest go.mod.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrap("resolve workspace directory", start, err)
	}

	for _, marker := range rootMarkers {
		for dir := abs; ; dir = filepath.Dir(dir) {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
			if parent := filepath.Dir(dir); parent == dir {
				break
			}
		}
	}

	return "", errors.New(errors.ConfigError, "failed to find the workspace root").
		WithExplanation("No go.work or go.mod file was found in %s or any of its parents.", abs)
}

// Load discovers every dist.yaml under root. Directories listed in ignore
// (absolute, or relative to root) are skipped.
func Load(ctx context.Context, root string, ignore ...string) (*Workspace, error) {
	ws := &Workspace{Root: root}
	for _, dir := range ignore {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		ws.ignored = append(ws.ignored, filepath.Clean(dir))
	}

	byName := make(map[string]*Package)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && ws.skipDir(path, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() != ManifestFileName {
			return nil
		}

		m, err := LoadManifest(path)
		if err != nil {
			return err
		}

		if other, ok := byName[m.Name]; ok {
			return errors.Newf(errors.ConfigError, "duplicate package name %q", m.Name).
				WithExplanation("Both %s and %s declare it.", other.ManifestPath, path)
		}

		pkg := &Package{Root: filepath.Dir(path), ManifestPath: path, Manifest: m}
		byName[m.Name] = pkg
		ws.Packages = append(ws.Packages, pkg)
		logging.DebugContext(ctx, "Found package %s in %s", pkg, pkg.Root)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(ws.Packages, func(i, j int) bool {
		return ws.Packages[i].Name() < ws.Packages[j].Name()
	})

	return ws, nil
}

func (ws *Workspace) skipDir(path, name string) bool {
	if skippedDirs[name] || strings.HasPrefix(name, ".") {
		return true
	}
	for _, dir := range ws.ignored {
		if path == dir {
			return true
		}
	}
	return false
}

// Get returns the package with the given name.
func (ws *Workspace) Get(name string) (*Package, bool) {
	for _, p := range ws.Packages {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Select returns the named packages, or every package when names is empty.
// Unknown names produce a ConfigError with close matches as suggestions.
func (ws *Workspace) Select(names []string) ([]*Package, error) {
	if len(names) == 0 {
		return ws.Packages, nil
	}

	selected := make([]*Package, 0, len(names))
	for _, name := range names {
		pkg, ok := ws.Get(name)
		if !ok {
			err := errors.Newf(errors.ConfigError, "unknown package %q", name)
			if suggestions := ws.Suggest(name); len(suggestions) > 0 {
				err = err.WithExplanation("Did you mean: %s?", strings.Join(suggestions, ", "))
			}
			return nil, err
		}
		selected = append(selected, pkg)
	}

	return selected, nil
}

// Suggest returns package names close to name, best match first.
func (ws *Workspace) Suggest(name string) []string {
	candidates := make([]string, len(ws.Packages))
	for i, p := range ws.Packages {
		candidates[i] = p.Name()
	}

	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	// Also consider candidates contained in the query, e.g. "apiserver" for "api".
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(name), strings.ToLower(c)) && !ranked(ranks, c) {
			ranks = append(ranks, fuzzy.Rank{Source: name, Target: c, Distance: len(name) - len(c)})
		}
	}
	sort.Sort(ranks)

	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return out
}

func ranked(ranks fuzzy.Ranks, target string) bool {
	for _, r := range ranks {
		if r.Target == target {
			return true
		}
	}
	return false
}

// nestedRoots returns the roots of other packages located inside pkg.
func (ws *Workspace) nestedRoots(pkg *Package) []string {
	var roots []string
	for _, other := range ws.Packages {
		if other == pkg {
			continue
		}
		if rel, err := filepath.Rel(pkg.Root, other.Root); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			roots = append(roots, filepath.ToSlash(rel))
		}
	}
	return roots
}
