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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSources_GitRepository(t *testing.T) {
	root := t.TempDir()
	repo := initRepo(t, root)

	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/mono\n")
	writeFile(t, filepath.Join(root, ".gitignore"), "*.log\ntarget/\n")
	writePackage(t, filepath.Join(root, "api"), "api")
	writeFile(t, filepath.Join(root, "api", "internal", "handler.go"), "package internal\n")
	writeFile(t, filepath.Join(root, "api", "docs", "guide.md"), "# guide\n")
	writeFile(t, filepath.Join(root, "api", "removed.go"), "package api\n")
	writePackage(t, filepath.Join(root, "api", "plugins", "auth"), "auth")
	writePackage(t, filepath.Join(root, "worker"), "worker")
	commitAll(t, repo)

	// Deleted but tracked, untracked, ignored and build output files.
	require.NoError(t, os.Remove(filepath.Join(root, "api", "removed.go")))
	writeFile(t, filepath.Join(root, "api", "new.go"), "package api\n")
	writeFile(t, filepath.Join(root, "api", "debug.log"), "noise\n")
	writeFile(t, filepath.Join(root, "target", "api", "bin"), "binary\n")

	ws, err := Load(context.Background(), root, "target")
	require.NoError(t, err)

	api, ok := ws.Get("api")
	require.True(t, ok)
	api.Manifest.Sources.Exclude = []string{"docs/**"}

	files, err := ws.Sources(context.Background(), api)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cmd/api/main.go",
		"dist.yaml",
		"internal/handler.go",
		"new.go",
	}, files)
}

func TestSources_PackageAtRepositoryRoot(t *testing.T) {
	root := t.TempDir()
	repo := initRepo(t, root)
	writePackage(t, root, "solo")
	writeFile(t, filepath.Join(root, "README.md"), "solo\n")
	commitAll(t, repo)

	ws, err := Load(context.Background(), root)
	require.NoError(t, err)

	files, err := ws.Sources(context.Background(), ws.Packages[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "cmd/solo/main.go", "dist.yaml"}, files)
}

func TestSources_WithoutGit(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "plain")
	writeFile(t, filepath.Join(root, ".hidden", "secret"), "x")
	writeFile(t, filepath.Join(root, "testdata", "fixture.json"), "{}")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")

	ws, err := Load(context.Background(), root)
	require.NoError(t, err)

	pkg := ws.Packages[0]
	pkg.Manifest.Sources.Exclude = []string{"*.txt"}

	files, err := ws.Sources(context.Background(), pkg)
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd/plain/main.go", "dist.yaml", "testdata/fixture.json"}, files)
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		file     string
		patterns []string
		want     bool
	}{
		{file: "docs/a/b.md", patterns: []string{"docs/**"}, want: true},
		{file: "docsx/a.md", patterns: []string{"docs/**"}, want: false},
		{file: "internal/x_test.go", patterns: []string{"*_test.go"}, want: true},
		{file: "internal/x.go", patterns: []string{"internal/*.go"}, want: true},
		{file: "internal/x.go", patterns: []string{"cmd/*.go"}, want: false},
		{file: "x.go", patterns: nil, want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesAny(tt.file, tt.patterns), "%s %v", tt.file, tt.patterns)
	}
}
