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

package docker

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cowdogmoo/monodist/compiler"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/workspace"
	"github.com/stretchr/testify/require"
)

// fakeCompiler writes a small executable per binary instead of compiling.
type fakeCompiler struct {
	requests []compiler.Request
	err      error
}

func (c *fakeCompiler) Compile(_ context.Context, req compiler.Request) ([]compiler.Artifact, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, err
	}

	var artifacts []compiler.Artifact
	for _, bin := range req.Package.Manifest.Binaries {
		out := filepath.Join(req.OutputDir, bin.Name)
		if err := os.WriteFile(out, []byte("#!/bin/sh\necho "+bin.Name+"\n"), 0o755); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, compiler.Artifact{Name: bin.Name, Path: out})
	}
	return artifacts, nil
}

// withHostOS overrides the host operating system for one test.
func withHostOS(t *testing.T, goos string) {
	t.Helper()
	orig := hostOS
	hostOS = goos
	t.Cleanup(func() { hostOS = orig })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testMetadata() *workspace.TargetMetadata {
	return &workspace.TargetMetadata{
		Base:        "alpine:3.20",
		CopyDestDir: "/usr/local/bin",
	}
}

func testPackage(root string, meta *workspace.TargetMetadata) *workspace.Package {
	return &workspace.Package{
		Root:         root,
		ManifestPath: filepath.Join(root, workspace.ManifestFileName),
		Manifest: &workspace.Manifest{
			Name:     "api",
			Version:  "1.2.3",
			Binaries: []workspace.Binary{{Name: "api", Path: "./cmd/api"}, {Name: "migrate", Path: "./cmd/migrate"}},
			Docker:   meta,
		},
	}
}

// quietContext carries a logger that discards everything.
func quietContext() context.Context {
	l := logging.NewCustomLoggerWithOptions("error", "plain", true, false)
	l.Console = nil
	l.Out = nil
	return logging.WithLogger(context.Background(), l)
}

// bufferedContext carries a plain debug logger writing into the returned buffer.
func bufferedContext() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logging.NewCustomLoggerWithOptions("debug", "plain", false, false)
	l.Console = &buf
	l.Out = &buf
	return logging.WithLogger(context.Background(), l), &buf
}
