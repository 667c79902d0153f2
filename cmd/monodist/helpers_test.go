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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cowdogmoo/monodist/config"
	"github.com/cowdogmoo/monodist/registry"
	"github.com/cowdogmoo/monodist/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testRegistry = "550877636976.dkr.ecr.ca-central-1.amazonaws.com"

// commandResult holds what a CLI invocation printed.
type commandResult struct {
	stdout string
	stderr string
	err    error
}

// executeCommand runs the root command with args against a clean flag set,
// an isolated home directory and cache.
func executeCommand(t *testing.T, args ...string) commandResult {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	if os.Getenv("MONODIST_CACHE_DIR") == "" {
		t.Setenv("MONODIST_CACHE_DIR", filepath.Join(home, "cache"))
	}
	resetCommands(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(os.Stdout)
		rootCmd.SetErr(os.Stderr)
		rootCmd.SetArgs(nil)
	})

	err := ExecuteContext(context.Background())
	return commandResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// resetCommands restores every flag to its default and drops the context
// left behind by a previous execution.
func resetCommands(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	cmd.SetContext(context.Background())

	for _, child := range cmd.Commands() {
		resetCommands(child)
	}
}

// withRunner makes every command use r.
func withRunner(t *testing.T, r runner.Runner) {
	t.Helper()
	orig := newRunner
	newRunner = func() runner.Runner { return r }
	t.Cleanup(func() { newRunner = orig })
}

// withProviders makes every command use ps.
func withProviders(t *testing.T, ps registry.Providers) {
	t.Helper()
	orig := newProviders
	newProviders = func(*config.Config) registry.Providers { return ps }
	t.Cleanup(func() { newProviders = orig })
}

// toolHandler fakes go and docker. `go build -o out` writes out, and
// `docker pull` exits with pullStatus.
func toolHandler(pullStatus int) func(runner.Command) (*runner.Result, error) {
	return func(cmd runner.Command) (*runner.Result, error) {
		switch {
		case cmd.Program == "go" && len(cmd.Args) > 2 && cmd.Args[0] == "build":
			out := cmd.Args[2]
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(out, []byte("binary"), 0o755); err != nil {
				return nil, err
			}
		case cmd.Args[0] == "pull":
			return &runner.Result{ExitStatus: pullStatus, Stderr: "manifest unknown"}, nil
		}
		return &runner.Result{}, nil
	}
}

// newWorkspace creates a workspace with a docker package "api" pushed to
// testRegistry and a library package "worker" without a docker section.
func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/mono\n")
	writeFile(t, filepath.Join(root, "services", "api", "dist.yaml"), `name: api
version: 1.0.0
binaries:
  - name: api
    path: ./cmd/api
docker:
  base: alpine:3.20
  copy_dest_dir: /usr/local/bin
  registry: `+testRegistry+`
`)
	writeFile(t, filepath.Join(root, "services", "api", "cmd", "api", "main.go"), "package main\n\nfunc main() {}\n")
	writeFile(t, filepath.Join(root, "services", "worker", "dist.yaml"), `name: worker
version: 0.3.0
binaries:
  - name: worker
    path: ./cmd/worker
`)
	writeFile(t, filepath.Join(root, "services", "worker", "cmd", "worker", "main.go"), "package main\n\nfunc main() {}\n")

	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// mockRepository records Ensure calls.
type mockRepository struct {
	mu      sync.Mutex
	name    string
	ensured []string
}

func (r *mockRepository) String() string { return r.name }

func (r *mockRepository) Ensure(_ context.Context, packageName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensured = append(r.ensured, packageName)
	return nil
}

// mockProvider matches every repository under its prefix.
type mockProvider struct {
	prefix string
	repo   *mockRepository
}

func (p *mockProvider) Name() string { return registry.ECRProviderName }

func (p *mockProvider) Match(repository string) (registry.Repository, bool) {
	if !strings.HasPrefix(repository, p.prefix) {
		return nil, false
	}
	p.repo.name = repository
	return p.repo, true
}
