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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cowdogmoo/monodist/compiler"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/fingerprint"
	"github.com/cowdogmoo/monodist/registry"
	"github.com/cowdogmoo/monodist/runner"
	"github.com/cowdogmoo/monodist/workspace"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type targetFixture struct {
	root     string
	pkg      *workspace.Package
	runner   *runner.Fake
	compiler *fakeCompiler
	provider *mockProvider
	opts     Options
}

func newTargetFixture(t *testing.T) *targetFixture {
	t.Helper()
	withHostOS(t, "linux")

	root := t.TempDir()
	meta := testMetadata()
	meta.TargetRuntime = "linux/arm64"

	return &targetFixture{
		root:     root,
		pkg:      testPackage(filepath.Join(root, "services", "api"), meta),
		runner:   &runner.Fake{Handler: dockerHandler(1)},
		compiler: &fakeCompiler{},
		provider: &mockProvider{},
		opts: Options{
			Profile:         compiler.Release,
			OutputRoot:      filepath.Join(root, "target"),
			DefaultRegistry: "registry.example.com/team",
		},
	}
}

func (f *targetFixture) target(t *testing.T) *DistTarget {
	t.Helper()
	target, err := NewDistTarget(f.pkg, f.opts, Dependencies{
		Runner:    f.runner,
		Compiler:  f.compiler,
		Providers: registry.Providers{f.provider},
		GitInfo: func(context.Context, string) workspace.GitInfo {
			return workspace.GitInfo{Revision: "abc123"}
		},
		Now: func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	return target
}

func TestNewDistTarget(t *testing.T) {
	f := newTargetFixture(t)
	target := f.target(t)

	assert.Equal(t, "docker[api]", target.String())
	assert.Equal(t, ocispec.Platform{OS: "linux", Architecture: "arm64"}, target.Platform)
	assert.Equal(t, filepath.Join(f.root, "target", "release", "docker", "api"), target.StagingRoot())
	assert.Equal(t, filepath.Join(f.root, "target", "release", "bin", "linux-arm64", "api"), target.BinaryDir())
	assert.Equal(t, fingerprint.Key{Package: "api", Version: "1.2.3", Profile: "release", Platform: "linux/arm64"}, target.CacheKey())
}

func TestNewDistTarget_NotADockerTarget(t *testing.T) {
	pkg := testPackage(t.TempDir(), nil)
	_, err := NewDistTarget(pkg, Options{}, Dependencies{Runner: &runner.Fake{}})
	require.Error(t, err)
	assert.Equal(t, errors.ConfigError, errors.KindOf(err))
}

func TestDistTarget_ImageName(t *testing.T) {
	tests := []struct {
		name            string
		targetRegistry  string
		defaultRegistry string
		want            string
		wantErr         string
	}{
		{name: "target registry wins", targetRegistry: "ghcr.io/example", defaultRegistry: "registry.example.com", want: "ghcr.io/example/api:1.2.3"},
		{name: "default registry", defaultRegistry: "registry.example.com/team", want: "registry.example.com/team/api:1.2.3"},
		{name: "trailing slash", defaultRegistry: "registry.example.com/", want: "registry.example.com/api:1.2.3"},
		{name: "no registry", wantErr: "failed to determine Docker registry"},
		{name: "invalid registry", targetRegistry: "Registry With Spaces", wantErr: "invalid Docker image name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTargetFixture(t)
			f.pkg.Manifest.Docker.Registry = tt.targetRegistry
			f.opts.DefaultRegistry = tt.defaultRegistry
			target := f.target(t)

			got, err := target.ImageName()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, errors.ConfigError, errors.KindOf(err))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := target.ImageName()
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestDistTarget_ImageNameMissingRegistryMentionsEnvVar(t *testing.T) {
	f := newTargetFixture(t)
	f.opts.DefaultRegistry = ""

	_, err := f.target(t).ImageName()
	require.Error(t, err)
	assert.Contains(t, errors.Report(err), "MONODIST_DOCKER_REGISTRY")
}

func TestDistTarget_Build(t *testing.T) {
	f := newTargetFixture(t)
	target := f.target(t)

	got, err := target.Build(quietContext())
	require.NoError(t, err)
	assert.Equal(t, Built, got)

	require.Len(t, f.compiler.requests, 1)
	assert.Equal(t, ocispec.Platform{OS: "linux", Architecture: "arm64"}, f.compiler.requests[0].Platform)

	require.Len(t, f.runner.Calls, 1)
	call := f.runner.Calls[0].Command
	assert.Equal(t, target.StagingRoot(), call.Dir)
	assert.Equal(t, "build", call.Args[0])
	assert.Equal(t, []string{"-t", "registry.example.com/team/api:1.2.3"}, call.Args[1:3])
	assert.Contains(t, call.Args, "org.opencontainers.image.revision=abc123")
	assert.Contains(t, call.Args, "org.opencontainers.image.created=2025-01-02T03:04:05Z")
	assert.Equal(t, ".", call.Args[len(call.Args)-1])

	assert.FileExists(t, filepath.Join(target.StagingRoot(), DockerfileName))
	assert.FileExists(t, filepath.Join(target.StagingRoot(), "usr", "local", "bin", "api"))
}

func TestDistTarget_BuildTwiceRecreatesStagingRoot(t *testing.T) {
	f := newTargetFixture(t)
	target := f.target(t)

	_, err := target.Build(quietContext())
	require.NoError(t, err)
	writeFile(t, filepath.Join(target.StagingRoot(), "leftover"), "x")

	_, err = target.Build(quietContext())
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(target.StagingRoot(), "leftover"))
}

func TestDistTarget_BuildUnsupportedOnWindows(t *testing.T) {
	f := newTargetFixture(t)
	target := f.target(t)
	withHostOS(t, "windows")

	got, err := target.Build(quietContext())
	require.NoError(t, err)
	assert.Equal(t, Unsupported, got)
	assert.Empty(t, f.runner.Calls)
	assert.Empty(t, f.compiler.requests)
}

func TestDistTarget_BuildWithoutRegistryFailsEarly(t *testing.T) {
	f := newTargetFixture(t)
	f.opts.DefaultRegistry = ""

	_, err := f.target(t).Build(quietContext())
	require.Error(t, err)
	assert.Equal(t, errors.ConfigError, errors.KindOf(err))
	assert.Empty(t, f.compiler.requests)
}

func TestDistTarget_PublishDebugWithoutForce(t *testing.T) {
	f := newTargetFixture(t)
	f.opts.Profile = compiler.Debug
	f.opts.DefaultRegistry = ""

	got, err := f.target(t).Publish(quietContext())
	require.NoError(t, err)
	assert.Equal(t, Unsupported, got)
	assert.Empty(t, f.runner.Calls)
}

func TestDistTarget_PublishAutoRepository(t *testing.T) {
	tests := []struct {
		name           string
		metadataAllows bool
		flag           bool
		wantEnsured    []string
	}{
		{name: "disabled"},
		{name: "from metadata", metadataAllows: true, wantEnsured: []string{"api"}},
		{name: "from flag", flag: true, wantEnsured: []string{"api"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTargetFixture(t)
			f.pkg.Manifest.Docker.Registry = "550877636976.dkr.ecr.ca-central-1.amazonaws.com"
			f.pkg.Manifest.Docker.AllowRegistryRepoAutoCreation = tt.metadataAllows
			f.opts.AutoRepository = tt.flag

			got, err := f.target(t).Publish(quietContext())
			require.NoError(t, err)
			assert.Equal(t, Pushed, got)
			assert.Equal(t, tt.wantEnsured, f.provider.ensured)
		})
	}
}

func TestDistTarget_PublishUpToDate(t *testing.T) {
	f := newTargetFixture(t)
	f.runner.Handler = dockerHandler(0)

	got, err := f.target(t).Publish(quietContext())
	require.NoError(t, err)
	assert.Equal(t, UpToDate, got)
	assert.Equal(t, 0, f.runner.CountSubcommand("push"))
}

func TestDistTarget_PublishRecordsFingerprint(t *testing.T) {
	f := newTargetFixture(t)
	writeFile(t, f.pkg.ManifestPath, "name: api\n")
	writeFile(t, filepath.Join(f.pkg.Root, "cmd", "api", "main.go"), "package main\n")

	ws := &workspace.Workspace{Root: f.root, Packages: []*workspace.Package{f.pkg}}
	cache, err := fingerprint.OpenCache(t.TempDir())
	require.NoError(t, err)

	target, err := NewDistTarget(f.pkg, f.opts, Dependencies{
		Runner:    f.runner,
		Compiler:  f.compiler,
		Providers: registry.Providers{f.provider},
		Workspace: ws,
		Cache:     cache,
	})
	require.NoError(t, err)

	got, err := target.Publish(quietContext())
	require.NoError(t, err)
	assert.Equal(t, Pushed, got)

	want, err := fingerprint.ForPackage(context.Background(), ws, f.pkg)
	require.NoError(t, err)

	recorded, ok := cache.Lookup(target.CacheKey())
	require.True(t, ok)
	assert.Equal(t, want, recorded)

	_, err = os.Stat(cache.Path())
	assert.NoError(t, err)
}

func TestDistTarget_DryRunDoesNotRecordFingerprint(t *testing.T) {
	f := newTargetFixture(t)
	f.opts.DryRun = true
	writeFile(t, f.pkg.ManifestPath, "name: api\n")

	cache, err := fingerprint.OpenCache(t.TempDir())
	require.NoError(t, err)

	target, err := NewDistTarget(f.pkg, f.opts, Dependencies{
		Runner:    f.runner,
		Compiler:  f.compiler,
		Workspace: &workspace.Workspace{Root: f.root, Packages: []*workspace.Package{f.pkg}},
		Cache:     cache,
	})
	require.NoError(t, err)

	got, err := target.Publish(quietContext())
	require.NoError(t, err)
	assert.Equal(t, DryRun, got)

	_, ok := cache.Lookup(target.CacheKey())
	assert.False(t, ok)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "built", Built.String())
	assert.Equal(t, "pushed", Pushed.String())
	assert.Equal(t, "up-to-date", UpToDate.String())
	assert.Equal(t, "unsupported", Unsupported.String())
	assert.Equal(t, "dry-run", DryRun.String())
}
