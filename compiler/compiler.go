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

// Package compiler builds the binaries of a package with the Go toolchain.
package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/containerd/platforms"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/runner"
	"github.com/cowdogmoo/monodist/workspace"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Profile is a build profile.
type Profile string

const (
	// Debug builds keep symbols and disable optimizations.
	Debug Profile = "debug"
	// Release builds are stripped and reproducible.
	Release Profile = "release"
)

// ProfileFor returns Release when release is set, Debug otherwise.
func ProfileFor(release bool) Profile {
	if release {
		return Release
	}
	return Debug
}

// hostPlatform is overridden in tests.
var hostPlatform = platforms.DefaultSpec

// HostPlatform returns the platform monodist runs on.
func HostPlatform() ocispec.Platform {
	return platforms.Normalize(hostPlatform())
}

// ResolvePlatform parses an "os/arch[/variant]" target runtime. An empty
// string selects a Linux platform with the host's architecture, since
// images run on Linux whatever the build host is.
func ResolvePlatform(targetRuntime string) (ocispec.Platform, error) {
	if targetRuntime == "" {
		host := HostPlatform()
		return platforms.Normalize(ocispec.Platform{OS: "linux", Architecture: host.Architecture, Variant: host.Variant}), nil
	}

	p, err := platforms.Parse(targetRuntime)
	if err != nil {
		return ocispec.Platform{}, errors.Newf(errors.ConfigError, "invalid target runtime %q", targetRuntime).WithCause(err)
	}
	return platforms.Normalize(p), nil
}

// Request describes one compilation.
type Request struct {
	Package  *workspace.Package
	Profile  Profile
	Platform ocispec.Platform
	// OutputDir receives one executable per binary.
	OutputDir string
}

// Artifact is a compiled executable.
type Artifact struct {
	Name string
	Path string
}

// Compiler compiles the binaries of a package.
type Compiler interface {
	Compile(ctx context.Context, req Request) ([]Artifact, error)
}

// GoCompiler compiles with `go build`.
type GoCompiler struct {
	Runner runner.Runner
	// GoCommand is the go executable, "go" when empty.
	GoCommand string
	Policy    runner.OutputPolicy
}

var _ Compiler = (*GoCompiler)(nil)

// NewGoCompiler returns a GoCompiler.
func NewGoCompiler(r runner.Runner, goCommand string, policy runner.OutputPolicy) *GoCompiler {
	return &GoCompiler{Runner: r, GoCommand: goCommand, Policy: policy}
}

// Compile builds every binary of the package into req.OutputDir.
func (c *GoCompiler) Compile(ctx context.Context, req Request) ([]Artifact, error) {
	pkg := req.Package
	env := CrossEnv(req.Platform)

	logging.ActionContext(ctx, "Compiling", "%s (%s, %s)", pkg, req.Profile, platforms.Format(req.Platform))

	artifacts := make([]Artifact, 0, len(pkg.Manifest.Binaries))
	for _, bin := range pkg.Manifest.Binaries {
		out := filepath.Join(req.OutputDir, bin.Name)
		cmd := runner.Command{
			Program: c.goCommand(),
			Args:    BuildArgs(req.Profile, out, bin.Path),
			Dir:     pkg.Root,
			Env:     env,
		}

		result, err := c.Runner.Run(ctx, cmd, c.Policy)
		if err != nil {
			return nil, errors.Newf(errors.CompileError, "failed to compile `%s`", bin.Name).
				WithCause(err).
				WithExplanation("Could not run `%s`. Is the Go toolchain installed?", cmd).
				WithRemediation()
		}
		if !result.Success() {
			return nil, errors.Newf(errors.CompileError, "failed to compile `%s`", bin.Name).
				WithCause(fmt.Errorf("%s exited with status %d", c.goCommand(), result.ExitStatus)).
				WithExplanation("`%s` failed in %s.", cmd, pkg.Root).
				WithOutput(strings.TrimSpace(result.Stderr + "\n" + result.Stdout))
		}

		artifacts = append(artifacts, Artifact{Name: bin.Name, Path: out})
	}

	return artifacts, nil
}

func (c *GoCompiler) goCommand() string {
	if c.GoCommand == "" {
		return "go"
	}
	return c.GoCommand
}

// BuildArgs returns the `go build` arguments for one binary.
func BuildArgs(profile Profile, out, pkgPath string) []string {
	args := []string{"build", "-o", out}
	if profile == Release {
		args = append(args, "-trimpath", "-ldflags", "-s -w")
	} else {
		args = append(args, "-gcflags", "all=-N -l")
	}
	return append(args, pkgPath)
}

// CrossEnv returns the environment selecting target when it differs from
// the host platform. Building for the host needs no extra environment.
func CrossEnv(target ocispec.Platform) []string {
	target = platforms.Normalize(target)
	host := HostPlatform()
	if target.OS == host.OS && target.Architecture == host.Architecture && target.Variant == host.Variant {
		return nil
	}

	env := []string{
		"CGO_ENABLED=0",
		"GOOS=" + target.OS,
		"GOARCH=" + target.Architecture,
	}
	if target.Architecture == "arm" && target.Variant != "" {
		env = append(env, "GOARM="+strings.TrimPrefix(target.Variant, "v"))
	}
	return env
}
