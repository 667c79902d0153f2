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

// Package docker packages the binaries of a workspace package into a
// Docker image and publishes it.
//
// A DistTarget ties the pieces together: Build cleans the staging root,
// compiles, stages binaries and extra files, renders the Dockerfile and
// runs `docker build`. Publish probes the registry, provisions the remote
// repository when a registry provider recognizes it, and runs
// `docker push`.
package docker

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/containerd/platforms"
	"github.com/cowdogmoo/monodist/compiler"
	"github.com/cowdogmoo/monodist/config"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/fingerprint"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/registry"
	"github.com/cowdogmoo/monodist/runner"
	"github.com/cowdogmoo/monodist/workspace"
	"github.com/distribution/reference"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Options are the per-invocation settings shared by every target.
type Options struct {
	Profile compiler.Profile
	Force   bool
	DryRun  bool
	Verbose bool
	// OutputRoot is the build output directory, e.g. <workspace>/target.
	OutputRoot string
	// DefaultRegistry is used when a target does not set `registry`.
	DefaultRegistry string
	RegistryType    registry.Type
	// AutoRepository enables repository auto-creation for every target.
	AutoRepository bool
	// DockerCommand is the docker executable, "docker" when empty.
	DockerCommand string
}

// Dependencies are the collaborators of a target.
type Dependencies struct {
	Runner    runner.Runner
	Compiler  compiler.Compiler
	Providers registry.Providers
	// Workspace and Cache, when both set, record the package fingerprint
	// after a successful push.
	Workspace *workspace.Workspace
	Cache     *fingerprint.Cache
	// GitInfo reads repository metadata for image labels.
	GitInfo func(ctx context.Context, dir string) workspace.GitInfo
	Now     func() time.Time
}

// DistTarget is a package distributed as a Docker image.
type DistTarget struct {
	Package  *workspace.Package
	Metadata *workspace.TargetMetadata
	Platform ocispec.Platform

	opts      Options
	deps      Dependencies
	assembler *Assembler
	builder   *ImageBuilder
	publisher *Publisher
}

// NewDistTarget returns the docker target of pkg. The package must have a
// docker section.
func NewDistTarget(pkg *workspace.Package, opts Options, deps Dependencies) (*DistTarget, error) {
	meta := pkg.Manifest.Docker
	if meta == nil {
		return nil, errors.Newf(errors.ConfigError, "package %s is not a docker target", pkg.Name()).
			WithExplanation("Add a `docker` section to %s.", pkg.ManifestPath)
	}

	platform, err := compiler.ResolvePlatform(meta.TargetRuntime)
	if err != nil {
		return nil, err
	}

	if deps.Runner == nil {
		deps.Runner = runner.NewExecRunner()
	}
	policy := runner.PolicyFor(opts.Verbose)
	if deps.Compiler == nil {
		deps.Compiler = compiler.NewGoCompiler(deps.Runner, "", policy)
	}
	if deps.GitInfo == nil {
		deps.GitInfo = workspace.ReadGitInfo
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.Profile == "" {
		opts.Profile = compiler.Debug
	}
	if opts.RegistryType == "" {
		opts.RegistryType = registry.TypeAuto
	}

	return &DistTarget{
		Package:   pkg,
		Metadata:  meta,
		Platform:  platform,
		opts:      opts,
		deps:      deps,
		assembler: NewAssembler(deps.Compiler),
		builder:   NewImageBuilder(deps.Runner, opts.DockerCommand, policy),
		publisher: &Publisher{
			Runner:       deps.Runner,
			Command:      opts.DockerCommand,
			Policy:       policy,
			Providers:    deps.Providers,
			RegistryType: opts.RegistryType,
		},
	}, nil
}

// String returns "docker[<name>]".
func (t *DistTarget) String() string {
	return "docker[" + t.Package.Name() + "]"
}

// StagingRoot returns <output root>/<profile>/docker/<name>.
func (t *DistTarget) StagingRoot() string {
	return filepath.Join(t.opts.OutputRoot, string(t.opts.Profile), "docker", t.Package.Name())
}

// BinaryDir returns the compiler output directory of the target.
func (t *DistTarget) BinaryDir() string {
	platform := strings.ReplaceAll(platforms.Format(t.Platform), "/", "-")
	return filepath.Join(t.opts.OutputRoot, string(t.opts.Profile), "bin", platform, t.Package.Name())
}

// Registry returns the target registry, else the default registry.
func (t *DistTarget) Registry() (string, error) {
	if t.Metadata.Registry != "" {
		return t.Metadata.Registry, nil
	}
	if t.opts.DefaultRegistry != "" {
		return t.opts.DefaultRegistry, nil
	}
	return "", errors.New(errors.ConfigError, "failed to determine Docker registry").
		WithExplanation("The field `registry` is empty and the environment variable %s was not set.", config.RegistryEnvVar)
}

// Repository returns registry/name.
func (t *DistTarget) Repository() (string, error) {
	reg, err := t.Registry()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(reg, "/") + "/" + t.Package.Name(), nil
}

// ImageName returns registry/name:version. It is recomputed on every call.
func (t *DistTarget) ImageName() (string, error) {
	repo, err := t.Repository()
	if err != nil {
		return "", err
	}

	image := repo + ":" + t.Package.Version()

	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", errors.Newf(errors.ConfigError, "invalid Docker image name `%s`", image).WithCause(err)
	}
	if _, ok := named.(reference.Tagged); !ok {
		return "", errors.Newf(errors.ConfigError, "Docker image name `%s` has no tag", image)
	}

	return image, nil
}

// CacheKey identifies the target's recorded fingerprint.
func (t *DistTarget) CacheKey() fingerprint.Key {
	return fingerprint.Key{
		Package:  t.Package.Name(),
		Version:  t.Package.Version(),
		Profile:  string(t.opts.Profile),
		Platform: platforms.Format(t.Platform),
	}
}

// Build assembles the build context and builds the image.
func (t *DistTarget) Build(ctx context.Context) (Outcome, error) {
	if !supportedHost() {
		logging.SkipContext(ctx, "Unsupported", "Docker build is not supported on Windows")
		return Unsupported, nil
	}

	image, err := t.ImageName()
	if err != nil {
		return 0, err
	}

	logging.ActionContext(ctx, "Building", "%s (%s)", t, image)

	assembly, err := t.assembler.Assemble(ctx, AssembleRequest{
		Package:     t.Package,
		Metadata:    t.Metadata,
		Profile:     t.opts.Profile,
		Platform:    t.Platform,
		StagingRoot: t.StagingRoot(),
		BinaryDir:   t.BinaryDir(),
	})
	if err != nil {
		return 0, err
	}

	labels := ImageLabels(t.Package, t.Metadata, t.deps.GitInfo(ctx, t.Package.Root), t.deps.Now())
	if err := t.builder.Build(ctx, assembly.Dockerfile, image, labels); err != nil {
		return 0, err
	}

	return Built, nil
}

// Publish pushes the image unless it is already published.
func (t *DistTarget) Publish(ctx context.Context) (Outcome, error) {
	debug := t.opts.Profile == compiler.Debug
	if skip(ctx, debug, t.opts.Force) {
		return Unsupported, nil
	}

	image, err := t.ImageName()
	if err != nil {
		return 0, err
	}
	repo, err := t.Repository()
	if err != nil {
		return 0, err
	}

	outcome, err := t.publisher.Publish(ctx, PublishRequest{
		PackageName:       t.Package.Name(),
		Image:             image,
		Repository:        repo,
		Debug:             debug,
		Force:             t.opts.Force,
		DryRun:            t.opts.DryRun,
		AllowAutoCreation: t.Metadata.AllowRegistryRepoAutoCreation || t.opts.AutoRepository,
	})
	if err != nil {
		return 0, err
	}

	if outcome == Pushed {
		t.recordFingerprint(ctx)
	}

	return outcome, nil
}

func (t *DistTarget) recordFingerprint(ctx context.Context) {
	if t.deps.Cache == nil || t.deps.Workspace == nil {
		return
	}

	d, err := fingerprint.ForPackage(ctx, t.deps.Workspace, t.Package)
	if err == nil {
		err = t.deps.Cache.Record(t.CacheKey(), d)
	}
	if err != nil {
		logging.WarnContext(ctx, "Could not record the fingerprint of %s: %v", t, err)
		return
	}

	logging.DebugContext(ctx, "Recorded fingerprint %s for %s", d, t.CacheKey())
}
