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

	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/registry"
	"github.com/cowdogmoo/monodist/runner"
)

// PublishRequest describes one image publication.
type PublishRequest struct {
	PackageName string
	// Image is the full image reference, registry/name:tag.
	Image string
	// Repository is the image reference without its tag.
	Repository string
	// Debug is set for debug profile builds, which are not published
	// unless Force is set.
	Debug bool
	// Force skips the existence probe and publishes debug builds.
	Force  bool
	DryRun bool
	// AllowAutoCreation permits creating the remote repository.
	AllowAutoCreation bool
}

// Publisher decides whether an image must be pushed, provisions the
// remote repository when allowed, and pushes.
type Publisher struct {
	Runner runner.Runner
	// Command is the docker executable, "docker" when empty.
	Command      string
	Policy       runner.OutputPolicy
	Providers    registry.Providers
	RegistryType registry.Type
}

// Publish runs the publication state machine for req.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (Outcome, error) {
	if skip(ctx, req.Debug, req.Force) {
		return Unsupported, nil
	}

	if req.Force {
		logging.DebugContext(ctx, "`--force` specified: not checking for Docker image existence before pushing")
	} else {
		exists, err := p.Exists(ctx, req.Image)
		if err != nil {
			return 0, err
		}
		if exists {
			logging.SkipContext(ctx, "Up-to-date", "Docker image `%s` already exists", req.Image)
			return UpToDate, nil
		}
	}

	logging.DebugContext(ctx, "Will now push docker image `%s`", req.Image)

	if err := p.provision(ctx, req); err != nil {
		return 0, err
	}

	cmd := runner.Command{Program: dockerCommand(p.Command), Args: []string{"push", req.Image}}

	if req.DryRun {
		logging.WarnContext(ctx, "Would now execute: %s", cmd)
		logging.WarnContext(ctx, "`--dry-run` specified: not continuing for real")
		return DryRun, nil
	}

	logging.ActionContext(ctx, "Running", "`docker push %s`", req.Image)

	result, err := p.Runner.Run(ctx, cmd, p.Policy)
	if err != nil {
		return 0, errors.New(errors.PushFailed, "failed to push Docker image").
			WithCause(err).
			WithExplanation("%s", startFailureExplanation("push", p.Policy)).
			WithRemediation()
	}
	if !result.Success() {
		return 0, commandFailure(errors.PushFailed, "push", p.Policy, result)
	}

	return Pushed, nil
}

// Exists pulls image to find out whether it is already published. Any
// non-zero exit status is taken to mean the image is absent, which cannot
// tell a missing image from an authentication or network failure.
func (p *Publisher) Exists(ctx context.Context, image string) (bool, error) {
	logging.DebugContext(ctx, "Will now pull docker image `%s` to check for existence", image)
	logging.ActionContext(ctx, "Running", "`docker pull %s`", image)

	result, err := p.Runner.Run(ctx, runner.Command{
		Program: dockerCommand(p.Command),
		Args:    []string{"pull", image},
	}, p.Policy)
	if err != nil {
		return false, errors.New(errors.PushFailed, "failed to pull Docker image").
			WithCause(err).
			WithExplanation("%s", startFailureExplanation("pull", p.Policy)).
			WithRemediation()
	}

	return result.Success(), nil
}

func (p *Publisher) provision(ctx context.Context, req PublishRequest) error {
	repo, err := registry.Resolve(p.RegistryType, p.Providers, req.Repository)
	if err != nil {
		return err
	}

	if repo == nil {
		logging.DebugContext(ctx, "No registry provider recognizes `%s`: assuming a generic registry", req.Repository)
		return nil
	}

	logging.DebugContext(ctx, "Registry provider found for `%s`", repo)

	if !req.AllowAutoCreation {
		logging.DebugContext(ctx, "Repository creation is not allowed for this target; set `allow_registry_repo_auto_creation` in dist.yaml if this is not intended")
		return nil
	}

	if req.DryRun {
		logging.WarnContext(ctx, "`--dry-run` specified, will not really ensure the repository `%s` exists", repo)
		return nil
	}

	return repo.Ensure(ctx, req.PackageName)
}

// skip reports whether publishing is unsupported on this host or for a
// debug build without --force, logging why.
func skip(ctx context.Context, debug, force bool) bool {
	if !supportedHost() {
		logging.SkipContext(ctx, "Unsupported", "Docker publish is not supported on Windows")
		return true
	}

	if debug && !force {
		logging.SkipContext(ctx, "Unsupported", "Docker images can't be published in debug mode unless `--force` is specified")
		return true
	}

	return false
}
