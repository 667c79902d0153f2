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
	"context"
	"fmt"
	"os"

	"github.com/cowdogmoo/monodist/compiler"
	"github.com/cowdogmoo/monodist/config"
	"github.com/cowdogmoo/monodist/docker"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/fingerprint"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/registry"
	"github.com/cowdogmoo/monodist/runner"
	"github.com/cowdogmoo/monodist/workspace"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	// newRunner returns the runner used for go and docker invocations.
	newRunner = func() runner.Runner {
		return runner.NewExecRunner()
	}

	// newProviders returns the hosted registry providers, first match wins.
	newProviders = func(cfg *config.Config) registry.Providers {
		return registry.Providers{
			registry.NewECRProvider(registry.ClientConfig{
				Profile:         cfg.AWS.Profile,
				AccessKeyID:     cfg.AWS.AccessKeyID,
				SecretAccessKey: cfg.AWS.SecretAccessKey,
				SessionToken:    cfg.AWS.SessionToken,
			}),
		}
	}
)

// session is the state shared by the commands that operate on packages.
type session struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	packages []*workspace.Package
}

// openSession loads the workspace and selects the named packages, or all
// packages when no name is given.
func openSession(cmd *cobra.Command, names []string) (*session, error) {
	ctx := cmd.Context()

	cfg := configFromContext(cmd)
	if cfg == nil {
		var err error
		if cfg, err = config.Default(); err != nil {
			return nil, errors.New(errors.ConfigError, "invalid configuration").WithCause(err)
		}
	}

	root, err := resolveWorkspaceRoot()
	if err != nil {
		return nil, err
	}

	ws, err := workspace.Load(ctx, root, cfg.OutputRoot(root))
	if err != nil {
		return nil, err
	}

	pkgs, err := ws.Select(names)
	if err != nil {
		return nil, err
	}

	vc, err := workspace.NewVersionChecker(currentVersion())
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		if err := vc.Check(pkg); err != nil {
			return nil, err
		}
	}

	logging.DebugContext(ctx, "Workspace %s: %d package(s) selected", root, len(pkgs))

	return &session{cfg: cfg, ws: ws, packages: pkgs}, nil
}

func resolveWorkspaceRoot() (string, error) {
	if workspaceDir != "" {
		return workspaceDir, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap("get working directory", "", err)
	}
	return workspace.FindRoot(wd)
}

// targetOptions are the command-line settings that shape the targets.
type targetOptions struct {
	release        bool
	force          bool
	dryRun         bool
	autoRepository bool
	withCache      bool
}

// targets returns the docker targets of the selected packages. Packages
// without a docker section are reported and skipped.
func (s *session) targets(ctx context.Context, to targetOptions) ([]*docker.DistTarget, error) {
	registryType, err := registry.ParseType(s.cfg.Docker.RegistryType)
	if err != nil {
		return nil, err
	}

	verbose := logging.FromContext(ctx).IsVerbose()
	r := newRunner()

	opts := docker.Options{
		Profile:         compiler.ProfileFor(to.release),
		Force:           to.force,
		DryRun:          to.dryRun,
		Verbose:         verbose,
		OutputRoot:      s.cfg.OutputRoot(s.ws.Root),
		DefaultRegistry: s.cfg.Docker.Registry,
		RegistryType:    registryType,
		AutoRepository:  to.autoRepository,
		DockerCommand:   s.cfg.Docker.Command,
	}
	deps := docker.Dependencies{
		Runner:    r,
		Compiler:  compiler.NewGoCompiler(r, s.cfg.Build.GoCommand, runner.PolicyFor(verbose)),
		Providers: newProviders(s.cfg),
		Workspace: s.ws,
	}
	if to.withCache {
		deps.Cache = s.openCache(ctx)
	}

	dockerPkgs, ignored := lo.FilterReject(s.packages, func(p *workspace.Package, _ int) bool {
		return p.Manifest.Docker != nil
	})
	for _, pkg := range ignored {
		logging.SkipContext(ctx, "Ignored", "%s has no docker target", pkg)
	}

	targets := make([]*docker.DistTarget, 0, len(dockerPkgs))
	for _, pkg := range dockerPkgs {
		t, err := docker.NewDistTarget(pkg, opts, deps)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	return targets, nil
}

// openCache opens the fingerprint cache. A cache that cannot be opened is
// reported and ignored.
func (s *session) openCache(ctx context.Context) *fingerprint.Cache {
	cache, err := fingerprint.OpenDefaultCache(s.cfg)
	if err != nil {
		logging.WarnContext(ctx, "Fingerprint cache disabled: %s", errors.Report(err))
		return nil
	}
	return cache
}

// targetResult is the outcome of one target, printed once every target ran.
type targetResult struct {
	Target  string `json:"target"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r targetResult) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%-24s failed", r.Target)
	}
	return fmt.Sprintf("%-24s %s", r.Target, r.Outcome)
}

// runTargets runs action on every target, reports each failure and returns
// an error when at least one target failed.
func runTargets(ctx context.Context, targets []*docker.DistTarget, action func(context.Context, *docker.DistTarget) (docker.Outcome, error)) error {
	results := make([]targetResult, 0, len(targets))
	failed := 0

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := action(ctx, t)
		if err != nil {
			failed++
			logging.ErrorContext(ctx, "%s: %s", t, errors.Report(err))
			results = append(results, targetResult{Target: t.String(), Error: err.Error()})
			continue
		}
		results = append(results, targetResult{Target: t.String(), Outcome: outcome.String()})
	}

	for _, r := range results {
		logging.OutputContext(ctx, r)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d target(s) failed", failed, len(targets))
	}
	return nil
}
