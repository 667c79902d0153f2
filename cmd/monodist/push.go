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

	"github.com/cowdogmoo/monodist/docker"
	"github.com/spf13/cobra"
)

// Push command options
type pushOptions struct {
	release        bool
	force          bool
	dryRun         bool
	registryType   string
	autoRepository bool
}

var pushOpts = &pushOptions{}

var pushCmd = &cobra.Command{
	Use:   "push [PACKAGE...]",
	Short: "Publish built Docker images",
	Long: `Publish the images built by "monodist build". An image whose tag already
exists in the registry is left alone unless --force is given. When the
registry is recognized (AWS ECR) and auto-creation is enabled, the remote
repository is created before the push.

The registry is the package's docker.registry, else $MONODIST_DOCKER_REGISTRY.

Examples:
  # Push every release image
  monodist push --release

  # Show what would be pushed
  monodist push --release --dry-run

  # Push a debug image, creating missing ECR repositories
  monodist push api --force --auto-repository`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().BoolVar(&pushOpts.release, "release", false, "Publish release images")
	pushCmd.Flags().BoolVar(&pushOpts.force, "force", false, "Push even if the image exists, and allow debug images")
	pushCmd.Flags().BoolVar(&pushOpts.dryRun, "dry-run", false, "Show the push without running it")
	pushCmd.Flags().StringVar(&pushOpts.registryType, "registry-type", "", "Registry provider (auto, ecr, generic)")
	pushCmd.Flags().BoolVar(&pushOpts.autoRepository, "auto-repository", false, "Create missing hosted repositories for every package")
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd, args)
	if err != nil {
		return err
	}

	targets, err := s.targets(ctx, targetOptions{
		release:        pushOpts.release,
		force:          pushOpts.force,
		dryRun:         pushOpts.dryRun,
		autoRepository: pushOpts.autoRepository,
		withCache:      true,
	})
	if err != nil {
		return err
	}

	return runTargets(ctx, targets, func(ctx context.Context, t *docker.DistTarget) (docker.Outcome, error) {
		return t.Publish(ctx)
	})
}
