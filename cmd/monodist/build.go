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

// Build command options
type buildOptions struct {
	release   bool
	targetDir string
}

var buildOpts = &buildOptions{}

var buildCmd = &cobra.Command{
	Use:   "build [PACKAGE...]",
	Short: "Build the Docker images of workspace packages",
	Long: `Compile the binaries of each package, assemble a Docker build context
and build the image. Every package with a docker section is built when no
package is named.

Examples:
  # Build every docker target in debug mode
  monodist build

  # Build one package with release optimizations
  monodist build api --release

  # Use another output directory
  monodist build --target-dir /tmp/monodist`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildOpts.release, "release", false, "Build with release optimizations")
	buildCmd.Flags().StringVar(&buildOpts.targetDir, "target-dir", "", "Build output directory (default is <workspace>/target)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd, args)
	if err != nil {
		return err
	}

	targets, err := s.targets(ctx, targetOptions{release: buildOpts.release})
	if err != nil {
		return err
	}

	return runTargets(ctx, targets, func(ctx context.Context, t *docker.DistTarget) (docker.Outcome, error) {
		return t.Build(ctx)
	})
}
