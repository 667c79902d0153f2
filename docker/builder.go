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
	"fmt"
	"path/filepath"
	"sort"

	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/runner"
)

// scanSuggestEnv silences the `docker scan` advertisement after builds.
const scanSuggestEnv = "DOCKER_SCAN_SUGGEST=false"

// ImageBuilder runs `docker build` against an assembled build context.
type ImageBuilder struct {
	Runner runner.Runner
	// Command is the docker executable, "docker" when empty.
	Command string
	Policy  runner.OutputPolicy
}

// NewImageBuilder returns an ImageBuilder.
func NewImageBuilder(r runner.Runner, command string, policy runner.OutputPolicy) *ImageBuilder {
	return &ImageBuilder{Runner: r, Command: command, Policy: policy}
}

// Build builds imageName from the Dockerfile, using its directory as the
// build context. Labels are passed as --label flags in key order.
func (b *ImageBuilder) Build(ctx context.Context, dockerfile, imageName string, labels map[string]string) error {
	args := []string{"build", "-t", imageName}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, labels[k]))
	}
	args = append(args, ".")

	cmd := runner.Command{
		Program: dockerCommand(b.Command),
		Args:    args,
		Dir:     filepath.Dir(dockerfile),
		Env:     []string{scanSuggestEnv},
	}

	logging.DebugContext(ctx, "Moving to: %s", cmd.Dir)
	logging.ActionContext(ctx, "Running", "`%s`", cmd)

	result, err := b.Runner.Run(ctx, cmd, b.Policy)
	if err != nil {
		return errors.New(errors.BuildFailed, "failed to build Docker image").
			WithCause(err).
			WithExplanation("%s", startFailureExplanation("build", b.Policy)).
			WithRemediation()
	}

	if !result.Success() {
		return commandFailure(errors.BuildFailed, "build", b.Policy, result)
	}

	return nil
}

func dockerCommand(command string) string {
	if command == "" {
		return "docker"
	}
	return command
}

func startFailureExplanation(action string, policy runner.OutputPolicy) string {
	msg := fmt.Sprintf("The %s of the Docker image failed which could indicate a configuration problem.", action)
	if policy == runner.Capture {
		msg += " You may want to re-run the command with `--verbose` to get more information."
	}
	return msg
}

// commandFailure reports a docker command that exited with a non-zero
// status. Streamed output is already on the console; captured output is
// attached to the error.
func commandFailure(kind errors.Kind, action string, policy runner.OutputPolicy, result *runner.Result) error {
	err := errors.Newf(kind, "failed to %s Docker image", action)
	if policy == runner.Stream {
		return err.WithExplanation("The %s of the Docker image failed. Check the logs above to determine the cause.", action)
	}
	return err.
		WithExplanation("The %s of the Docker image failed. Check the logs below to determine the cause.", action).
		WithOutput(result.Stderr).
		WithRemediation()
}
