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

// Package runner invokes external tools (go, docker) as synchronous
// request/response calls.
//
// A Command describes one invocation. The OutputPolicy decides whether the
// child's output is streamed to the console or captured into the Result.
// A non-zero exit status is reported in the Result, not as an error: only a
// failure to start or wait for the process is an error, and callers decide
// what a given exit status means.
package runner

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cowdogmoo/monodist/logging"
)

// OutputPolicy selects how child output is handled.
type OutputPolicy int

const (
	// Capture buffers stdout and stderr into the Result.
	Capture OutputPolicy = iota
	// Stream forwards stdout and stderr to the console as they are produced.
	Stream
)

// PolicyFor returns Stream when verbose is set, Capture otherwise.
func PolicyFor(verbose bool) OutputPolicy {
	if verbose {
		return Stream
	}
	return Capture
}

// Command is one external tool invocation.
type Command struct {
	Program string
	Args    []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds KEY=VALUE pairs appended to the current environment.
	Env []string
}

// String renders the command line the way a user would type it.
func (c Command) String() string {
	parts := append([]string{c.Program}, c.Args...)
	for i, p := range parts {
		if p == "" || strings.ContainsAny(p, " \t\"'") {
			parts[i] = fmt.Sprintf("%q", p)
		}
	}
	return strings.Join(parts, " ")
}

// Result is the structured outcome of a command.
type Result struct {
	ExitStatus int
	Stdout     string
	Stderr     string
}

// Success reports whether the command exited with status zero.
func (r *Result) Success() bool {
	return r.ExitStatus == 0
}

// Runner runs commands.
type Runner interface {
	Run(ctx context.Context, cmd Command, policy OutputPolicy) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive streamed output. They default to the
	// process's own stdout and stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner streaming to the process's console.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts the command and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command, policy OutputPolicy) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	logging.DebugContext(ctx, "Executing `%s` in %q (env: %s)", cmd, cmd.Dir, strings.Join(logging.RedactEnv(cmd.Env), " "))

	var stdout, stderr bytes.Buffer
	switch policy {
	case Stream:
		c.Stdout = orDefault(r.Stdout, os.Stdout)
		c.Stderr = orDefault(r.Stderr, os.Stderr)
	default:
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	err := c.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && ctx.Err() == nil {
			result.ExitStatus = exitErr.ExitCode()
			return result, nil
		}
		result.ExitStatus = -1
		return result, fmt.Errorf("failed to run %s: %w", cmd.Program, err)
	}

	return result, nil
}

func orDefault(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}
