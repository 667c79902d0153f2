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
	"fmt"

	"github.com/cowdogmoo/monodist/fingerprint"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Check command options
type checkOptions struct {
	release bool
}

var checkOpts = &checkOptions{}

var checkCmd = &cobra.Command{
	Use:   "check [PACKAGE...]",
	Short: "Report which images changed since they were last pushed",
	Long: `Fingerprint the sources of each docker target and compare the result with
the fingerprint recorded by the last successful push (or the deps_hash
field of dist.yaml).

Examples:
  # Check every release image
  monodist check --release

  # JSON output for scripts
  monodist check --log-format json`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkOpts.release, "release", false, "Check release images")
}

// checkResult is the fingerprint state of one target.
type checkResult struct {
	Target string `json:"target"`
	Digest string `json:"digest"`
	State  string `json:"state"`
}

func (r checkResult) String() string {
	return fmt.Sprintf("%-24s %-12s %s", r.Target, r.State, r.Digest)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd, args)
	if err != nil {
		return err
	}

	targets, err := s.targets(ctx, targetOptions{release: checkOpts.release})
	if err != nil {
		return err
	}

	cache, err := fingerprint.OpenDefaultCache(s.cfg)
	if err != nil {
		return err
	}

	results := make([]checkResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(s.cfg.Build.Concurrency))

	for i, t := range targets {
		g.Go(func() error {
			d, err := fingerprint.ForPackage(gctx, s.ws, t.Package)
			if err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
			state := cache.Compare(t.CacheKey(), t.Metadata.DepsHash, d)
			results[i] = checkResult{Target: t.String(), Digest: d.String(), State: state.String()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		logging.OutputContext(ctx, r)
	}
	return nil
}

func concurrency(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
