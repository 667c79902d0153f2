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

var hashCmd = &cobra.Command{
	Use:   "hash [PACKAGE...]",
	Short: "Print the source fingerprint of workspace packages",
	Long: `Print the content fingerprint of each package: a sha256 digest over the
paths and contents of its tracked source files and of its dist.yaml. The
deps_hash field is left out of the digest, so the value can be stored
there and check reports the package as up-to-date until a source changes.`,
	RunE: runHash,
}

// hashResult is the fingerprint of one package.
type hashResult struct {
	Package string `json:"package"`
	Digest  string `json:"digest"`
}

func (r hashResult) String() string {
	return r.Digest + "  " + r.Package
}

func runHash(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd, args)
	if err != nil {
		return err
	}

	results := make([]hashResult, len(s.packages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(s.cfg.Build.Concurrency))

	for i, pkg := range s.packages {
		g.Go(func() error {
			d, err := fingerprint.ForPackage(gctx, s.ws, pkg)
			if err != nil {
				return fmt.Errorf("%s: %w", pkg, err)
			}
			results[i] = hashResult{Package: pkg.Name(), Digest: d.String()}
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
