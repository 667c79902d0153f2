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

package workspace

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cowdogmoo/monodist/errors"
)

// VersionChecker validates `requires.monodist` constraints against the
// running tool version.
type VersionChecker struct {
	toolVersion *semver.Version
}

// NewVersionChecker returns a VersionChecker for the given tool version.
// Development builds ("dev", "") accept every constraint.
func NewVersionChecker(toolVersion string) (*VersionChecker, error) {
	toolVersion = strings.TrimPrefix(toolVersion, "v")
	if toolVersion == "" || toolVersion == "dev" {
		return &VersionChecker{}, nil
	}

	ver, err := semver.NewVersion(toolVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid monodist version: %w", err)
	}

	return &VersionChecker{toolVersion: ver}, nil
}

// Check returns a ConfigError when the package requires another tool version.
func (vc *VersionChecker) Check(pkg *Package) error {
	constraint := pkg.Manifest.Requires.Monodist
	if constraint == "" || vc.toolVersion == nil {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Newf(errors.ConfigError, "invalid monodist version constraint %q", constraint).WithCause(err)
	}

	if ok, reasons := c.Validate(vc.toolVersion); !ok {
		msgs := make([]string, len(reasons))
		for i, r := range reasons {
			msgs[i] = r.Error()
		}
		return errors.Newf(errors.ConfigError, "package %s requires monodist %s", pkg.Name(), constraint).
			WithExplanation("The running monodist is %s (%s). Upgrade monodist or relax `requires.monodist` in %s.",
				vc.toolVersion, strings.Join(msgs, "; "), pkg.ManifestPath)
	}

	return nil
}
