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
	"time"

	"github.com/cowdogmoo/monodist/workspace"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/samber/lo"
)

// ImageLabels returns the OCI labels of a package image. Labels declared
// in the target metadata win over the generated ones. Empty values are
// left out.
func ImageLabels(pkg *workspace.Package, meta *workspace.TargetMetadata, git workspace.GitInfo, created time.Time) map[string]string {
	labels := map[string]string{
		ocispec.AnnotationTitle:    pkg.Name(),
		ocispec.AnnotationVersion:  pkg.Version(),
		ocispec.AnnotationRevision: git.Revision,
		ocispec.AnnotationSource:   git.Source,
		ocispec.AnnotationAuthors:  git.Author,
	}
	if !created.IsZero() {
		labels[ocispec.AnnotationCreated] = created.UTC().Format(time.RFC3339)
	}

	labels = lo.OmitByValues(labels, []string{""})
	return lo.Assign(labels, meta.Labels)
}
