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

// Package fingerprint computes content digests over a package's files and
// records them in a build cache, so unchanged packages can be detected.
package fingerprint

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sort"

	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/workspace"
	"github.com/opencontainers/go-digest"
	"github.com/samber/lo"
)

// Compute returns the sha256 digest of files, given as slash-separated paths
// relative to root. The result does not depend on the order of files or on
// duplicates, and every path and content is length-prefixed so that moving
// bytes between a path and its content changes the digest.
func Compute(root string, files []string) (digest.Digest, error) {
	return compute(root, files, nil)
}

// compute is Compute with the content of some paths supplied by overrides
// instead of read from disk.
func compute(root string, files []string, overrides map[string][]byte) (digest.Digest, error) {
	paths := lo.Uniq(append(files, lo.Keys(overrides)...))
	sort.Strings(paths)

	digester := digest.Canonical.Digester()
	h := digester.Hash()

	for _, p := range paths {
		content, ok := overrides[p]
		if !ok {
			var err error
			content, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
			if err != nil {
				return "", errors.Newf(errors.IoError, "failed to read `%s`", p).
					WithCause(err).
					WithExplanation("The file was listed as part of the package in %s but could not be read.", root)
			}
		}
		writeRecord(h, []byte(p))
		writeRecord(h, content)
	}

	return digester.Digest(), nil
}

func writeRecord(h hash.Hash, data []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(data)))
	h.Write(size[:])
	h.Write(data)
}

// ForPackage fingerprints the package's source files plus its manifest.
// The manifest contributes its content without `docker.deps_hash`, so a
// digest printed by ForPackage can be stored there and still match.
func ForPackage(ctx context.Context, ws *workspace.Workspace, pkg *workspace.Package) (digest.Digest, error) {
	files, err := ws.Sources(ctx, pkg)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(pkg.Root, pkg.ManifestPath)
	if err != nil {
		return "", errors.Wrap("locate manifest", pkg.ManifestPath, err)
	}
	manifest := filepath.ToSlash(rel)

	data, err := os.ReadFile(pkg.ManifestPath)
	if err != nil {
		return "", errors.Newf(errors.IoError, "failed to read `%s`", pkg.ManifestPath).WithCause(err)
	}
	content, err := workspace.FingerprintContent(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", pkg.ManifestPath, err)
	}

	return compute(pkg.Root, files, map[string][]byte{manifest: content})
}
