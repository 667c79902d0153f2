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

package fingerprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cowdogmoo/monodist/config"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/opencontainers/go-digest"
)

// CacheFileName is the name of the cache file inside the cache directory.
const CacheFileName = "fingerprints.json"

// Key identifies a recorded fingerprint. The same sources built for another
// profile or platform produce a different image, so both are part of the key.
type Key struct {
	Package  string
	Version  string
	Profile  string
	Platform string
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s/%s/%s", k.Package, k.Version, k.Profile, k.Platform)
}

// State is the result of comparing a fingerprint with the recorded one.
type State int

const (
	// Unrecorded means no fingerprint was recorded for the key.
	Unrecorded State = iota
	// UpToDate means the current fingerprint matches the recorded one.
	UpToDate
	// Changed means the sources changed since the fingerprint was recorded.
	Changed
)

func (s State) String() string {
	switch s {
	case UpToDate:
		return "up-to-date"
	case Changed:
		return "changed"
	default:
		return "unrecorded"
	}
}

// Cache stores recorded fingerprints in a JSON file. It is safe for
// concurrent use within one process.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]digest.Digest
}

// OpenCache loads the cache stored in dir. A missing file is an empty cache.
func OpenCache(dir string) (*Cache, error) {
	c := &Cache{path: filepath.Join(dir, CacheFileName), entries: map[string]digest.Digest{}}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, errors.New(errors.IoError, "failed to read fingerprint cache").WithCause(err)
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, errors.New(errors.IoError, "failed to parse fingerprint cache").
			WithCause(err).
			WithExplanation("Remove %s to reset the cache.", c.path)
	}

	return c, nil
}

// OpenDefaultCache opens the cache under the configured cache directory.
func OpenDefaultCache(cfg *config.Config) (*Cache, error) {
	dir, err := cfg.CacheDir("fingerprints")
	if err != nil {
		return nil, errors.New(errors.IoError, "failed to prepare fingerprint cache").WithCause(err)
	}
	return OpenCache(dir)
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// Lookup returns the fingerprint recorded for key.
func (c *Cache) Lookup(key Key) (digest.Digest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.entries[key.String()]
	return d, ok
}

// Record stores the fingerprint for key and persists the cache.
func (c *Cache) Record(key Key, d digest.Digest) error {
	if err := d.Validate(); err != nil {
		return errors.Newf(errors.IoError, "refusing to record invalid fingerprint %q", d).WithCause(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key.String()] = d

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return errors.New(errors.IoError, "failed to encode fingerprint cache").WithCause(err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), config.DirPermReadWriteExec); err != nil {
		return errors.New(errors.IoError, "failed to create fingerprint cache directory").WithCause(err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, config.FilePermReadWrite); err != nil {
		return errors.New(errors.IoError, "failed to write fingerprint cache").WithCause(err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return errors.New(errors.IoError, "failed to write fingerprint cache").WithCause(err)
	}

	return nil
}

// Compare reports whether current matches the fingerprint recorded for key.
// When nothing is recorded, fallback (a deps_hash from the manifest) is
// used instead; it may omit the "sha256:" algorithm prefix.
func (c *Cache) Compare(key Key, fallback string, current digest.Digest) State {
	recorded, ok := c.Lookup(key)
	if !ok {
		if fallback == "" {
			return Unrecorded
		}
		recorded = digest.Digest(fallback)
		if !strings.Contains(fallback, ":") {
			recorded = digest.NewDigestFromEncoded(digest.Canonical, fallback)
		}
	}

	if recorded == current {
		return UpToDate
	}
	return Changed
}
