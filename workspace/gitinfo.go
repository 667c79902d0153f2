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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cowdogmoo/monodist/logging"
	"github.com/go-git/go-git/v5"
	"gopkg.in/ini.v1"
)

// GitInfo describes the repository a package is built from. Every field is
// best effort and empty when unknown.
type GitInfo struct {
	// Revision is the HEAD commit hash.
	Revision string
	// Dirty is set when the worktree has uncommitted changes.
	Dirty bool
	// Source is the origin remote URL with credentials redacted.
	Source string
	// Author comes from the user's git configuration.
	Author string
}

// ReadGitInfo collects GitInfo for the repository containing dir.
func ReadGitInfo(ctx context.Context, dir string) GitInfo {
	info := GitInfo{Author: NewConfigReader().GetAuthor(ctx)}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logging.DebugContext(ctx, "No git repository for %s: %v", dir, err)
		return info
	}

	if head, err := repo.Head(); err == nil {
		info.Revision = head.Hash().String()
	}

	if remote, err := repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		info.Source = logging.RedactURL(remote.Config().URLs[0])
	}

	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}

	return info
}

// ConfigReader reads author information from git configuration files.
type ConfigReader struct {
	// Home overrides the home directory, for tests.
	Home string
}

// NewConfigReader creates a new git configuration reader.
func NewConfigReader() *ConfigReader {
	return &ConfigReader{}
}

// GetAuthor returns "Name <email>", "Name", "email" or "" from
// ~/.gitconfig, consulting an [include] path for missing values.
func (r *ConfigReader) GetAuthor(ctx context.Context) string {
	home := r.Home
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			logging.DebugContext(ctx, "Failed to get home directory: %v", err)
			return ""
		}
	}

	cfg, err := ini.Load(filepath.Join(home, ".gitconfig"))
	if err != nil {
		logging.DebugContext(ctx, "Failed to load .gitconfig: %v", err)
		return ""
	}

	name, email := userInfo(cfg)

	if name == "" || email == "" {
		if includePath := cfg.Section("include").Key("path").String(); includePath != "" {
			includePath = expandHome(includePath, home)
			if included, err := ini.Load(includePath); err == nil {
				incName, incEmail := userInfo(included)
				if name == "" {
					name = incName
				}
				if email == "" {
					email = incEmail
				}
			} else {
				logging.DebugContext(ctx, "Failed to load included config from %s: %v", includePath, err)
			}
		}
	}

	return formatAuthor(name, email)
}

func userInfo(cfg *ini.File) (name, email string) {
	section := cfg.Section("user")
	return section.Key("name").String(), section.Key("email").String()
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(home, path)
	}
	return path
}

func formatAuthor(name, email string) string {
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case name != "":
		return name
	default:
		return email
	}
}
