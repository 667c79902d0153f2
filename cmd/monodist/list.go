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
	"path/filepath"

	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/workspace"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the packages of the workspace",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// listEntry describes one package.
type listEntry struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Path     string   `json:"path"`
	Binaries []string `json:"binaries"`
	Docker   bool     `json:"docker"`
}

func (e listEntry) String() string {
	target := "-"
	if e.Docker {
		target = "docker"
	}
	return fmt.Sprintf("%-24s %-12s %-8s %s", e.Name, e.Version, target, e.Path)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, err := openSession(cmd, nil)
	if err != nil {
		return err
	}

	for _, pkg := range s.packages {
		logging.OutputContext(ctx, newListEntry(s.ws, pkg))
	}
	return nil
}

func newListEntry(ws *workspace.Workspace, pkg *workspace.Package) listEntry {
	rel, err := filepath.Rel(ws.Root, pkg.Root)
	if err != nil {
		rel = pkg.Root
	}

	binaries := make([]string, len(pkg.Manifest.Binaries))
	for i, b := range pkg.Manifest.Binaries {
		binaries[i] = b.Name
	}

	return listEntry{
		Name:     pkg.Name(),
		Version:  pkg.Version(),
		Path:     filepath.ToSlash(rel),
		Binaries: binaries,
		Docker:   pkg.Manifest.Docker != nil,
	}
}
