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
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/containerd/platforms"
	"github.com/cowdogmoo/monodist/errors"
	"gopkg.in/yaml.v3"
)

// ManifestFileName is the per-package manifest looked up during discovery.
const ManifestFileName = "dist.yaml"

// packageNamePattern is a single Docker repository path component.
var packageNamePattern = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*$`)

// Manifest is the content of a dist.yaml file.
type Manifest struct {
	// Name is the package name, used as the image repository name.
	Name string `yaml:"name" json:"name" jsonschema:"required,pattern=^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*$"`
	// Version is the package semantic version, used as the image tag.
	Version string `yaml:"version" json:"version" jsonschema:"required"`
	// Requires holds version constraints on the tooling.
	Requires Requires `yaml:"requires,omitempty" json:"requires,omitempty"`
	// Binaries lists the main packages built for this package.
	Binaries []Binary `yaml:"binaries" json:"binaries" jsonschema:"required,minItems=1"`
	// Sources tunes the file set used for the package fingerprint.
	Sources SourceSelection `yaml:"sources,omitempty" json:"sources,omitempty"`
	// Docker declares the package as a docker distribution target.
	Docker *TargetMetadata `yaml:"docker,omitempty" json:"docker,omitempty"`
}

// Requires holds semantic version constraints.
type Requires struct {
	// Monodist is a constraint on the monodist version, e.g. ">=1.0.0".
	Monodist string `yaml:"monodist,omitempty" json:"monodist,omitempty"`
}

// Binary is one executable produced by the package.
type Binary struct {
	// Name is the executable name.
	Name string `yaml:"name" json:"name" jsonschema:"required"`
	// Path is the Go package to build, relative to the package root.
	Path string `yaml:"path" json:"path" jsonschema:"required"`
}

// SourceSelection narrows the fingerprinted file set.
type SourceSelection struct {
	// Exclude lists slash-separated patterns relative to the package root.
	// A trailing "/**" excludes a whole directory.
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// TargetMetadata is the docker section of a dist.yaml file.
type TargetMetadata struct {
	// DepsHash is a previously recorded fingerprint of the package sources.
	DepsHash string `yaml:"deps_hash,omitempty" json:"deps_hash,omitempty"`
	// Base is the base image of the generated Dockerfile.
	Base string `yaml:"base" json:"base" jsonschema:"required"`
	// CopyDestDir is the image-absolute directory receiving the binaries.
	CopyDestDir string `yaml:"copy_dest_dir" json:"copy_dest_dir" jsonschema:"required"`
	// Env lists environment variables set in the image, in order.
	Env []EnvVar `yaml:"env,omitempty" json:"env,omitempty"`
	// Run lists commands run while building the image.
	Run []string `yaml:"run,omitempty" json:"run,omitempty"`
	// Expose lists ports exposed by the image.
	Expose []int `yaml:"expose,omitempty" json:"expose,omitempty"`
	// Workdir is the image working directory.
	Workdir string `yaml:"workdir,omitempty" json:"workdir,omitempty"`
	// ExtraCopies lists files or directories copied into the image.
	ExtraCopies []CopyCommand `yaml:"extra_copies,omitempty" json:"extra_copies,omitempty"`
	// ExtraCommands lists raw Dockerfile instructions appended at the end.
	ExtraCommands []string `yaml:"extra_commands,omitempty" json:"extra_commands,omitempty"`
	// Registry overrides the default registry.
	Registry string `yaml:"registry,omitempty" json:"registry,omitempty"`
	// AllowRegistryRepoAutoCreation creates missing hosted repositories on push.
	AllowRegistryRepoAutoCreation bool `yaml:"allow_registry_repo_auto_creation,omitempty" json:"allow_registry_repo_auto_creation,omitempty"`
	// TargetBinDir overrides CopyDestDir as the binary destination.
	TargetBinDir string `yaml:"target_bin_dir,omitempty" json:"target_bin_dir,omitempty"`
	// TargetRuntime is the platform binaries are compiled for, e.g. "linux/arm64".
	TargetRuntime string `yaml:"target_runtime,omitempty" json:"target_runtime,omitempty"`
	// Template is an inline Dockerfile template.
	Template string `yaml:"template,omitempty" json:"template,omitempty"`
	// TemplateFile is a Dockerfile template path relative to the package root.
	TemplateFile string `yaml:"template_file,omitempty" json:"template_file,omitempty"`
	// Labels are extra image labels.
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// EnvVar is a name/value pair.
type EnvVar struct {
	Name  string `yaml:"name" json:"name" jsonschema:"required"`
	Value string `yaml:"value" json:"value"`
}

// CopyCommand copies Source (relative to the package root) to Destination
// (relative to the image root).
type CopyCommand struct {
	Source      string `yaml:"source" json:"source" jsonschema:"required"`
	Destination string `yaml:"destination" json:"destination" jsonschema:"required"`
}

// BinDir returns the image-absolute directory receiving the binaries.
func (m *TargetMetadata) BinDir() string {
	if m.TargetBinDir != "" {
		return m.TargetBinDir
	}
	return m.CopyDestDir
}

// LoadManifest reads and validates a dist.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.IoError, "failed to read package manifest").
			WithCause(err).
			WithExplanation("Could not read %s.", path)
	}

	return ParseManifest(path, data)
}

// ParseManifest decodes and validates manifest content. path is only used
// in messages.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	var m Manifest

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, errors.New(errors.ConfigError, "failed to parse package manifest").
			WithCause(err).
			WithExplanation("%s is not a valid manifest.", path)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &m, nil
}

// FingerprintContent returns the manifest bytes that take part in the
// package fingerprint. The document is re-encoded without
// `docker.deps_hash`, so writing a fingerprint into the manifest leaves the
// fingerprint unchanged.
func FingerprintContent(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.ConfigError, "failed to parse package manifest").WithCause(err)
	}
	if doc.Kind == 0 {
		return data, nil
	}

	if docker := mappingValue(doc.Content[0], "docker"); docker != nil {
		deleteKey(docker, "deps_hash")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, errors.New(errors.ConfigError, "failed to encode package manifest").WithCause(err)
	}
	if err := enc.Close(); err != nil {
		return nil, errors.New(errors.ConfigError, "failed to encode package manifest").WithCause(err)
	}
	return buf.Bytes(), nil
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func deleteKey(n *yaml.Node, key string) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			n.Content = append(n.Content[:i], n.Content[i+2:]...)
			return
		}
	}
}

// Validate checks the manifest for missing or malformed fields.
func (m *Manifest) Validate() error {
	if !packageNamePattern.MatchString(m.Name) {
		return errors.Newf(errors.ConfigError, "invalid package name %q", m.Name).
			WithExplanation("Package names must be lowercase and may contain digits and single `.`, `_` or `-` separators so they can name an image repository.")
	}

	v, err := semver.StrictNewVersion(m.Version)
	if err != nil {
		return errors.Newf(errors.ConfigError, "invalid version %q for package %s", m.Version, m.Name).
			WithCause(err).
			WithExplanation("The version must be a semantic version such as `1.2.3`; it becomes the image tag.")
	}
	if v.Metadata() != "" {
		return errors.Newf(errors.ConfigError, "invalid version %q for package %s", m.Version, m.Name).
			WithExplanation("Build metadata (`+%s`) is not allowed: `+` cannot appear in an image tag.", v.Metadata())
	}

	if m.Requires.Monodist != "" {
		if _, err := semver.NewConstraint(m.Requires.Monodist); err != nil {
			return errors.Newf(errors.ConfigError, "invalid monodist version constraint %q", m.Requires.Monodist).WithCause(err)
		}
	}

	if len(m.Binaries) == 0 {
		return errors.New(errors.ConfigError, "package contains no binaries").
			WithExplanation("Building a Docker image requires at least one binary but the package %s does not declare any.", m.Name)
	}

	seen := make(map[string]bool, len(m.Binaries))
	for _, b := range m.Binaries {
		if b.Name == "" || b.Path == "" {
			return errors.Newf(errors.ConfigError, "binary %q of package %s needs both a name and a path", b.Name, m.Name)
		}
		if seen[b.Name] {
			return errors.Newf(errors.ConfigError, "binary %q is declared twice in package %s", b.Name, m.Name)
		}
		seen[b.Name] = true
	}

	if m.Docker != nil {
		return m.Docker.Validate()
	}

	return nil
}

// Validate checks the docker section.
func (m *TargetMetadata) Validate() error {
	if m.Base == "" {
		return errors.New(errors.ConfigError, "missing `base` in docker metadata")
	}

	if m.CopyDestDir == "" {
		return errors.New(errors.ConfigError, "missing `copy_dest_dir` in docker metadata")
	}

	if m.Template != "" && m.TemplateFile != "" {
		return errors.New(errors.ConfigError, "`template` and `template_file` are mutually exclusive")
	}

	if m.TargetRuntime != "" {
		if _, err := platforms.Parse(m.TargetRuntime); err != nil {
			return errors.Newf(errors.ConfigError, "invalid target_runtime %q", m.TargetRuntime).
				WithCause(err).
				WithExplanation("Use an os/arch[/variant] platform such as `linux/amd64` or `linux/arm/v7`.")
		}
	}

	for _, port := range m.Expose {
		if port < 1 || port > 65535 {
			return errors.Newf(errors.ConfigError, "invalid exposed port %d", port)
		}
	}

	for _, c := range m.ExtraCopies {
		if c.Source == "" || c.Destination == "" {
			return errors.New(errors.ConfigError, "extra_copies entries need both a source and a destination")
		}
	}

	for _, e := range m.Env {
		if e.Name == "" {
			return errors.New(errors.ConfigError, "env entries need a name")
		}
	}

	return nil
}
