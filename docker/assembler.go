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
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cowdogmoo/monodist/compiler"
	"github.com/cowdogmoo/monodist/config"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/fsutil"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/cowdogmoo/monodist/workspace"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// DockerfileName is the name of the generated image definition.
const DockerfileName = "Dockerfile"

// AssembleRequest describes the build context of one target.
type AssembleRequest struct {
	Package  *workspace.Package
	Metadata *workspace.TargetMetadata
	Profile  compiler.Profile
	Platform ocispec.Platform
	// StagingRoot is the build context directory. It is owned by the
	// target and recreated on every build.
	StagingRoot string
	// BinaryDir receives the compiler output.
	BinaryDir string
}

// Assembly is an assembled build context.
type Assembly struct {
	Dockerfile string
	// Binaries maps each binary name to its path in the image.
	Binaries map[string]string
}

// Assembler compiles a package and stages everything the image builder
// needs under the staging root.
type Assembler struct {
	Compiler compiler.Compiler
}

// NewAssembler returns an Assembler using c.
func NewAssembler(c compiler.Compiler) *Assembler {
	return &Assembler{Compiler: c}
}

// Clean removes the staging root. A missing directory is not an error.
func (a *Assembler) Clean(ctx context.Context, stagingRoot string) error {
	logging.DebugContext(ctx, "Will now clean the staging directory %s", stagingRoot)

	if err := os.RemoveAll(stagingRoot); err != nil && !os.IsNotExist(err) {
		return errors.New(errors.IoError, "failed to clean staging directory").
			WithCause(err).
			WithExplanation("The directory `%s` could not be removed. You may want to verify permissions.", stagingRoot)
	}
	return nil
}

// Assemble cleans the staging root, compiles the binaries, stages them and
// the extra files, and writes the rendered Dockerfile.
func (a *Assembler) Assemble(ctx context.Context, req AssembleRequest) (*Assembly, error) {
	if err := a.Clean(ctx, req.StagingRoot); err != nil {
		return nil, err
	}

	artifacts, err := a.Compiler.Compile(ctx, compiler.Request{
		Package:   req.Package,
		Profile:   req.Profile,
		Platform:  req.Platform,
		OutputDir: req.BinaryDir,
	})
	if err != nil {
		if errors.KindOf(err) == errors.CompileError {
			return nil, err
		}
		return nil, errors.New(errors.CompileError, "failed to compile binaries").WithCause(err)
	}

	binaries, err := a.stageBinaries(ctx, req, artifacts)
	if err != nil {
		return nil, err
	}

	if err := a.stageExtraFiles(ctx, req); err != nil {
		return nil, err
	}

	dockerfile, err := a.writeDockerfile(ctx, req, binaries)
	if err != nil {
		return nil, err
	}

	logging.DebugContext(ctx, "Assembled %s with binaries %v", dockerfile, binaries)

	return &Assembly{Dockerfile: dockerfile, Binaries: binaries}, nil
}

// StagingPath maps an image-absolute path to its location under the
// staging root. "/app/bin" and "app/bin" map to the same place.
func StagingPath(stagingRoot, imagePath string) string {
	return filepath.Join(stagingRoot, filepath.FromSlash(strings.TrimLeft(imagePath, "/")))
}

func (a *Assembler) stageBinaries(ctx context.Context, req AssembleRequest, artifacts []compiler.Artifact) (map[string]string, error) {
	logging.DebugContext(ctx, "Will now copy all dependent binaries")

	binDir := req.Metadata.BinDir()
	dir := StagingPath(req.StagingRoot, binDir)

	if err := os.MkdirAll(dir, config.DirPermReadWriteExec); err != nil {
		return nil, errors.New(errors.IoError, "could not create the binary directory in the staging directory").
			WithCause(err).
			WithExplanation("The build process needed to create `%s` but it could not. You may want to verify permissions.", dir)
	}

	binaries := make(map[string]string, len(artifacts))
	for _, art := range artifacts {
		name := filepath.Base(art.Path)
		dst := filepath.Join(dir, name)

		logging.DebugContext(ctx, "Copying %s to %s", art.Path, dst)

		if err := fsutil.CopyFile(ctx, art.Path, dst, config.FilePermReadWriteExec); err != nil {
			return nil, errors.New(errors.IoError, "failed to copy binary").
				WithCause(err).
				WithExplanation("The binary `%s` could not be copied to the Docker image.", art.Name)
		}

		binaries[art.Name] = path.Join("/", binDir, name)
	}

	return binaries, nil
}

func (a *Assembler) stageExtraFiles(ctx context.Context, req AssembleRequest) error {
	logging.DebugContext(ctx, "Will now copy all extra files")

	for _, c := range req.Metadata.ExtraCopies {
		src := filepath.Join(req.Package.Root, filepath.FromSlash(c.Source))
		dst := StagingPath(req.StagingRoot, c.Destination)

		logging.DebugContext(ctx, "Copying %s to %s", src, dst)

		if err := fsutil.CopyPath(ctx, src, dst); err != nil {
			return errors.New(errors.IoError, "failed to copy extra file").
				WithCause(err).
				WithExplanation("`%s` could not be copied to `%s` in the Docker image.", c.Source, c.Destination)
		}
	}

	return nil
}

func (a *Assembler) writeDockerfile(ctx context.Context, req AssembleRequest, binaries map[string]string) (string, error) {
	content, err := Render(req.Package, req.Metadata, binaries)
	if err != nil {
		return "", err
	}

	logging.DebugContext(ctx, "Generated Dockerfile:\n%s", content)

	if err := os.MkdirAll(req.StagingRoot, config.DirPermReadWriteExec); err != nil {
		return "", errors.New(errors.IoError, "could not create Dockerfile path").
			WithCause(err).
			WithExplanation("The build process needed to create `%s` but it could not. You may want to verify permissions.", req.StagingRoot)
	}

	dockerfile := filepath.Join(req.StagingRoot, DockerfileName)
	if err := os.WriteFile(dockerfile, []byte(content), config.FilePermReadWrite); err != nil {
		return "", errors.New(errors.IoError, "failed to write Dockerfile").WithCause(err)
	}

	return dockerfile, nil
}

// Render renders the target's Dockerfile template: the inline template,
// else the template file, else DefaultTemplate.
func Render(pkg *workspace.Package, meta *workspace.TargetMetadata, binaries map[string]string) (string, error) {
	text := meta.Template
	name := "template"

	switch {
	case text != "":
	case meta.TemplateFile != "":
		name = meta.TemplateFile
		data, err := os.ReadFile(filepath.Join(pkg.Root, filepath.FromSlash(meta.TemplateFile)))
		if err != nil {
			return "", errors.Newf(errors.IoError, "failed to read Dockerfile template `%s`", meta.TemplateFile).WithCause(err)
		}
		text = string(data)
	default:
		text = DefaultTemplate
		name = "default"
	}

	tmpl, err := parseTemplate(name, text)
	if err != nil {
		return "", templateError(err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, NewTemplateContext(pkg, meta, binaries)); err != nil {
		return "", templateError(err)
	}

	return b.String(), nil
}

func templateError(err error) error {
	return errors.New(errors.TemplateError, "failed to render Dockerfile template").
		WithCause(err).
		WithExplanation("The specified Dockerfile template could not be rendered properly, which may indicate a syntax error.")
}
