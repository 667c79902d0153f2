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
	"sort"
	"strings"
	"text/template"

	"github.com/cowdogmoo/monodist/workspace"
	"github.com/samber/lo"
)

// DefaultTemplate is the Dockerfile template used when a target does not
// provide one.
const DefaultTemplate = `FROM {{ .Base }}

{{ .CopyAll }}
{{- range .Env }}
ENV {{ .Name }}={{ printf "%q" .Value }}
{{- end }}
{{- range .Run }}
RUN {{ . }}
{{- end }}
{{- range .Expose }}
EXPOSE {{ . }}
{{- end }}
{{- with .Workdir }}
WORKDIR {{ . }}
{{- end }}
{{- range .ExtraCommands }}
{{ . }}
{{- end }}
`

var (
	copyBinariesTemplate = template.Must(template.New("copy_all_binaries").Parse(`
# Copy all binaries to the Docker image.
{{ range $name, $path := .Binaries -}}
# Copy the binary ` + "`{{ $name }}`" + `.
ADD {{ $path }} {{ $path }}
{{ end -}}
# End of copy.
`))

	copyExtraFilesTemplate = template.Must(template.New("copy_all_extra_files").Parse(`
# Copy all extra files to the Docker image.
{{ range .ExtraFiles -}}
ADD {{ . }} {{ . }}
{{ end -}}
# End of copy.
`))
)

// TemplateContext is the data a Dockerfile template is rendered with.
//
// The Copy* helpers are methods so they are only rendered when a template
// calls them.
type TemplateContext struct {
	PackageName    string
	PackageVersion string
	// Binaries maps each binary name to its path in the image.
	Binaries map[string]string
	// ExtraFiles is the sorted set of extra file destinations in the image.
	ExtraFiles []string

	meta *workspace.TargetMetadata
}

// NewTemplateContext builds the context for a package's Dockerfile.
func NewTemplateContext(pkg *workspace.Package, meta *workspace.TargetMetadata, binaries map[string]string) *TemplateContext {
	extra := lo.Uniq(lo.Map(meta.ExtraCopies, func(c workspace.CopyCommand, _ int) string {
		return c.Destination
	}))
	sort.Strings(extra)

	return &TemplateContext{
		PackageName:    pkg.Name(),
		PackageVersion: pkg.Version(),
		Binaries:       binaries,
		ExtraFiles:     extra,
		meta:           meta,
	}
}

// CopyAllBinaries renders an ADD instruction per binary.
func (c *TemplateContext) CopyAllBinaries() (string, error) {
	return renderFragment(copyBinariesTemplate, c)
}

// CopyAllExtraFiles renders an ADD instruction per extra file.
func (c *TemplateContext) CopyAllExtraFiles() (string, error) {
	return renderFragment(copyExtraFilesTemplate, c)
}

// CopyAll renders CopyAllBinaries followed by CopyAllExtraFiles.
func (c *TemplateContext) CopyAll() (string, error) {
	binaries, err := c.CopyAllBinaries()
	if err != nil {
		return "", err
	}
	extra, err := c.CopyAllExtraFiles()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(binaries + "\n" + extra), nil
}

// Base returns the base image.
func (c *TemplateContext) Base() string { return c.meta.Base }

// Env returns the image environment, in order.
func (c *TemplateContext) Env() []workspace.EnvVar { return c.meta.Env }

// Run returns the RUN commands.
func (c *TemplateContext) Run() []string { return c.meta.Run }

// Expose returns the exposed ports.
func (c *TemplateContext) Expose() []int { return c.meta.Expose }

// Workdir returns the image working directory.
func (c *TemplateContext) Workdir() string { return c.meta.Workdir }

// ExtraCommands returns the raw instructions appended to the Dockerfile.
func (c *TemplateContext) ExtraCommands() []string { return c.meta.ExtraCommands }

func renderFragment(tmpl *template.Template, data interface{}) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}

// parseTemplate parses a Dockerfile template. Referencing a missing map
// key is an error.
func parseTemplate(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}
