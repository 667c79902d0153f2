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

// Package main generates a JSON schema from the dist.yaml package manifest structure.
// The generated schema enables IDE autocompletion and validation for package manifests.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cowdogmoo/monodist/config"
	"github.com/cowdogmoo/monodist/workspace"
	"github.com/invopop/jsonschema"
)

const schemaID = "https://monodist.dev/schema/dist.json"

var (
	output = flag.String("o", "schema/dist.json", "Output path for JSON schema")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		// Manifests are decoded with KnownFields, so unknown keys are errors.
		AllowAdditionalProperties: false,
	}

	// Type-level doc comments come from the workspace sources. Field-level
	// descriptions are handled by the reflector.
	if err := reflector.AddGoComments("github.com/cowdogmoo/monodist", "./workspace"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to extract type-level comments: %v\n", err)
	}

	schema := reflector.Reflect(&workspace.Manifest{})

	schema.ID = jsonschema.ID(schemaID)
	schema.Title = "monodist package manifest"
	schema.Description = "Schema for " + workspace.ManifestFileName + " package manifests"
	if schema.Extras == nil {
		schema.Extras = make(map[string]interface{})
	}
	schema.Extras["manifestFile"] = workspace.ManifestFileName

	schema.Examples = []interface{}{
		map[string]interface{}{
			"name":    "api-server",
			"version": "1.4.0",
			"requires": map[string]interface{}{
				"monodist": ">=1.0.0",
			},
			"binaries": []interface{}{
				map[string]interface{}{"name": "api-server", "path": "./cmd/api-server"},
			},
			"docker": map[string]interface{}{
				"base":                              "gcr.io/distroless/static:nonroot",
				"copy_dest_dir":                     "/usr/local/bin",
				"registry":                          "550877636976.dkr.ecr.ca-central-1.amazonaws.com",
				"expose":                            []int{8080},
				"allow_registry_repo_auto_creation": true,
			},
		},
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	dir := filepath.Dir(*output)
	if err := os.MkdirAll(dir, config.DirPermReadWriteExec); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Append newline to satisfy end-of-file-fixer
	data = append(data, '\n')

	if err := os.WriteFile(*output, data, config.FilePermReadWrite); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}

	fmt.Printf("✓ Generated JSON schema: %s\n", *output)
	return nil
}
