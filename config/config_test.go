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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs so no
// real configuration file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(RegistryEnvVar, "")
	t.Setenv("AWS_PROFILE", "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "color", cfg.Log.Format)
	assert.Equal(t, "target", cfg.Build.OutputDir)
	assert.Equal(t, "go", cfg.Build.GoCommand)
	assert.Equal(t, 4, cfg.Build.Concurrency)
	assert.Equal(t, "docker", cfg.Docker.Command)
	assert.Empty(t, cfg.Docker.Registry)
	assert.Equal(t, "auto", cfg.Docker.RegistryType)
	assert.Equal(t, filepath.Join(home, ".monodist", "cache"), cfg.Cache.Dir)
}

func TestLoad_FromHomeDirectory(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".monodist")
	require.NoError(t, os.MkdirAll(dir, DirPermReadWriteExec))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("docker:\n  registry: registry.example.com/team\n"), FilePermReadWrite))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com/team", cfg.Docker.Registry)
}

func TestLoad_InvalidFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("config.yaml", []byte("log: [unterminated"), FilePermReadWrite))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromPath(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "monodist.yaml")
	content := `
log:
  level: debug
  format: json
build:
  output_dir: /tmp/out
  concurrency: 8
docker:
  command: podman
aws:
  profile: deploy
`
	require.NoError(t, os.WriteFile(path, []byte(content), FilePermReadWrite))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/out", cfg.Build.OutputDir)
	assert.Equal(t, 8, cfg.Build.Concurrency)
	assert.Equal(t, "podman", cfg.Docker.Command)
	assert.Equal(t, "deploy", cfg.AWS.Profile)
	assert.Equal(t, "go", cfg.Build.GoCommand, "unset keys keep their defaults")
}

func TestLoadFromPath_Missing(t *testing.T) {
	isolate(t)
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(RegistryEnvVar, "123456789012.dkr.ecr.eu-west-1.amazonaws.com")
	t.Setenv("MONODIST_DOCKER_COMMAND", "/usr/local/bin/docker")
	t.Setenv("MONODIST_BUILD_CONCURRENCY", "2")
	t.Setenv("AWS_PROFILE", "ci")

	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "123456789012.dkr.ecr.eu-west-1.amazonaws.com", cfg.Docker.Registry)
	assert.Equal(t, "/usr/local/bin/docker", cfg.Docker.Command)
	assert.Equal(t, 2, cfg.Build.Concurrency)
	assert.Equal(t, "ci", cfg.AWS.Profile)
}

func TestCacheDir(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{Cache: CacheConfig{Dir: root}}

	dir, err := cfg.CacheDir("fingerprints")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "fingerprints"), dir)
	assert.DirExists(t, dir)
}

func TestCacheDir_DefaultsToHome(t *testing.T) {
	home := isolate(t)

	dir, err := (&Config{}).CacheDir("x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".monodist", "cache", "x"), dir)
}

func TestOutputRoot(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		want string
	}{
		{name: "default", dir: "", want: filepath.Join("/ws", "target")},
		{name: "relative", dir: "build/out", want: filepath.Join("/ws", "build", "out")},
		{name: "absolute", dir: "/var/out", want: "/var/out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Build: BuildConfig{OutputDir: tt.dir}}
			assert.Equal(t, tt.want, cfg.OutputRoot("/ws"))
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)
	t.Setenv("MONODIST_TEST_DIR", "/srv/cache")

	tests := []struct {
		path string
		want string
	}{
		{path: "~", want: home},
		{path: "~/.monodist/cache", want: filepath.Join(home, ".monodist", "cache")},
		{path: "${MONODIST_TEST_DIR}/fingerprints", want: "/srv/cache/fingerprints"},
		{path: "relative/~", want: "relative/~"},
		{path: "/abs/path", want: "/abs/path"},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestCacheDir_ExpandsHome(t *testing.T) {
	home := isolate(t)

	dir, err := (&Config{Cache: CacheConfig{Dir: "~/cache"}}).CacheDir("fingerprints")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache", "fingerprints"), dir)
}

func TestOutputRoot_ExpandsHome(t *testing.T) {
	home := isolate(t)

	cfg := &Config{Build: BuildConfig{OutputDir: "~/out"}}
	assert.Equal(t, filepath.Join(home, "out"), cfg.OutputRoot("/ws"))
}

func TestDefault_InvalidEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("MONODIST_BUILD_CONCURRENCY", "many")
	t.Setenv("MONODIST_DOCKER_COMMAND", "podman")

	cfg, err := Default()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read configuration from the environment")

	require.NotNil(t, cfg)
	assert.Equal(t, "docker", cfg.Docker.Command, "falls back to built-in defaults")
	assert.Equal(t, "target", cfg.Build.OutputDir)
	assert.Equal(t, 4, cfg.Build.Concurrency)
}
