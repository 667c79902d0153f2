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

// Package config loads the global monodist configuration.
//
// Configuration is for tool and environment settings (log format, docker
// binary, default registry, AWS profile). Per-package settings live in each
// package's dist.yaml and are handled by the workspace package.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// File and directory permissions used when monodist writes to disk.
const (
	DirPermReadWriteExec  os.FileMode = 0o755
	FilePermReadWrite     os.FileMode = 0o644
	FilePermReadWriteExec os.FileMode = 0o755
)

// EnvPrefix is the prefix of every monodist environment variable.
const EnvPrefix = "MONODIST"

// RegistryEnvVar supplies the default Docker registry when a target does not
// configure one.
const RegistryEnvVar = "MONODIST_DOCKER_REGISTRY"

// Config represents the global monodist configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Build  BuildConfig  `mapstructure:"build"`
	Docker DockerConfig `mapstructure:"docker"`
	AWS    AWSConfig    `mapstructure:"aws"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BuildConfig holds compilation settings.
type BuildConfig struct {
	// OutputDir is the build output root, relative to the workspace root
	// unless absolute. Staging roots live under <OutputDir>/<profile>/docker.
	OutputDir   string `mapstructure:"output_dir"`
	GoCommand   string `mapstructure:"go_command"`
	Concurrency int    `mapstructure:"concurrency"`
}

// DockerConfig holds container tooling settings.
type DockerConfig struct {
	Command      string `mapstructure:"command"`
	Registry     string `mapstructure:"registry"`
	RegistryType string `mapstructure:"registry_type"`
}

// AWSConfig holds AWS-related configuration. Region is never configured
// here: it is taken from the registry coordinate.
type AWSConfig struct {
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// CacheConfig holds the build cache location.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// Load reads the global configuration from the default locations.
// Returns a Config with defaults if no config file exists.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".monodist"))
		v.AddConfigPath(filepath.Join(home, ".config", "monodist"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file path
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

// Default returns the configuration built from defaults and environment
// variables only. When an environment variable cannot be decoded, the
// built-in defaults are returned along with the error.
func Default() (*Config, error) {
	cfg, err := unmarshal(newViper())
	if err == nil {
		return cfg, nil
	}

	v := viper.New()
	setDefaults(v)
	builtin, derr := unmarshal(v)
	if derr != nil {
		return nil, derr
	}
	return builtin, fmt.Errorf("failed to read configuration from the environment: %w", err)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	// MONODIST_LOG_LEVEL, MONODIST_DOCKER_COMMAND, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	bindEnvVars(v)

	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "color")

	v.SetDefault("build.output_dir", "target")
	v.SetDefault("build.go_command", "go")
	v.SetDefault("build.concurrency", 4)

	v.SetDefault("docker.command", "docker")
	v.SetDefault("docker.registry", "")
	v.SetDefault("docker.registry_type", "auto")

	v.SetDefault("aws.profile", "")

	if home, err := os.UserHomeDir(); err == nil {
		v.SetDefault("cache.dir", filepath.Join(home, ".monodist", "cache"))
	}
}

// bindEnvVars explicitly binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("log.level", "MONODIST_LOG_LEVEL")
	_ = v.BindEnv("log.format", "MONODIST_LOG_FORMAT")

	_ = v.BindEnv("build.output_dir", "MONODIST_BUILD_OUTPUT_DIR")
	_ = v.BindEnv("build.go_command", "MONODIST_BUILD_GO_COMMAND")
	_ = v.BindEnv("build.concurrency", "MONODIST_BUILD_CONCURRENCY")

	_ = v.BindEnv("docker.command", "MONODIST_DOCKER_COMMAND")
	_ = v.BindEnv("docker.registry", RegistryEnvVar)
	_ = v.BindEnv("docker.registry_type", "MONODIST_DOCKER_REGISTRY_TYPE")

	// Standard AWS variables are also read by the AWS SDK itself.
	_ = v.BindEnv("aws.profile", "AWS_PROFILE")
	_ = v.BindEnv("aws.access_key_id", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("aws.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("aws.session_token", "AWS_SESSION_TOKEN")

	_ = v.BindEnv("cache.dir", "MONODIST_CACHE_DIR")
}
