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

// Package main implements the monodist CLI tool for packaging the binaries of
// a Go workspace into Docker images and publishing them.
// It provides commands for building, pushing, checking and listing packages.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/cowdogmoo/monodist/config"
	"github.com/cowdogmoo/monodist/errors"
	"github.com/cowdogmoo/monodist/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Context key type for storing config
type configKeyType struct{}

var (
	// configKey is the context key for storing the config
	configKey = configKeyType{}

	// Root command options
	cfgFile      string
	workspaceDir string
)

// commandFlagKeys maps subcommand flags onto global config keys so that
// they take part in the same precedence chain as the config file.
var commandFlagKeys = map[string]string{
	"target-dir":    "build.output_dir",
	"registry-type": "docker.registry_type",
}

var rootCmd = &cobra.Command{
	Use:   "monodist",
	Short: "monodist - Docker distribution for Go workspaces",
	Long: `monodist compiles the binaries of the packages in a Go workspace,
packages them into Docker images and publishes them to a registry.

Packages opt in with a dist.yaml manifest next to their sources.`,
	PersistentPreRunE: initConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.Version = currentVersion()

	// Global persistent flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is $HOME/.monodist/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace root (default is detected from the current directory)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text, json, color)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Quiet mode - only show errors")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose mode - show debug output and tool output")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

// configFromContext retrieves the config from the command context.
// Returns nil if no config is stored in context.
func configFromContext(cmd *cobra.Command) *config.Config {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	return nil
}

// initConfig initializes configuration with proper precedence:
// CLI Flags > Environment Variables > Config File > Defaults
func initConfig(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Load global config (handles defaults, env vars, and config file)
	var cfg *config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromPath(cfgFile)
		if err != nil {
			return errors.Newf(errors.ConfigError, "failed to load config file %s", cfgFile).WithCause(err)
		}
	} else {
		cfg, err = config.Load()
	}

	if err != nil {
		// Use default config as fallback
		logging.WarnContext(ctx, "failed to load config, using defaults: %v", err)
		if cfg, err = config.Default(); err != nil {
			logging.WarnContext(ctx, "%v, using built-in defaults", err)
		}
		if cfg == nil {
			return errors.New(errors.ConfigError, "failed to build the default configuration")
		}
	}

	// 2. Create a new Viper instance for flag binding
	v := viper.New()

	// Set defaults from loaded config
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("build.output_dir", cfg.Build.OutputDir)
	v.SetDefault("docker.registry_type", cfg.Docker.RegistryType)

	// 3. Bind Cobra flags to Viper (this enables: flags > env > config > defaults)
	if err := v.BindPFlag("log.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
		return fmt.Errorf("failed to bind log-level flag: %w", err)
	}
	if err := v.BindPFlag("log.format", cmd.Root().PersistentFlags().Lookup("log-format")); err != nil {
		return fmt.Errorf("failed to bind log-format flag: %w", err)
	}
	for flag, key := range commandFlagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind %s flag: %w", flag, err)
			}
		}
	}

	// Bind all subcommand flags to Viper for consistent precedence
	BindCommandFlagsToViper(ctx, v, cmd)

	// 4. Get final values from Viper (single source of truth)
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Build.OutputDir = v.GetString("build.output_dir")
	cfg.Docker.RegistryType = v.GetString("docker.registry_type")

	// 5. Create the logger and store it in context with the config
	logger := logging.NewCustomLoggerWithOptions(cfg.Log.Level, cfg.Log.Format, quiet, verbose)
	logger.Console = cmd.ErrOrStderr()
	logger.Out = cmd.OutOrStdout()

	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = logging.WithLogger(ctx, logger)
	cmd.SetContext(ctx)

	return nil
}

// ExecuteContext runs the root command and prints the error report of a
// failed command.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", errors.Report(err))
	}
	return err
}

// BindFlagsToViper binds all flags from a command to a Viper instance.
// This enables the configuration precedence: CLI Flags > Environment Variables > Config File > Defaults.
// The viperKey parameter allows specifying a prefix for the Viper keys (e.g., "push" for push command flags).
func BindFlagsToViper(ctx context.Context, v *viper.Viper, cmd *cobra.Command, viperKey string) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Convert flag name to viper key format (e.g., "dry-run" -> "dry_run")
		key := strings.ReplaceAll(f.Name, "-", "_")
		if viperKey != "" {
			key = viperKey + "." + key
		}

		if err := v.BindPFlag(key, f); err != nil {
			logging.WarnContext(ctx, "failed to bind flag %s to viper: %v", f.Name, err)
		}
	})
}

// BindCommandFlagsToViper binds flags from the current command and its parent persistent flags to Viper.
func BindCommandFlagsToViper(ctx context.Context, v *viper.Viper, cmd *cobra.Command) {
	// Get the command path for namespacing (e.g., "build", "push")
	cmdPath := getCommandPath(cmd)

	// Bind the command's local flags
	BindFlagsToViper(ctx, v, cmd, cmdPath)

	// Also bind persistent flags from parent commands
	cmd.InheritedFlags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			logging.WarnContext(ctx, "failed to bind inherited flag %s to viper: %v", f.Name, err)
		}
	})
}

// getCommandPath returns the command path for Viper key namespacing.
// For example, "monodist push" returns "push".
func getCommandPath(cmd *cobra.Command) string {
	var parts []string
	current := cmd

	for current != nil && current.Parent() != nil {
		parts = append([]string{current.Name()}, parts...)
		current = current.Parent()
	}

	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ".")
}
