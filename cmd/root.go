// =============================================================================
// Register Interests Parser - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (interests)
//   ├── parseCmd    (interests parse)
//   ├── validateCmd (interests validate)
//   ├── taxonomyCmd (interests taxonomy)
//   └── versionCmd  (interests version)
//
// The root command owns the global flags and the helpers shared by the
// subcommands: configuration loading, logger construction and errata
// loading.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/register-interests/internal/config"
	"github.com/ginjaninja78/register-interests/internal/errata"
	"github.com/ginjaninja78/register-interests/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "interests",
	Short: "Register of Interests parser - turn register pages into structured records",
	Long: `interests reads the published Register of Members' Financial Interests,
one HTML page per member and register, and turns the free-text entries into
structured records: category, registration date, amount and description.

Entries the generic rules cannot read are corrected by a curated table of
errata. Anything left uncorrected is reported in the error log.

Example Usage:
  interests parse                               # Parse every configured register
  interests parse --period 2015-16 --format console
  interests parse --subject "ABBOTT, Diane" --group-by period
  interests validate                            # Check configuration and errata`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadMainConfig reads the configuration named by --config. A missing
// config.yaml falls back to the defaults unless the flag was given
// explicitly.
func loadMainConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.DefaultMainConfig(), nil
	}
	return nil, fmt.Errorf("failed to load main config: %w", err)
}

// newLogger builds the run's logger from the configuration.
func newLogger(cfg *config.MainConfig) (*zap.Logger, func() error, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, File: cfg.LogFile})
}

// loadDeclarations returns the built-in errata, when enabled, followed by
// every configured errata file.
func loadDeclarations(cfg *config.MainConfig) ([]errata.Declaration, error) {
	var declarations []errata.Declaration
	if cfg.DefaultErrataEnabled() {
		defaults, err := errata.DefaultDeclarations()
		if err != nil {
			return nil, fmt.Errorf("failed to load built-in errata: %w", err)
		}
		declarations = append(declarations, defaults...)
	}

	for _, path := range cfg.ErrataFiles {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open errata file: %w", err)
		}
		loaded, err := errata.LoadDeclarations(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		declarations = append(declarations, loaded...)
	}
	return declarations, nil
}

// buildRegistry converts declarations into the registry shared by every
// subject.
func buildRegistry(declarations []errata.Declaration) (*errata.Registry, error) {
	rules := make([]errata.Rule, 0, len(declarations))
	for i, d := range declarations {
		rule, err := d.Rule()
		if err != nil {
			return nil, fmt.Errorf("errata rule %d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}
	return errata.NewRegistry(rules...)
}
