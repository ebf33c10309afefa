// =============================================================================
// Register Interests Parser - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// and the errata without parsing any page.
//
// COMMAND USAGE:
//   interests validate [--strict]
//
// CHECKS:
//   1. The main configuration loads and its values are valid
//   2. Every register configuration loads and names a valid period
//   3. Every errata declaration converts, names a valid subject and period,
//      and is not covered by an earlier rule
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/register-interests/internal/config"
	"github.com/ginjaninja78/register-interests/internal/validation"
)

// strict treats warnings, such as shadowed errata, as failures.
var strict bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration and errata without parsing",
	Long: `The validate command loads the main configuration, every register
configuration and every errata declaration, and reports problems.

Shadowed and catch-all errata are warnings; use --strict to fail on them.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadMainConfig(cmd)
		if err != nil {
			return err
		}
		return runValidate(cmd.OutOrStdout(), cfg, strict)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
}

// runValidate prints the findings and fails when the result is invalid.
func runValidate(out io.Writer, cfg *config.MainConfig, strict bool) error {
	fmt.Fprintln(out, "=== Validating Configuration ===")

	registers, err := config.LoadRegisterConfigs(cfg.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load register configs: %w", err)
	}
	for _, reg := range registers {
		files, err := reg.Files(cfg.InputDir)
		if err != nil {
			return fmt.Errorf("register %s: %w", reg.Name, err)
		}
		fmt.Fprintf(out, "  %-20s %-8s %d page(s)\n", reg.Name, reg.Period, len(files))
	}

	declarations, err := loadDeclarations(cfg)
	if err != nil {
		return err
	}

	validator := validation.NewValidatorWithOptions(validation.ValidationOptions{TreatWarningsAsErrors: strict})
	result := validator.ValidateErrata(declarations)

	fmt.Fprintf(out, "\nChecked %d errata rule(s): %d error(s), %d warning(s)\n",
		result.Checked, result.ErrorCount, result.WarningCount)
	if len(result.Errors) > 0 {
		fmt.Fprintln(out)
		fmt.Fprint(out, validation.FormatErrors(result.Errors))
	}

	if !result.IsValid {
		return errors.New("validation failed")
	}
	fmt.Fprintln(out, "\nConfiguration is valid.")
	return nil
}
