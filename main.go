// =============================================================================
// Register Interests Parser - Main Entry Point
// =============================================================================
//
// USAGE:
//   interests parse      - Parse the configured register pages
//   interests validate   - Validate configuration and errata
//   interests taxonomy   - List the interest categories
//   interests version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : parsing engine and its collaborators
//   - pkg/       : shared file utilities
//   - configs/   : one YAML file per published register
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/register-interests/cmd"
)

func main() {
	cmd.Execute()
}
