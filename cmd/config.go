package cmd

import (
	"github.com/spf13/cobra"
)

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the lastwill configuration",
	Long: `Provides commands for inspecting the configuration file.

The file is TOML, located with --config, $LASTWILL_CONFIG or the user
config directory, in that order. Create it with 'lastwill init'.

Examples:
  # Show the configuration and the state paths derived from it
  lastwill config show

  # Output in JSON format
  lastwill config show --json`,
}

// GetConfigCmd returns the ConfigCmd for testing.
func GetConfigCmd() *cobra.Command {
	return ConfigCmd
}
