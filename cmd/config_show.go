package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/lastwill/internal/configs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Displays the configuration and the state paths derived from it.

Secrets are never stored in the file; only the names of the environment
variables holding them are shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		path, err := configs.Path(configPath)
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to locate configuration: %v", err)
		}
		Logger.Debugf("Loading configuration from %s", path)
		config, err := configs.Load(path)
		if err != nil {
			fmt.Println(formatError("Loading the configuration", err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if configShowJSON {
			return outputConfigJSON(path, config)
		}
		outputConfigText(path, config)
		return nil
	},
}

type configJSON struct {
	Path     string           `json:"path"`
	Config   *configs.Config  `json:"config"`
	Settings configs.Settings `json:"settings"`
}

// outputConfigJSON outputs the configuration in JSON format.
func outputConfigJSON(path string, config *configs.Config) error {
	output, err := json.MarshalIndent(configJSON{Path: path, Config: config, Settings: config.Settings()}, "", "  ")
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
	}
	fmt.Println(string(output))
	return nil
}

// outputConfigText outputs the configuration in human-readable format.
func outputConfigText(path string, config *configs.Config) {
	row := func(label, value string) {
		fmt.Printf("  %-16s %s\n", label+":", value)
	}
	orNone := func(s string) string {
		if s == "" {
			return color.HiBlackString("(none)")
		}
		return color.GreenString(s)
	}

	fmt.Println(color.CyanString("Configuration") + " (" + path + "):")
	fmt.Println()
	row("User", color.GreenString(config.User.ID))
	row("Key derivation", config.User.KeyDerivation)
	row("Passphrase env", config.User.PassphraseEnv)
	row("Nominee", orNone(config.Nominee.Email))
	row("Grace period", color.YellowString(config.Switch.GracePeriod.String()))
	row("Poll interval", config.Switch.PollInterval.String())
	row("Split depth", fmt.Sprint(config.Storage.SplitDepth))
	row("Compression", config.Storage.Compression)
	row("Listen address", config.Server.Addr)
	row("Public URL", config.Server.PublicURL)
	if config.SMTP.Enabled() {
		row("SMTP", fmt.Sprintf("%s:%d from %s", config.SMTP.Host, config.SMTP.Port, config.SMTP.From))
	} else {
		row("SMTP", orNone(""))
	}
	row("Seal recipient", orNone(config.Seal.AgeRecipient))

	settings := config.Settings()
	fmt.Println()
	fmt.Println(color.CyanString("State:"))
	row("Data", settings.DataDir)
	row("Heartbeat", settings.HeartbeatPath)
	row("Trigger flag", settings.FlagPath)
	row("Maps", settings.MapDir)
	row("Fragments", settings.StorageDir)
	row("Releases", settings.ReleaseDir)
	row("Audit log", settings.AuditPath)
}
