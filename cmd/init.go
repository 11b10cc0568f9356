package cmd

import (
	"context"

	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	initUser    string
	initNominee string
	initDataDir string
	initLegacy  bool
	initForce   bool
)

func init() {
	initCmd.Flags().StringVarP(&initUser, "user", "u", "", "identifier of the will's owner (required)")
	initCmd.Flags().StringVarP(&initNominee, "nominee", "n", "", "email address notified when the will is released")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "directory holding all lastwill state")
	initCmd.Flags().BoolVar(&initLegacy, "legacy-key", false, "derive the key from the user id alone, as early stores did")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration")
}

func resetInitCommandState() {
	initUser = ""
	initNominee = ""
	initDataDir = ""
	initLegacy = false
	initForce = false
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration and start the grace period",
	Long: `Writes a configuration file, creates the private data directory and
records the first heartbeat.

Examples:
  lastwill init --user alice@example.com --nominee bob@example.com
  lastwill init --user alice --data-dir ~/vault --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		if initUser == "" {
			return Logger.ErrorfAndReturn("--user is required")
		}

		spinner, cleanup := startSpinner("Initializing lastwill...")
		defer cleanup()

		result, err := workflows.Init(context.Background(), workflows.InitOptions{
			Common:       common(),
			UserID:       initUser,
			NomineeEmail: initNominee,
			DataDir:      initDataDir,
			Legacy:       initLegacy,
			Force:        initForce,
		})
		if err != nil {
			return fail(spinner, "Init", err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " lastwill initialized for " + ui.Highlight.Sprint(initUser) +
			"\n  Config: " + ui.Path.Sprint(result.ConfigPath) +
			"\n  Data:   " + ui.Path.Sprint(result.Settings.DataDir) +
			"\n" + ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("lastwill store <file>") + " to protect your will"
		if initNominee == "" {
			spinner.FinalMSG += "\n" + ui.Warning.Sprint("⚠") + " No nominee set; add nominee.email to the configuration"
		}
		return nil
	},
}
