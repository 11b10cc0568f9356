package cmd

import (
	logger "github.com/PolarWolf314/lastwill/internal/logging"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose    bool
	debug      bool
	configPath string
	Logger     logger.Logger
)

// Register attaches the persistent flags and every lastwill command to root.
func Register(root *cobra.Command) {
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default $LASTWILL_CONFIG or the user config directory)")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
		}
		Logger.Debugf("Running %s with verbose=%t, debug=%t, config=%q", cmd.Name(), verbose, debug, configPath)
	}

	root.AddCommand(initCmd)
	root.AddCommand(storeCmd)
	root.AddCommand(retrieveCmd)
	root.AddCommand(pingCmd)
	root.AddCommand(statusCmd)
	root.AddCommand(watchCmd)
	root.AddCommand(serveCmd)
	root.AddCommand(purgeCmd)
	root.AddCommand(logCmd)
	root.AddCommand(doctorCmd)
	root.AddCommand(cleanCmd)
	root.AddCommand(ConfigCmd)
}

// common returns the workflow options every command shares.
func common() workflows.Common {
	return workflows.Common{
		ConfigPath: configPath,
		Logger:     Logger,
	}
}

// Helper functions for testing

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configPath = ""
	resetInitCommandState()
	resetRetrieveCommandState()
	resetStatusCommandState()
	resetWatchCommandState()
	resetServeCommandState()
	resetPurgeCommandState()
	resetLogCommandState()
	resetDoctorCommandState()
	resetCleanCommandState()
	resetConfigShowState()
	for _, c := range []*cobra.Command{initCmd, storeCmd, retrieveCmd, statusCmd, watchCmd, serveCmd, purgeCmd, logCmd, doctorCmd, cleanCmd, configShowCmd} {
		c.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Changed = false
		})
	}
}
