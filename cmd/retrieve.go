package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	retrieveOutput string
	retrieveForce  bool
)

func init() {
	retrieveCmd.Flags().StringVarP(&retrieveOutput, "output", "o", "", "where to write the reassembled will (required)")
	retrieveCmd.Flags().BoolVarP(&retrieveForce, "force", "f", false, "overwrite an existing output file")
}

func resetRetrieveCommandState() {
	retrieveOutput = ""
	retrieveForce = false
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Reassemble the latest will",
	Long: `Decrypts and merges the fragments of the latest stored will.

This does not fire the switch: no trigger flag is written and the nominee
is not notified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting retrieve command")
		if retrieveOutput == "" {
			return Logger.ErrorfAndReturn("--output is required")
		}

		spinner, cleanup := startSpinner("Retrieving will...")
		defer cleanup()

		result, err := workflows.Retrieve(context.Background(), workflows.RetrieveOptions{
			Common:     common(),
			OutputPath: retrieveOutput,
			Force:      retrieveForce,
			Passphrase: promptPassphrase,
		})
		if err != nil {
			return fail(spinner, "Retrieve", err)
		}

		spinner.FinalMSG = fmt.Sprintf("%s Reassembled %d fragments into %s\n  BLAKE3: %s",
			ui.Success.Sprint("✓"), result.Fragments, ui.Path.Sprint(result.OutputPath), ui.Muted.Sprint(result.Digest))
		return nil
	},
}
