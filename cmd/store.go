package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store <file>",
	Short: "Split, encrypt and hide a will",
	Long: `Splits the file into fragments, encrypts each one and stores it under an
obfuscated name. The fragment map becomes the will released by the switch.

The passphrase is read from the variable named by user.passphrase_env, or
prompted for when it is unset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting store command for %s", args[0])

		// Prompt before the spinner starts.
		opts := workflows.StoreOptions{
			Common:     common(),
			SourcePath: args[0],
			Passphrase: promptPassphrase,
		}

		spinner, cleanup := startSpinner("Storing will...")
		defer cleanup()

		result, err := workflows.Store(context.Background(), opts)
		if err != nil {
			return fail(spinner, "Store", err)
		}

		will := result.Will
		spinner.FinalMSG = fmt.Sprintf("%s Stored %s as %d encrypted fragments\n  Map:    %s\n  BLAKE3: %s",
			ui.Success.Sprint("✓"), ui.Path.Sprint(will.Source), len(will.Fragments),
			ui.Path.Sprint(will.MapPath), ui.Muted.Sprint(result.Digest))
		if will.Replaced > 0 {
			spinner.FinalMSG += fmt.Sprintf("\n  Replaced a previous store of the same file (%d fragments removed)", will.Replaced)
		}
		return nil
	},
}
