package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/utils"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	purgeAll    bool
	purgeDryRun bool
	purgeForce  bool
)

func init() {
	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "purge every stored will, not just the latest")
	purgeCmd.Flags().BoolVar(&purgeDryRun, "dry-run", false, "show what would be removed without making changes")
	purgeCmd.Flags().BoolVarP(&purgeForce, "force", "f", false, "skip confirmation prompt")
}

func resetPurgeCommandState() {
	purgeAll = false
	purgeDryRun = false
	purgeForce = false
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete stored wills",
	Long: `Removes the encrypted fragments and the fragment map of the latest will,
or of every will with --all. The original file is not touched.

Use --dry-run to preview what would be removed.
Use --force to skip the confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting purge command")
		opts := workflows.PurgeOptions{Common: common(), All: purgeAll, DryRun: true}

		preview, err := workflows.Purge(context.Background(), opts)
		if err != nil {
			fmt.Println(formatError("Purge", err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		prefix := "Will remove"
		if purgeDryRun {
			prefix = "[dry-run] Would remove"
		}
		fmt.Printf("%s %d fragment(s) from %d map(s):%s", prefix, preview.Fragments, len(preview.Maps), utils.FormatPaths(preview.Maps))
		if purgeDryRun {
			fmt.Println("\nNo changes made.")
			return nil
		}

		if !purgeForce {
			fmt.Println("\nThe will cannot be released or retrieved once purged.")
			if !confirmAction("Do you want to continue?") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		opts.DryRun = false
		result, err := workflows.Purge(context.Background(), opts)
		if err != nil {
			return Logger.ErrorfAndReturn("purge incomplete: %v", err)
		}
		fmt.Printf("%s Purged %d fragment(s) from %d map(s)\n", ui.Success.Sprint("✓"), result.Fragments, len(result.Maps))
		return nil
	},
}
