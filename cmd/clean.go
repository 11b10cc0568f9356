package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	cleanForce  bool
	cleanDryRun bool
)

func init() {
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "skip confirmation prompt")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed without making changes")
}

func resetCleanCommandState() {
	cleanForce = false
	cleanDryRun = false
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove orphaned fragments and abandoned work files",
	Long: `Removes state no stored will depends on:
  - Encrypted fragments that no fragment map references, left when a
    store is interrupted before its map is saved
  - Work directory entries older than an hour, left when a store or
    retrieve is killed

Use --dry-run to preview what would be removed.
Use --force to skip the confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting clean command")

		preview, err := workflows.Clean(context.Background(), workflows.CleanOptions{Common: common(), DryRun: true})
		if err != nil {
			fmt.Println(formatError("Clean", err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if len(preview.Orphans) == 0 {
			fmt.Println(ui.Success.Sprint("✓") + " No orphaned entries found. Nothing to clean.")
			return nil
		}

		if cleanDryRun {
			fmt.Printf("[dry-run] Would remove %d orphaned entry(ies):\n", len(preview.Orphans))
		} else {
			fmt.Printf("Found %d orphaned entry(ies):\n\n", len(preview.Orphans))
		}
		printOrphanTable(preview.Orphans)

		if cleanDryRun {
			fmt.Println("\nNo changes made.")
			return nil
		}

		if !cleanForce {
			fmt.Println("\nThis will permanently delete the entries listed above.")
			fmt.Println()
			if !confirmAction("Do you want to continue?") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		result, err := workflows.Clean(context.Background(), workflows.CleanOptions{Common: common(), Force: true})
		if err != nil {
			return Logger.ErrorfAndReturn("failed to clean: %v", err)
		}
		fmt.Printf("%s Removed %d orphaned entry(ies)\n", ui.Success.Sprint("✓"), result.RemovedCount)
		return nil
	},
}

// printOrphanTable prints a formatted table of orphaned entries.
func printOrphanTable(orphans []workflows.OrphanEntry) {
	fmt.Printf("  %-8s  %s\n", "KIND", "PATH")
	for _, orphan := range orphans {
		path := orphan.RelativePath
		if path == "" {
			path = orphan.FilePath
		}
		fmt.Printf("  %-8s  %s\n", orphan.Kind, path)
	}
}
