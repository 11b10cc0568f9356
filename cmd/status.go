package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PolarWolf314/lastwill/internal/liveness"
	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
)

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func resetStatusCommandState() {
	statusJSON = false
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the dead man's switch",
	Long: `Evaluates the switch once and prints its state.

If the grace period has lapsed this releases the will and notifies the
nominee, exactly as the watcher would. Exit status is non-zero on ERROR.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")

		result, err := workflows.Status(context.Background(), workflows.StatusOptions{
			Common:     common(),
			Passphrase: promptPassphrase,
		})
		if err != nil {
			fmt.Println(formatError("Status", err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if statusJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal status to JSON: %w", err)
			}
			fmt.Println(string(data))
		} else {
			printResult(result)
		}
		if result.Status == liveness.StatusError {
			return fmt.Errorf("switch check failed: %s", result.Message)
		}
		return nil
	},
}

// printResult prints one switch result in human-readable form.
func printResult(r liveness.Result) {
	fmt.Printf("%s %s\n", ui.Status(string(r.Status)), r.Message)
	if !r.LastSeen.IsZero() {
		fmt.Printf("  %-10s %s\n", "Last seen:", r.LastSeen.Format(time.RFC3339))
	}
	if r.Status == liveness.StatusSafe {
		fmt.Printf("  %-10s %s\n", "Remaining:", r.Remaining.Round(time.Second))
	}
	if r.Locator != "" {
		fmt.Printf("  %-10s %s\n", "Locator:", ui.Path.Sprint(r.Locator))
	}
}
