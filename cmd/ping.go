package cmd

import (
	"context"
	"time"

	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Record that you are alive",
	Long:  `Records a heartbeat, restarting the grace period of the dead man's switch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting ping command")

		spinner, cleanup := startSpinner("Recording heartbeat...")
		defer cleanup()

		result, err := workflows.Ping(context.Background(), workflows.PingOptions{Common: common()})
		if err != nil {
			return fail(spinner, "Ping", err)
		}

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Heartbeat recorded at " + result.At.Format(time.RFC3339)
		if !result.Previous.IsZero() {
			spinner.FinalMSG += " " + ui.Muted.Sprint("previous "+result.Previous.Format(time.RFC3339))
		}
		return nil
	},
}
