package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PolarWolf314/lastwill/internal/liveness"
	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/spf13/cobra"
)

var watchInterval time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default switch.poll_interval)")
}

func resetWatchCommandState() {
	watchInterval = 0
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the switch until it fires",
	Long: `Checks the switch at every poll interval until the will has been
released and the nominee notified, or until interrupted.

The key is derived at start-up, so the passphrase must be available then.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting watch command")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var last liveness.Status
		result, err := workflows.Watch(ctx, workflows.WatchOptions{
			Common:     common(),
			Interval:   watchInterval,
			Passphrase: promptPassphrase,
			Report: func(r liveness.Result) {
				// Only print transitions; SAFE repeats every interval.
				if r.Status != last || r.Status == liveness.StatusError {
					printResult(r)
				}
				last = r.Status
				Logger.Debugf("Check: %s %s", r.Status, r.Message)
			},
		})
		if err != nil {
			Logger.Errorf("%s", formatError("Watch", err))
			if isUnexpectedError(err) {
				return err
			}
			return nil
		}

		if result.Last.Final() {
			Logger.Printf("%s Will released after %d checks", ui.Success.Sprint("✓"), result.Checks)
		} else {
			Logger.Printf("%s Stopped after %d checks", ui.Info.Sprint("ℹ"), result.Checks)
		}
		return nil
	},
}
