package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PolarWolf314/lastwill/internal/liveness"
	"github.com/PolarWolf314/lastwill/internal/ui"
	"github.com/PolarWolf314/lastwill/internal/workflows"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveWatch    bool
	serveNoBanner bool
)

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default server.addr)")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "also poll the switch in the background")
	serveCmd.Flags().BoolVar(&serveNoBanner, "no-banner", false, "do not print the start-up banner")
}

func resetServeCommandState() {
	serveAddr = ""
	serveWatch = false
	serveNoBanner = false
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Serves the heartbeat and status endpoints and the download route for a
released will:

  POST /ping             record a heartbeat
  GET  /status           check the switch
  GET  /download/{name}  fetch a released will

Checking the status can release the will, so the key is derived at
start-up. With --watch the switch is also polled in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting serve command")

		if !serveNoBanner {
			figure.NewColorFigure("lastwill", "small", "cyan", true).Print()
			fmt.Println()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err := workflows.Serve(ctx, workflows.ServeOptions{
			Common:     common(),
			Addr:       serveAddr,
			Watch:      serveWatch,
			Passphrase: promptPassphrase,
			Ready: func(addr string) {
				fmt.Printf("%s Listening on %s\n", ui.Success.Sprint("✓"), ui.Highlight.Sprint(addr))
			},
			Report: func(r liveness.Result) {
				if r.Status != liveness.StatusSafe && r.Status != liveness.StatusNoData {
					printResult(r)
				}
			},
		})
		if err != nil {
			fmt.Println(formatError("Serve", err))
			if isUnexpectedError(err) {
				return err
			}
		}
		return nil
	},
}
