package main

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/lastwill/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lastwill",
	Short: "lastwill - a dead man's switch for your digital will",
	Long: `lastwill splits a file into encrypted fragments hidden under meaningless
names, and releases it to a nominee if you stop checking in.

Usage:
  lastwill init --user <id> --nominee <email>
  lastwill store <file>
  lastwill ping            # check in; run this regularly
  lastwill serve --watch   # HTTP heartbeat endpoint plus the switch

Run 'lastwill help <command>' for more details on a specific command.
`,
	SilenceUsage: true,
}

func init() {
	cmd.Register(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
