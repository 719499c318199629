package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "0.1.0"

type rootOptions struct {
	verbose bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "cchistory",
		Short: "Claude Code usage history tracker",
		Long: "cchistory reads Claude Code session logs, keeps a deduplicated local\n" +
			"history database, and reports token usage and estimated costs over time.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newUpdateCmd(opts),
		newUsageCmd(opts),
		newStatsCmd(opts),
		newWatchCmd(opts),
		newServiceCmd(opts),
	)

	root.Version = Version
	root.SetVersionTemplate(fmt.Sprintf("cchistory %s\n", Version))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
