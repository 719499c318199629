package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhaobenny/cchistory/internal/parser"
	"github.com/zhaobenny/cchistory/internal/watcher"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the logs directory and ingest changes as they happen",
		Long: "Keep the history database current by re-ingesting whenever Claude Code\n" +
			"writes new session log lines. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(opts.verbose)
			if err != nil {
				return err
			}

			if _, statErr := os.Stat(e.cfg.DataDir); statErr != nil {
				return fmt.Errorf("%w: %s", parser.ErrNoDataDir, e.cfg.DataDir)
			}

			s, err := e.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			// Catch up before watching so the first change event only has
			// to cover the delta.
			if _, inserted, err := e.ingest(s); err != nil {
				return err
			} else if inserted > 0 {
				fmt.Printf("Caught up: %d new records.\n", inserted)
			}

			w := watcher.New(e.cfg.DataDir, debounce, func() {
				_, inserted, err := e.ingest(s)
				if err != nil && !errors.Is(err, parser.ErrNoDataDir) {
					e.log.Warn("ingest failed", zap.Error(err))
					return
				}
				if inserted > 0 {
					fmt.Printf("%s  +%d records\n", time.Now().Format("15:04:05"), inserted)
				}
			})
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			fmt.Printf("Watching %s (Ctrl-C to stop)\n", e.cfg.DataDir)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before re-ingesting after a change")

	return cmd
}
