package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhaobenny/cchistory/internal/aggregator"
	"github.com/zhaobenny/cchistory/internal/model"
	"github.com/zhaobenny/cchistory/internal/output"
	"github.com/zhaobenny/cchistory/internal/parser"
	"github.com/zhaobenny/cchistory/internal/store"
)

func newUsageCmd(opts *rootOptions) *cobra.Command {
	var (
		live bool
		fast bool
		anon bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show the usage dashboard",
		Long: "Render a terminal dashboard of token usage: totals, a 14-day activity\n" +
			"strip, and the top projects by tokens.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(opts.verbose)
			if err != nil {
				return err
			}

			// Fast mode renders straight from the logs without touching
			// the database.
			var s *store.Store
			if !fast {
				if s, err = e.openStore(); err != nil {
					return err
				}
				defer s.Close()
			}

			render := func(clear bool) error {
				var events []model.UsageEvent
				var err error
				if fast {
					events, err = e.parseAll()
				} else {
					events, _, err = e.ingest(s)
				}
				if errors.Is(err, parser.ErrNoDataDir) {
					fmt.Printf("No Claude Code data found at %s\n", e.cfg.DataDir)
					return nil
				}
				if err != nil {
					return err
				}
				if anon {
					events = output.Anonymize(events)
				}

				stats := aggregator.Aggregate(events, e.loc)
				output.RenderDashboard(os.Stdout, stats, events, rangeLabel(stats), clear)
				return nil
			}

			if !live {
				return render(false)
			}

			if err := render(true); err != nil {
				return err
			}
			ticker := time.NewTicker(e.cfg.Refresh())
			defer ticker.Stop()
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			for {
				select {
				case <-ticker.C:
					if err := render(true); err != nil {
						return err
					}
				case <-sig:
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Refresh the dashboard continuously")
	cmd.Flags().BoolVar(&fast, "fast", false, "Read logs directly, skip the database")
	cmd.Flags().BoolVar(&anon, "anon", false, "Replace project paths with project-NNN labels")

	return cmd
}

func rangeLabel(stats aggregator.Stats) string {
	dates := make([]string, 0, len(stats.Daily))
	for date := range stats.Daily {
		dates = append(dates, date)
	}
	if len(dates) == 0 {
		return ""
	}
	min, max := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return fmt.Sprintf("%s to %s", min, max)
}
