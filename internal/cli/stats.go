package cli

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhaobenny/cchistory/internal/output"
	"github.com/zhaobenny/cchistory/internal/parser"
	"github.com/zhaobenny/cchistory/internal/pricing"
	"github.com/zhaobenny/cchistory/internal/report"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		fast    bool
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show detailed usage statistics and cost analysis",
		Long: "Print lifetime totals, averages, per-model breakdowns, and a comparison\n" +
			"of estimated API cost against the subscription plan price.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(opts.verbose)
			if err != nil {
				return err
			}

			s, err := e.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if !fast {
				if _, _, err := e.ingest(s); err != nil && !errors.Is(err, parser.ErrNoDataDir) {
					return err
				}
			}

			if !offline {
				table := pricing.NewFetcher(time.Hour).Fetch(cmd.Context())
				if err := s.UpdatePricing(table); err != nil {
					e.log.Warn("pricing update failed", zap.Error(err))
				}
			}

			rep := report.New(s, e.cfg.PlanMonthlyUSD)
			stats, err := rep.Overview()
			if err != nil {
				return err
			}
			cmp, err := rep.ComparePlan()
			if err != nil {
				return err
			}

			output.RenderStats(os.Stdout, stats, cmp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fast, "fast", false, "Report from the database without re-ingesting logs")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use embedded pricing data (no network)")

	return cmd
}
