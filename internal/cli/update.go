package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhaobenny/cchistory/internal/parser"
)

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Ingest new usage logs into the history database",
		Long: "Scan the Claude Code projects directory for JSONL session logs and add\n" +
			"any records not already in the database. Safe to run repeatedly.",
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

			events, inserted, err := e.ingest(s)
			if errors.Is(err, parser.ErrNoDataDir) {
				fmt.Printf("No Claude Code data found at %s\n", e.cfg.DataDir)
				fmt.Println("Run Claude Code at least once, or set data_dir in ~/.cchistory.yaml.")
				return nil
			}
			if err != nil {
				return err
			}

			if inserted == 0 {
				fmt.Printf("Up to date. %d records on file.\n", len(events))
			} else {
				fmt.Printf("Added %d new records (%d parsed).\n", inserted, len(events))
			}
			return nil
		},
	}
}
