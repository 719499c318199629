package cli

import (
	"fmt"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/zhaobenny/cchistory/internal/parser"
	"github.com/zhaobenny/cchistory/internal/store"
)

func newServiceCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:       "service [install|start|stop|uninstall|status|run]",
		Short:     "Manage the background ingestion service",
		Long:      "Install cchistory as a system service that periodically ingests new usage logs.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"install", "start", "stop", "uninstall", "status", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := ""
			if len(args) > 0 {
				action = args[0]
			}

			svcConfig := &service.Config{
				Name:        "cchistory",
				DisplayName: "cchistory Ingest Service",
				Description: "Periodically ingests Claude Code usage logs into the local history database",
				Arguments:   []string{"service", "run", fmt.Sprintf("--interval=%s", interval)},
			}

			svc := &ingestService{interval: interval, verbose: opts.verbose}
			s, err := service.New(svc, svcConfig)
			if err != nil {
				return fmt.Errorf("creating service: %w", err)
			}

			switch action {
			case "install":
				if err := s.Install(); err != nil {
					return fmt.Errorf("installing service: %w", err)
				}
				if err := s.Start(); err != nil {
					return fmt.Errorf("service installed but failed to start: %w", err)
				}
				fmt.Printf("Service installed and started. Ingest interval: %s\n", interval)

			case "start":
				if err := s.Start(); err != nil {
					return fmt.Errorf("starting service: %w", err)
				}
				fmt.Println("Service started.")

			case "stop":
				if err := s.Stop(); err != nil {
					return fmt.Errorf("stopping service: %w", err)
				}
				fmt.Println("Service stopped.")

			case "uninstall":
				s.Stop() // ignore error
				if err := s.Uninstall(); err != nil {
					return fmt.Errorf("uninstalling service: %w", err)
				}
				fmt.Println("Service uninstalled.")

			case "status":
				status, err := s.Status()
				if err != nil {
					fmt.Printf("Service status: not installed or error (%v)\n", err)
					return nil
				}
				switch status {
				case service.StatusRunning:
					fmt.Println("Service status: running")
				case service.StatusStopped:
					fmt.Println("Service status: stopped")
				default:
					fmt.Println("Service status: unknown")
				}

			case "run":
				logger, err := s.Logger(nil)
				if err == nil {
					svc.logger = logger
				}
				return s.Run()

			default:
				return cmd.Help()
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "Ingest interval for the background service")

	return cmd
}

// ingestService implements service.Interface for periodic background
// ingestion.
type ingestService struct {
	interval time.Duration
	verbose  bool
	stop     chan struct{}
	logger   service.Logger
}

func (s *ingestService) Start(svc service.Service) error {
	s.stop = make(chan struct{})
	go s.run()
	return nil
}

func (s *ingestService) Stop(svc service.Service) error {
	close(s.stop)
	return nil
}

func (s *ingestService) run() {
	s.ingest()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ingest()
		case <-s.stop:
			return
		}
	}
}

func (s *ingestService) ingest() {
	e, err := newEnv(s.verbose)
	if err != nil {
		s.errorf("config error: %v", err)
		return
	}

	st, err := e.openStore()
	if err != nil {
		s.errorf("opening store: %v", err)
		return
	}
	defer st.Close()

	s.ingestInto(e, st)
}

func (s *ingestService) ingestInto(e *env, st *store.Store) {
	files, err := parser.FindLogFiles(e.cfg.DataDir)
	if err != nil {
		s.errorf("finding logs: %v", err)
		return
	}

	events := parser.New(e.log).ParseFiles(files)
	inserted, err := st.Put(events)
	if err != nil {
		s.errorf("writing records: %v", err)
		return
	}
	if inserted > 0 && s.logger != nil {
		s.logger.Infof("ingested %d new records", inserted)
	}
}

func (s *ingestService) errorf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
	}
}
