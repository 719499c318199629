package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhaobenny/cchistory/internal/config"
	"github.com/zhaobenny/cchistory/internal/logging"
	"github.com/zhaobenny/cchistory/internal/model"
	"github.com/zhaobenny/cchistory/internal/parser"
	"github.com/zhaobenny/cchistory/internal/store"
)

// env bundles the pieces every command needs: config, timezone, and logger.
type env struct {
	cfg *config.Config
	loc *time.Location
	log *zap.Logger
}

func newEnv(verbose bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolving timezone: %w", err)
	}
	return &env{
		cfg: cfg,
		loc: loc,
		log: logging.ForRun(logging.New(verbose)),
	}, nil
}

func (e *env) openStore() (*store.Store, error) {
	s, err := store.Open(e.cfg.DBPath,
		store.WithLocation(e.loc),
		store.WithLogger(e.log))
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// parseAll reads every JSONL log under the data directory.
func (e *env) parseAll() ([]model.UsageEvent, error) {
	files, err := parser.FindLogFiles(e.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return parser.New(e.log).ParseFiles(files), nil
}

// ingest parses all logs and writes them to the store. Returns the parsed
// events alongside the count of rows actually inserted, so callers can
// report "N new" and still render from the full event set.
func (e *env) ingest(s *store.Store) ([]model.UsageEvent, int64, error) {
	events, err := e.parseAll()
	if err != nil {
		return nil, 0, err
	}
	inserted, err := s.Put(events)
	if err != nil {
		return nil, 0, err
	}
	e.log.Debug("ingest complete",
		zap.Int("parsed", len(events)),
		zap.Int64("inserted", inserted))
	return events, inserted, nil
}
