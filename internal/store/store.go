package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/zhaobenny/cchistory/internal/model"
	"github.com/zhaobenny/cchistory/internal/pricing"
)

// Store wraps the SQLite connection holding usage history
type Store struct {
	db  *sql.DB
	loc *time.Location
	log *zap.Logger
}

// DailySnapshot is one precomputed row per calendar day
type DailySnapshot struct {
	Date                string
	TotalPrompts        int64
	TotalResponses      int64
	TotalSessions       int64
	TotalTokens         int64
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

// Stats is a read-only aggregate view over the whole database
type Stats struct {
	TotalRecords   int64
	TotalDays      int64
	OldestDate     string
	NewestDate     string
	TotalTokens    int64
	TotalPrompts   int64
	TotalResponses int64
	TotalSessions  int64
	TokensByModel  map[string]int64
	CostByModel    map[string]float64
	TotalCost      float64
}

// Option configures a Store
type Option func(*Store)

// WithLocation sets the timezone used for day bucketing. Defaults to the
// local timezone of the process.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithLogger sets the logger used for diagnostics
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens (creating if necessary) the usage history database. The parent
// directory is created when missing.
func Open(dbPath string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single-writer model, but WAL keeps readers cheap during recompute
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{db: db, loc: time.Local, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the schema if absent and re-upserts the full static pricing
// table. Safe to call on every startup.
func (s *Store) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		session_id TEXT NOT NULL,
		message_uuid TEXT NOT NULL,
		message_type TEXT NOT NULL,
		model TEXT,
		folder TEXT NOT NULL,
		git_branch TEXT,
		version TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cache_creation_tokens INTEGER NOT NULL,
		cache_read_tokens INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		UNIQUE(session_id, message_uuid)
	);

	CREATE INDEX IF NOT EXISTS idx_usage_records_date ON usage_records(date);

	CREATE TABLE IF NOT EXISTS daily_snapshots (
		date TEXT PRIMARY KEY,
		total_prompts INTEGER NOT NULL,
		total_responses INTEGER NOT NULL,
		total_sessions INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cache_creation_tokens INTEGER NOT NULL,
		cache_read_tokens INTEGER NOT NULL,
		snapshot_timestamp TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS model_pricing (
		model_name TEXT PRIMARY KEY,
		input_price_per_mtok REAL NOT NULL,
		output_price_per_mtok REAL NOT NULL,
		cache_write_price_per_mtok REAL NOT NULL,
		cache_read_price_per_mtok REAL NOT NULL,
		last_updated TEXT NOT NULL,
		notes TEXT
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return s.upsertPricing(pricing.Default())
}

// UpdatePricing replaces the pricing table with freshly fetched entries, so
// later cost queries use current rates.
func (s *Store) UpdatePricing(entries map[string]pricing.Entry) error {
	list := make([]pricing.Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	return s.upsertPricing(list)
}

// upsertPricing replaces the whole pricing table with the given entries
func (s *Store) upsertPricing(entries []pricing.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO model_pricing
		(model_name, input_price_per_mtok, output_price_per_mtok,
		 cache_write_price_per_mtok, cache_read_price_per_mtok, last_updated, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if _, err := stmt.Exec(e.Model, e.InputPerMTok, e.OutputPerMTok,
			e.CacheWritePerMTok, e.CacheReadPerMTok, now, e.Notes); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Put persists a batch of events and returns the number of newly inserted
// rows. Conflicts on (session_id, message_uuid) are silently skipped; that is
// the idempotence mechanism, so re-ingesting the same logs reports 0 new
// rows. After inserting, every daily snapshot is recomputed from the detail
// table inside the same transaction, so a failure partway through leaves no
// half-updated snapshot behind.
func (s *Store) Put(events []model.UsageEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO usage_records
		(date, timestamp, session_id, message_uuid, message_type, model,
		 folder, git_branch, version,
		 input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for i := range events {
		e := &events[i]

		var usage model.TokenUsage
		if e.Usage != nil {
			usage = *e.Usage
		}

		result, err := stmt.Exec(
			e.DateKeyIn(s.loc),
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.SessionID,
			e.MessageID,
			e.MessageType,
			nullable(e.Model),
			e.Folder,
			nullable(e.GitBranch),
			e.Version,
			usage.InputTokens,
			usage.OutputTokens,
			usage.CacheCreationTokens,
			usage.CacheReadTokens,
			usage.Total(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record: %w", err)
		}
		n, _ := result.RowsAffected()
		inserted += n
	}

	if err := recomputeSnapshots(tx); err != nil {
		return 0, fmt.Errorf("failed to recompute snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	s.log.Debug("persisted batch",
		zap.Int("events", len(events)),
		zap.Int64("inserted", inserted))
	return inserted, nil
}

// recomputeSnapshots rebuilds the snapshot row for every distinct date in
// the detail table. Each snapshot is a pure function of that day's detail
// rows; full recomputation keeps duplicate-skipped inserts from ever
// double-counting.
func recomputeSnapshots(tx *sql.Tx) error {
	rows, err := tx.Query(`SELECT DISTINCT date FROM usage_records`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return err
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	now := time.Now().Format(time.RFC3339)
	for _, date := range dates {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO daily_snapshots
			(date, total_prompts, total_responses, total_sessions, total_tokens,
			 input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
			 snapshot_timestamp)
			SELECT
				?,
				COALESCE(SUM(CASE WHEN message_type = 'user' THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN message_type = 'assistant' THEN 1 ELSE 0 END), 0),
				COUNT(DISTINCT session_id),
				COALESCE(SUM(total_tokens), 0),
				COALESCE(SUM(input_tokens), 0),
				COALESCE(SUM(output_tokens), 0),
				COALESCE(SUM(cache_creation_tokens), 0),
				COALESCE(SUM(cache_read_tokens), 0),
				?
			FROM usage_records WHERE date = ?
		`, date, now, date)
		if err != nil {
			return err
		}
	}

	return nil
}

// Snapshots returns daily snapshots ordered by date, optionally bounded by
// inclusive start and end dates (empty string = unbounded).
func (s *Store) Snapshots(startDate, endDate string) ([]DailySnapshot, error) {
	query := `SELECT date, total_prompts, total_responses, total_sessions, total_tokens,
	          input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens
	          FROM daily_snapshots WHERE 1=1`
	var args []interface{}

	if startDate != "" {
		query += ` AND date >= ?`
		args = append(args, startDate)
	}
	if endDate != "" {
		query += ` AND date <= ?`
		args = append(args, endDate)
	}
	query += ` ORDER BY date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []DailySnapshot
	for rows.Next() {
		var snap DailySnapshot
		if err := rows.Scan(&snap.Date, &snap.TotalPrompts, &snap.TotalResponses,
			&snap.TotalSessions, &snap.TotalTokens, &snap.InputTokens,
			&snap.OutputTokens, &snap.CacheCreationTokens, &snap.CacheReadTokens); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// GetStats computes database-wide statistics on demand. Models absent from
// the pricing table contribute zero cost rather than an error.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{
		TokensByModel: make(map[string]int64),
		CostByModel:   make(map[string]float64),
	}

	err := s.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT date) FROM usage_records`).
		Scan(&stats.TotalRecords, &stats.TotalDays)
	if err != nil {
		return nil, err
	}

	var oldest, newest sql.NullString
	err = s.db.QueryRow(`SELECT MIN(date), MAX(date) FROM usage_records`).
		Scan(&oldest, &newest)
	if err != nil {
		return nil, err
	}
	stats.OldestDate = oldest.String
	stats.NewestDate = newest.String

	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(total_tokens), 0), COALESCE(SUM(total_prompts), 0),
		       COALESCE(SUM(total_responses), 0), COALESCE(SUM(total_sessions), 0)
		FROM daily_snapshots
	`).Scan(&stats.TotalTokens, &stats.TotalPrompts, &stats.TotalResponses, &stats.TotalSessions)
	if err != nil {
		return nil, err
	}

	if stats.TotalRecords == 0 {
		return stats, nil
	}

	rows, err := s.db.Query(`
		SELECT model, SUM(total_tokens) FROM usage_records
		WHERE model IS NOT NULL GROUP BY model
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m string
		var tokens int64
		if err := rows.Scan(&m, &tokens); err != nil {
			return nil, err
		}
		stats.TokensByModel[m] = tokens
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	costRows, err := s.db.Query(`
		SELECT ur.model,
		       SUM(ur.input_tokens), SUM(ur.output_tokens),
		       SUM(ur.cache_creation_tokens), SUM(ur.cache_read_tokens),
		       COALESCE(mp.input_price_per_mtok, 0), COALESCE(mp.output_price_per_mtok, 0),
		       COALESCE(mp.cache_write_price_per_mtok, 0), COALESCE(mp.cache_read_price_per_mtok, 0)
		FROM usage_records ur
		LEFT JOIN model_pricing mp ON ur.model = mp.model_name
		WHERE ur.model IS NOT NULL
		GROUP BY ur.model
	`)
	if err != nil {
		return nil, err
	}
	defer costRows.Close()

	for costRows.Next() {
		var m string
		var input, output, cacheWrite, cacheRead int64
		var ip, op, cwp, crp float64
		if err := costRows.Scan(&m, &input, &output, &cacheWrite, &cacheRead,
			&ip, &op, &cwp, &crp); err != nil {
			return nil, err
		}

		cost := float64(input)/1_000_000*ip +
			float64(output)/1_000_000*op +
			float64(cacheWrite)/1_000_000*cwp +
			float64(cacheRead)/1_000_000*crp
		stats.CostByModel[m] = cost
		stats.TotalCost += cost
	}
	return stats, costRows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
