package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhaobenny/cchistory/internal/model"
)

// ErrNoDataDir is returned when the Claude projects directory does not exist
// at all. Existing persisted data is left untouched.
var ErrNoDataDir = errors.New("claude data directory not found; make sure Claude Code has been run at least once")

// rawLine represents the raw JSON structure of one session log line. Every
// field is optional on the wire; missing or wrong-typed fields read as zero
// values rather than failing the line.
type rawLine struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	SessionID string      `json:"sessionId"`
	UUID      string      `json:"uuid"`
	CWD       string      `json:"cwd"`
	GitBranch string      `json:"gitBranch"`
	Version   string      `json:"version"`
	Message   *rawMessage `json:"message"`
}

type rawMessage struct {
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   *rawUsage       `json:"usage"`
}

type rawUsage struct {
	InputTokens   int64 `json:"input_tokens"`
	OutputTokens  int64 `json:"output_tokens"`
	CacheCreation *struct {
		Base        int64 `json:"cache_creation_input_tokens"`
		Ephemeral5m int64 `json:"ephemeral_5m_input_tokens"`
		Ephemeral1h int64 `json:"ephemeral_1h_input_tokens"`
	} `json:"cache_creation"`
	CacheReadTokens int64 `json:"cache_read_input_tokens"`
}

// contentBlock is one element of a structured content array
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Parser converts session log lines into usage events
type Parser struct {
	log *zap.Logger
}

// New creates a parser that reports malformed input through the given logger
func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// ParseLine converts a single log line into a usage event. The second return
// value is false when the line does not describe a prompt or response worth
// keeping; that is not an error. A non-nil error means the line was not
// well-formed JSON.
func (p *Parser) ParseLine(line []byte) (model.UsageEvent, bool, error) {
	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return model.UsageEvent{}, false, err
	}

	// Only user and assistant messages become events
	if raw.Type != model.TypeUser && raw.Type != model.TypeAssistant {
		return model.UsageEvent{}, false, nil
	}

	ts, ok := parseTimestamp(raw.Timestamp)
	if !ok {
		return model.UsageEvent{}, false, nil
	}

	if raw.Message == nil {
		return model.UsageEvent{}, false, nil
	}

	// Synthetic traffic never reaches storage or aggregation
	if raw.Message.Model == model.SyntheticModel {
		return model.UsageEvent{}, false, nil
	}

	event := model.UsageEvent{
		Timestamp:   ts,
		SessionID:   orUnknown(raw.SessionID),
		MessageID:   orUnknown(raw.UUID),
		MessageType: raw.Type,
		Model:       raw.Message.Model,
		Folder:      orUnknown(raw.CWD),
		GitBranch:   raw.GitBranch,
		Version:     orUnknown(raw.Version),
	}

	event.Content, event.CharCount = extractContent(raw.Message.Content)

	// Token usage only exists on assistant responses
	if raw.Type == model.TypeAssistant && raw.Message.Usage != nil {
		event.Usage = extractTokenUsage(raw.Message.Usage)
	}

	return event, true, nil
}

// ParseFile parses a single JSONL file. Malformed lines are skipped with a
// warning naming the file and line number; they never abort the file.
func (p *Parser) ParseFile(path string) ([]model.UsageEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	var events []model.UsageEvent
	scanner := bufio.NewScanner(file)

	// Session logs can carry very large lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		event, ok, err := p.ParseLine(line)
		if err != nil {
			p.log.Warn("skipping malformed line",
				zap.String("file", path),
				zap.Int("line", lineNum),
				zap.Error(err))
			continue
		}
		if ok {
			events = append(events, event)
		}
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading %s: %w", path, err)
	}
	return events, nil
}

// ParseFiles parses multiple JSONL files with a bounded worker pool. A file
// that fails to open or read is reported and contributes zero events; the
// rest of the batch still proceeds. Order of the result is unspecified.
func (p *Parser) ParseFiles(paths []string) []model.UsageEvent {
	results := make([][]model.UsageEvent, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			events, err := p.ParseFile(path)
			if err != nil {
				p.log.Warn("error parsing file", zap.String("file", path), zap.Error(err))
			}
			results[i] = events
			return nil
		})
	}
	g.Wait()

	var all []model.UsageEvent
	for _, events := range results {
		all = append(all, events...)
	}
	return all
}

// FindLogFiles returns all JSONL files under the Claude projects directory.
// Returns ErrNoDataDir when the directory itself is missing.
func FindLogFiles(dataDir string) ([]string, error) {
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", dataDir, ErrNoDataDir)
	}

	var files []string
	err := filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && filepath.Ext(path) == ".jsonl" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// parseTimestamp parses a strict RFC 3339 timestamp, accepting a bare "Z"
// suffix as UTC, and normalizes to UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// extractContent pulls display text out of a message content field. Content
// is either a plain string or an array of typed blocks; blocks tagged "text"
// are joined with newlines. Any other shape yields no content.
func extractContent(raw json.RawMessage) (string, int64) {
	if len(raw) == 0 {
		return "", 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, int64(len(s))
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Type == "text" {
				parts = append(parts, b.Text)
			}
		}
		if len(parts) == 0 {
			return "", 0
		}
		joined := strings.Join(parts, "\n")
		return joined, int64(len(joined))
	}

	return "", 0
}

// extractTokenUsage builds a fully populated TokenUsage, defaulting absent
// counters to 0. Cache creation is the sum of the base counter and both
// ephemeral-duration variants.
func extractTokenUsage(usage *rawUsage) *model.TokenUsage {
	var cacheCreation int64
	if cc := usage.CacheCreation; cc != nil {
		cacheCreation = cc.Base + cc.Ephemeral5m + cc.Ephemeral1h
	}

	return &model.TokenUsage{
		InputTokens:         usage.InputTokens,
		OutputTokens:        usage.OutputTokens,
		CacheCreationTokens: cacheCreation,
		CacheReadTokens:     usage.CacheReadTokens,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
