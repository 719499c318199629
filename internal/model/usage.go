package model

import "time"

// Message types as they appear in Claude Code session logs
const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
)

// SyntheticModel is the sentinel model name used for non-real test traffic.
// Events carrying it are dropped during parsing and never reach storage.
const SyntheticModel = "<synthetic>"

// TokenUsage contains token counts from a Claude API response
type TokenUsage struct {
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

// Total returns the sum of all four token categories
func (t TokenUsage) Total() int64 {
	return t.InputTokens + t.OutputTokens + t.CacheCreationTokens + t.CacheReadTokens
}

// UsageEvent represents a single message observed in a Claude Code session log.
// The (SessionID, MessageID) pair is the natural key: re-ingesting the same
// pair is a no-op at the store level.
type UsageEvent struct {
	Timestamp   time.Time // always UTC
	SessionID   string
	MessageID   string
	MessageType string // TypeUser or TypeAssistant
	Model       string // empty when the log line carries no model
	Folder      string
	GitBranch   string // empty when not in a git checkout
	Version     string
	Usage       *TokenUsage // nil for user prompts
	Content     string
	CharCount   int64
}

// IsPrompt reports whether this event is a user prompt
func (e *UsageEvent) IsPrompt() bool {
	return e.MessageType == TypeUser
}

// IsResponse reports whether this event is an assistant response
func (e *UsageEvent) IsResponse() bool {
	return e.MessageType == TypeAssistant
}

// DateKey returns the calendar date (YYYY-MM-DD) used for day bucketing.
// The UTC timestamp is converted to the local timezone first, so events near
// midnight can land on different dates on machines in different timezones.
func (e *UsageEvent) DateKey() string {
	return e.DateKeyIn(time.Local)
}

// DateKeyIn returns the day bucket for an explicit timezone
func (e *UsageEvent) DateKeyIn(loc *time.Location) string {
	return e.Timestamp.In(loc).Format("2006-01-02")
}

// TotalTokens returns the event's total token count, 0 when no usage is attached
func (e *UsageEvent) TotalTokens() int64 {
	if e.Usage == nil {
		return 0
	}
	return e.Usage.Total()
}
