package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaobenny/cchistory/internal/aggregator"
	"github.com/zhaobenny/cchistory/internal/model"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLocation(time.UTC)}, opts...)
	s, err := Open(filepath.Join(t.TempDir(), "usage", "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init())
	return s
}

func responseEvent(msgID string, ts time.Time, usage model.TokenUsage) model.UsageEvent {
	return model.UsageEvent{
		Timestamp:   ts,
		SessionID:   "test-session",
		MessageID:   msgID,
		MessageType: model.TypeAssistant,
		Model:       "claude-sonnet-4-20250514",
		Folder:      "/test",
		Version:     "1.0.0",
		Usage:       &usage,
	}
}

func promptEvent(msgID string, ts time.Time) model.UsageEvent {
	return model.UsageEvent{
		Timestamp:   ts,
		SessionID:   "test-session",
		MessageID:   msgID,
		MessageType: model.TypeUser,
		Folder:      "/test",
		Version:     "1.0.0",
	}
}

func TestInitIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Init())
	require.NoError(t, s.Init())
}

func TestPutAndStats(t *testing.T) {
	s := openTestStore(t)

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	inserted, err := s.Put([]model.UsageEvent{
		promptEvent("m1", ts),
		responseEvent("m2", ts, model.TokenUsage{
			InputTokens: 100, OutputTokens: 200,
			CacheCreationTokens: 50, CacheReadTokens: 25,
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalRecords)
	assert.Equal(t, int64(1), stats.TotalDays)
	assert.Equal(t, int64(1), stats.TotalPrompts)
	assert.Equal(t, int64(1), stats.TotalResponses)
	assert.Equal(t, int64(1), stats.TotalSessions)
	assert.Equal(t, int64(375), stats.TotalTokens)
	assert.Equal(t, "2024-01-15", stats.OldestDate)
	assert.Equal(t, "2024-01-15", stats.NewestDate)
}

func TestPutIdempotent(t *testing.T) {
	s := openTestStore(t)

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	events := []model.UsageEvent{
		promptEvent("m1", ts),
		responseEvent("m2", ts, model.TokenUsage{InputTokens: 10}),
	}

	inserted, err := s.Put(events)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	before, err := s.Snapshots("", "")
	require.NoError(t, err)

	// Re-ingesting the same batch is the expected steady state, not an error
	inserted, err = s.Put(events)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inserted)

	after, err := s.Snapshots("", "")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalRecords)
}

func TestPutDuplicateNaturalKey(t *testing.T) {
	s := openTestStore(t)

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	first := responseEvent("m1", ts, model.TokenUsage{InputTokens: 100})
	// Same (session, message) pair with different payload still conflicts
	second := responseEvent("m1", ts.Add(time.Hour), model.TokenUsage{InputTokens: 999})

	inserted, err := s.Put([]model.UsageEvent{first, second})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRecords)
	assert.Equal(t, int64(100), stats.TotalTokens)
}

func TestSnapshotRecomputeSpansAllDays(t *testing.T) {
	s := openTestStore(t)

	day1 := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)

	_, err := s.Put([]model.UsageEvent{responseEvent("m1", day1, model.TokenUsage{InputTokens: 10})})
	require.NoError(t, err)

	// A later batch touching only day2 must still leave day1's snapshot correct
	_, err = s.Put([]model.UsageEvent{responseEvent("m2", day2, model.TokenUsage{OutputTokens: 20})})
	require.NoError(t, err)

	snaps, err := s.Snapshots("", "")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "2024-01-15", snaps[0].Date)
	assert.Equal(t, int64(10), snaps[0].TotalTokens)
	assert.Equal(t, "2024-01-16", snaps[1].Date)
	assert.Equal(t, int64(20), snaps[1].TotalTokens)
}

func TestSnapshotsRangeFilters(t *testing.T) {
	s := openTestStore(t)

	for i, day := range []int{10, 11, 12} {
		ts := time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC)
		_, err := s.Put([]model.UsageEvent{promptEvent(string(rune('a'+i)), ts)})
		require.NoError(t, err)
	}

	snaps, err := s.Snapshots("2024-01-11", "")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "2024-01-11", snaps[0].Date)

	snaps, err = s.Snapshots("2024-01-11", "2024-01-11")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
}

func TestDayBucketUsesStoreLocation(t *testing.T) {
	est := time.FixedZone("UTC-5", -5*60*60)
	s := openTestStore(t, WithLocation(est))

	// 00:30 UTC on Jan 1 lands on Dec 31 in UTC-5
	ts := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	_, err := s.Put([]model.UsageEvent{promptEvent("m1", ts)})
	require.NoError(t, err)

	snaps, err := s.Snapshots("", "")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "2023-12-31", snaps[0].Date)
}

func TestCostScenario(t *testing.T) {
	s := openTestStore(t)

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	e := responseEvent("m1", ts, model.TokenUsage{InputTokens: 1_000_000})
	e.Model = "claude-sonnet-4-5-20250929"

	_, err := s.Put([]model.UsageEvent{e})
	require.NoError(t, err)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.InDelta(t, 3.00, stats.TotalCost, 1e-9)
	assert.InDelta(t, 3.00, stats.CostByModel["claude-sonnet-4-5-20250929"], 1e-9)
}

func TestUnknownModelCostsZero(t *testing.T) {
	s := openTestStore(t)

	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	e := responseEvent("m1", ts, model.TokenUsage{InputTokens: 1_000_000})
	e.Model = "some-unlisted-model"

	_, err := s.Put([]model.UsageEvent{e})
	require.NoError(t, err)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCost)
	assert.Equal(t, int64(1_000_000), stats.TokensByModel["some-unlisted-model"])
}

func TestSnapshotAgreesWithAggregator(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)
	events := []model.UsageEvent{
		promptEvent("m1", base),
		responseEvent("m2", base.Add(time.Minute), model.TokenUsage{
			InputTokens: 100, OutputTokens: 50, CacheReadTokens: 30,
		}),
		responseEvent("m3", base.AddDate(0, 0, 1), model.TokenUsage{
			InputTokens: 5, OutputTokens: 7, CacheCreationTokens: 11,
		}),
	}
	events[2].SessionID = "another-session"

	_, err := s.Put(events)
	require.NoError(t, err)

	snaps, err := s.Snapshots("", "")
	require.NoError(t, err)

	daily := aggregator.ByDay(events, time.UTC)
	require.Len(t, snaps, len(daily))

	for _, snap := range snaps {
		day, ok := daily[snap.Date]
		require.True(t, ok, "missing day %s", snap.Date)
		assert.Equal(t, day.TotalPrompts, snap.TotalPrompts)
		assert.Equal(t, day.TotalResponses, snap.TotalResponses)
		assert.Equal(t, day.TotalSessions, snap.TotalSessions)
		assert.Equal(t, day.TotalTokens, snap.TotalTokens)
		assert.Equal(t, day.InputTokens, snap.InputTokens)
		assert.Equal(t, day.OutputTokens, snap.OutputTokens)
		assert.Equal(t, day.CacheCreationTokens, snap.CacheCreationTokens)
		assert.Equal(t, day.CacheReadTokens, snap.CacheReadTokens)
	}
}

func TestEmptyDatabaseStats(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRecords)
	assert.Empty(t, stats.OldestDate)
	assert.Empty(t, stats.TokensByModel)
}

func TestPutEmptyBatch(t *testing.T) {
	s := openTestStore(t)
	inserted, err := s.Put(nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}
