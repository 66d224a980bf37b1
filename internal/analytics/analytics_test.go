package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/folio/internal/db"
)

func setupTracker(t *testing.T) *Tracker {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	tracker, err := NewTracker(database, zerolog.Nop())
	require.NoError(t, err)
	return tracker
}

func TestHashIPIsStableAndOpaque(t *testing.T) {
	tracker := setupTracker(t)

	h := tracker.HashIP("203.0.113.7")
	assert.Len(t, h, 16)
	assert.Equal(t, h, tracker.HashIP("203.0.113.7"))
	assert.NotEqual(t, h, tracker.HashIP("203.0.113.8"))
	assert.NotContains(t, h, "203")

	other := setupTracker(t)
	assert.NotEqual(t, h, other.HashIP("203.0.113.7"), "salts differ per tracker")
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	tracker := setupTracker(t)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tracker.now = func() time.Time { return now.Add(-30 * 24 * time.Hour) }
	require.NoError(t, tracker.RecordVisit(ctx, "1.1.1.1", "old-agent", "/"))

	tracker.now = func() time.Time { return now.Add(-3 * 24 * time.Hour) }
	require.NoError(t, tracker.RecordVisit(ctx, "1.1.1.1", "agent", "/resume"))

	tracker.now = func() time.Time { return now }
	require.NoError(t, tracker.RecordVisit(ctx, "2.2.2.2", "agent", "/"))
	require.NoError(t, tracker.RecordLookup(ctx, "contact", OutcomeResolved))
	require.NoError(t, tracker.RecordLookup(ctx, "contact", OutcomeResolved))
	require.NoError(t, tracker.RecordLookup(ctx, "skills", OutcomeResolved))
	require.NoError(t, tracker.RecordLookup(ctx, "fallback", OutcomeFallback))

	stats, err := tracker.Stats(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalVisitors)
	assert.EqualValues(t, 2, stats.UniqueVisitors)
	assert.EqualValues(t, 1, stats.VisitorsToday)
	assert.EqualValues(t, 2, stats.VisitorsThisWeek)
	assert.EqualValues(t, 4, stats.TotalQuestions)
	assert.InDelta(t, 0.25, stats.FallbackRate, 1e-9)

	require.NotEmpty(t, stats.TopTopics)
	assert.Equal(t, "contact", stats.TopTopics[0].Topic)
	assert.EqualValues(t, 2, stats.TopTopics[0].Count)
	assert.True(t, stats.TopTopics[0].LastSeenAt.Equal(now))

	require.Len(t, stats.RecentVisitors, 3)
	assert.Equal(t, "/", stats.RecentVisitors[0].Path)
	assert.True(t, stats.RecentVisitors[0].Timestamp.Equal(now))
}

func TestCleanupRemovesOldVisitors(t *testing.T) {
	ctx := context.Background()
	tracker := setupTracker(t)
	now := time.Now()

	tracker.now = func() time.Time { return now.Add(-400 * 24 * time.Hour) }
	require.NoError(t, tracker.RecordVisit(ctx, "1.1.1.1", "agent", "/"))
	tracker.now = func() time.Time { return now }
	require.NoError(t, tracker.RecordVisit(ctx, "1.1.1.1", "agent", "/"))

	removed, err := tracker.Cleanup(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	visitors, err := tracker.RecentVisitors(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, visitors, 1)
}
