package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tripsense/ai/tokenizer"
	"github.com/hrygo/tripsense/store/db/file"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	driver, err := file.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	return NewTracker(driver)
}

func usage(total int) tokenizer.Usage {
	return tokenizer.Usage{PromptTokens: total / 2, CompletionTokens: total - total/2, TotalTokens: total}
}

func TestTrackRequestAggregates(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	tr.TrackRequest(ctx, "travel-assistant", "u1", usage(1000), 800, true, "")
	tr.TrackRequest(ctx, "travel-assistant", "u1", usage(500), 400, true, "")
	tr.TrackRequest(ctx, "history", "u2", usage(0), 50, false, "boom")

	summary := tr.GetSummary(24)
	assert.Equal(t, 3, summary.TotalRequests)
	assert.InDelta(t, 2.0/3.0, summary.SuccessRate, 1e-9)
	assert.Equal(t, int64(1500), summary.TotalTokens)
	assert.Equal(t, 1, summary.ErrorCount)
	assert.InDelta(t, 500.0, summary.AvgTokensPerRequest, 1e-9)

	u1 := tr.GetUserStats("u1")
	assert.Equal(t, int64(2), u1.TotalRequests)
	assert.Equal(t, int64(1500), u1.TotalTokens)
	assert.InDelta(t, 600.0, u1.AvgLatencyMs, 1e-9)

	unknown := tr.GetUserStats("nobody")
	assert.Zero(t, unknown.TotalRequests)
}

func TestSummaryWindowExcludesOldRequests(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	base := time.Now()
	tr.nowFunc = func() time.Time { return base.Add(-48 * time.Hour) }
	tr.TrackRequest(ctx, "travel-assistant", "u", usage(100), 100, true, "")

	tr.nowFunc = func() time.Time { return base }
	tr.TrackRequest(ctx, "travel-assistant", "u", usage(200), 100, true, "")

	summary := tr.GetSummary(24)
	assert.Equal(t, 1, summary.TotalRequests)
	assert.Equal(t, int64(200), summary.TotalTokens)
}

func TestHourlyBreakdownOrderedOldestFirst(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 30, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		hour := base.Add(time.Duration(i) * time.Hour)
		tr.nowFunc = func() time.Time { return hour }
		tr.TrackRequest(ctx, "travel-assistant", "u", usage(100), 100, true, "")
	}
	tr.nowFunc = func() time.Time { return base.Add(2 * time.Hour) }

	rows := tr.GetHourlyBreakdown(24)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-05-01_12", rows[0].Hour)
	assert.Equal(t, "2026-05-01_14", rows[2].Hour)
	assert.Equal(t, int64(1), rows[0].Requests)
}

func TestDashboardBundlesViews(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	tr.TrackRequest(ctx, "travel-assistant", "u", usage(300), 900, true, "")

	dash := tr.GetDashboard()
	assert.Equal(t, 1, dash.Summary24h.TotalRequests)
	require.Contains(t, dash.ByEndpoint, "travel-assistant")
	assert.Equal(t, int64(1), dash.ByEndpoint["travel-assistant"].Requests)
	assert.NotEmpty(t, dash.HourlyBreakdown)
}

func TestTrackerPersistsAndRestores(t *testing.T) {
	dir := t.TempDir()
	driver, err := file.NewDB(dir)
	require.NoError(t, err)
	ctx := context.Background()

	tr := NewTracker(driver)
	for i := 0; i < 12; i++ {
		tr.TrackRequest(ctx, "travel-assistant", "u", usage(100), 100, true, "")
	}
	tr.Flush(ctx)

	reopened, err := file.NewDB(dir)
	require.NoError(t, err)
	tr2 := NewTracker(reopened)

	assert.Equal(t, int64(12), tr2.GetUserStats("u").TotalRequests)
	assert.Equal(t, 12, tr2.GetSummary(24).TotalRequests)
}
