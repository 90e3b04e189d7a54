package examplecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tripsense/ai/history"
	"github.com/hrygo/tripsense/store"
	"github.com/hrygo/tripsense/store/db/file"
)

func newTestCache(t *testing.T, maxSize int) *Cache {
	t.Helper()
	driver, err := file.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	return New(driver, maxSize)
}

func sampleExamples(destination string) []Example {
	return []Example{
		{
			Trip: history.Trip{
				ID:                 "trip_u_1",
				Destination:        destination,
				Preferences:        "temples, gardens",
				SatisfactionRating: 5,
			},
			SimilarityScore: 0.82,
		},
	}
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t,
		"tokyo, japan_sushi,_temples,_gardens",
		Fingerprint("Tokyo, Japan", "Sushi, Temples, Gardens"))

	// Only the first five whitespace tokens of the preferences count.
	assert.Equal(t,
		"paris_a_b_c_d_e",
		Fingerprint("Paris", "a b c d e f g"))

	assert.Equal(t, "oslo_", Fingerprint("Oslo", ""))
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	_, ok := c.Get(ctx, "Tokyo, Japan", "sushi temples")
	assert.False(t, ok)

	c.Put(ctx, "Tokyo, Japan", "sushi temples", sampleExamples("Tokyo, Japan"), DefaultSatisfaction)

	got, ok := c.Get(ctx, "Tokyo, Japan", "sushi temples")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "Tokyo, Japan", got[0].Trip.Destination)
	assert.InDelta(t, 0.82, got[0].SimilarityScore, 1e-9)
}

func TestLRUEvictionKeepsTouchedEntry(t *testing.T) {
	c := newTestCache(t, 3)
	ctx := context.Background()

	c.Put(ctx, "A", "x", sampleExamples("A"), DefaultSatisfaction)
	c.Put(ctx, "B", "x", sampleExamples("B"), DefaultSatisfaction)
	c.Put(ctx, "C", "x", sampleExamples("C"), DefaultSatisfaction)

	// Touch A so B becomes the least recently used.
	_, ok := c.Get(ctx, "A", "x")
	require.True(t, ok)

	c.Put(ctx, "D", "x", sampleExamples("D"), DefaultSatisfaction)

	_, ok = c.Get(ctx, "A", "x")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "B", "x")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "C", "x")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "D", "x")
	assert.True(t, ok)

	// Evicted fingerprints lose their stats too.
	stats := c.GetStats()
	assert.Equal(t, 3, stats.Size)
	for _, e := range stats.Entries {
		assert.NotEqual(t, Fingerprint("B", "x"), e.Key)
	}
}

func TestSatisfactionRunningAverage(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	c.Put(ctx, "Rome", "food", sampleExamples("Rome"), DefaultSatisfaction)

	// One usage, then feedback: (0.5*1 + 1.0) / 2.
	_, ok := c.Get(ctx, "Rome", "food")
	require.True(t, ok)
	c.UpdateSatisfaction(ctx, "Rome", "food", 1.0)

	stats := c.GetStats()
	require.Len(t, stats.Entries, 1)
	assert.InDelta(t, 0.75, stats.Entries[0].SatisfactionScore, 1e-9)

	// Feedback for an unknown fingerprint is ignored.
	c.UpdateSatisfaction(ctx, "Nowhere", "x", 1.0)
	assert.Equal(t, 1, c.GetStats().Size)
}

func TestGetRankedCompositeScore(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	c.nowFunc = func() time.Time { return now }

	c.Put(ctx, "Kyoto", "temples", sampleExamples("Kyoto"), DefaultSatisfaction)
	c.Put(ctx, "Lima", "food", sampleExamples("Lima"), DefaultSatisfaction)

	// Pin the stats: after GetRanked's own usage bump the Kyoto entry sits
	// at usage 5 against a max of 10, satisfaction 0.8, created 10 days ago.
	kyoto := Fingerprint("Kyoto", "temples")
	c.stats[kyoto].UsageCount = 4
	c.stats[kyoto].SatisfactionScore = 0.8
	c.stats[kyoto].CreatedAt = now.Add(-10 * 24 * time.Hour)
	c.stats[Fingerprint("Lima", "food")].UsageCount = 10

	examples, info := c.GetRanked(ctx, "Kyoto", "temples", 3)
	require.Len(t, examples, 1)
	assert.Equal(t, 1, info.TotalEvaluated)
	assert.Equal(t, 1, info.TopSelected)
	assert.Equal(t, RankWeights{Satisfaction: 0.4, Popularity: 0.3, Recency: 0.3}, info.Weights)

	require.Len(t, info.Scores, 1)
	// 0.4*0.8 + 0.3*(5/10) + 0.3*(1 - 10/30) = 0.67
	assert.InDelta(t, 0.8, info.Scores[0].Satisfaction, 1e-9)
	assert.InDelta(t, 0.5, info.Scores[0].Popularity, 1e-9)
	assert.InDelta(t, 0.667, info.Scores[0].Recency, 1e-9)
	assert.InDelta(t, 0.67, info.Scores[0].Composite, 1e-9)
}

func TestGetRankedMiss(t *testing.T) {
	c := newTestCache(t, 10)

	examples, info := c.GetRanked(context.Background(), "Nowhere", "x", 3)
	assert.Empty(t, examples)
	assert.Zero(t, info.TotalEvaluated)
}

func TestClear(t *testing.T) {
	c := newTestCache(t, 10)
	ctx := context.Background()

	c.Put(ctx, "A", "x", sampleExamples("A"), DefaultSatisfaction)
	c.Clear(ctx)

	assert.Equal(t, 0, c.GetStats().Size)
	_, ok := c.Get(ctx, "A", "x")
	assert.False(t, ok)
}

func TestCacheSurvivesRestartWithOrder(t *testing.T) {
	dir := t.TempDir()
	driver, err := file.NewDB(dir)
	require.NoError(t, err)
	ctx := context.Background()

	c := New(driver, 2)
	c.Put(ctx, "A", "x", sampleExamples("A"), DefaultSatisfaction)
	c.Put(ctx, "B", "x", sampleExamples("B"), DefaultSatisfaction)
	_, ok := c.Get(ctx, "A", "x") // B is now least recently used
	require.True(t, ok)

	reopened, err := file.NewDB(dir)
	require.NoError(t, err)
	c2 := New(reopened, 2)

	got, ok := c2.Get(ctx, "A", "x")
	require.True(t, ok)
	assert.Equal(t, "A", got[0].Trip.Destination)

	// The persisted access order drives eviction after the restart.
	c2.Put(ctx, "C", "x", sampleExamples("C"), DefaultSatisfaction)
	_, ok = c2.Get(ctx, "B", "x")
	assert.False(t, ok)
	_, ok = c2.Get(ctx, "A", "x")
	assert.True(t, ok)
}

func TestCorruptCacheDocumentDegradesToEmpty(t *testing.T) {
	driver, err := file.NewDB(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, driver.SaveDocument(ctx, store.DocExampleCache, []byte("{broken")))

	c := New(driver, 10)
	assert.Equal(t, 0, c.GetStats().Size)

	c.Put(ctx, "A", "x", sampleExamples("A"), DefaultSatisfaction)
	_, ok := c.Get(ctx, "A", "x")
	assert.True(t, ok)
}
