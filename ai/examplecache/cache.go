// Package examplecache implements the bounded LRU cache of few-shot example
// sets, keyed by a (destination, preferences) fingerprint, with per-entry
// usage and satisfaction statistics and composite re-ranking.
package examplecache

import (
	"container/list"
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hrygo/tripsense/ai/history"
	"github.com/hrygo/tripsense/ai/observability/logging"
	"github.com/hrygo/tripsense/store"
)

const (
	// DefaultMaxSize bounds the number of cached fingerprints.
	DefaultMaxSize = 50

	// DefaultSatisfaction seeds the running satisfaction average when a
	// fingerprint has no recorded feedback yet.
	DefaultSatisfaction = 0.5

	// recencyHorizonDays is the linear decay horizon for the recency score.
	recencyHorizonDays = 30

	fingerprintPrefTokens = 5
)

// Ranking weights for the composite score.
const (
	weightSatisfaction = 0.4
	weightPopularity   = 0.3
	weightRecency      = 0.3
)

// Example is one cached few-shot payload: a past trip plus the similarity
// score it carried when selected.
type Example struct {
	Trip            history.Trip `json:"trip"`
	SimilarityScore float64      `json:"similarity_score"`
}

// EntryStats tracks usage and satisfaction per fingerprint.
type EntryStats struct {
	UsageCount        int       `json:"usage_count"`
	SatisfactionScore float64   `json:"satisfaction_score"`
	CreatedAt         time.Time `json:"created_at"`
	LastUsed          time.Time `json:"last_used,omitzero"`
}

// ScoreBreakdown is the per-example composite score decomposition, rounded
// to three decimals for telemetry.
type ScoreBreakdown struct {
	Satisfaction float64 `json:"satisfaction"`
	Popularity   float64 `json:"popularity"`
	Recency      float64 `json:"recency"`
	Composite    float64 `json:"composite"`
}

// RankWeights reports the fixed composite weights.
type RankWeights struct {
	Satisfaction float64 `json:"satisfaction"`
	Popularity   float64 `json:"popularity"`
	Recency      float64 `json:"recency"`
}

// RankingInfo describes one re-ranking pass.
type RankingInfo struct {
	TotalEvaluated int              `json:"total_examples_evaluated"`
	TopSelected    int              `json:"top_examples_selected"`
	Weights        RankWeights      `json:"ranking_weights"`
	Scores         []ScoreBreakdown `json:"scores"`
}

// EntryInfo is one entry in the aggregate stats listing.
type EntryInfo struct {
	Key               string    `json:"key"`
	UsageCount        int       `json:"usage_count"`
	SatisfactionScore float64   `json:"satisfaction_score"`
	CreatedAt         time.Time `json:"created_at"`
	LastUsed          time.Time `json:"last_used,omitzero"`
}

// Stats is the aggregate view over the whole cache.
type Stats struct {
	Size            int         `json:"cache_size"`
	MaxSize         int         `json:"max_size"`
	TotalUsage      int         `json:"total_usage"`
	AvgSatisfaction float64     `json:"avg_satisfaction"`
	Entries         []EntryInfo `json:"entries"`
}

// document is the persisted shape of the cache.
type document struct {
	Cache map[string][]Example `json:"cache"`
	// CacheOrder lists fingerprints least-recently-used first.
	CacheOrder  []string               `json:"cache_order"`
	Stats       map[string]*EntryStats `json:"stats"`
	LastUpdated time.Time              `json:"last_updated"`
}

type node struct {
	key      string
	examples []Example
}

// Cache is the bounded LRU example cache. Every operation, including reads
// (which promote access order and count usage), runs under one mutex and
// persists the whole document before returning.
type Cache struct {
	driver  store.Driver
	logger  *logging.Logger
	maxSize int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	stats   map[string]*EntryStats

	// nowFunc is swappable in tests.
	nowFunc func() time.Time
}

// New creates the cache and loads any persisted state. A corrupt or
// unreadable document is treated as an empty cache, never a fatal error.
func New(driver store.Driver, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := &Cache{
		driver:  driver,
		logger:  logging.FromContext(context.Background()).WithField("component", "example_cache"),
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		stats:   make(map[string]*EntryStats),
		nowFunc: time.Now,
	}
	c.load(context.Background())
	return c
}

// Fingerprint derives the deterministic cache key: case-folded destination
// plus the first five whitespace tokens of case-folded preferences.
func Fingerprint(destination, preferences string) string {
	words := strings.Fields(strings.ToLower(preferences))
	if len(words) > fingerprintPrefTokens {
		words = words[:fingerprintPrefTokens]
	}
	return strings.ToLower(destination) + "_" + strings.Join(words, "_")
}

func (c *Cache) load(ctx context.Context) {
	data, err := c.driver.LoadDocument(ctx, store.DocExampleCache)
	if err != nil {
		if err != store.ErrNotFound {
			c.logger.Warn("failed to load example cache, starting empty", "error", err.Error())
		}
		return
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("corrupt example cache document, starting empty", "error", err.Error())
		return
	}
	// Replay the saved order LRU-first; successive PushFront leaves the
	// most recently used key at the front.
	for _, key := range doc.CacheOrder {
		examples, ok := doc.Cache[key]
		if !ok {
			continue
		}
		c.entries[key] = c.order.PushFront(&node{key: key, examples: examples})
	}
	if doc.Stats != nil {
		c.stats = doc.Stats
	}
}

// persist writes the whole cache document. Failures are logged and absorbed:
// the in-memory state stays valid and the previous durable state is intact.
func (c *Cache) persist(ctx context.Context) {
	doc := document{
		Cache:       make(map[string][]Example, len(c.entries)),
		CacheOrder:  make([]string, 0, len(c.entries)),
		Stats:       c.stats,
		LastUpdated: c.nowFunc(),
	}
	for e := c.order.Back(); e != nil; e = e.Prev() {
		n := e.Value.(*node)
		doc.Cache[n.key] = n.examples
		doc.CacheOrder = append(doc.CacheOrder, n.key)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		c.logger.Error("failed to encode example cache", "error", err.Error())
		return
	}
	if err := c.driver.SaveDocument(ctx, store.DocExampleCache, data); err != nil {
		c.logger.Error("failed to persist example cache", "error", err.Error())
	}
}

// get is the lock-held lookup: promotes the key, counts the usage and
// persists. Returns nil, false on miss.
func (c *Cache) get(ctx context.Context, key string) ([]Example, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(e)

	st, ok := c.stats[key]
	if !ok {
		st = &EntryStats{CreatedAt: c.nowFunc()}
		c.stats[key] = st
	}
	st.UsageCount++
	st.LastUsed = c.nowFunc()

	c.persist(ctx)
	return e.Value.(*node).examples, true
}

// Get returns the cached examples for (destination, preferences), promoting
// the fingerprint to most-recently-used. A miss is reported as ok=false,
// never as an error.
func (c *Cache) Get(ctx context.Context, destination, preferences string) ([]Example, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(ctx, Fingerprint(destination, preferences))
}

// Put stores examples for (destination, preferences), re-inserting the
// fingerprint as most-recently-used. The satisfaction score is folded into
// the running weighted average; beyond capacity the single least-recently-
// used fingerprint is evicted together with its stats.
func (c *Cache) Put(ctx context.Context, destination, preferences string, examples []Example, satisfaction float64) {
	key := Fingerprint(destination, preferences)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.order.Remove(e)
		delete(c.entries, key)
	}
	c.entries[key] = c.order.PushFront(&node{key: key, examples: examples})

	if st, ok := c.stats[key]; ok {
		st.SatisfactionScore = blend(st.SatisfactionScore, st.UsageCount, satisfaction)
	} else {
		c.stats[key] = &EntryStats{
			SatisfactionScore: satisfaction,
			CreatedAt:         c.nowFunc(),
		}
	}

	if len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			n := oldest.Value.(*node)
			c.order.Remove(oldest)
			delete(c.entries, n.key)
			delete(c.stats, n.key)
		}
	}

	c.persist(ctx)
}

// GetRanked returns up to topK cached examples re-ranked by the composite
// score, plus the ranking breakdown. A miss returns an empty slice and an
// empty info record.
func (c *Cache) GetRanked(ctx context.Context, destination, preferences string, topK int) ([]Example, RankingInfo) {
	key := Fingerprint(destination, preferences)

	c.mu.Lock()
	defer c.mu.Unlock()

	examples, ok := c.get(ctx, key)
	if !ok || len(examples) == 0 {
		return nil, RankingInfo{}
	}

	st := c.stats[key]

	maxUsage := 1
	for _, s := range c.stats {
		if s.UsageCount > maxUsage {
			maxUsage = s.UsageCount
		}
	}

	// All examples under one fingerprint share that fingerprint's stats
	// record, so they score identically and keep their stored order.
	satisfaction := DefaultSatisfaction
	popularity := 0.0
	recency := 1.0
	if st != nil {
		satisfaction = st.SatisfactionScore
		popularity = float64(st.UsageCount) / float64(maxUsage)
		ageDays := c.nowFunc().Sub(st.CreatedAt).Hours() / 24
		recency = math.Max(0, 1-ageDays/recencyHorizonDays)
	}
	composite := weightSatisfaction*satisfaction + weightPopularity*popularity + weightRecency*recency

	type scored struct {
		example Example
		score   float64
	}
	ranked := make([]scored, len(examples))
	for i, ex := range examples {
		ranked[i] = scored{example: ex, score: composite}
	}
	// Stable sort keeps insertion order among ties.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	selected := topK
	if selected > len(ranked) {
		selected = len(ranked)
	}

	info := RankingInfo{
		TotalEvaluated: len(ranked),
		TopSelected:    selected,
		Weights: RankWeights{
			Satisfaction: weightSatisfaction,
			Popularity:   weightPopularity,
			Recency:      weightRecency,
		},
	}
	out := make([]Example, 0, selected)
	for _, r := range ranked[:selected] {
		out = append(out, r.example)
		info.Scores = append(info.Scores, ScoreBreakdown{
			Satisfaction: round3(satisfaction),
			Popularity:   round3(popularity),
			Recency:      round3(recency),
			Composite:    round3(r.score),
		})
	}
	return out, info
}

// UpdateSatisfaction folds a new satisfaction score into the fingerprint's
// running average. A fingerprint without stats is a no-op, not an error.
func (c *Cache) UpdateSatisfaction(ctx context.Context, destination, preferences string, satisfaction float64) {
	key := Fingerprint(destination, preferences)

	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.stats[key]
	if !ok {
		return
	}
	st.SatisfactionScore = blend(st.SatisfactionScore, st.UsageCount, satisfaction)
	c.persist(ctx)
}

// Clear empties the cache and its stats.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.stats = make(map[string]*EntryStats)
	c.persist(ctx)
}

// GetStats returns the aggregate counters and the per-entry listing.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
	}
	var satisfactionSum float64
	for key, st := range c.stats {
		out.TotalUsage += st.UsageCount
		satisfactionSum += st.SatisfactionScore
		out.Entries = append(out.Entries, EntryInfo{
			Key:               key,
			UsageCount:        st.UsageCount,
			SatisfactionScore: st.SatisfactionScore,
			CreatedAt:         st.CreatedAt,
			LastUsed:          st.LastUsed,
		})
	}
	if len(c.stats) > 0 {
		out.AvgSatisfaction = satisfactionSum / float64(len(c.stats))
	}
	return out
}

// blend computes the running weighted satisfaction average, weighted by the
// prior usage count.
func blend(current float64, count int, incoming float64) float64 {
	return (current*float64(count) + incoming) / float64(count+1)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
