package metrics

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/hrygo/tripsense/ai/observability/logging"
	"github.com/hrygo/tripsense/ai/tokenizer"
	"github.com/hrygo/tripsense/store"
)

const (
	// maxRequestRecords bounds the rolling window of raw request records.
	maxRequestRecords = 1000

	// persistEvery batches durable writes: one save per N tracked requests.
	persistEvery = 10

	hourKeyLayout = "2006-01-02_15"
)

// RequestRecord is one tracked API request.
type RequestRecord struct {
	Timestamp  time.Time       `json:"timestamp"`
	Endpoint   string          `json:"endpoint"`
	UserID     string          `json:"user_id"`
	TokenUsage tokenizer.Usage `json:"token_usage"`
	LatencyMs  int64           `json:"latency_ms"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
}

// BucketStats accumulates per-user and per-hour totals.
type BucketStats struct {
	Requests  int64 `json:"requests"`
	Tokens    int64 `json:"tokens"`
	LatencyMs int64 `json:"latency_ms"`
}

// EndpointStats accumulates per-endpoint totals.
type EndpointStats struct {
	Requests  int64 `json:"requests"`
	Tokens    int64 `json:"tokens"`
	LatencyMs int64 `json:"latency_ms"`
	Errors    int64 `json:"errors"`
}

type aggregates struct {
	TotalRequests  int64                     `json:"total_requests"`
	TotalTokens    int64                     `json:"total_tokens"`
	TotalLatencyMs int64                     `json:"total_latency_ms"`
	Errors         int64                     `json:"errors"`
	ByUser         map[string]*BucketStats   `json:"by_user"`
	ByEndpoint     map[string]*EndpointStats `json:"by_endpoint"`
	ByHour         map[string]*BucketStats   `json:"by_hour"`
}

type trackerDocument struct {
	Requests    []RequestRecord `json:"requests"`
	Aggregates  aggregates      `json:"aggregates"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Summary is the windowed overview over recent requests.
type Summary struct {
	TotalRequests       int     `json:"total_requests"`
	SuccessRate         float64 `json:"success_rate"`
	TotalTokens         int64   `json:"total_tokens"`
	AvgTokensPerRequest float64 `json:"avg_tokens_per_request"`
	AvgLatencyMs        float64 `json:"avg_latency_ms"`
	ErrorCount          int     `json:"error_count"`
	TimePeriodHours     int     `json:"time_period_hours"`
}

// UserStats is the per-user activity view.
type UserStats struct {
	UserID        string  `json:"user_id"`
	TotalRequests int64   `json:"total_requests"`
	TotalTokens   int64   `json:"total_tokens"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// HourBucket is one row of the hourly breakdown.
type HourBucket struct {
	Hour         string  `json:"hour"`
	Requests     int64   `json:"requests"`
	Tokens       int64   `json:"tokens"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Dashboard bundles everything the analytics endpoint serves.
type Dashboard struct {
	Summary24h      Summary                   `json:"summary_24h"`
	HourlyBreakdown []HourBucket              `json:"hourly_breakdown"`
	ByEndpoint      map[string]*EndpointStats `json:"by_endpoint"`
	LastUpdated     time.Time                 `json:"last_updated"`
}

// Tracker accumulates request analytics in memory and persists them through
// the store driver, batching one durable write per ten tracked requests.
type Tracker struct {
	driver store.Driver
	logger *logging.Logger

	mu       sync.Mutex
	requests []RequestRecord
	agg      aggregates

	nowFunc func() time.Time
}

// NewTracker creates a tracker and restores any persisted aggregates.
// Corrupt or missing state degrades to empty counters.
func NewTracker(driver store.Driver) *Tracker {
	t := &Tracker{
		driver:  driver,
		logger:  logging.FromContext(context.Background()).WithField("component", "metrics_tracker"),
		agg:     newAggregates(),
		nowFunc: time.Now,
	}
	t.load(context.Background())
	return t
}

func newAggregates() aggregates {
	return aggregates{
		ByUser:     make(map[string]*BucketStats),
		ByEndpoint: make(map[string]*EndpointStats),
		ByHour:     make(map[string]*BucketStats),
	}
}

func (t *Tracker) load(ctx context.Context) {
	data, err := t.driver.LoadDocument(ctx, store.DocMetrics)
	if err != nil {
		if err != store.ErrNotFound {
			t.logger.Warn("failed to load metrics, starting empty", "error", err.Error())
		}
		return
	}
	var doc trackerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.logger.Warn("corrupt metrics document, starting empty", "error", err.Error())
		return
	}
	t.requests = doc.Requests
	if len(t.requests) > maxRequestRecords {
		t.requests = t.requests[len(t.requests)-maxRequestRecords:]
	}
	t.agg = doc.Aggregates
	if t.agg.ByUser == nil {
		t.agg.ByUser = make(map[string]*BucketStats)
	}
	if t.agg.ByEndpoint == nil {
		t.agg.ByEndpoint = make(map[string]*EndpointStats)
	}
	if t.agg.ByHour == nil {
		t.agg.ByHour = make(map[string]*BucketStats)
	}
}

// persist writes the current state. Failures are logged and absorbed.
func (t *Tracker) persist(ctx context.Context) {
	doc := trackerDocument{
		Requests:    t.requests,
		Aggregates:  t.agg,
		LastUpdated: t.nowFunc(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.logger.Error("failed to encode metrics", "error", err.Error())
		return
	}
	if err := t.driver.SaveDocument(ctx, store.DocMetrics, data); err != nil {
		t.logger.Error("failed to persist metrics", "error", err.Error())
	}
}

// TrackRequest records one API request into the rolling window and all
// aggregate views.
func (t *Tracker) TrackRequest(ctx context.Context, endpoint, userID string, usage tokenizer.Usage, latencyMs int64, success bool, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	t.requests = append(t.requests, RequestRecord{
		Timestamp:  now,
		Endpoint:   endpoint,
		UserID:     userID,
		TokenUsage: usage,
		LatencyMs:  latencyMs,
		Success:    success,
		Error:      errMsg,
	})
	if len(t.requests) > maxRequestRecords {
		t.requests = t.requests[len(t.requests)-maxRequestRecords:]
	}

	t.agg.TotalRequests++
	t.agg.TotalTokens += int64(usage.TotalTokens)
	t.agg.TotalLatencyMs += latencyMs
	if !success {
		t.agg.Errors++
	}

	userStats, ok := t.agg.ByUser[userID]
	if !ok {
		userStats = &BucketStats{}
		t.agg.ByUser[userID] = userStats
	}
	userStats.Requests++
	userStats.Tokens += int64(usage.TotalTokens)
	userStats.LatencyMs += latencyMs

	epStats, ok := t.agg.ByEndpoint[endpoint]
	if !ok {
		epStats = &EndpointStats{}
		t.agg.ByEndpoint[endpoint] = epStats
	}
	epStats.Requests++
	epStats.Tokens += int64(usage.TotalTokens)
	epStats.LatencyMs += latencyMs
	if !success {
		epStats.Errors++
	}

	hourKey := now.Format(hourKeyLayout)
	hourStats, ok := t.agg.ByHour[hourKey]
	if !ok {
		hourStats = &BucketStats{}
		t.agg.ByHour[hourKey] = hourStats
	}
	hourStats.Requests++
	hourStats.Tokens += int64(usage.TotalTokens)
	hourStats.LatencyMs += latencyMs

	if t.agg.TotalRequests%persistEvery == 0 {
		t.persist(ctx)
	}
}

// GetSummary summarizes the rolling window over the last N hours.
func (t *Tracker) GetSummary(hours int) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summaryLocked(hours)
}

// lock held
func (t *Tracker) summaryLocked(hours int) Summary {
	cutoff := t.nowFunc().Add(-time.Duration(hours) * time.Hour)

	var total, successful, errors int
	var tokens, latency int64
	for _, r := range t.requests {
		if !r.Timestamp.After(cutoff) {
			continue
		}
		total++
		if r.Success {
			successful++
		} else {
			errors++
		}
		tokens += int64(r.TokenUsage.TotalTokens)
		latency += r.LatencyMs
	}

	summary := Summary{
		TotalRequests:   total,
		TotalTokens:     tokens,
		ErrorCount:      errors,
		TimePeriodHours: hours,
	}
	if total > 0 {
		summary.SuccessRate = float64(successful) / float64(total)
		summary.AvgTokensPerRequest = float64(tokens) / float64(total)
		summary.AvgLatencyMs = float64(latency) / float64(total)
	}
	return summary
}

// GetUserStats returns activity totals for one user. Unknown users return
// zeroed stats, not an error.
func (t *Tracker) GetUserStats(userID string) UserStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := UserStats{UserID: userID}
	bucket, ok := t.agg.ByUser[userID]
	if !ok || bucket.Requests == 0 {
		return stats
	}
	stats.TotalRequests = bucket.Requests
	stats.TotalTokens = bucket.Tokens
	stats.AvgLatencyMs = float64(bucket.LatencyMs) / float64(bucket.Requests)
	return stats
}

// GetHourlyBreakdown returns per-hour buckets within the last N hours,
// oldest first.
func (t *Tracker) GetHourlyBreakdown(hours int) []HourBucket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hourlyLocked(hours)
}

// lock held
func (t *Tracker) hourlyLocked(hours int) []HourBucket {
	cutoff := t.nowFunc().Add(-time.Duration(hours) * time.Hour)

	keys := make([]string, 0, len(t.agg.ByHour))
	for k := range t.agg.ByHour {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]HourBucket, 0, len(keys))
	for _, key := range keys {
		hourTime, err := time.ParseInLocation(hourKeyLayout, key, time.Local)
		if err != nil || !hourTime.After(cutoff) {
			continue
		}
		bucket := t.agg.ByHour[key]
		row := HourBucket{
			Hour:     key,
			Requests: bucket.Requests,
			Tokens:   bucket.Tokens,
		}
		if bucket.Requests > 0 {
			row.AvgLatencyMs = float64(bucket.LatencyMs) / float64(bucket.Requests)
		}
		out = append(out, row)
	}
	return out
}

// GetDashboard bundles the 24h summary, hourly breakdown and endpoint totals.
func (t *Tracker) GetDashboard() Dashboard {
	t.mu.Lock()
	defer t.mu.Unlock()

	byEndpoint := make(map[string]*EndpointStats, len(t.agg.ByEndpoint))
	for k, v := range t.agg.ByEndpoint {
		copied := *v
		byEndpoint[k] = &copied
	}
	return Dashboard{
		Summary24h:      t.summaryLocked(24),
		HourlyBreakdown: t.hourlyLocked(24),
		ByEndpoint:      byEndpoint,
		LastUpdated:     t.nowFunc(),
	}
}

// Flush forces a durable write of the current state.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.persist(ctx)
}
