package events

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/grantscope/orgsite/pkg/kafka"
)

// AggregatedStats summarizes resolution outcomes consumed from the events
// topic.
type AggregatedStats struct {
	TotalResolutions int64            `json:"total_resolutions"`
	Resolved         int64            `json:"resolved"`
	Unresolved       int64            `json:"unresolved"`
	CacheHits        int64            `json:"cache_hits"`
	BySource         map[string]int64 `json:"by_source"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	TopNames         []NameCount      `json:"top_names"`
}

// NameCount pairs an organization name with its lookup count.
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Aggregator keeps in-memory statistics over consumed resolution events.
// Wire it to a Kafka consumer via HandleEvent.
type Aggregator struct {
	mu         sync.RWMutex
	total      atomic.Int64
	resolved   atomic.Int64
	unresolved atomic.Int64
	cacheHits  atomic.Int64
	bySource   map[string]int64
	latencies  []int64
	nameCounts map[string]int64

	logger *slog.Logger
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		bySource:   make(map[string]int64),
		latencies:  make([]int64, 0, 10000),
		nameCounts: make(map[string]int64),
		logger:     slog.Default().With("component", "event-aggregator"),
	}
}

// HandleEvent returns the Kafka message handler that records resolution
// events into the aggregator. Undecodable messages are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ResolutionEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode resolution event", "error", err)
			return nil
		}
		agg.record(event)
		return nil
	}
}

func (a *Aggregator) record(event ResolutionEvent) {
	a.total.Add(1)
	if event.URL != "" {
		a.resolved.Add(1)
	} else {
		a.unresolved.Add(1)
	}
	if event.CacheHit {
		a.cacheHits.Add(1)
	}

	a.mu.Lock()
	if event.Source != "" {
		a.bySource[event.Source]++
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.nameCounts[event.Key]++
	a.mu.Unlock()
}

// Stats returns a snapshot of the aggregated statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalResolutions: a.total.Load(),
		Resolved:         a.resolved.Load(),
		Unresolved:       a.unresolved.Load(),
		CacheHits:        a.cacheHits.Load(),
		BySource:         make(map[string]int64, len(a.bySource)),
	}
	for source, count := range a.bySource {
		stats.BySource[source] = count
	}

	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
	}
	stats.TopNames = topN(a.nameCounts, 10)
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []NameCount {
	result := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, NameCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
