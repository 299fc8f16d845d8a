package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func trackEvent(t *testing.T, agg *Aggregator, event ResolutionEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	if err := HandleEvent(agg)(context.Background(), []byte(event.Key), payload); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	now := time.Now().UTC()

	trackEvent(t, agg, ResolutionEvent{
		Key: "william penn foundation", URL: "https://williampennfoundation.org/",
		Source: "search", Confidence: "high", LatencyMs: 1200, Timestamp: now,
	})
	trackEvent(t, agg, ResolutionEvent{
		Key: "william penn foundation", URL: "https://williampennfoundation.org/",
		Source: "cache", Confidence: "high", CacheHit: true, LatencyMs: 2, Timestamp: now,
	})
	trackEvent(t, agg, ResolutionEvent{
		Key: "unknown org", Reason: "no candidates found", LatencyMs: 300, Timestamp: now,
	})

	stats := agg.Stats()
	if stats.TotalResolutions != 3 {
		t.Errorf("total = %d", stats.TotalResolutions)
	}
	if stats.Resolved != 2 || stats.Unresolved != 1 {
		t.Errorf("resolved/unresolved = %d/%d", stats.Resolved, stats.Unresolved)
	}
	if stats.CacheHits != 1 {
		t.Errorf("cache hits = %d", stats.CacheHits)
	}
	if stats.BySource["search"] != 1 || stats.BySource["cache"] != 1 {
		t.Errorf("by source = %v", stats.BySource)
	}
	if len(stats.TopNames) == 0 || stats.TopNames[0].Name != "william penn foundation" {
		t.Errorf("top names = %v", stats.TopNames)
	}
	if stats.TopNames[0].Count != 2 {
		t.Errorf("top name count = %d", stats.TopNames[0].Count)
	}
	if stats.AvgLatencyMs == 0 {
		t.Error("average latency not computed")
	}
}

func TestAggregatorSkipsUndecodableMessages(t *testing.T) {
	agg := NewAggregator()
	if err := HandleEvent(agg)(context.Background(), nil, []byte("{broken")); err != nil {
		t.Errorf("undecodable message must be skipped, got %v", err)
	}
	if stats := agg.Stats(); stats.TotalResolutions != 0 {
		t.Errorf("total = %d, want 0", stats.TotalResolutions)
	}
}

func TestAggregatorPercentiles(t *testing.T) {
	agg := NewAggregator()
	for i := 1; i <= 100; i++ {
		trackEvent(t, agg, ResolutionEvent{
			Key: "k", URL: "https://example.org/", Source: "search", LatencyMs: int64(i),
		})
	}

	stats := agg.Stats()
	if stats.P50LatencyMs < 45 || stats.P50LatencyMs > 55 {
		t.Errorf("p50 = %d", stats.P50LatencyMs)
	}
	if stats.P95LatencyMs < 90 || stats.P95LatencyMs > 100 {
		t.Errorf("p95 = %d", stats.P95LatencyMs)
	}
}
