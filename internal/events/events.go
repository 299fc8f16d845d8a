// Package events publishes resolution outcomes to Kafka for downstream
// analytics. Publishing is fire-and-forget: a full buffer drops events
// rather than slowing a resolution down.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/grantscope/orgsite/pkg/kafka"
	"github.com/grantscope/orgsite/pkg/resilience"
)

// ResolutionEvent describes one terminal resolution outcome.
type ResolutionEvent struct {
	Name       string    `json:"name"`
	Key        string    `json:"key"`
	URL        string    `json:"url,omitempty"`
	Source     string    `json:"source,omitempty"`
	Confidence string    `json:"confidence,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CacheHit   bool      `json:"cache_hit"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// Collector buffers events and publishes them to Kafka in the background.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan ResolutionEvent
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector with the given buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan ResolutionEvent, bufferSize),
		logger:   slog.Default().With("component", "event-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the background publisher. It runs until ctx ends or Close
// is called, draining what it can on the way out.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("event collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event, dropping it when the buffer is full.
func (c *Collector) Track(event ResolutionEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("resolution event dropped (buffer full)")
	}
}

// Close stops accepting events, waits for the publisher to finish, and
// releases the producer.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
	if err := c.producer.Close(); err != nil {
		c.logger.Error("failed to close producer", "error", err)
	}
}

func (c *Collector) publish(ctx context.Context, event ResolutionEvent) {
	err := resilience.Retry(ctx, "publish-resolution-event", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		return c.producer.Publish(ctx, kafka.Event{
			Key:   event.Key,
			Value: event,
		})
	})
	if err != nil {
		c.logger.Error("failed to publish resolution event", "key", event.Key, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
