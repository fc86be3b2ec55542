package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ConsumerConfig holds Kafka consumer settings.
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	ClientID         string
	Topics           Topics
	MaxAttempts      int
	RetryBackoff     time.Duration
	SessionTimeout   time.Duration
	RebalanceTimeout time.Duration
}

// Consumer polls trigger topics in a consumer group and commits manually
// once each record is handled or abandoned.
type Consumer struct {
	client     *kgo.Client
	dispatcher *Dispatcher
	processor  *processor
}

// NewConsumer connects to the brokers and joins the group.
// PRE: cfg.Brokers is non-empty
// POST: Returns a consumer that has pinged the cluster
func NewConsumer(ctx context.Context, cfg ConsumerConfig, workflows Workflows) (*Consumer, error) {
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.RebalanceTimeout == 0 {
		cfg.RebalanceTimeout = 60 * time.Second
	}
	dispatcher := NewDispatcher(cfg.Topics, workflows)

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(dispatcher.Topics().Names()...),
		kgo.ClientID(cfg.ClientID),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.RebalanceTimeout(cfg.RebalanceTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &Consumer{
		client:     client,
		dispatcher: dispatcher,
		processor:  newProcessor(dispatcher, cfg.MaxAttempts, cfg.RetryBackoff),
	}, nil
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("trigger_event", "event", "consumer_started", "topics", c.dispatcher.Topics().Names())
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			slog.Error("trigger_event", "event", "fetch_error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		var records []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
		if len(records) == 0 {
			continue
		}

		done := c.processor.process(ctx, records)
		if len(done) == 0 {
			continue
		}
		if err := c.client.CommitRecords(ctx, done...); err != nil {
			slog.Error("trigger_event", "event", "commit_failed", "error", err)
		}
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

// processor handles a polled batch in order, retrying transient failures.
type processor struct {
	dispatcher  *Dispatcher
	maxAttempts int
	backoff     time.Duration
}

func newProcessor(d *Dispatcher, maxAttempts int, backoff time.Duration) *processor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &processor{dispatcher: d, maxAttempts: maxAttempts, backoff: backoff}
}

// process dispatches records sequentially and returns the records to commit.
// A record that still fails after maxAttempts is logged and committed so one
// poison trigger cannot stall its partition. Records after a cancellation
// are left uncommitted for redelivery.
func (p *processor) process(ctx context.Context, records []*kgo.Record) []*kgo.Record {
	done := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		if !p.handle(ctx, r) {
			break
		}
		done = append(done, r)
	}
	return done
}

// handle returns false only when ctx ended before the record was settled.
func (p *processor) handle(ctx context.Context, r *kgo.Record) bool {
	for attempt := 1; ; attempt++ {
		err := p.dispatcher.Dispatch(ctx, r.Topic, r.Value)
		if err == nil {
			return true
		}
		if IsPermanent(err) {
			slog.Warn("trigger_event", "event", "record_rejected",
				"topic", r.Topic,
				"partition", r.Partition,
				"offset", r.Offset,
				"error", err,
			)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt >= p.maxAttempts {
			slog.Error("trigger_event", "event", "record_abandoned",
				"topic", r.Topic,
				"partition", r.Partition,
				"offset", r.Offset,
				"attempts", attempt,
				"error", err,
			)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.backoff * time.Duration(attempt)):
		}
	}
}
