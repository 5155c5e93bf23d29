package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go-hr/internal/config"
	"go-hr/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamField   = "event"
	streamMaxLen  = 10000
	readBlock     = 5 * time.Second
	readBatchSize = 100
)

// RedisBus replicates events between processes through a Redis stream. Each process reads
// with its own consumer group and acknowledges after local delivery, so an event is
// redelivered after a crash between receipt and ack.
type RedisBus struct {
	client   redis.UniversalClient
	stream   string
	group    string
	consumer string
	local    *MemoryBus
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRedisBus(client redis.UniversalClient, stream, group string, logger *zap.Logger) *RedisBus {
	return &RedisBus{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: group,
		local:    NewMemoryBus(0),
		logger:   logger,
	}
}

// ReplicaName identifies this process's consumer group.
func ReplicaName(cfg *config.Config) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return fmt.Sprintf("%s-%s", cfg.AppId, host)
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	evt.Origin = b.consumer
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{streamField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", b.stream, err)
	}
	metrics.ReplicationEvents.WithLabelValues(string(evt.Type), "published").Inc()
	return nil
}

func (b *RedisBus) Subscribe() (<-chan Event, func()) {
	return b.local.Subscribe()
}

// Start creates the consumer group if needed and begins reading.
func (b *RedisBus) Start(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", b.group, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go b.run(runCtx)
	b.logger.Info("Redis replication started", zap.String("stream", b.stream), zap.String("group", b.group))
	return nil
}

func (b *RedisBus) Stop(context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.local.Close()
	return nil
}

func (b *RedisBus) run(ctx context.Context) {
	defer b.wg.Done()

	// Entries delivered before a restart but never acknowledged come first.
	cursor := "0"
	for ctx.Err() == nil {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, cursor},
			Count:    readBatchSize,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			b.logger.Warn("Redis stream read failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		delivered := 0
		for _, s := range streams {
			for _, msg := range s.Messages {
				b.deliver(ctx, msg)
				delivered++
			}
		}
		if cursor == "0" && delivered == 0 {
			cursor = ">"
		}
	}
}

func (b *RedisBus) deliver(ctx context.Context, msg redis.XMessage) {
	raw, _ := msg.Values[streamField].(string)
	var evt Event
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		b.logger.Warn("Dropping malformed replication message", zap.String("id", msg.ID), zap.Error(err))
	} else {
		metrics.ReplicationEvents.WithLabelValues(string(evt.Type), "received").Inc()
		b.local.dispatch(evt)
	}
	if err := b.client.XAck(ctx, b.stream, b.group, msg.ID).Err(); err != nil {
		b.logger.Warn("Redis ack failed", zap.String("id", msg.ID), zap.Error(err))
	}
}
