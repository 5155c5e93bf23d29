package replication

import (
	"context"

	"go-hr/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewEventBus builds the transport named by EVENT_BUS and ties it to the app lifecycle.
func NewEventBus(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) EventBus {
	if cfg.EventBus != "redis" {
		bus := NewMemoryBus(0)
		lc.Append(fx.Hook{OnStop: func(context.Context) error {
			bus.Close()
			return nil
		}})
		return bus
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	bus := NewRedisBus(client, cfg.RedisChannel, ReplicaName(cfg), logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
			return bus.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			_ = bus.Stop(ctx)
			return client.Close()
		},
	})
	return bus
}

func RegisterHub(lc fx.Lifecycle, hub *Hub) {
	lc.Append(fx.Hook{OnStart: hub.Start, OnStop: hub.Stop})
}

// RegisterOutcomeLog logs every terminal decision seen on the bus, including those made
// by other replicas.
func RegisterOutcomeLog(lc fx.Lifecycle, bus EventBus, logger *zap.Logger) {
	var stop func()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			stop = Handle(bus, func(evt Event) {
				logger.Info("Request decided",
					zap.String("request_id", evt.RequestID),
					zap.String("status", evt.Status),
					zap.Int64("version", evt.Version),
					zap.String("origin", evt.Origin))
			}, EventApproved, EventRejected)
			return nil
		},
		OnStop: func(context.Context) error {
			if stop != nil {
				stop()
			}
			return nil
		},
	})
}
