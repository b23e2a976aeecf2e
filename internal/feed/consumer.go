package feed

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/swap-router/internal/config"
)

type Consumer struct {
	rdb    *redis.Client
	stream string
	lastNS string
}

func NewConsumer(cfg *config.Config) *Consumer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Consumer{
		rdb:    rdb,
		stream: cfg.Redis.Stream,
		lastNS: cfg.Redis.LastNS,
	}
}

// ReadLast returns the last published swap for the given ID, or redis.Nil
// when nothing was published yet.
func (c *Consumer) ReadLast(ctx context.Context, id string) (EncodedSwap, error) {
	m, err := c.rdb.HGetAll(ctx, c.lastNS+id).Result()
	if err != nil {
		return EncodedSwap{}, err
	}
	if len(m) == 0 {
		return EncodedSwap{}, redis.Nil
	}
	tsMs, _ := strconv.ParseInt(m["ts_ms"], 10, 64)
	return EncodedSwap{
		ID:                m["id"],
		FunctionSignature: m["function_signature"],
		Parameters:        m["parameters"],
		Calldata:          m["calldata"],
		Value:             m["value"],
		TsMs:              tsMs,
	}, nil
}

// StreamConsume reads swaps from the stream via a consumer group and sends
// them to out until ctx is cancelled.
// Create the group once:  XGROUP CREATE swap:stream feed $ MKSTREAM
func (c *Consumer) StreamConsume(ctx context.Context, group, consumer string, out chan<- EncodedSwap) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{c.stream, ">"},
			Count:    200,
			Block:    time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(200 * time.Millisecond)
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				es := EncodedSwap{}
				if v, ok := m.Values["id"].(string); ok {
					es.ID = v
				}
				if v, ok := m.Values["function_signature"].(string); ok {
					es.FunctionSignature = v
				}
				if v, ok := m.Values["parameters"].(string); ok {
					es.Parameters = v
				}
				if v, ok := m.Values["calldata"].(string); ok {
					es.Calldata = v
				}
				if v, ok := m.Values["value"].(string); ok {
					es.Value = v
				}
				if v, ok := m.Values["ts_ms"].(string); ok {
					es.TsMs, _ = strconv.ParseInt(v, 10, 64)
				}
				if es.FunctionSignature != "" {
					out <- es
				}
				_ = c.rdb.XAck(ctx, c.stream, group, m.ID).Err()
			}
		}
	}
}

func (c *Consumer) Close() error { return c.rdb.Close() }
