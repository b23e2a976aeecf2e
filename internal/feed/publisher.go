// Package feed publishes encoded swaps to Redis so downstream submitters
// and monitors can pick them up without talking to the encoder directly.
package feed

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/swap-router/internal/config"
)

// EncodedSwap is the wire record for one encoded swap.
type EncodedSwap struct {
	ID                string
	FunctionSignature string
	Parameters        string
	Calldata          string
	Value             string
	TsMs              int64
}

type Publisher struct {
	rdb    *redis.Client
	stream string
	lastNS string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:    rdb,
		stream: cfg.Redis.Stream,
		lastNS: cfg.Redis.LastNS,
	}
}

// PublishSwap appends the swap to the stream and upserts the last-seen
// record for its ID.
func (p *Publisher) PublishSwap(ctx context.Context, s EncodedSwap) error {
	if s.TsMs == 0 {
		s.TsMs = time.Now().UnixMilli()
	}
	values := map[string]interface{}{
		"id":                 s.ID,
		"function_signature": s.FunctionSignature,
		"parameters":         s.Parameters,
		"calldata":           s.Calldata,
		"value":              s.Value,
		"ts_ms":              s.TsMs,
	}
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return err
	}
	return p.rdb.HSet(ctx, p.lastNS+s.ID, values).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
