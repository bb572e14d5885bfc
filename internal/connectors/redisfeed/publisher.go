package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/types"
)

// Publisher pushes cost records to downstream consumers: an append stream
// for history and a latest-record hash per (pair, amount, mode). The core
// never writes files; this is the outbound collaborator surface.
type Publisher struct {
	rdb      *redis.Client
	stream   string
	latestNS string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:      rdb,
		stream:   cfg.Redis.Stream,
		latestNS: cfg.Redis.LatestNS,
	}
}

func recordKey(rec types.CostRecord) string {
	return fmt.Sprintf("%s%s:%v:%s", rec.Source, rec.Target, rec.Amount, rec.Mode)
}

// Publish appends the record to the stream and overwrites the latest-record
// hash for its (pair, amount, mode) slot.
func (p *Publisher) Publish(ctx context.Context, rec types.CostRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := recordKey(rec)
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"key":    key,
			"status": string(rec.Status),
			"record": string(payload),
		},
	}).Err(); err != nil {
		return err
	}

	return p.rdb.HSet(ctx, p.latestNS+key, map[string]interface{}{
		"ts":     rec.Ts.UnixMilli(),
		"status": string(rec.Status),
		"record": string(payload),
	}).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
