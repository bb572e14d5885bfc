package redisfeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sam121/fx-curves/internal/config"
	"github.com/sam121/fx-curves/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Stream = "cost:stream"
	cfg.Redis.LatestNS = "cost:latest:"
	p := NewPublisher(cfg)
	t.Cleanup(func() { _ = p.Close() })
	return p, mr
}

func sampleRecord() types.CostRecord {
	return types.CostRecord{
		Ts:      time.UnixMilli(1700000000000),
		Source:  "EUR",
		Target:  "GBP",
		Amount:  1000,
		Mode:    "BANK_TRANSFER",
		Status:  types.StatusOK,
		Rate:    types.F(0.855),
		FeeBps:  types.F(41.2),
		FeeTotal: types.F(4.12),
	}
}

func TestPublish_AppendsToStreamAndLatest(t *testing.T) {
	p, mr := newTestPublisher(t)

	require.NoError(t, p.Publish(context.Background(), sampleRecord()))
	require.NoError(t, p.Publish(context.Background(), sampleRecord()))

	// Stream keeps the history.
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	n, err := rdb.XLen(context.Background(), "cost:stream").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Latest hash is overwritten per slot.
	h := mr.HGet("cost:latest:EURGBP:1000:BANK_TRANSFER", "status")
	assert.Equal(t, "ok", h)

	var rec types.CostRecord
	require.NoError(t, json.Unmarshal([]byte(mr.HGet("cost:latest:EURGBP:1000:BANK_TRANSFER", "record")), &rec))
	require.NotNil(t, rec.FeeBps)
	assert.InDelta(t, 41.2, *rec.FeeBps, 1e-9)
}

func TestPublish_NullMetricsSurviveRoundTrip(t *testing.T) {
	p, mr := newTestPublisher(t)

	rec := sampleRecord()
	rec.Status = types.StatusError
	rec.Failure = types.FailRateLimited
	rec.Rate = nil
	rec.FeeBps = nil
	rec.FeeTotal = nil
	require.NoError(t, p.Publish(context.Background(), rec))

	var got types.CostRecord
	raw := mr.HGet("cost:latest:EURGBP:1000:BANK_TRANSFER", "record")
	require.NoError(t, json.Unmarshal([]byte(raw), &got))

	assert.Nil(t, got.Rate)
	assert.Nil(t, got.FeeBps)
	assert.Equal(t, types.StatusError, got.Status)
	assert.Equal(t, types.FailRateLimited, got.Failure)
	// Identifying fields survive so "no data" stays distinguishable.
	assert.Equal(t, "EUR", got.Source)
	assert.Equal(t, 1000.0, got.Amount)
}
