package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ltprelay/internal/application/port"
)

type Repo struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	keyLatest string // prefix + ":latest"
	notifyKey string // prefix + ":notifications", a stream
}

type LatestPrice struct {
	Segment string  `json:"segment"`
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Ts      int64   `json:"ts"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration) *Repo {
	return &Repo{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		keyLatest: prefix + ":latest",
		notifyKey: prefix + ":notifications",
	}
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, segment, symbol string, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	lp := LatestPrice{Segment: segment, Symbol: symbol, Price: price, Ts: ts}
	b, _ := json.Marshal(lp)

	// Hash: field = "NSE_EQ:RELIANCE" -> json
	field := fmt.Sprintf("%s:%s", segment, symbol)
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyLatest, field, string(b))
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyLatest, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) InsertNotification(ctx context.Context, ts int64, symbol string, price float64, seq uint64) error {
	// Stream: XADD <prefix>:notifications * ts_ms symbol price seq
	_, err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.notifyKey,
		Values: map[string]any{
			"ts_ms":  ts,
			"symbol": symbol,
			"price":  price,
			"seq":    seq,
		},
	}).Result()
	return err
}

func (r *Repo) Close() error { return r.rdb.Close() }

var _ port.Repository = (*Repo)(nil)
