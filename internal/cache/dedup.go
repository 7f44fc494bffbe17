package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	Enabled  bool
}

// DedupClient is a fast-path filter for replayed gateway webhook events.
// The authoritative dedup check is the last_event_id column on the payment
// row; redis just short-circuits the common replay burst. A nil client
// disables the fast path without affecting correctness.
type DedupClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDedupClient(cfg Config) (*DedupClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &DedupClient{client: rdb, ttl: 24 * time.Hour}, nil
}

// FirstDelivery records the event id and reports whether this is the first
// time it was seen. Errors degrade to "first" so redis outages never drop
// legitimate events.
func (d *DedupClient) FirstDelivery(ctx context.Context, eventID string) bool {
	if d == nil || d.client == nil {
		return true
	}

	ok, err := d.client.SetNX(ctx, "webhook:event:"+eventID, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Forget drops the claim on an event id so a gateway redelivery is not
// short-circuited after a failed apply.
func (d *DedupClient) Forget(ctx context.Context, eventID string) {
	if d == nil || d.client == nil {
		return
	}
	d.client.Del(ctx, "webhook:event:"+eventID)
}

func (d *DedupClient) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}
