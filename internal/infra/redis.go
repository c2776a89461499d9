package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedis opens the client behind the job queues, the payment advisory
// locks and the closing-report cache. It pings at startup so a bad
// REDIS_URL fails the boot instead of the first enqueue.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.ClientName = "cajacancha"

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}
