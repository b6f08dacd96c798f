package notification

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisNotifier publishes alerts on a Redis pub/sub channel so every
// dashboard instance subscribed to it sees them.
type RedisNotifier struct {
	rdb     *goredis.Client
	channel string
	source  string
}

// NewRedisNotifier creates a Redis publisher for channel. source identifies
// this instance on alerts that do not carry one yet.
func NewRedisNotifier(rdb *goredis.Client, channel, source string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel, source: source}
}

func (r *RedisNotifier) Send(ctx context.Context, alert Alert) error {
	if alert.Time.IsZero() {
		alert.Time = time.Now().UTC()
	}
	if alert.Source == "" {
		alert.Source = r.source
	}
	body, err := alert.Encode()
	if err != nil {
		return fmt.Errorf("redis notify: marshal: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("redis notify: publish %s: %w", r.channel, err)
	}
	return nil
}
