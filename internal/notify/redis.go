package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tvp-go/internal/tv"
)

// Redis publishes each changed identifier on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

var _ tv.Notifier = (*Redis)(nil)

// NewRedis publishes through client on channel. The notifier owns client.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Notify(ctx context.Context, uri string) error {
	if err := r.client.Publish(ctx, r.channel, uri).Err(); err != nil {
		return fmt.Errorf("publishing %s on %s: %w", uri, r.channel, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
