package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/medisight/portal/internal/platform/events"
)

// DefaultRelayChannel is the Redis channel shared by every server instance.
const DefaultRelayChannel = "portal:events"

// RedisPublisher is the subset of *redis.Client used to publish.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Relay fans events out across server instances. Publish sends to Redis;
// Run delivers everything arriving on the channel to the local hub, so a
// client sees events raised on any instance.
type Relay struct {
	client  RedisPublisher
	channel string
	local   events.Publisher
	logger  zerolog.Logger
}

func NewRelay(client RedisPublisher, channel string, local events.Publisher, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &Relay{client: client, channel: channel, local: local, logger: logger}
}

func (r *Relay) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s to redis: %w", event.Type, err)
	}
	return nil
}

// Run subscribes to the relay channel and blocks until ctx is done.
func (r *Relay) Run(ctx context.Context, rdb *redis.Client) error {
	sub := rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info().Str("channel", r.channel).Msg("redis relay subscribed")

	r.deliver(ctx, sub.Channel())
	return nil
}

func (r *Relay) deliver(ctx context.Context, messages <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Warn().Err(err).Msg("dropping malformed relay message")
				continue
			}
			if err := r.local.Publish(ctx, event); err != nil {
				r.logger.Warn().Err(err).Str("topic", event.Topic).Msg("relay delivery failed")
			}
		}
	}
}
