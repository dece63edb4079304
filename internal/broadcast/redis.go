package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	appLog "beatclock/internal/log"
)

// RedisOptions configures a Redis bus.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Redis is a Bus backed by Redis pub/sub. Events published by any process
// on the same channel reach every subscriber, including this one.
type Redis struct {
	fanout

	client  *redis.Client
	pubsub  *redis.PubSub
	channel string

	closeOnce sync.Once
	done      chan struct{}
}

// NewRedis connects to Redis and subscribes to opts.Channel. It returns
// once the subscription is confirmed.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Channel == "" {
		return nil, fmt.Errorf("redis bus: channel is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ps := client.Subscribe(ctx, opts.Channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		client.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", opts.Channel, err)
	}

	r := &Redis{
		client:  client,
		pubsub:  ps,
		channel: opts.Channel,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

func (r *Redis) loop() {
	defer close(r.done)
	for msg := range r.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			appLog.Warn("dropping malformed bus message", "channel", msg.Channel, "err", err)
			continue
		}
		r.deliver(ev)
	}
}

// Publish sends ev on the channel. Local subscribers receive it through
// Redis like everyone else.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(h Handler) func() { return r.subscribe(h) }

// Close unsubscribes, waits for the receive loop and closes the client.
func (r *Redis) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.pubsub.Close()
		<-r.done
		if cerr := r.client.Close(); err == nil {
			err = cerr
		}
	})
	return err
}
