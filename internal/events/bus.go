// Package events carries application changes made outside a board to the
// live boards that display them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	// KindRemoved means the application was deleted.
	KindRemoved Kind = "removed"
	// KindChanged means the application was created or edited; boards reload.
	KindChanged Kind = "changed"
)

type Event struct {
	Kind          Kind   `json:"kind"`
	UserID        uint   `json:"user_id"`
	ApplicationID string `json:"application_id"`
}

// Handler receives decoded events.
type Handler func(context.Context, Event)

const defaultPrefix = "board:"

// RedisBus publishes events on one channel per user.
type RedisBus struct {
	client *redis.Client
	prefix string
}

// NewRedisBus connects to redisURL and checks the connection.
func NewRedisBus(redisURL string) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBusWithClient(client), nil
}

// NewRedisBusWithClient creates a bus from an existing client.
func NewRedisBusWithClient(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, prefix: defaultPrefix}
}

func (b *RedisBus) channel(userID uint) string {
	return fmt.Sprintf("%s%d", b.prefix, userID)
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel(ev.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Kind, err)
	}
	return nil
}

// Subscribe listens on every user channel. It returns once redis has
// confirmed the subscription.
func (b *RedisBus) Subscribe(ctx context.Context) (*Subscription, error) {
	ps := b.client.PSubscribe(ctx, b.prefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s*: %w", b.prefix, err)
	}
	return &Subscription{ps: ps}, nil
}

func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

type Subscription struct {
	ps *redis.PubSub
}

// Serve hands every event to h until ctx is done or the subscription is
// closed. Undecodable messages are skipped.
func (s *Subscription) Serve(ctx context.Context, h Handler, onError func(error)) error {
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				if onError != nil {
					onError(fmt.Errorf("decode event on %s: %w", msg.Channel, err))
				}
				continue
			}
			h(ctx, ev)
		}
	}
}

func (s *Subscription) Close() error {
	return s.ps.Close()
}
