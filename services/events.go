package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sparrow/chat"
)

type EventType string

const (
	EventState   EventType = "state"
	EventMessage EventType = "message"
	EventTyping  EventType = "typing"
	EventReset   EventType = "reset"
	EventSession EventType = "session"
	EventView    EventType = "view"
)

// Event is emitted after every accepted state change. State is the snapshot
// right after the change; Message is set for EventMessage.
type Event struct {
	Type           EventType     `json:"type"`
	ConversationID string        `json:"conversation_id"`
	Message        *chat.Message `json:"message,omitempty"`
	State          chat.State    `json:"state"`
}

// Publisher fans conversation events out of the process.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// RedisPublisher publishes each event as JSON on "<prefix><conversation id>".
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPublisher(rdb *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

func (p *RedisPublisher) Channel(conversationID string) string {
	return p.prefix + conversationID
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.Channel(ev.ConversationID), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
