package services

import (
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Registry keeps open conversations in memory and closes the ones left idle
// longer than the TTL. Every Get renews a conversation's lease.
type Registry struct {
	cache *cache.Cache
	opts  ConversationOptions
	log   *zap.Logger
}

func NewRegistry(ttl time.Duration, opts ConversationOptions) *Registry {
	opts.setDefaults()

	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}

	r := &Registry{
		cache: cache.New(ttl, cleanup),
		opts:  opts,
		log:   opts.Logger,
	}
	r.cache.OnEvicted(func(id string, v interface{}) {
		if conv, ok := v.(*Conversation); ok {
			conv.Close()
			r.log.Info("conversation evicted", zap.String("conversation_id", id))
		}
	})
	return r
}

func (r *Registry) Create() *Conversation {
	id := NewID()
	conv := NewConversation(id, r.opts)
	r.cache.Set(id, conv, cache.DefaultExpiration)
	r.log.Info("conversation created", zap.String("conversation_id", id))
	return conv
}

func (r *Registry) Get(id string) (*Conversation, error) {
	v, found := r.cache.Get(id)
	if !found {
		return nil, ErrConversationNotFound
	}
	conv := v.(*Conversation)
	r.cache.Set(id, conv, cache.DefaultExpiration)
	return conv, nil
}

// Delete closes the conversation and forgets it.
func (r *Registry) Delete(id string) error {
	if _, found := r.cache.Get(id); !found {
		return ErrConversationNotFound
	}
	r.cache.Delete(id)
	return nil
}

func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

// Close shuts every conversation down.
func (r *Registry) Close() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
