// Package cache keeps the recent chat history of a session in a SessionStore.
// The history is a single record: at most MaxStored messages, dropped as a
// whole once it is older than the TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/chatwidget/pkg/adapter"
	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/chatwidget/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultKey       = "chat_agent_messages"
	DefaultMaxStored = 20
	DefaultTTL       = 24 * time.Hour
)

// MessageCache stores the chat history. Store faults are logged and never
// returned: reads degrade to an empty history and writes are dropped.
type MessageCache struct {
	store     adapter.SessionStore
	key       string
	maxStored int
	ttl       time.Duration
	now       func() time.Time
}

// Option is a functional option for MessageCache
type Option func(*MessageCache)

// WithKey sets the store key the record is kept under
func WithKey(key string) Option {
	return func(c *MessageCache) {
		c.key = key
	}
}

// WithMaxStored sets how many of the newest messages are retained
func WithMaxStored(n int) Option {
	return func(c *MessageCache) {
		if n > 0 {
			c.maxStored = n
		}
	}
}

// WithTTL sets how long a record stays valid after it was written
func WithTTL(ttl time.Duration) Option {
	return func(c *MessageCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *MessageCache) {
		c.now = now
	}
}

// New creates a MessageCache on top of store
func New(store adapter.SessionStore, opts ...Option) *MessageCache {
	c := &MessageCache{
		store:     store,
		key:       DefaultKey,
		maxStored: DefaultMaxStored,
		ttl:       DefaultTTL,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ReadAll returns the cached messages, oldest first. An expired record is
// deleted before returning an empty history.
func (c *MessageCache) ReadAll(ctx context.Context) []*model.Message {
	record, err := c.load(ctx)
	if err != nil {
		if !errors.Is(err, adapter.ErrKeyNotFound) {
			logging.From(ctx).Warn("failed to read message cache", "error", err)
		}
		return []*model.Message{}
	}

	if record.Expired(c.now(), c.ttl) {
		logging.From(ctx).Debug("message cache expired",
			"key", c.key,
			"saved_at", time.UnixMilli(record.SavedAt),
		)
		c.delete(ctx)
		return []*model.Message{}
	}

	if record.Messages == nil {
		return []*model.Message{}
	}
	return record.Messages
}

// Append adds msg to the history, keeps only the newest MaxStored messages and
// writes the result back as a new record. It returns the retained messages.
func (c *MessageCache) Append(ctx context.Context, msg *model.Message) []*model.Message {
	messages := append(c.ReadAll(ctx), msg)
	if len(messages) > c.maxStored {
		messages = messages[len(messages)-c.maxStored:]
	}

	record := &model.CacheRecord{
		Messages: messages,
		SavedAt:  c.now().UnixMilli(),
	}
	if err := c.save(ctx, record); err != nil {
		logging.From(ctx).Warn("failed to save message cache", "error", err)
	}

	return messages
}

// Clear removes the record regardless of its age
func (c *MessageCache) Clear(ctx context.Context) {
	c.delete(ctx)
}

func (c *MessageCache) load(ctx context.Context) (*model.CacheRecord, error) {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get cache record", goerr.V("key", c.key))
	}

	var record model.CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal cache record",
			goerr.V("key", c.key), goerr.V("size", len(data)))
	}
	return &record, nil
}

func (c *MessageCache) save(ctx context.Context, record *model.CacheRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal cache record", goerr.V("key", c.key))
	}
	if err := c.store.Set(ctx, c.key, data); err != nil {
		return goerr.Wrap(err, "failed to set cache record", goerr.V("key", c.key))
	}
	return nil
}

func (c *MessageCache) delete(ctx context.Context) {
	if err := c.store.Delete(ctx, c.key); err != nil {
		logging.From(ctx).Warn("failed to delete message cache",
			"error", goerr.Wrap(err, "failed to delete cache record", goerr.V("key", c.key)))
	}
}
