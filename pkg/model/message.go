package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidSender = goerr.New("invalid sender")
)

// MessageID is the creation time of a message in epoch milliseconds. It is not
// guaranteed to be unique when messages are created in rapid succession.
type MessageID int64

// NewMessageID returns the id for a message created at t
func NewMessageID(t time.Time) MessageID {
	return MessageID(t.UnixMilli())
}

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "bot"
)

// Validate checks if the sender is known
func (s Sender) Validate() error {
	switch s {
	case SenderUser, SenderAgent:
		return nil
	default:
		return goerr.Wrap(ErrInvalidSender, "unknown sender", goerr.V("sender", s))
	}
}

// Message is a single chat message. It is never modified after creation.
type Message struct {
	ID        MessageID `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message authored by sender at t
func NewMessage(text string, sender Sender, t time.Time) *Message {
	return &Message{
		ID:        NewMessageID(t),
		Text:      text,
		Sender:    sender,
		Timestamp: t.UTC(),
	}
}

// CacheRecord is the payload kept in the session store: the retained messages,
// oldest first, and the epoch milliseconds of the write that produced it.
type CacheRecord struct {
	Messages []*Message `json:"messages"`
	SavedAt  int64      `json:"savedAt"`
}

// Expired reports whether the record is older than ttl at now
func (r *CacheRecord) Expired(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-r.SavedAt > ttl.Milliseconds()
}
