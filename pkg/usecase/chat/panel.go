// Package chat implements the chat panel of the widget and the responders it
// talks to.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/chatwidget/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// ErrorReplyText is shown in place of a reply when the responder fails
const ErrorReplyText = "Sorry, I couldn't process your request. Please try again."

var (
	ErrBusy         = goerr.New("a response is already pending")
	ErrEmptyMessage = goerr.New("message is empty")
	ErrPanelClosed  = goerr.New("chat panel is closed")
)

// MessageStore persists the conversation between panel openings
type MessageStore interface {
	ReadAll(ctx context.Context) []*model.Message
	Append(ctx context.Context, msg *model.Message) []*model.Message
	Clear(ctx context.Context)
}

// Panel is the chat window. It holds the visible conversation and allows at
// most one outstanding responder request.
type Panel struct {
	store     MessageStore
	responder Responder
	now       func() time.Time

	mu       sync.Mutex
	open     bool
	messages []*model.Message
	// cancel is non-nil while a request is in flight
	cancel context.CancelFunc
}

// PanelOption is a functional option for Panel
type PanelOption func(*Panel)

// WithPanelClock replaces time.Now for user and error message timestamps
func WithPanelClock(now func() time.Time) PanelOption {
	return func(p *Panel) {
		p.now = now
	}
}

// NewPanel creates a closed panel
func NewPanel(store MessageStore, responder Responder, opts ...PanelOption) *Panel {
	p := &Panel{
		store:     store,
		responder: responder,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Open shows the panel. A non-empty stored history replaces the visible one.
func (p *Panel) Open(ctx context.Context) {
	stored := p.store.ReadAll(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.open = true
	if len(stored) > 0 {
		p.messages = mergeVisible(stored, p.messages)
	}
}

type messageKey struct {
	id     model.MessageID
	sender model.Sender
	text   string
}

// mergeVisible returns stored followed by the visible messages that are
// missing from it and not older than its newest one. Those were recorded
// while stored was being read.
func mergeVisible(stored, visible []*model.Message) []*model.Message {
	newest := stored[len(stored)-1].ID
	seen := make(map[messageKey]struct{}, len(stored))
	for _, m := range stored {
		seen[messageKey{m.ID, m.Sender, m.Text}] = struct{}{}
	}

	merged := stored
	for _, m := range visible {
		if m.ID < newest {
			continue
		}
		if _, ok := seen[messageKey{m.ID, m.Sender, m.Text}]; ok {
			continue
		}
		merged = append(merged, m)
	}
	return merged
}

// Close hides the panel. A pending request keeps running and its reply is
// still recorded.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
}

// Toggle opens a closed panel or closes an open one and returns the new state
func (p *Panel) Toggle(ctx context.Context) bool {
	if p.IsOpen() {
		p.Close()
		return false
	}
	p.Open(ctx)
	return true
}

// IsOpen reports whether the panel is shown
func (p *Panel) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Busy reports whether a request is in flight
func (p *Panel) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Messages returns a copy of the visible conversation
func (p *Panel) Messages() []*model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.Message(nil), p.messages...)
}

// ClearHistory empties both the stored and the visible conversation
func (p *Panel) ClearHistory(ctx context.Context) {
	p.store.Clear(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = nil
}

// Cancel aborts the in-flight request, which then completes with the error
// reply. It reports whether there was anything to cancel.
func (p *Panel) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return false
	}
	p.cancel()
	return true
}

// Submit records the user's message and starts the responder request in the
// background. The returned channel yields exactly one reply, which is the
// error reply if the request failed, and is then closed.
func (p *Panel) Submit(ctx context.Context, text string) (<-chan *model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(ErrEmptyMessage, "nothing to send")
	}

	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return nil, goerr.Wrap(ErrPanelClosed, "cannot send message")
	}
	if p.cancel != nil {
		p.mu.Unlock()
		return nil, goerr.Wrap(ErrBusy, "cannot send message", goerr.V("text", text))
	}

	reqCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	userMsg := model.NewMessage(text, model.SenderUser, p.now())
	p.messages = append(p.messages, userMsg)
	p.mu.Unlock()

	// store writes must survive cancellation of the request
	storeCtx := context.WithoutCancel(ctx)
	p.store.Append(storeCtx, userMsg)

	done := make(chan *model.Message, 1)
	go func() {
		defer close(done)
		done <- p.complete(storeCtx, reqCtx, text)
	}()

	return done, nil
}

// Send is Submit followed by waiting for the reply
func (p *Panel) Send(ctx context.Context, text string) (*model.Message, error) {
	done, err := p.Submit(ctx, text)
	if err != nil {
		return nil, err
	}
	return <-done, nil
}

func (p *Panel) complete(ctx, reqCtx context.Context, text string) *model.Message {
	reply, err := p.responder.Request(reqCtx, text)
	if err == nil && reply == nil {
		err = goerr.New("responder returned no message")
	}
	if err != nil {
		logging.From(ctx).Warn("failed to get chat response", "error", err)
		reply = p.errorReply()
	}

	p.store.Append(ctx, reply)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, reply)
	p.cancel()
	p.cancel = nil

	return reply
}

func (p *Panel) errorReply() *model.Message {
	msg := model.NewMessage(ErrorReplyText, model.SenderAgent, p.now())
	// keep the error reply after the user message it answers
	msg.ID++
	return msg
}
