package chat

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/chatwidget/pkg/adapter"
	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Responder produces the agent's reply to a user message
type Responder interface {
	Request(ctx context.Context, text string) (*model.Message, error)
}

// DefaultResponses are the canned replies of the mock responder
var DefaultResponses = []string{
	"I'm here to help! What else would you like to know?",
	"That's an interesting question. Let me think about that.",
	"I understand your query. Here's what I can tell you...",
	"Thanks for sharing that with me. Can you tell me more?",
	"I'm processing your request. Is there anything specific you're looking for?",
}

// DefaultResponseDelay is how long the mock responder takes to answer
const DefaultResponseDelay = time.Second

// MockResponder answers with a random canned response after a fixed delay
type MockResponder struct {
	responses []string
	delay     time.Duration
	now       func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// MockOption is a functional option for MockResponder
type MockOption func(*MockResponder)

// WithResponses replaces the canned responses. An empty list is ignored.
func WithResponses(responses []string) MockOption {
	return func(m *MockResponder) {
		if len(responses) > 0 {
			m.responses = responses
		}
	}
}

// WithDelay sets the simulated response latency
func WithDelay(d time.Duration) MockOption {
	return func(m *MockResponder) {
		m.delay = max(0, d)
	}
}

// WithRand sets the random source used to pick a response
func WithRand(rnd *rand.Rand) MockOption {
	return func(m *MockResponder) {
		m.rnd = rnd
	}
}

// WithMockClock replaces time.Now for reply timestamps
func WithMockClock(now func() time.Time) MockOption {
	return func(m *MockResponder) {
		m.now = now
	}
}

// NewMockResponder creates a MockResponder
func NewMockResponder(opts ...MockOption) *MockResponder {
	m := &MockResponder{
		responses: DefaultResponses,
		delay:     DefaultResponseDelay,
		now:       time.Now,
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *MockResponder) Request(ctx context.Context, text string) (*model.Message, error) {
	timer := time.NewTimer(m.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, goerr.Wrap(ctx.Err(), "response request canceled")
	case <-timer.C:
	}

	m.mu.Lock()
	idx := m.rnd.IntN(len(m.responses))
	m.mu.Unlock()

	return model.NewMessage(m.responses[idx], model.SenderAgent, m.now()), nil
}

const defaultSystemPrompt = "You are a friendly website chat assistant. Keep answers short and helpful."

// GeminiResponder forwards each message to Gemini
type GeminiResponder struct {
	gemini       adapter.Gemini
	systemPrompt string
	now          func() time.Time
}

// GeminiOption is a functional option for GeminiResponder
type GeminiOption func(*GeminiResponder)

// WithSystemPrompt sets the system instruction sent with every request
func WithSystemPrompt(prompt string) GeminiOption {
	return func(g *GeminiResponder) {
		if prompt != "" {
			g.systemPrompt = prompt
		}
	}
}

// NewGeminiResponder creates a GeminiResponder
func NewGeminiResponder(gemini adapter.Gemini, opts ...GeminiOption) *GeminiResponder {
	g := &GeminiResponder{
		gemini:       gemini,
		systemPrompt: defaultSystemPrompt,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *GeminiResponder) Request(ctx context.Context, text string) (*model.Message, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, ""),
	}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate chat response")
	}

	reply := extractResponseText(resp)
	if reply == "" {
		return nil, goerr.New("empty chat response")
	}

	return model.NewMessage(reply, model.SenderAgent, g.now()), nil
}

// extractResponseText joins the text parts of the first candidate
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}
