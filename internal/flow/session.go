package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
)

// Session is one customer's live conversation. Chat calls on the same
// session are serialized; different sessions run independently.
type Session struct {
	id       string
	identity string
	loop     *Loop
	prompts  PromptBuilder

	mu           sync.Mutex
	systemPrompt string
	history      []openai.ChatCompletionMessageParamUnion

	createdAt time.Time
	lastUsed  atomic.Int64
}

// NewSession builds the system instruction once and returns an empty conversation.
func NewSession(ctx context.Context, identity string, loop *Loop, prompts PromptBuilder) (*Session, error) {
	prompt, err := prompts.SystemPrompt(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s := &Session{
		id:           uuid.NewString(),
		identity:     identity,
		loop:         loop,
		prompts:      prompts,
		systemPrompt: prompt,
		createdAt:    now,
	}
	s.lastUsed.Store(now.UnixNano())
	slog.Info("Session: created", "sessionID", s.id, "phone", identity, "promptLength", len(prompt))
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Identity returns the customer handle the session belongs to.
func (s *Session) Identity() string { return s.identity }

// Chat runs one utterance through the conversation loop and returns the
// reply. It never fails: collaborator errors come back as "Error: <msg>".
// A failed turn leaves the history as it was unless a tool already ran, in
// which case the utterance, tool call and tool result are kept.
func (s *Session) Chat(ctx context.Context, utterance string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	defer s.touch()

	turn := s.loop.Run(ctx, s.identity, s.systemPrompt, s.history, utterance)
	s.history = append(s.history, turn.Messages...)
	return turn.Reply
}

// Reset clears the history and keeps the current system instruction.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.touch()
	slog.Info("Session.Reset: history cleared", "sessionID", s.id, "phone", s.identity)
}

// Refresh rebuilds the system instruction from the current menu and clears
// the history. On failure the session is left unchanged.
func (s *Session) Refresh(ctx context.Context) error {
	prompt, err := s.prompts.SystemPrompt(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh session %s: %w", s.identity, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemPrompt = prompt
	s.history = nil
	s.touch()
	slog.Info("Session.Refresh: system prompt rebuilt", "sessionID", s.id, "phone", s.identity, "promptLength", len(prompt))
	return nil
}

// HistoryLen returns the number of messages in the conversation.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// SystemPrompt returns the current system instruction.
func (s *Session) SystemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemPrompt
}

// LastUsed returns when the session last started or finished a call.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch() {
	s.touchAt(time.Now())
}

func (s *Session) touchAt(t time.Time) {
	s.lastUsed.Store(t.UnixNano())
}
