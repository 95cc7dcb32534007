package flow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/openai/openai-go"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/genai"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// scriptedModel replays responses in order; the last one repeats.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*genai.ToolCallResponse
	errs      []error
	calls     int
	lastSeen  int // number of messages in the latest request
	inFlight  atomic.Int32
	overlap   atomic.Bool
	block     chan struct{}
}

func (m *scriptedModel) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	if m.inFlight.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.inFlight.Add(-1)
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.lastSeen = len(messages)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if len(m.responses) == 0 {
		return &genai.ToolCallResponse{}, nil
	}
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func text(s string) *genai.ToolCallResponse {
	return &genai.ToolCallResponse{Content: s}
}

func toolCall(id, name, args string) *genai.ToolCallResponse {
	return &genai.ToolCallResponse{ToolCalls: []models.ToolCall{call(id, name, args)}}
}

func call(id, name, args string) models.ToolCall {
	return models.ToolCall{ID: id, Type: "function", Function: models.FunctionCall{Name: name, Arguments: json.RawMessage(args)}}
}

// recordingExecutor records every dispatched call.
type recordingExecutor struct {
	mu     sync.Mutex
	calls  []models.FunctionCall
	result string
}

func (e *recordingExecutor) Execute(ctx context.Context, identity string, fc models.FunctionCall) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, fc)
	if e.result == "" {
		return "ok"
	}
	return e.result
}

func (e *recordingExecutor) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.calls))
	for _, c := range e.calls {
		out = append(out, c.Name)
	}
	return out
}

// staticPrompt is a PromptBuilder with a fixed, swappable text.
type staticPrompt struct {
	mu    sync.Mutex
	text  string
	err   error
	count int
}

func (p *staticPrompt) SystemPrompt(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return p.text, p.err
}

func (p *staticPrompt) set(text string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text, p.err = text, err
}

func (p *staticPrompt) builds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// fakeLedger is an in-memory OrderLedger.
type fakeLedger struct {
	placed []models.PlaceOrderArgs
	orders []models.OrderView
	err    error
}

func (l *fakeLedger) PlaceOrder(ctx context.Context, phone string, args models.PlaceOrderArgs) (int64, error) {
	if l.err != nil {
		return 0, l.err
	}
	l.placed = append(l.placed, args)
	return int64(len(l.placed)), nil
}

func (l *fakeLedger) OrderStatus(ctx context.Context, phone string) ([]models.OrderView, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.orders, nil
}

var errModelDown = errors.New("model unavailable")
