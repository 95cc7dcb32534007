package genai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp     openai.ChatCompletion
	err      error
	params   openai.ChatCompletionNewParams
	deadline bool
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	m.params = params
	_, m.deadline = ctx.Deadline()
	return m.resp, m.err
}

func textCompletion(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestGenerateWithTools_Text(t *testing.T) {
	mock := &mockChatService{resp: textCompletion("Hello! I'm Emma.")}
	client := &Client{chat: mock, model: "test-model", temperature: 0.7, timeout: time.Second}

	out, err := client.GenerateWithTools(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.Content != "Hello! I'm Emma." {
		t.Errorf("unexpected content %q", out.Content)
	}
	if len(out.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(out.ToolCalls))
	}
	if string(mock.params.Model) != "test-model" {
		t.Errorf("expected model test-model, got %s", mock.params.Model)
	}
	if !mock.deadline {
		t.Error("expected per-call deadline on context")
	}
}

func TestGenerateWithTools_ToolCalls(t *testing.T) {
	resp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{{
					ID: "call_1",
					Function: openai.ChatCompletionMessageToolCallFunction{
						Name:      "get_current_day",
						Arguments: "{}",
					},
				}},
			},
		}},
	}
	mock := &mockChatService{resp: resp}
	client := &Client{chat: mock, model: "test-model", maxTokens: 256}

	tools := []openai.ChatCompletionToolParam{{Function: shared.FunctionDefinitionParam{Name: "get_current_day"}}}
	out, err := client.GenerateWithTools(context.Background(), nil, tools)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(out.ToolCalls))
	}
	tc := out.ToolCalls[0]
	if tc.ID != "call_1" || tc.Function.Name != "get_current_day" || string(tc.Function.Arguments) != "{}" {
		t.Errorf("unexpected tool call %+v", tc)
	}
	if len(mock.params.Tools) != 1 {
		t.Errorf("expected tools to be forwarded, got %d", len(mock.params.Tools))
	}
	if mock.deadline {
		t.Error("expected no deadline when timeout is zero")
	}
}

func TestGenerateWithTools_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.GenerateWithTools(context.Background(), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateWithTools_NoChoices(t *testing.T) {
	mockResp := openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{}}
	client := &Client{chat: &mockChatService{resp: mockResp}}
	_, err := client.GenerateWithTools(context.Background(), nil, nil)
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestNewClient_EnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	cli, err := NewClient()
	if err != nil {
		t.Fatalf("expected no error with env key, got %v", err)
	}
	if cli.Model() != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, cli.Model())
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"), WithModel("gemini-2.0-flash"), WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli.Model() != "gemini-2.0-flash" {
		t.Errorf("expected model override, got %s", cli.Model())
	}
	if cli.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cli.timeout)
	}
}
